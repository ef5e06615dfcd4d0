package models

import "time"

// Appointment is a persisted booking record. DatetimeKey is the canonical
// slot identity (date + time at second granularity, timezone-naive); Date and
// Time are denormalized for querying.
type Appointment struct {
	ID          string    `json:"id"`
	UserPhone   string    `json:"user_phone"`
	Date        string    `json:"appointment_date"`
	Time        string    `json:"appointment_time"`
	DatetimeKey string    `json:"appointment_datetime"`
	Status      string    `json:"status"` // confirmed, cancelled
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Occupies reports whether this appointment consumes a slot. Only confirmed
// appointments block availability; cancelled ones are kept for history.
func (a *Appointment) Occupies() bool {
	return a.Status == StatusConfirmed
}

// AppointmentPatch is a partial update; nil fields are left unchanged.
type AppointmentPatch struct {
	Date  *string
	Time  *string
	Notes *string
}

// Empty reports whether the patch changes nothing.
func (p AppointmentPatch) Empty() bool {
	return p.Date == nil && p.Time == nil && p.Notes == nil
}
