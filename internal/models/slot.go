package models

// Slot is a bookable (date, time) opportunity. Slots are derived by the
// calendar, never stored; DatetimeKey is their only identity.
type Slot struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	DatetimeKey string `json:"datetime"`
}
