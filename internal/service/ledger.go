package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/raushanprabhakar1/voice-agent/internal/database"
	"github.com/raushanprabhakar1/voice-agent/internal/domain"
	"github.com/raushanprabhakar1/voice-agent/internal/events"
	"github.com/raushanprabhakar1/voice-agent/internal/metrics"
	"github.com/raushanprabhakar1/voice-agent/internal/models"
	"github.com/raushanprabhakar1/voice-agent/internal/schedule"
)

// Ledger enforces the booking invariants on top of the store: validation
// against the slot template, the conflict-check-then-insert protocol, and
// status transitions. All availability it reports is recomputed from the live
// store, never from a cached snapshot.
type Ledger struct {
	store    domain.Store
	calendar *schedule.Calendar
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewLedger(store domain.Store, calendar *schedule.Calendar, eventBus domain.EventPublisher, logger *zerolog.Logger) *Ledger {
	return &Ledger{
		store:    store,
		calendar: calendar,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Availability returns the free slots from ref over the configured horizon,
// subtracting every confirmed appointment in the store.
func (l *Ledger) Availability(ctx context.Context, ref time.Time) ([]models.Slot, error) {
	keys, err := l.store.ConfirmedKeys(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return l.calendar.CollectAvailable(ref, schedule.NewKeySet(keys...)), nil
}

// Book creates a confirmed appointment for the slot, or fails with
// database.ErrSlotTaken when another confirmed appointment holds it. The
// time-of-day must come from the configured template; arbitrary times that
// were never offered as slots are rejected.
func (l *Ledger) Book(ctx context.Context, phone, date, timeOfDay, notes string) (*models.Appointment, error) {
	if phone == "" {
		return nil, invalid("phone", "phone is required")
	}
	parsedDate, err := schedule.ParseDate(date)
	if err != nil {
		return nil, invalid("date", "expected YYYY-MM-DD")
	}
	hhmm, ok := schedule.NormalizeTime(timeOfDay)
	if !ok {
		return nil, invalid("time", "expected HH:MM")
	}
	if !l.calendar.Template().Contains(hhmm) {
		return nil, invalid("time", "not an offered slot time")
	}

	appt := &models.Appointment{
		UserPhone:   phone,
		Date:        parsedDate.Format("2006-01-02"),
		Time:        hhmm,
		DatetimeKey: schedule.Key(parsedDate.Format("2006-01-02"), hhmm),
		Notes:       notes,
	}
	if err := l.store.CreateAppointment(ctx, appt); err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			metrics.IncBookingConflict()
			l.logger.Info().Str("slot", appt.DatetimeKey).Msg("Booking refused, slot taken")
			return nil, &SlotConflictError{Date: appt.Date, Time: appt.Time}
		}
		return nil, classify(err)
	}

	l.publishEvent(events.EventAppointmentBooked, appt)
	l.logger.Info().Str("appointment_id", appt.ID).Str("slot", appt.DatetimeKey).Msg("Appointment booked")
	return appt, nil
}

// Cancel sets the appointment to cancelled. Cancelling twice is not an
// error; the record is never deleted.
func (l *Ledger) Cancel(ctx context.Context, id string) (*models.Appointment, error) {
	if id == "" {
		return nil, invalid("appointment_id", "appointment id is required")
	}
	appt, err := l.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	if appt.Status == models.StatusCancelled {
		return appt, nil
	}

	if err := l.store.UpdateAppointmentStatus(ctx, id, models.StatusCancelled); err != nil {
		return nil, classify(err)
	}
	appt, err = l.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, classify(err)
	}

	l.publishEvent(events.EventAppointmentCancelled, appt)
	l.logger.Info().Str("appointment_id", id).Msg("Appointment cancelled")
	return appt, nil
}

// Modify applies a partial update. When date or time change, the datetime key
// is recomputed from the resulting pair and the move runs through the same
// conflict guard as booking, so a confirmed appointment cannot land on an
// occupied slot. Status and id never change here.
func (l *Ledger) Modify(ctx context.Context, id string, patch models.AppointmentPatch) (*models.Appointment, error) {
	if id == "" {
		return nil, invalid("appointment_id", "appointment id is required")
	}
	appt, err := l.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	if patch.Empty() {
		return appt, nil
	}

	date := appt.Date
	if patch.Date != nil {
		parsed, err := schedule.ParseDate(*patch.Date)
		if err != nil {
			return nil, invalid("date", "expected YYYY-MM-DD")
		}
		date = parsed.Format("2006-01-02")
	}
	hhmm := appt.Time
	if patch.Time != nil {
		normalized, ok := schedule.NormalizeTime(*patch.Time)
		if !ok {
			return nil, invalid("time", "expected HH:MM")
		}
		if !l.calendar.Template().Contains(normalized) {
			return nil, invalid("time", "not an offered slot time")
		}
		hhmm = normalized
	}
	if patch.Notes != nil {
		appt.Notes = *patch.Notes
	}

	appt.Date = date
	appt.Time = hhmm
	appt.DatetimeKey = schedule.Key(date, hhmm)

	if err := l.store.UpdateAppointmentSlot(ctx, appt); err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			metrics.IncBookingConflict()
			return nil, &SlotConflictError{Date: appt.Date, Time: appt.Time}
		}
		return nil, classify(err)
	}

	l.publishEvent(events.EventAppointmentModified, appt)
	l.logger.Info().Str("appointment_id", id).Str("slot", appt.DatetimeKey).Msg("Appointment modified")
	return appt, nil
}

// AppointmentsFor lists a user's appointments, newest slot first.
func (l *Ledger) AppointmentsFor(ctx context.Context, phone, status string) ([]*models.Appointment, error) {
	if phone == "" {
		return nil, invalid("phone", "phone is required")
	}
	if status != "" && status != models.StatusConfirmed && status != models.StatusCancelled {
		return nil, invalid("status", "expected confirmed or cancelled")
	}
	appointments, err := l.store.AppointmentsByPhone(ctx, phone, status)
	if err != nil {
		return nil, classify(err)
	}
	return appointments, nil
}

// IdentifyUser looks up or creates the user for a phone number.
func (l *Ledger) IdentifyUser(ctx context.Context, phone string) (*models.User, error) {
	if phone == "" {
		return nil, invalid("phone", "phone is required")
	}
	user, err := l.store.GetUserByPhone(ctx, phone)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, classify(err)
	}

	user = &models.User{Phone: phone}
	if err := l.store.UpsertUser(ctx, user); err != nil {
		return nil, classify(err)
	}
	return user, nil
}

func (l *Ledger) publishEvent(eventType string, appt *models.Appointment) {
	if l.eventBus == nil {
		return
	}
	payload := events.AppointmentEventPayload{
		AppointmentID: appt.ID,
		UserPhone:     appt.UserPhone,
		Date:          appt.Date,
		Time:          appt.Time,
		DatetimeKey:   appt.DatetimeKey,
		Status:        appt.Status,
		Notes:         appt.Notes,
	}
	if err := l.eventBus.PublishJSON(eventType, payload); err != nil {
		l.logger.Warn().Err(err).Str("event", eventType).Msg("Failed to publish event")
	}
}
