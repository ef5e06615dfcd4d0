package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/raushanprabhakar1/voice-agent/internal/metrics"
	"github.com/raushanprabhakar1/voice-agent/internal/models"
)

const appointmentColumns = `id, user_phone, appointment_date, appointment_time,
        appointment_datetime, status, notes, created_at, updated_at`

// CreateAppointment inserts a confirmed appointment, guarding the
// at-most-one-confirmed-per-slot invariant. The transaction pre-check gives a
// fast rejection; the partial unique index is the arbiter when two callers
// race past the check, so exactly one insert commits.
func (s *Store) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	defer observe("create_appointment", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var occupied int
	queryCount := `SELECT COUNT(*) FROM appointments WHERE appointment_datetime = ? AND status = ?`
	err = tx.QueryRowContext(ctx, queryCount, appt.DatetimeKey, models.StatusConfirmed).Scan(&occupied)
	if err != nil {
		return fmt.Errorf("failed to check slot in tx: %w", err)
	}
	if occupied > 0 {
		return ErrSlotTaken
	}

	now := time.Now()
	id := uuid.NewString()
	queryInsert := `INSERT INTO appointments (` + appointmentColumns + `)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, queryInsert,
		id,
		appt.UserPhone,
		appt.Date,
		appt.Time,
		appt.DatetimeKey,
		models.StatusConfirmed,
		appt.Notes,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("failed to insert appointment in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("failed to commit appointment: %w", err)
	}

	appt.ID = id
	appt.Status = models.StatusConfirmed
	appt.CreatedAt = now
	appt.UpdatedAt = now
	return nil
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = ?`
	appt, err := scanAppointment(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return appt, nil
}

// UpdateAppointmentStatus flips an appointment's status and stamps
// updated_at.
func (s *Store) UpdateAppointmentStatus(ctx context.Context, id, status string) error {
	query := `UPDATE appointments SET status = ?, updated_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAppointmentSlot moves an appointment to a new date/time/key and
// replaces its notes. When the appointment is confirmed the move runs through
// the same conflict guard as booking: a transaction pre-check excluding the
// appointment itself, with the unique index deciding races.
func (s *Store) UpdateAppointmentSlot(ctx context.Context, appt *models.Appointment) error {
	defer observe("update_appointment_slot", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if appt.Status == models.StatusConfirmed {
		var occupied int
		queryCount := `SELECT COUNT(*) FROM appointments
                WHERE appointment_datetime = ? AND status = ? AND id != ?`
		err = tx.QueryRowContext(ctx, queryCount, appt.DatetimeKey, models.StatusConfirmed, appt.ID).Scan(&occupied)
		if err != nil {
			return fmt.Errorf("failed to check slot in tx: %w", err)
		}
		if occupied > 0 {
			return ErrSlotTaken
		}
	}

	now := time.Now()
	queryUpdate := `UPDATE appointments
            SET appointment_date = ?, appointment_time = ?, appointment_datetime = ?,
                notes = ?, updated_at = ?
            WHERE id = ?`
	result, err := tx.ExecContext(ctx, queryUpdate,
		appt.Date, appt.Time, appt.DatetimeKey, appt.Notes, now, appt.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("failed to update appointment in tx: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("failed to commit appointment update: %w", err)
	}

	appt.UpdatedAt = now
	return nil
}

// AppointmentsByPhone returns a user's appointments ordered by datetime key
// descending, optionally filtered by status. Empty result is not an error.
func (s *Store) AppointmentsByPhone(ctx context.Context, phone, status string) ([]*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE user_phone = ?`
	args := []any{phone}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY appointment_datetime DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointments by phone: %w", err)
	}
	defer rows.Close()

	var appointments []*models.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read appointments: %w", err)
	}
	return appointments, nil
}

// ConfirmedKeys returns the datetime keys of every confirmed appointment, the
// snapshot the calendar subtracts from the daily template.
func (s *Store) ConfirmedKeys(ctx context.Context) ([]string, error) {
	defer observe("confirmed_keys", time.Now())

	query := `SELECT appointment_datetime FROM appointments WHERE status = ?`
	rows, err := s.db.QueryContext(ctx, query, models.StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to get confirmed keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan confirmed key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read confirmed keys: %w", err)
	}
	return keys, nil
}

func observe(op string, start time.Time) {
	metrics.ObserveStoreOp(op, time.Since(start))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*models.Appointment, error) {
	appt := &models.Appointment{}
	err := row.Scan(
		&appt.ID,
		&appt.UserPhone,
		&appt.Date,
		&appt.Time,
		&appt.DatetimeKey,
		&appt.Status,
		&appt.Notes,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return appt, nil
}
