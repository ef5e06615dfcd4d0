package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raushanprabhakar1/voice-agent/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	logger := zerolog.New(os.Stdout)
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newAppointment(phone, date, hhmm string) *models.Appointment {
	return &models.Appointment{
		UserPhone:   phone,
		Date:        date,
		Time:        hhmm,
		DatetimeKey: date + "T" + hhmm + ":00",
	}
}

func TestCreateAndGetAppointment(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	appt := newAppointment("+1555", "2024-01-01", "09:00")
	appt.Notes = "first visit"
	err := store.CreateAppointment(ctx, appt)
	require.NoError(t, err)
	require.NotEmpty(t, appt.ID)
	assert.Equal(t, models.StatusConfirmed, appt.Status)
	assert.False(t, appt.CreatedAt.IsZero())

	got, err := store.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, got.ID)
	assert.Equal(t, "+1555", got.UserPhone)
	assert.Equal(t, "2024-01-01T09:00:00", got.DatetimeKey)
	assert.Equal(t, "first visit", got.Notes)
}

func TestGetAppointmentNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetAppointment(context.Background(), "missing-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateAppointmentSlotTaken(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first := newAppointment("+1555", "2024-01-01", "09:00")
	require.NoError(t, store.CreateAppointment(ctx, first))

	second := newAppointment("+1666", "2024-01-01", "09:00")
	err := store.CreateAppointment(ctx, second)
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.Empty(t, second.ID)
}

func TestCancelledSlotCanBeRebooked(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first := newAppointment("+1555", "2024-01-01", "09:00")
	require.NoError(t, store.CreateAppointment(ctx, first))
	require.NoError(t, store.UpdateAppointmentStatus(ctx, first.ID, models.StatusCancelled))

	// Cancellation keeps the record but releases the slot.
	second := newAppointment("+1666", "2024-01-01", "09:00")
	require.NoError(t, store.CreateAppointment(ctx, second))

	got, err := store.GetAppointment(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
}

func TestUpdateAppointmentStatusNotFound(t *testing.T) {
	store := setupTestStore(t)

	err := store.UpdateAppointmentStatus(context.Background(), "missing-id", models.StatusCancelled)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAppointmentSlot(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	appt := newAppointment("+1555", "2024-01-01", "09:00")
	require.NoError(t, store.CreateAppointment(ctx, appt))

	appt.Date = "2024-01-02"
	appt.Time = "11:00"
	appt.DatetimeKey = "2024-01-02T11:00:00"
	appt.Notes = "moved"
	require.NoError(t, store.UpdateAppointmentSlot(ctx, appt))

	got, err := store.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02T11:00:00", got.DatetimeKey)
	assert.Equal(t, "moved", got.Notes)
	assert.Equal(t, models.StatusConfirmed, got.Status)

	// The old slot is free again.
	keys, err := store.ConfirmedKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-02T11:00:00"}, keys)
}

func TestUpdateAppointmentSlotConflict(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	blocker := newAppointment("+1555", "2024-01-01", "09:00")
	require.NoError(t, store.CreateAppointment(ctx, blocker))

	victim := newAppointment("+1666", "2024-01-01", "11:00")
	require.NoError(t, store.CreateAppointment(ctx, victim))

	victim.Time = "09:00"
	victim.DatetimeKey = "2024-01-01T09:00:00"
	err := store.UpdateAppointmentSlot(ctx, victim)
	assert.ErrorIs(t, err, ErrSlotTaken)

	// The victim stays on its original slot.
	got, err := store.GetAppointment(ctx, victim.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T11:00:00", got.DatetimeKey)
}

func TestAppointmentsByPhoneOrdering(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, slot := range [][2]string{
		{"2024-01-01", "09:00"},
		{"2024-01-03", "14:00"},
		{"2024-01-02", "11:00"},
	} {
		require.NoError(t, store.CreateAppointment(ctx, newAppointment("+1555", slot[0], slot[1])))
	}
	require.NoError(t, store.CreateAppointment(ctx, newAppointment("+1666", "2024-01-01", "16:00")))

	appointments, err := store.AppointmentsByPhone(ctx, "+1555", "")
	require.NoError(t, err)
	require.Len(t, appointments, 3)
	assert.Equal(t, "2024-01-03T14:00:00", appointments[0].DatetimeKey)
	assert.Equal(t, "2024-01-02T11:00:00", appointments[1].DatetimeKey)
	assert.Equal(t, "2024-01-01T09:00:00", appointments[2].DatetimeKey)
}

func TestAppointmentsByPhoneStatusFilter(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	appt := newAppointment("+1555", "2024-01-01", "09:00")
	require.NoError(t, store.CreateAppointment(ctx, appt))
	require.NoError(t, store.UpdateAppointmentStatus(ctx, appt.ID, models.StatusCancelled))
	require.NoError(t, store.CreateAppointment(ctx, newAppointment("+1555", "2024-01-01", "11:00")))

	confirmed, err := store.AppointmentsByPhone(ctx, "+1555", models.StatusConfirmed)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, "2024-01-01T11:00:00", confirmed[0].DatetimeKey)

	cancelled, err := store.AppointmentsByPhone(ctx, "+1555", models.StatusCancelled)
	require.NoError(t, err)
	require.Len(t, cancelled, 1)

	empty, err := store.AppointmentsByPhone(ctx, "+1999", "")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestConfirmedKeysSkipsCancelled(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	kept := newAppointment("+1555", "2024-01-01", "09:00")
	require.NoError(t, store.CreateAppointment(ctx, kept))

	dropped := newAppointment("+1555", "2024-01-01", "11:00")
	require.NoError(t, store.CreateAppointment(ctx, dropped))
	require.NoError(t, store.UpdateAppointmentStatus(ctx, dropped.ID, models.StatusCancelled))

	keys, err := store.ConfirmedKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01T09:00:00"}, keys)
}
