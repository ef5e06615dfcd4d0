package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/raushanprabhakar1/voice-agent/internal/database"
)

// ErrStoreUnavailable classifies transient store failures. Callers may retry
// the whole operation; book stays safe to retry because it re-runs the
// conflict check.
var ErrStoreUnavailable = errors.New("record store unavailable")

// SlotConflictError names the slot a refused booking asked for. It unwraps
// to database.ErrSlotTaken so callers can match the kind without the detail.
type SlotConflictError struct {
	Date string
	Time string
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("slot already booked for %s at %s", e.Date, e.Time)
}

func (e *SlotConflictError) Unwrap() error {
	return database.ErrSlotTaken
}

// ValidationError reports malformed input. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// classify maps a raw store error into the ledger taxonomy. Sentinels and
// context cancellation pass through; anything else is a store failure and
// must not escape uninterpreted.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrSlotTaken),
		errors.Is(err, database.ErrNotFound),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
