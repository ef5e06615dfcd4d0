package domain

import (
	"context"
	"time"

	"github.com/raushanprabhakar1/voice-agent/internal/models"
)

// Store is the transactional record store behind the booking ledger. The
// implementation must guard (appointment_datetime, status=confirmed)
// uniqueness durably; the ledger's pre-checks are only a fast path.
type Store interface {
	CreateAppointment(ctx context.Context, appt *models.Appointment) error
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id, status string) error
	UpdateAppointmentSlot(ctx context.Context, appt *models.Appointment) error
	AppointmentsByPhone(ctx context.Context, phone, status string) ([]*models.Appointment, error)
	ConfirmedKeys(ctx context.Context) ([]string, error)

	UpsertUser(ctx context.Context, user *models.User) error
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
}

// SummaryStore persists conversation summaries; kept separate so the worker
// does not see appointment writes.
type SummaryStore interface {
	SaveSummary(ctx context.Context, summary *models.ConversationSummary) error
}

// Ledger owns appointment state transitions and the availability view.
type Ledger interface {
	Availability(ctx context.Context, ref time.Time) ([]models.Slot, error)
	Book(ctx context.Context, phone, date, timeOfDay, notes string) (*models.Appointment, error)
	Cancel(ctx context.Context, id string) (*models.Appointment, error)
	Modify(ctx context.Context, id string, patch models.AppointmentPatch) (*models.Appointment, error)
	AppointmentsFor(ctx context.Context, phone, status string) ([]*models.Appointment, error)
	IdentifyUser(ctx context.Context, phone string) (*models.User, error)
}

// SessionRepository stores per-conversation state keyed by session id.
type SessionRepository interface {
	GetSession(ctx context.Context, id string) (*models.Session, error)
	SetSession(ctx context.Context, session *models.Session) error
	ClearSession(ctx context.Context, id string) error
	CheckRateLimit(ctx context.Context, id string, limit int, window time.Duration) (bool, error)
}

// EventPublisher fans out domain events to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SummaryQueue accepts summaries for asynchronous persistence.
type SummaryQueue interface {
	Enqueue(ctx context.Context, summary *models.ConversationSummary) error
}
