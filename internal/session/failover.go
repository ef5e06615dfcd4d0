package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/raushanprabhakar1/voice-agent/internal/domain"
	"github.com/raushanprabhakar1/voice-agent/internal/models"
)

// recoveryInterval is how long the failover waits before probing the primary
// again after marking it down.
const recoveryInterval = time.Minute

// FailoverSessionRepository prefers the primary (Redis) repository and falls
// back to the in-memory one while the primary is down. Sessions created
// during an outage live only in memory; that loses the identified phone if
// the process restarts, which is acceptable for conversation state.
type FailoverSessionRepository struct {
	primary   domain.SessionRepository
	fallback  domain.SessionRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverSessionRepository(primary, fallback domain.SessionRepository, logger *zerolog.Logger) *FailoverSessionRepository {
	return &FailoverSessionRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverSessionRepository) markDown(err error, op string) {
	r.logger.Error().Err(err).Str("op", op).Msg("Primary session repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverSessionRepository) shouldProbe() bool {
	return time.Since(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func (r *FailoverSessionRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	if !r.isDown.Load() {
		session, err := r.primary.GetSession(ctx, id)
		if err == nil {
			return session, nil
		}
		r.markDown(err, "get_session")
	} else if r.shouldProbe() {
		session, err := r.primary.GetSession(ctx, id)
		if err == nil {
			r.isDown.Store(false)
			return session, nil
		}
		r.lastCheck.Store(time.Now().UnixNano())
	}
	return r.fallback.GetSession(ctx, id)
}

func (r *FailoverSessionRepository) SetSession(ctx context.Context, session *models.Session) error {
	if !r.isDown.Load() {
		err := r.primary.SetSession(ctx, session)
		if err == nil {
			// Mirror into memory so a later failover still sees the session.
			_ = r.fallback.SetSession(ctx, session)
			return nil
		}
		r.markDown(err, "set_session")
	}
	return r.fallback.SetSession(ctx, session)
}

func (r *FailoverSessionRepository) ClearSession(ctx context.Context, id string) error {
	_ = r.fallback.ClearSession(ctx, id)
	if !r.isDown.Load() {
		if err := r.primary.ClearSession(ctx, id); err != nil {
			r.markDown(err, "clear_session")
		}
	}
	return nil
}

func (r *FailoverSessionRepository) CheckRateLimit(ctx context.Context, id string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, id, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.markDown(err, "check_rate_limit")
	}
	return r.fallback.CheckRateLimit(ctx, id, limit, window)
}
