package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/raushanprabhakar1/voice-agent/internal/domain"
	"github.com/raushanprabhakar1/voice-agent/internal/metrics"
	"github.com/raushanprabhakar1/voice-agent/internal/models"
)

// ErrQueueFull is returned when the summary queue cannot accept more work.
var ErrQueueFull = errors.New("summary queue is full")

// SummaryWorker persists conversation summaries off the conversation path.
// A summary write must never delay or fail a tool response, so summaries are
// queued and written with retries in the background.
type SummaryWorker struct {
	store  domain.SummaryStore
	queue  chan *models.ConversationSummary
	retry  RetryPolicy
	logger *zerolog.Logger
}

func NewSummaryWorker(store domain.SummaryStore, queueSize int, retry RetryPolicy, logger *zerolog.Logger) *SummaryWorker {
	if queueSize <= 0 {
		queueSize = models.SummaryQueueSize
	}
	return &SummaryWorker{
		store:  store,
		queue:  make(chan *models.ConversationSummary, queueSize),
		retry:  retry,
		logger: logger,
	}
}

// Enqueue accepts a summary for asynchronous persistence. Non-blocking: a
// full queue is reported to the caller rather than stalling a conversation.
func (w *SummaryWorker) Enqueue(ctx context.Context, summary *models.ConversationSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case w.queue <- summary:
		metrics.SetSummaryQueueDepth(len(w.queue))
		return nil
	default:
		return ErrQueueFull
	}
}

// Start drains the queue until ctx is cancelled.
func (w *SummaryWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("Summary worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Summary worker stopped")
			return
		case summary := <-w.queue:
			metrics.SetSummaryQueueDepth(len(w.queue))
			w.process(ctx, summary)
		}
	}
}

func (w *SummaryWorker) process(ctx context.Context, summary *models.ConversationSummary) {
	maxAttempts := w.retry.MaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := w.store.SaveSummary(ctx, summary)
		if err == nil {
			return
		}
		w.logger.Warn().Err(err).
			Str("user_phone", summary.UserPhone).
			Int("attempt", attempt).
			Msg("Failed to save conversation summary")

		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.retry.NextDelay(attempt)):
		}
	}

	w.logger.Error().
		Str("user_phone", summary.UserPhone).
		Msg("Dropping conversation summary after retries")
}
