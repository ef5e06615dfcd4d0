package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/raushanprabhakar1/voice-agent/internal/models"
)

// SaveSummary persists an end-of-conversation summary.
func (s *Store) SaveSummary(ctx context.Context, summary *models.ConversationSummary) error {
	if summary.ID == "" {
		summary.ID = uuid.NewString()
	}
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now()
	}
	query := `INSERT INTO conversation_summaries (id, user_phone, summary, tool_calls, created_at)
            VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		summary.ID,
		summary.UserPhone,
		string(summary.Summary),
		string(summary.ToolCalls),
		summary.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save conversation summary: %w", err)
	}
	return nil
}

// CountSummaries returns the number of stored summaries for a phone.
func (s *Store) CountSummaries(ctx context.Context, phone string) (int, error) {
	query := `SELECT COUNT(*) FROM conversation_summaries WHERE user_phone = ?`
	var count int
	if err := s.db.QueryRowContext(ctx, query, phone).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count summaries: %w", err)
	}
	return count, nil
}
