package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/raushanprabhakar1/voice-agent/internal/models"
)

// UpsertUser creates the user or keeps the existing record, never clobbering
// a known name with an empty one.
func (s *Store) UpsertUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (phone, name, created_at)
            VALUES (?, ?, ?)
            ON CONFLICT(phone) DO UPDATE SET
                name = COALESCE(NULLIF(excluded.name, ''), name)`
	now := time.Now()
	if _, err := s.db.ExecContext(ctx, query, user.Phone, user.Name, now); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	return nil
}

func (s *Store) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	query := `SELECT phone, name, created_at FROM users WHERE phone = ?`
	var user models.User
	var name sql.NullString
	err := s.db.QueryRowContext(ctx, query, phone).Scan(&user.Phone, &name, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.Name = name.String
	return &user, nil
}
