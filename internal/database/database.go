package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	sqlite3 "github.com/mattn/go-sqlite3"
)

var (
	// ErrSlotTaken means a confirmed appointment already occupies the slot.
	ErrSlotTaken = errors.New("slot already booked")

	// ErrNotFound means the referenced record does not exist.
	ErrNotFound = errors.New("record not found")
)

// Store wraps the SQLite database holding appointments, users and
// conversation summaries.
type Store struct {
	db     *sql.DB
	logger *zerolog.Logger
}

// NewStore opens (creating if needed) the database at path and runs schema
// migration. Use ":memory:" for an in-memory database in tests.
func NewStore(path string, logger *zerolog.Logger) (*Store, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// _txlock=immediate takes the write lock when a transaction begins, so
	// concurrent write transactions queue on busy_timeout instead of hitting
	// an instant SQLITE_BUSY on the read-to-write lock upgrade.
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return &Store{db: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
            phone TEXT PRIMARY KEY,
            name TEXT,
            created_at DATETIME NOT NULL
        )`,

		`CREATE TABLE IF NOT EXISTS appointments (
            id TEXT PRIMARY KEY,
            user_phone TEXT NOT NULL,
            appointment_date TEXT NOT NULL,
            appointment_time TEXT NOT NULL,
            appointment_datetime TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'confirmed',
            notes TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,

		`CREATE TABLE IF NOT EXISTS conversation_summaries (
            id TEXT PRIMARY KEY,
            user_phone TEXT NOT NULL,
            summary TEXT NOT NULL,
            tool_calls TEXT NOT NULL,
            created_at DATETIME NOT NULL
        )`,

		// The durable uniqueness guard: at most one confirmed appointment per
		// datetime key, enforced by the store regardless of how many agent
		// processes share it.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_appointments_confirmed_slot
            ON appointments(appointment_datetime) WHERE status = 'confirmed'`,

		`CREATE INDEX IF NOT EXISTS idx_appointments_phone ON appointments(user_phone)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_status ON appointments(status)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_datetime ON appointments(appointment_datetime)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// Ping verifies the store connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// isUniqueViolation detects the partial unique index firing on insert/update.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
