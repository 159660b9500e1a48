package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all necessary tables and indexes.
// Note: WAL mode is configured in db.go.
func InitSchema(db *sql.DB) error {
	if err := createFeedbackTable(db); err != nil {
		return err
	}
	return createTicketsTable(db)
}

func createFeedbackTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		message TEXT NOT NULL,
		rating INTEGER NOT NULL DEFAULT 0,
		session_id TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON feedback(created_at);
	`

	if _, err := db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to create feedback table: %w", err)
	}
	return nil
}

func createTicketsTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS tickets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		subject TEXT NOT NULL,
		body TEXT NOT NULL,
		session_id TEXT,
		delivered INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tickets_created_at ON tickets(created_at);
	`

	if _, err := db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to create tickets table: %w", err)
	}
	return nil
}
