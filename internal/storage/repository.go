package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domerrors "github.com/campusbot/campus-chatbot-go/internal/errors"
)

// SaveFeedback inserts a feedback entry and returns its ID.
func (db *DB) SaveFeedback(ctx context.Context, fb *Feedback) (int64, error) {
	query := `
		INSERT INTO feedback (name, message, rating, session_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	createdAt := fb.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := db.conn.ExecContext(ctx, query, fb.Name, fb.Message, fb.Rating, fb.SessionID, createdAt.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to save feedback: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read feedback id: %w", err)
	}
	return id, nil
}

// ListFeedback returns the most recent feedback entries, newest first.
// limit <= 0 returns everything.
func (db *DB) ListFeedback(ctx context.Context, limit int) ([]Feedback, error) {
	query := `
		SELECT id, name, message, rating, session_id, created_at
		FROM feedback
		ORDER BY created_at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var out []Feedback
	for rows.Next() {
		var fb Feedback
		var createdAt int64
		var sessionID sql.NullString
		if err := rows.Scan(&fb.ID, &fb.Name, &fb.Message, &fb.Rating, &sessionID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback row: %w", err)
		}
		fb.SessionID = sessionID.String
		fb.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feedback rows: %w", err)
	}
	return out, nil
}

// GetFeedback returns a single feedback entry by ID.
func (db *DB) GetFeedback(ctx context.Context, id int64) (*Feedback, error) {
	query := `
		SELECT id, name, message, rating, session_id, created_at
		FROM feedback
		WHERE id = ?
	`
	var fb Feedback
	var createdAt int64
	var sessionID sql.NullString
	err := db.conn.QueryRowContext(ctx, query, id).Scan(&fb.ID, &fb.Name, &fb.Message, &fb.Rating, &sessionID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("feedback %d: %w", id, domerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	fb.SessionID = sessionID.String
	fb.CreatedAt = time.Unix(createdAt, 0)
	return &fb, nil
}

// SaveTicket inserts a ticket row and returns its ID.
func (db *DB) SaveTicket(ctx context.Context, t *Ticket) (int64, error) {
	query := `
		INSERT INTO tickets (name, email, subject, body, session_id, delivered, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := db.conn.ExecContext(ctx, query,
		t.Name, t.Email, t.Subject, t.Body, t.SessionID, boolToInt(t.Delivered), createdAt.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to save ticket: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read ticket id: %w", err)
	}
	return id, nil
}

// MarkTicketDelivered flips the delivered flag once the outbound email
// has been accepted by the mail service.
func (db *DB) MarkTicketDelivered(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE tickets SET delivered = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark ticket delivered: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("ticket %d: %w", id, domerrors.ErrNotFound)
	}
	return nil
}

// ListUndeliveredTickets returns tickets whose email never went out,
// oldest first, for the maintenance re-send pass.
func (db *DB) ListUndeliveredTickets(ctx context.Context) ([]Ticket, error) {
	query := `
		SELECT id, name, email, subject, body, session_id, delivered, created_at
		FROM tickets
		WHERE delivered = 0
		ORDER BY created_at ASC, id ASC
	`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list undelivered tickets: %w", err)
	}
	defer rows.Close()

	var out []Ticket
	for rows.Next() {
		var t Ticket
		var createdAt int64
		var delivered int
		var sessionID sql.NullString
		if err := rows.Scan(&t.ID, &t.Name, &t.Email, &t.Subject, &t.Body, &sessionID, &delivered, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticket row: %w", err)
		}
		t.SessionID = sessionID.String
		t.Delivered = delivered != 0
		t.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ticket rows: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
