package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	domerrors "github.com/campusbot/campus-chatbot-go/internal/errors"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:) error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndListFeedback(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	first, err := db.SaveFeedback(ctx, &Feedback{
		Name:      "Priya",
		Message:   "The hostel info was really helpful",
		Rating:    5,
		SessionID: "s-1",
		CreatedAt: time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("SaveFeedback() error: %v", err)
	}
	second, err := db.SaveFeedback(ctx, &Feedback{Name: "Arun", Message: "Add more fee details"})
	if err != nil {
		t.Fatalf("SaveFeedback() error: %v", err)
	}
	if first == second {
		t.Error("two inserts returned the same id")
	}

	list, err := db.ListFeedback(ctx, 0)
	if err != nil {
		t.Fatalf("ListFeedback() error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2", len(list))
	}
	// Newest first.
	if list[0].Name != "Arun" || list[1].Name != "Priya" {
		t.Errorf("unexpected order: %q, %q", list[0].Name, list[1].Name)
	}
	if list[1].SessionID != "s-1" {
		t.Errorf("SessionID = %q, want s-1", list[1].SessionID)
	}
	if list[1].Rating != 5 {
		t.Errorf("Rating = %d, want 5", list[1].Rating)
	}
	// Rating is optional; unrated entries stay at zero.
	if list[0].Rating != 0 {
		t.Errorf("unrated entry Rating = %d, want 0", list[0].Rating)
	}

	limited, err := db.ListFeedback(ctx, 1)
	if err != nil {
		t.Fatalf("ListFeedback(limit=1) error: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("len(limited) = %d, want 1", len(limited))
	}
}

func TestGetFeedback(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	id, err := db.SaveFeedback(ctx, &Feedback{Name: "Priya", Message: "thanks"})
	if err != nil {
		t.Fatal(err)
	}

	fb, err := db.GetFeedback(ctx, id)
	if err != nil {
		t.Fatalf("GetFeedback() error: %v", err)
	}
	if fb.Name != "Priya" || fb.Message != "thanks" {
		t.Errorf("unexpected feedback %+v", fb)
	}

	if _, err := db.GetFeedback(ctx, id+100); !errors.Is(err, domerrors.ErrNotFound) {
		t.Errorf("missing feedback error = %v, want ErrNotFound", err)
	}
}

func TestTicketLifecycle(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	id, err := db.SaveTicket(ctx, &Ticket{
		Name:    "Arun",
		Email:   "arun@example.com",
		Subject: "Transcript request",
		Body:    "I need my transcript for an internship application.",
	})
	if err != nil {
		t.Fatalf("SaveTicket() error: %v", err)
	}

	pending, err := db.ListUndeliveredTickets(ctx)
	if err != nil {
		t.Fatalf("ListUndeliveredTickets() error: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != id {
		t.Fatalf("pending = %+v, want one ticket %d", pending, id)
	}
	if pending[0].Delivered {
		t.Error("fresh ticket marked delivered")
	}

	if err := db.MarkTicketDelivered(ctx, id); err != nil {
		t.Fatalf("MarkTicketDelivered() error: %v", err)
	}

	pending, err = db.ListUndeliveredTickets(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("delivered ticket still pending: %+v", pending)
	}

	if err := db.MarkTicketDelivered(ctx, id+100); !errors.Is(err, domerrors.ErrNotFound) {
		t.Errorf("missing ticket error = %v, want ErrNotFound", err)
	}
}

func TestSchemaIsIdempotent(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	if err := InitSchema(db.Conn()); err != nil {
		t.Errorf("second InitSchema() error: %v", err)
	}
}
