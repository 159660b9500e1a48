package storage

import "time"

// Feedback is one captured feedback entry. Rating is 1-5, 0 when the
// channel did not collect one (the chat flow only asks for a message).
type Feedback struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	Rating    int       `json:"rating,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Ticket is one support ticket raised through the ticket flow. Delivered
// records whether the outbound email was sent; the row is written either
// way so staff can recover tickets lost to mail outages.
type Ticket struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	SessionID string    `json:"session_id,omitempty"`
	Delivered bool      `json:"delivered"`
	CreatedAt time.Time `json:"created_at"`
}
