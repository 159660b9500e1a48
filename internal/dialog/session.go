// Package dialog implements the dialogue orchestrator: a per-conversation
// state machine that routes each utterance to the single-shot eligibility
// path, a direct knowledge base match, the intent classifier, or one of the
// guided multi-turn flows, and composes the final reply.
package dialog

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campusbot/campus-chatbot-go/internal/metrics"
)

// FlowKind is the closed set of guided multi-turn flows. Dispatch on flow
// entry goes through this enum, never raw tag strings.
type FlowKind int

const (
	// FlowNone means no multi-turn flow is active.
	FlowNone FlowKind = iota
	// FlowEligibility collects course, percentage and entrance-exam score.
	FlowEligibility
	// FlowFeedback collects the user's name and feedback message.
	FlowFeedback
	// FlowTicket collects name, email and message for a staff ticket.
	FlowTicket
)

func (k FlowKind) String() string {
	switch k {
	case FlowNone:
		return "none"
	case FlowEligibility:
		return "eligibility"
	case FlowFeedback:
		return "feedback"
	case FlowTicket:
		return "ticket"
	default:
		return "invalid"
	}
}

// flowKindForTag maps flow-triggering intent tags to their FlowKind.
// Unlisted tags answer directly and return FlowNone.
func flowKindForTag(tag string) FlowKind {
	switch tag {
	case "check_eligibility":
		return FlowEligibility
	case "feedback":
		return FlowFeedback
	case "query_ticket", "raise_ticket":
		return FlowTicket
	default:
		return FlowNone
	}
}

// Session is one ongoing conversation. At most one flow is active at a
// time; Cursor indexes the next slot to collect and never points past the
// flow's slot list. Lang is the caller's detected language, carried per
// session so concurrent conversations in different languages do not
// interfere.
type Session struct {
	ID         string
	Flow       FlowKind
	Slots      map[string]string
	Cursor     int
	Lang       string
	LastActive time.Time
}

// resetFlow returns the session to Idle, dropping collected slots.
func (s *Session) resetFlow() {
	s.Flow = FlowNone
	s.Slots = nil
	s.Cursor = 0
}

// startFlow enters a flow at its first slot.
func (s *Session) startFlow(kind FlowKind) {
	s.Flow = kind
	s.Slots = make(map[string]string)
	s.Cursor = 0
}

// InFlow reports whether a multi-turn flow is active.
func (s *Session) InFlow() bool {
	return s.Flow != FlowNone
}

// SessionManager owns the live sessions. Sessions are looked up by ID on
// every turn and reaped after a period of inactivity.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	metrics  *metrics.Metrics
}

// NewSessionManager creates a manager reaping sessions idle longer than ttl.
func NewSessionManager(ttl time.Duration, m *metrics.Metrics) *SessionManager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		metrics:  m,
	}
}

// GetOrCreate returns the session for id, creating a fresh one when id is
// empty or unknown. The returned bool is true when the session was created.
func (m *SessionManager) GetOrCreate(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id != "" {
		if s, ok := m.sessions[id]; ok {
			s.LastActive = time.Now()
			return s, false
		}
	}

	s := &Session{
		ID:         uuid.NewString(),
		Lang:       "en",
		LastActive: time.Now(),
	}
	m.sessions[s.ID] = s
	if m.metrics != nil {
		m.metrics.SessionOpened()
	}
	return s, true
}

// Remove drops a session, typically after a quit.
func (m *SessionManager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		if m.metrics != nil {
			m.metrics.SessionClosed()
		}
	}
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Reap removes sessions idle longer than the TTL and returns how many
// were dropped. Called periodically by the server's maintenance loop.
func (m *SessionManager) Reap() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-m.ttl)
	reaped := 0
	for id, s := range m.sessions {
		if s.LastActive.Before(cutoff) {
			delete(m.sessions, id)
			reaped++
			if m.metrics != nil {
				m.metrics.SessionClosed()
			}
		}
	}
	return reaped
}
