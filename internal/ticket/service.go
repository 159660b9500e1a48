package ticket

import (
	"context"
	"fmt"

	"github.com/campusbot/campus-chatbot-go/internal/logger"
	"github.com/campusbot/campus-chatbot-go/internal/storage"
)

// Service persists tickets and delivers them by email. The mailer may be
// nil, in which case tickets are stored for manual processing only.
type Service struct {
	db     *storage.DB
	mailer Mailer
	logger *logger.Logger
}

// NewService creates a ticket service.
func NewService(db *storage.DB, mailer Mailer, log *logger.Logger) *Service {
	return &Service{
		db:     db,
		mailer: mailer,
		logger: log.WithModule("ticket"),
	}
}

// Raise stores the ticket and attempts email delivery. Storage failure is
// the only hard error; a mail failure leaves the row undelivered and
// still reports success to the caller, since the ticket is recoverable.
func (s *Service) Raise(ctx context.Context, t *storage.Ticket) (int64, error) {
	id, err := s.db.SaveTicket(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("persist ticket: %w", err)
	}
	t.ID = id

	if s.mailer == nil {
		return id, nil
	}

	if err := s.mailer.Send(ctx, t); err != nil {
		s.logger.WithError(err).WithField("ticket_id", id).Warn("ticket email failed, kept undelivered")
		return id, nil
	}
	if err := s.db.MarkTicketDelivered(ctx, id); err != nil {
		s.logger.WithError(err).WithField("ticket_id", id).Warn("failed to mark ticket delivered")
	}
	return id, nil
}

// RetryUndelivered re-sends tickets whose email never went out. Returns
// how many were delivered this pass.
func (s *Service) RetryUndelivered(ctx context.Context) (int, error) {
	if s.mailer == nil {
		return 0, nil
	}

	pending, err := s.db.ListUndeliveredTickets(ctx)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for i := range pending {
		t := &pending[i]
		if err := s.mailer.Send(ctx, t); err != nil {
			s.logger.WithError(err).WithField("ticket_id", t.ID).Warn("ticket re-send failed")
			continue
		}
		if err := s.db.MarkTicketDelivered(ctx, t.ID); err != nil {
			s.logger.WithError(err).WithField("ticket_id", t.ID).Warn("failed to mark ticket delivered")
			continue
		}
		delivered++
	}
	return delivered, nil
}
