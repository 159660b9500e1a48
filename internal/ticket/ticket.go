// Package ticket delivers support tickets to the college office mailbox
// through AWS SES. Every ticket is persisted first; a mail outage leaves
// an undelivered row behind instead of losing the ticket.
package ticket

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	domerrors "github.com/campusbot/campus-chatbot-go/internal/errors"
	"github.com/campusbot/campus-chatbot-go/internal/logger"
	"github.com/campusbot/campus-chatbot-go/internal/metrics"
	"github.com/campusbot/campus-chatbot-go/internal/storage"
)

// Mailer sends one ticket email. Implementations must be safe for
// concurrent use.
type Mailer interface {
	Send(ctx context.Context, t *storage.Ticket) error
}

// SESMailer sends ticket emails through AWS SES.
type SESMailer struct {
	client    *ses.Client
	sender    string
	recipient string
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

// NewSESMailer creates a mailer using the default AWS credential chain.
func NewSESMailer(ctx context.Context, region, sender, recipient string, log *logger.Logger, m *metrics.Metrics) (*SESMailer, error) {
	if sender == "" || recipient == "" {
		return nil, fmt.Errorf("ticket sender and recipient must be configured")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SESMailer{
		client:    ses.NewFromConfig(cfg),
		sender:    sender,
		recipient: recipient,
		logger:    log.WithModule("ticket"),
		metrics:   m,
	}, nil
}

// Send delivers one ticket to the office mailbox.
func (s *SESMailer) Send(ctx context.Context, t *storage.Ticket) error {
	subject := fmt.Sprintf("[Campus Chatbot] %s", t.Subject)
	body := fmt.Sprintf(
		"New support ticket from the campus chatbot.\n\nName: %s\nEmail: %s\nRaised: %s\n\n%s\n",
		t.Name, t.Email, t.CreatedAt.Format(time.RFC1123), t.Body)

	input := &ses.SendEmailInput{
		Source: &s.sender,
		Destination: &types.Destination{
			ToAddresses: []string{s.recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: &subject},
			Body: &types.Body{
				Text: &types.Content{Data: &body},
			},
		},
		ReplyToAddresses: []string{t.Email},
	}

	start := time.Now()
	_, err := s.client.SendEmail(ctx, input)
	s.record(err, start)
	if err != nil {
		return domerrors.NewCollaboratorError("ticketing", fmt.Errorf("send ticket email: %w", err))
	}

	s.logger.WithField("ticket_id", t.ID).Info("ticket email delivered")
	return nil
}

func (s *SESMailer) record(err error, start time.Time) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordCollaborator("ticket_mail", status, time.Since(start).Seconds())
}
