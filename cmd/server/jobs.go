// Package main provides the campus chatbot server entry point.
package main

import (
	"context"
	"time"

	"github.com/campusbot/campus-chatbot-go/internal/dialog"
	"github.com/campusbot/campus-chatbot-go/internal/logger"
	"github.com/campusbot/campus-chatbot-go/internal/ticket"
	"github.com/campusbot/campus-chatbot-go/internal/voice"
)

const (
	sessionReapInterval = 5 * time.Minute
	audioCleanInterval  = time.Hour
	ticketRetryInterval = 10 * time.Minute
)

// reapSessions periodically drops conversations idle past the TTL.
func reapSessions(ctx context.Context, sessions *dialog.SessionManager, log *logger.Logger) {
	ticker := time.NewTicker(sessionReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if reaped := sessions.Reap(); reaped > 0 {
				log.WithField("reaped", reaped).
					WithField("remaining", sessions.Len()).
					Debug("Idle sessions reaped")
			}
		}
	}
}

// cleanAudioCache periodically removes synthesized audio files older than
// the configured TTL.
func cleanAudioCache(ctx context.Context, synth *voice.GoogleSynthesizer, ttl time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(audioCleanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := synth.CleanOlderThan(ttl)
			if err != nil {
				log.WithError(err).Warn("Audio cache cleanup failed")
				continue
			}
			if removed > 0 {
				log.WithField("removed", removed).Debug("Audio cache cleaned")
			}
		}
	}
}

// retryTickets periodically re-sends tickets whose mail delivery failed.
func retryTickets(ctx context.Context, service *ticket.Service, log *logger.Logger) {
	ticker := time.NewTicker(ticketRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			delivered, err := service.RetryUndelivered(ctx)
			if err != nil {
				log.WithError(err).Warn("Ticket redelivery pass failed")
				continue
			}
			if delivered > 0 {
				log.WithField("delivered", delivered).Info("Undelivered tickets sent")
			}
		}
	}
}
