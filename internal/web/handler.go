// Package web provides the HTTP API: the chat endpoint with its language
// round-trip, the feedback endpoints, and the handler wiring for gin.
package web

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusbot/campus-chatbot-go/internal/dialog"
	domerrors "github.com/campusbot/campus-chatbot-go/internal/errors"
	"github.com/campusbot/campus-chatbot-go/internal/logger"
	"github.com/campusbot/campus-chatbot-go/internal/metrics"
	"github.com/campusbot/campus-chatbot-go/internal/storage"
	"github.com/campusbot/campus-chatbot-go/internal/translate"
	"github.com/campusbot/campus-chatbot-go/internal/voice"
)

// maxMessageLen caps inbound chat messages. Longer input is rejected
// rather than truncated so the user knows their message was not processed.
const maxMessageLen = 1000

// AudioURLPrefix is where synthesized reply audio is served from.
const AudioURLPrefix = "/static/audio/"

// Resolver resolves one turn of a conversation.
type Resolver interface {
	Resolve(ctx context.Context, s *dialog.Session, utterance string) dialog.Reply
}

// Handler holds the HTTP handlers and their collaborators. Translator and
// Synthesizer may be nil; the chat endpoint then skips the language
// round-trip and the audio reply respectively.
type Handler struct {
	sessions    *dialog.SessionManager
	resolver    Resolver
	translator  translate.Translator
	synthesizer voice.Synthesizer
	db          *storage.DB
	pivotLang   string
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

// HandlerConfig holds configuration for creating a new Handler
type HandlerConfig struct {
	Sessions    *dialog.SessionManager
	Resolver    Resolver
	Translator  translate.Translator
	Synthesizer voice.Synthesizer
	DB          *storage.DB
	PivotLang   string
	Logger      *logger.Logger
	Metrics     *metrics.Metrics
}

// NewHandler creates the HTTP handler set.
func NewHandler(cfg HandlerConfig) *Handler {
	pivot := cfg.PivotLang
	if pivot == "" {
		pivot = "en"
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		sessions:    cfg.Sessions,
		resolver:    cfg.Resolver,
		translator:  cfg.Translator,
		synthesizer: cfg.Synthesizer,
		db:          cfg.DB,
		pivotLang:   pivot,
		logger:      log.WithModule("web"),
		metrics:     cfg.Metrics,
	}
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
	AudioURL  string `json:"audio_url,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
	Ended     bool   `json:"ended,omitempty"`
}

// Chat is the gin handler for POST /chat. The inbound message is pivoted
// to the classifier's language, resolved, and the reply translated back to
// the session's detected language before the optional audio synthesis.
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "chat", domerrors.NewValidationError("body", "invalid JSON body"))
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		h.badRequest(c, "chat", domerrors.NewValidationError("message", "message is required"))
		return
	}
	if len(req.Message) > maxMessageLen {
		h.badRequest(c, "chat", domerrors.NewValidationError("message", "message too long"))
		return
	}

	ctx := c.Request.Context()
	s, created := h.sessions.GetOrCreate(req.SessionID)
	if created && req.SessionID != "" {
		h.logger.WithSession(req.SessionID).Debug("unknown session id, issued a new session")
	}

	// Pivot the utterance to the language the pipeline understands. The
	// translator degrades to the original text on failure, so a broken
	// translation service only costs non-pivot languages their quality.
	utterance := req.Message
	if h.translator != nil {
		res, err := h.translator.Translate(ctx, req.Message, h.pivotLang)
		if err != nil {
			h.logger.WithError(err).WithSession(s.ID).Warn("inbound translation failed")
		}
		utterance = res.Text
		if res.DetectedLang != "" && translate.ValidLang(res.DetectedLang) {
			s.Lang = res.DetectedLang
		}
	}

	reply := h.resolver.Resolve(ctx, s, utterance)

	// Render the reply in the user's own language.
	text := reply.Text
	if h.translator != nil && s.Lang != "" && s.Lang != h.pivotLang {
		res, err := h.translator.Translate(ctx, reply.Text, s.Lang)
		if err != nil {
			h.logger.WithError(err).WithSession(s.ID).Warn("outbound translation failed")
		}
		text = res.Text
	}

	var audioURL string
	if h.synthesizer != nil {
		name, err := h.synthesizer.Synthesize(ctx, text, s.Lang)
		if err != nil {
			h.logger.WithError(err).WithSession(s.ID).Warn("reply audio synthesis failed")
		} else {
			audioURL = AudioURLPrefix + name
		}
	}

	if reply.Ended {
		h.sessions.Remove(s.ID)
	}

	c.JSON(http.StatusOK, chatResponse{
		SessionID: s.ID,
		Response:  text,
		AudioURL:  audioURL,
		ImageURL:  reply.ImageURL,
		Ended:     reply.Ended,
	})
}

type feedbackRequest struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"` // accepted as an alias for user_id
	Message   string `json:"message"`
	Rating    int    `json:"rating"`
	SessionID string `json:"session_id"`
}

// PostFeedback is the gin handler for POST /feedback.
func (h *Handler) PostFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "feedback", domerrors.NewValidationError("body", "invalid JSON body"))
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		h.badRequest(c, "feedback", domerrors.NewValidationError("message", "message is required"))
		return
	}
	if req.Rating < 0 || req.Rating > 5 {
		h.badRequest(c, "feedback", domerrors.NewValidationError("rating", "rating must be between 0 and 5"))
		return
	}
	name := strings.TrimSpace(req.UserID)
	if name == "" {
		name = strings.TrimSpace(req.Name)
	}

	id, err := h.db.SaveFeedback(c.Request.Context(), &storage.Feedback{
		Name:      name,
		Message:   req.Message,
		Rating:    req.Rating,
		SessionID: req.SessionID,
	})
	if err != nil {
		h.logger.WithError(err).Error("failed to store feedback")
		if h.metrics != nil {
			h.metrics.RecordHTTPError("storage", "feedback")
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store feedback"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// ListFeedback is the gin handler for GET /feedback. The optional limit
// query parameter caps the result; newest entries come first.
func (h *Handler) ListFeedback(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.badRequest(c, "feedback", domerrors.NewValidationError("limit", "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	entries, err := h.db.ListFeedback(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("failed to list feedback")
		if h.metrics != nil {
			h.metrics.RecordHTTPError("storage", "feedback")
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list feedback"})
		return
	}
	if entries == nil {
		entries = []storage.Feedback{}
	}

	c.JSON(http.StatusOK, gin.H{"feedback": entries, "count": len(entries)})
}

func (h *Handler) badRequest(c *gin.Context, endpoint string, verr *domerrors.ValidationError) {
	if h.metrics != nil {
		h.metrics.RecordHTTPError("bad_request", endpoint)
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
}
