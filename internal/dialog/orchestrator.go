package dialog

import (
	"context"
	"strings"
	"time"

	"github.com/campusbot/campus-chatbot-go/internal/classifier"
	"github.com/campusbot/campus-chatbot-go/internal/extract"
	"github.com/campusbot/campus-chatbot-go/internal/knowledge"
	"github.com/campusbot/campus-chatbot-go/internal/logger"
	"github.com/campusbot/campus-chatbot-go/internal/metrics"
	"github.com/campusbot/campus-chatbot-go/internal/nlp"
	"github.com/campusbot/campus-chatbot-go/internal/rules"
	"github.com/campusbot/campus-chatbot-go/internal/storage"
)

// Resolution paths recorded per turn.
const (
	pathSingleShot = "single_shot"
	pathDirect     = "direct"
	pathClassifier = "classifier"
	pathFlow       = "flow"
	pathFallback   = "fallback"
	pathCanned     = "canned"
)

// FallbackResponder answers utterances the core pipeline could not
// resolve. contextJSON carries the relevant knowledge base slice.
type FallbackResponder interface {
	Respond(ctx context.Context, utterance, contextJSON string) (string, error)
}

// ContextRetriever selects the knowledge base tags most relevant to an
// utterance, for fallback context.
type ContextRetriever interface {
	TopTags(query string, topN int) []string
}

// FeedbackStore persists captured feedback.
type FeedbackStore interface {
	SaveFeedback(ctx context.Context, fb *storage.Feedback) (int64, error)
}

// Ticketing raises a support ticket with the college office.
type Ticketing interface {
	Raise(ctx context.Context, t *storage.Ticket) (int64, error)
}

// Reply is the orchestrator's answer for one turn.
type Reply struct {
	Text     string
	ImageURL string
	Path     string // resolution path, for metrics and logs
	Ended    bool   // true after a quit
}

// Options carries the orchestrator's collaborators. Base, Preprocessor,
// Model, Extractor and Engine are required; the rest may be nil and the
// orchestrator degrades to canned replies for the paths they serve.
type Options struct {
	Base         *knowledge.Base
	Preprocessor *nlp.Preprocessor
	Model        *classifier.Model
	Extractor    *extract.Extractor
	Engine       *rules.Engine
	Retriever    ContextRetriever
	Fallback     FallbackResponder
	Feedback     FeedbackStore
	Ticketing    Ticketing
	FallbackTopK int
	Logger       *logger.Logger
	Metrics      *metrics.Metrics
}

// Orchestrator routes each utterance through the resolution pipeline.
// It is stateless between turns except for the Session passed in, so one
// orchestrator serves all conversations concurrently.
type Orchestrator struct {
	base         *knowledge.Base
	pre          *nlp.Preprocessor
	model        *classifier.Model
	extractor    *extract.Extractor
	engine       *rules.Engine
	retriever    ContextRetriever
	fallback     FallbackResponder
	feedback     FeedbackStore
	ticketing    Ticketing
	fallbackTopK int
	logger       *logger.Logger
	metrics      *metrics.Metrics
	pick         func(n int) int
}

// New creates an orchestrator.
func New(opts Options) *Orchestrator {
	topK := opts.FallbackTopK
	if topK <= 0 {
		topK = 5
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Orchestrator{
		base:         opts.Base,
		pre:          opts.Preprocessor,
		model:        opts.Model,
		extractor:    opts.Extractor,
		engine:       opts.Engine,
		retriever:    opts.Retriever,
		fallback:     opts.Fallback,
		feedback:     opts.Feedback,
		ticketing:    opts.Ticketing,
		fallbackTopK: topK,
		logger:       log.WithModule("dialog"),
		metrics:      opts.Metrics,
		pick:         pickIndex,
	}
}

// Resolve handles one turn of a conversation. Every call returns a
// non-empty textual reply; collaborator failures degrade, they never
// propagate.
func (o *Orchestrator) Resolve(ctx context.Context, s *Session, utterance string) Reply {
	start := time.Now()
	reply := o.resolve(ctx, s, utterance)
	if o.metrics != nil {
		o.metrics.RecordTurn(reply.Path, "ok", time.Since(start).Seconds())
	}
	o.logger.WithSession(s.ID).WithFields(map[string]any{
		"path": reply.Path,
		"flow": s.Flow.String(),
	}).Debug("turn resolved")
	return reply
}

func (o *Orchestrator) resolve(ctx context.Context, s *Session, utterance string) Reply {
	s.LastActive = time.Now()
	trimmed := strings.TrimSpace(utterance)

	// A literal quit terminates from any state.
	if isQuit(trimmed) {
		s.resetFlow()
		return Reply{Text: msgGoodbye, Path: pathCanned, Ended: true}
	}

	if s.InFlow() {
		return o.consumeSlot(ctx, s, trimmed)
	}

	if trimmed == "" {
		return Reply{Text: msgDontUnderstand, Path: pathCanned}
	}

	// Single-shot eligibility: all or nothing, never enters a flow.
	facts := o.extractor.Extract(trimmed)
	if facts.HasPercentage() {
		if facts.Complete() {
			verdict := o.engine.Evaluate(facts.CourseKey, facts.Percentage)
			if err := verdict.Err(); err != nil {
				o.logger.WithError(err).WithSession(s.ID).WithField("course", verdict.CourseKey).Warn("extracted course has no admission rule")
			}
			return Reply{Text: verdictMessage(verdict, "", ""), Path: pathSingleShot}
		}
		o.logger.WithError(facts.Err()).WithSession(s.ID).Debug("partial extraction, asking to clarify")
		return Reply{Text: clarificationMessage(facts.HasCourse(), facts.HasPercentage()), Path: pathSingleShot}
	}

	// Direct pattern match short-circuits classification.
	if intent, ok := o.base.DirectMatch(trimmed); ok {
		return o.dispatchIntent(s, intent, pathDirect)
	}

	// Classifier on the normalized utterance.
	normalized := o.pre.NormalizeJoined(trimmed)
	result := o.model.Classify(normalized)
	if o.metrics != nil && result.Confidence > 0 {
		o.metrics.RecordConfidence(result.Confidence)
	}
	if result.Matched {
		if intent, ok := o.base.ByTag(result.Tag); ok {
			return o.dispatchIntent(s, intent, pathClassifier)
		}
		// A trained tag missing from the base means the artifact and the
		// document diverged; treat as no-match.
		o.logger.WithField("tag", result.Tag).Warn("classifier tag not in knowledge base")
	} else {
		o.logger.WithError(result.Err()).WithSession(s.ID).WithField("confidence", result.Confidence).Debug("classifier below threshold")
	}
	if o.metrics != nil {
		o.metrics.RecordNoMatch()
	}

	return o.answerWithFallback(ctx, trimmed)
}

// dispatchIntent either enters a guided flow or answers with one of the
// intent's stored responses.
func (o *Orchestrator) dispatchIntent(s *Session, intent knowledge.Intent, path string) Reply {
	if kind := flowKindForTag(intent.Tag); kind != FlowNone {
		return o.enterFlow(s, kind, path)
	}

	text := intent.Responses[o.pick(len(intent.Responses))]
	return Reply{Text: text, ImageURL: intent.ImageURL, Path: path}
}

func (o *Orchestrator) enterFlow(s *Session, kind FlowKind, path string) Reply {
	def, ok := flowDefs[kind]
	if !ok || len(def.slots) == 0 {
		o.logger.WithField("flow", kind.String()).Error("flow kind has no definition")
		return Reply{Text: msgDontUnderstand, Path: pathCanned}
	}

	s.startFlow(kind)
	return Reply{Text: def.slots[0].prompt, Path: path}
}

// consumeSlot treats the whole turn as the answer for the current slot.
// Invalid input re-prompts without advancing; a valid answer advances the
// cursor by exactly one. After the last slot the terminal action runs and
// the session returns to Idle.
func (o *Orchestrator) consumeSlot(ctx context.Context, s *Session, answer string) Reply {
	def := flowDefs[s.Flow]
	if s.Cursor >= len(def.slots) {
		// Unreachable if transitions are correct; recover to Idle.
		o.logger.WithSession(s.ID).Error("slot cursor past flow end")
		s.resetFlow()
		return Reply{Text: msgDontUnderstand, Path: pathCanned}
	}

	slot := def.slots[s.Cursor]
	value, ok := slot.validate(o, answer)
	if !ok {
		return Reply{Text: slot.reprompt, Path: pathFlow}
	}

	s.Slots[slot.name] = value
	s.Cursor++

	if s.Cursor < len(def.slots) {
		return Reply{Text: def.slots[s.Cursor].prompt, Path: pathFlow}
	}

	text := def.complete(ctx, o, s)
	s.resetFlow()
	return Reply{Text: text, Path: pathFlow}
}

// answerWithFallback routes to the generative collaborator with the most
// relevant knowledge base slice as context, or cans the reply when the
// collaborator is missing or failing.
func (o *Orchestrator) answerWithFallback(ctx context.Context, utterance string) Reply {
	if o.fallback == nil {
		return Reply{Text: msgDontUnderstand, Path: pathCanned}
	}

	var contextJSON string
	if o.retriever != nil {
		if tags := o.retriever.TopTags(utterance, o.fallbackTopK); len(tags) > 0 {
			contextJSON = o.base.ContextJSON(tags)
		}
	}

	answer, err := o.fallback.Respond(ctx, utterance, contextJSON)
	if err != nil || strings.TrimSpace(answer) == "" {
		if err != nil {
			o.logger.WithError(err).Warn("generative fallback failed")
		}
		return Reply{Text: msgDontUnderstand, Path: pathCanned}
	}
	return Reply{Text: answer, Path: pathFallback}
}

// isQuit reports whether the utterance is a literal quit. "exit" is
// honored as an alias.
func isQuit(utterance string) bool {
	switch strings.ToLower(strings.TrimSpace(utterance)) {
	case "quit", "exit":
		return true
	}
	return false
}
