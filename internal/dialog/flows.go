package dialog

import (
	"context"
	"fmt"
	"strings"

	"github.com/campusbot/campus-chatbot-go/internal/extract"
	"github.com/campusbot/campus-chatbot-go/internal/storage"
)

// slotDef is one structured fact a flow collects: the prompt asked when
// the slot comes up, the re-prompt on invalid input, and a validator that
// canonicalizes the answer. Validators run on the raw turn text; slot
// answers are never re-classified.
type slotDef struct {
	name     string
	prompt   string
	reprompt string
	validate func(o *Orchestrator, answer string) (string, bool)
}

// flowDef is a guided flow: its ordered slots and the terminal action run
// after the last slot is filled.
type flowDef struct {
	slots    []slotDef
	complete func(ctx context.Context, o *Orchestrator, s *Session) string
}

func acceptTrimmed(_ *Orchestrator, answer string) (string, bool) {
	answer = strings.TrimSpace(answer)
	return answer, answer != ""
}

func validateCourse(o *Orchestrator, answer string) (string, bool) {
	facts := o.extractor.Extract(answer)
	if !facts.HasCourse() {
		return "", false
	}
	return facts.CourseKey, true
}

func validatePercentage(_ *Orchestrator, answer string) (string, bool) {
	pct, ok := extract.ParsePercentage(answer)
	if !ok || pct < 0 || pct > 100 {
		return "", false
	}
	return fmt.Sprintf("%g", pct), true
}

func validateExamScore(_ *Orchestrator, answer string) (string, bool) {
	score, ok := extract.ParseExamScore(answer)
	if !ok {
		return "", false
	}
	if score.Kind == "none" {
		return "none", true
	}
	return fmt.Sprintf("%s %g", score.Kind, score.Value), true
}

// admissionCategories maps accepted reservation category answers to their
// canonical spelling. The set mirrors the admission office's counselling
// categories.
var admissionCategories = map[string]string{
	"general": "General",
	"open":    "General",
	"obc":     "OBC",
	"sc":      "SC",
	"st":      "ST",
	"ews":     "EWS",
}

func validateCategory(_ *Orchestrator, answer string) (string, bool) {
	canonical, ok := admissionCategories[strings.ToLower(strings.TrimSpace(answer))]
	return canonical, ok
}

func validateEmail(_ *Orchestrator, answer string) (string, bool) {
	answer = strings.TrimSpace(answer)
	at := strings.Index(answer, "@")
	if at < 1 || at == len(answer)-1 || strings.ContainsAny(answer, " \t") {
		return "", false
	}
	if !strings.Contains(answer[at:], ".") {
		return "", false
	}
	return answer, true
}

// flowDefs holds the guided flows keyed by FlowKind. The map is read-only
// after init; every FlowKind except FlowNone must have an entry.
var flowDefs = map[FlowKind]flowDef{
	FlowEligibility: {
		slots: []slotDef{
			{
				name:     "course",
				prompt:   "Sure, let us check your eligibility. Which course are you interested in?",
				reprompt: "I could not find that course. Please name a course we offer, for example CSE, ECE or Mechanical.",
				validate: validateCourse,
			},
			{
				name:     "percentage",
				prompt:   "What percentage did you score in your qualifying exam?",
				reprompt: "Please give your percentage as a number between 0 and 100, for example 92.",
				validate: validatePercentage,
			},
			{
				name:     "exam",
				prompt:   "Do you have an entrance exam score? Reply like \"JEE 95\" or \"state rank 1200\", or say \"no\".",
				reprompt: "Please answer like \"JEE 95\", \"state rank 1200\", a plain score, or \"no\".",
				validate: validateExamScore,
			},
			{
				name:     "category",
				prompt:   "What is your admission category? For example General, OBC, SC, ST or EWS.",
				reprompt: "Please answer with one of General, OBC, SC, ST or EWS.",
				validate: validateCategory,
			},
		},
		complete: completeEligibility,
	},
	FlowFeedback: {
		slots: []slotDef{
			{
				name:     "name",
				prompt:   "Happy to pass on your feedback. What is your name?",
				reprompt: "Please tell me your name.",
				validate: acceptTrimmed,
			},
			{
				name:     "message",
				prompt:   "Thanks! What would you like to tell us?",
				reprompt: "Please type your feedback message.",
				validate: acceptTrimmed,
			},
		},
		complete: completeFeedback,
	},
	FlowTicket: {
		slots: []slotDef{
			{
				name:     "name",
				prompt:   "I can raise a ticket with the college office. What is your name?",
				reprompt: "Please tell me your name.",
				validate: acceptTrimmed,
			},
			{
				name:     "email",
				prompt:   "What email address should the office reply to?",
				reprompt: "That does not look like an email address. Please try again.",
				validate: validateEmail,
			},
			{
				name:     "message",
				prompt:   "What should I tell the office?",
				reprompt: "Please describe your query for the office.",
				validate: acceptTrimmed,
			},
		},
		complete: completeTicket,
	},
}

func completeEligibility(_ context.Context, o *Orchestrator, s *Session) string {
	pct, _ := extract.ParsePercentage(s.Slots["percentage"])
	verdict := o.engine.Evaluate(s.Slots["course"], pct)
	if err := verdict.Err(); err != nil {
		o.logger.WithError(err).WithSession(s.ID).WithField("course", verdict.CourseKey).Warn("guided flow produced an unmapped course")
	}
	return verdictMessage(verdict, s.Slots["exam"], s.Slots["category"])
}

func completeFeedback(ctx context.Context, o *Orchestrator, s *Session) string {
	if o.feedback == nil {
		return "Thanks for the feedback! I could not store it right now, but we appreciate it."
	}
	_, err := o.feedback.SaveFeedback(ctx, &storage.Feedback{
		Name:      s.Slots["name"],
		Message:   s.Slots["message"],
		SessionID: s.ID,
	})
	if err != nil {
		o.logger.WithError(err).WithSession(s.ID).Error("failed to store feedback")
		return "Thanks for the feedback! I could not store it right now, but we appreciate it."
	}
	return fmt.Sprintf("Thank you, %s! Your feedback has been recorded.", s.Slots["name"])
}

func completeTicket(ctx context.Context, o *Orchestrator, s *Session) string {
	if o.ticketing == nil {
		return "Sorry, ticketing is not available right now. Please email the college office directly."
	}
	_, err := o.ticketing.Raise(ctx, &storage.Ticket{
		Name:      s.Slots["name"],
		Email:     s.Slots["email"],
		Subject:   "Support request",
		Body:      s.Slots["message"],
		SessionID: s.ID,
	})
	if err != nil {
		o.logger.WithError(err).WithSession(s.ID).Error("failed to raise ticket")
		return "Sorry, I could not raise the ticket right now. Please email the college office directly."
	}
	return fmt.Sprintf("Done, %s! Your ticket has been raised. The office will reply to %s.",
		s.Slots["name"], s.Slots["email"])
}
