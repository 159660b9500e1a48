// Package rules implements the eligibility rule engine: a deterministic
// lookup comparing an extracted percentage against per-course admission
// thresholds.
package rules

import (
	domerrors "github.com/campusbot/campus-chatbot-go/internal/errors"
	"github.com/campusbot/campus-chatbot-go/internal/knowledge"
)

// Outcome is the closed set of evaluation results.
type Outcome int

const (
	// Eligible means the percentage meets or exceeds the course minimum.
	Eligible Outcome = iota
	// Ineligible means the percentage is below the course minimum.
	Ineligible
	// UnknownCourse means no rule exists for the given key. This should
	// not happen for keys produced by the extractor, but is handled
	// defensively for callers that pass raw keys.
	UnknownCourse
)

func (o Outcome) String() string {
	switch o {
	case Eligible:
		return "eligible"
	case Ineligible:
		return "ineligible"
	case UnknownCourse:
		return "unknown-course"
	default:
		return "invalid"
	}
}

// Verdict is one evaluation result. MinMarks and Notes come from the
// matched rule and are zero-valued for UnknownCourse.
type Verdict struct {
	Outcome    Outcome
	CourseKey  string
	Percentage float64
	MinMarks   float64
	Notes      string
}

// Err maps the verdict onto the error taxonomy. UnknownCourse reports
// ErrUnknownCourse; decided verdicts return nil.
func (v Verdict) Err() error {
	if v.Outcome == UnknownCourse {
		return domerrors.ErrUnknownCourse
	}
	return nil
}

// Engine evaluates eligibility against a fixed rule table.
type Engine struct {
	table *knowledge.RuleTable
}

// NewEngine builds an engine over the given rule table.
func NewEngine(table *knowledge.RuleTable) *Engine {
	return &Engine{table: table}
}

// Evaluate compares a percentage against the course's admission rule.
// The course key must be an exact rule-table key, not raw user text.
func (e *Engine) Evaluate(courseKey string, percentage float64) Verdict {
	rule, ok := e.table.Get(courseKey)
	if !ok {
		return Verdict{
			Outcome:    UnknownCourse,
			CourseKey:  courseKey,
			Percentage: percentage,
		}
	}

	v := Verdict{
		CourseKey:  courseKey,
		Percentage: percentage,
		MinMarks:   rule.MinMarks,
		Notes:      rule.Notes,
	}
	if percentage >= rule.MinMarks {
		v.Outcome = Eligible
	} else {
		v.Outcome = Ineligible
	}
	return v
}
