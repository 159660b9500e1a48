// Package extract implements the rule-based fact extractor: pulling a
// percentage value and a course identifier out of free text so the
// eligibility engine can evaluate them.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	domerrors "github.com/campusbot/campus-chatbot-go/internal/errors"
	"github.com/campusbot/campus-chatbot-go/internal/knowledge"
)

// percentPattern matches the first 1-3 digit integer followed by a percent
// marker. Bounds checking belongs to the rule engine, not here.
var percentPattern = regexp.MustCompile(`(\d{1,3})\s*%`)

// Facts is the result of one extraction pass. A zero value for either
// field means "absent"; use the Has* helpers instead of comparing to zero.
type Facts struct {
	CourseKey     string
	Percentage    float64
	hasCourse     bool
	hasPercentage bool
}

// HasCourse reports whether a course alias was recognized.
func (f Facts) HasCourse() bool { return f.hasCourse }

// HasPercentage reports whether a percent-marked number was found.
func (f Facts) HasPercentage() bool { return f.hasPercentage }

// Complete reports whether both facts are present. Partial extractions are
// never treated as valid; the caller prompts for the missing piece.
func (f Facts) Complete() bool { return f.hasCourse && f.hasPercentage }

// Err maps the extraction onto the error taxonomy: exactly one fact
// present is ambiguous input that needs clarification. Complete and empty
// extractions return nil.
func (f Facts) Err() error {
	if f.hasCourse != f.hasPercentage {
		return domerrors.ErrInputAmbiguous
	}
	return nil
}

// Extractor scans free text against a fixed rule table.
type Extractor struct {
	table *knowledge.RuleTable
}

// New builds an extractor over the given rule table.
func New(table *knowledge.RuleTable) *Extractor {
	return &Extractor{table: table}
}

// Extract pulls the percentage and course facts out of raw text.
// The percentage is the first percent-marked integer in the text.
// The course is chosen by the longest matching alias; when two aliases of
// equal length both match, the rule whose key sorts first wins, so the
// result is deterministic regardless of table load order.
func (e *Extractor) Extract(raw string) Facts {
	var facts Facts

	if m := percentPattern.FindStringSubmatch(raw); m != nil {
		// \d{1,3} always parses.
		n, _ := strconv.Atoi(m[1])
		facts.Percentage = float64(n)
		facts.hasPercentage = true
	}

	lower := strings.ToLower(raw)
	bestLen := 0
	for _, key := range e.table.Keys() {
		rule, _ := e.table.Get(key)
		for _, alias := range rule.Aliases {
			alias = strings.ToLower(strings.TrimSpace(alias))
			if alias == "" || len(alias) <= bestLen {
				continue
			}
			if strings.Contains(lower, alias) {
				facts.CourseKey = key
				facts.hasCourse = true
				bestLen = len(alias)
			}
		}
	}

	return facts
}

// ParsePercentage coerces a bare slot answer into a percentage value.
// Accepts "92", "92%", and "92 %"; anything else is rejected so the flow
// can re-prompt.
func ParsePercentage(answer string) (float64, bool) {
	s := strings.TrimSpace(answer)
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(s)
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ExamScore is a coerced entrance-exam answer: either a score the user
// supplied or an explicit statement that they have none.
type ExamScore struct {
	Kind  string // "jee", "state_rank" or "none"
	Value float64
}

// ParseExamScore coerces free text into a known exam-score format.
// Accepted forms: "jee 95", "state rank 1200", a bare number (treated as a
// JEE score), or a negative answer such as "no" / "none" / "na". Anything
// else is rejected and the flow re-prompts.
func ParseExamScore(answer string) (ExamScore, bool) {
	s := strings.ToLower(strings.TrimSpace(answer))
	switch s {
	case "no", "none", "na", "n/a", "nope":
		return ExamScore{Kind: "none"}, true
	}

	prefixes := []struct{ prefix, kind string }{
		{"jee", "jee"},
		{"state rank", "state_rank"},
		{"rank", "state_rank"},
	}
	for _, p := range prefixes {
		prefix, kind := p.prefix, p.kind
		if rest, ok := strings.CutPrefix(s, prefix); ok {
			if n, err := strconv.ParseFloat(strings.TrimSpace(rest), 64); err == nil {
				return ExamScore{Kind: kind, Value: n}, true
			}
		}
	}

	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return ExamScore{Kind: "jee", Value: n}, true
	}
	return ExamScore{}, false
}
