package dialog

import (
	"crypto/rand"
	"fmt"

	"github.com/campusbot/campus-chatbot-go/internal/rules"
)

// Canned replies for degraded states. The orchestrator guarantees a
// textual reply on every turn, so each failure path ends in one of these.
const (
	msgDontUnderstand = "I am not sure I understand. You can ask me about courses, fees, hostel, placements, or say \"check eligibility\"."
	msgGoodbye        = "Goodbye! Feel free to come back if you have more questions."
)

// clarificationMessage prompts for whichever single-shot fact is missing.
// The single-shot path is all or nothing, so a partial extraction always
// lands here, never in a multi-turn flow.
func clarificationMessage(hasCourse, hasPercentage bool) string {
	switch {
	case hasPercentage && !hasCourse:
		return "I can check that, but which course do you mean? For example CSE, ECE or Mechanical."
	case hasCourse && !hasPercentage:
		return "I can check that, but what percentage did you score? Say something like \"85%\"."
	default:
		return "To check eligibility, tell me your course and percentage together, for example \"CSE 92%\"."
	}
}

// verdictMessage renders a rule engine verdict. Phrasing lives here, on
// top of the verdict, so the verdict semantics stay presentation-free.
func verdictMessage(v rules.Verdict, examNote, category string) string {
	switch v.Outcome {
	case rules.Eligible:
		msg := fmt.Sprintf("Yes! With %g%% you are eligible for %s. The minimum requirement is %g%%.",
			v.Percentage, v.CourseKey, v.MinMarks)
		if v.Notes != "" {
			msg += " " + v.Notes
		}
		if examNote != "" && examNote != "none" {
			msg += fmt.Sprintf(" Your entrance score (%s) will also be considered during counselling.", examNote)
		}
		if category != "" {
			msg += fmt.Sprintf(" Seat allotment will follow the %s category rules during counselling.", category)
		}
		return msg
	case rules.Ineligible:
		msg := fmt.Sprintf("Sorry, the minimum requirement for %s is %g%% and you scored %g%%.",
			v.CourseKey, v.MinMarks, v.Percentage)
		if v.Notes != "" {
			msg += " " + v.Notes
		}
		return msg
	default:
		return fmt.Sprintf("I do not have admission rules for %q. Please ask the college office directly.", v.CourseKey)
	}
}

// pickIndex returns a uniformly random index below n. Randomness only
// affects which canned response variant is shown, so the modulo bias on
// a single byte is irrelevant.
func pickIndex(n int) int {
	if n <= 1 {
		return 0
	}
	var b [1]byte
	_, _ = rand.Read(b[:])
	return int(b[0]) % n
}
