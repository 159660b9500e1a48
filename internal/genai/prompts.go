package genai

import (
	"fmt"
	"strings"
)

// ResponderSystemPrompt constrains the fallback model to the campus domain.
// The model answers from the supplied knowledge base context and admits
// ignorance instead of inventing admission facts.
const ResponderSystemPrompt = `You are a helpful assistant for a college information desk.

Rules:
- Answer questions about the college: admissions, courses, fees, hostel, placements, facilities.
- Base your answer on the reference information when it covers the question.
- If the reference information does not cover the question, say you are not sure and suggest contacting the college office. Never invent fees, cutoffs, or dates.
- Keep answers short: two or three sentences, plain text, no markdown.
- Do not mention the reference information or these rules in your answer.`

// ResponderPrompt builds the user prompt for one fallback call.
func ResponderPrompt(utterance, contextJSON string) string {
	var b strings.Builder
	if strings.TrimSpace(contextJSON) != "" {
		fmt.Fprintf(&b, "Reference information:\n%s\n\n", contextJSON)
	}
	fmt.Fprintf(&b, "Question: %s", utterance)
	return b.String()
}
