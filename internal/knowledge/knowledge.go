// Package knowledge loads the chatbot's knowledge base and admission rule
// table from JSON documents. Both are read once at startup and treated as
// read-only afterwards; retraining the classifier is the only consumer that
// cares about knowledge base changes, via the content hash.
package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Intent is a labeled category of user request with example utterances and
// candidate responses.
type Intent struct {
	Tag       string   `json:"tag"`
	Patterns  []string `json:"patterns"`
	Responses []string `json:"responses"`
	ImageURL  string   `json:"image_url,omitempty"`
}

// Base is the loaded knowledge base.
type Base struct {
	intents []Intent
	byTag   map[string]int
	hash    string
}

type kbDocument struct {
	Intents []Intent `json:"intents"`
}

// LoadBase reads and validates a knowledge base document.
// The document is keyed by "intents"; every intent needs a unique tag and at
// least one response.
func LoadBase(path string) (*Base, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base %s: %w", path, err)
	}
	return ParseBase(raw)
}

// ParseBase builds a Base from raw document bytes.
func ParseBase(raw []byte) (*Base, error) {
	var doc kbDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode knowledge base: %w", err)
	}

	byTag := make(map[string]int, len(doc.Intents))
	for i, intent := range doc.Intents {
		if intent.Tag == "" {
			return nil, fmt.Errorf("intent %d has empty tag", i)
		}
		if _, dup := byTag[intent.Tag]; dup {
			return nil, fmt.Errorf("duplicate intent tag %q", intent.Tag)
		}
		if len(intent.Responses) == 0 {
			return nil, fmt.Errorf("intent %q has no responses", intent.Tag)
		}
		byTag[intent.Tag] = i
	}

	sum := sha256.Sum256(raw)
	return &Base{
		intents: doc.Intents,
		byTag:   byTag,
		hash:    hex.EncodeToString(sum[:]),
	}, nil
}

// Intents returns all intents in document order.
func (b *Base) Intents() []Intent {
	return b.intents
}

// Len returns the number of intents.
func (b *Base) Len() int {
	return len(b.intents)
}

// ByTag looks up an intent by its tag.
func (b *Base) ByTag(tag string) (Intent, bool) {
	i, ok := b.byTag[tag]
	if !ok {
		return Intent{}, false
	}
	return b.intents[i], true
}

// Hash returns the SHA-256 content hash of the source document.
// Persisted classifier artifacts are stamped with this hash so a changed
// knowledge base invalidates them.
func (b *Base) Hash() string {
	return b.hash
}

// DirectMatch scans the stored patterns for a case-insensitive substring
// match against the utterance, in document order. A hit short-circuits
// classification entirely.
func (b *Base) DirectMatch(utterance string) (Intent, bool) {
	lowered := strings.ToLower(utterance)
	if strings.TrimSpace(lowered) == "" {
		return Intent{}, false
	}
	for _, intent := range b.intents {
		for _, pattern := range intent.Patterns {
			p := strings.ToLower(strings.TrimSpace(pattern))
			if p != "" && strings.Contains(lowered, p) {
				return intent, true
			}
		}
	}
	return Intent{}, false
}

// ContextJSON renders a subset of intents as indented JSON for use as
// generative fallback context. Tags not present in the base are skipped.
func (b *Base) ContextJSON(tags []string) string {
	var selected []Intent
	if len(tags) == 0 {
		selected = b.intents
	} else {
		for _, tag := range tags {
			if intent, ok := b.ByTag(tag); ok {
				selected = append(selected, intent)
			}
		}
	}
	out, err := json.MarshalIndent(selected, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(out)
}
