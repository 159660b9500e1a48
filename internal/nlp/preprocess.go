// Package nlp provides text normalization for the dialogue core.
// Normalization lower-cases, tokenizes on word boundaries, and reduces
// tokens to dictionary lemmas. It is deterministic for a given lexicon
// version and never fails on out-of-vocabulary input.
package nlp

import (
	"strings"
	"unicode"

	"github.com/go-ego/gse"
)

// Preprocessor turns raw text into a canonical lemma sequence.
// Latin-script runs are split on word boundaries; CJK runs are segmented
// with gse so untranslated input still tokenizes sensibly when the
// translation collaborator degrades.
type Preprocessor struct {
	seg gse.Segmenter
}

// NewPreprocessor creates a preprocessor with the default segmenter
// dictionary loaded.
func NewPreprocessor() (*Preprocessor, error) {
	p := &Preprocessor{}
	if err := p.seg.LoadDict(); err != nil {
		return nil, err
	}
	return p, nil
}

// Normalize returns the ordered lemma sequence for text.
// Unknown tokens pass through unchanged.
func (p *Preprocessor) Normalize(text string) []string {
	tokens := p.tokenize(strings.ToLower(text))
	lemmas := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		lemmas = append(lemmas, Lemmatize(tok))
	}
	return lemmas
}

// NormalizeJoined returns the lemma sequence joined with single spaces,
// the form the classifier's feature transform consumes.
func (p *Preprocessor) NormalizeJoined(text string) string {
	return strings.Join(p.Normalize(text), " ")
}

// tokenize splits lowered text into word tokens. Letters and digits
// accumulate into words; everything else separates. Contiguous CJK runs
// are handed to the segmenter.
func (p *Preprocessor) tokenize(text string) []string {
	var tokens []string
	var word strings.Builder
	var cjk strings.Builder

	flushWord := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}
	flushCJK := func() {
		if cjk.Len() > 0 {
			for _, seg := range p.seg.Cut(cjk.String(), true) {
				seg = strings.TrimSpace(seg)
				if seg != "" {
					tokens = append(tokens, seg)
				}
			}
			cjk.Reset()
		}
	}

	for _, r := range text {
		switch {
		case isCJK(r):
			flushWord()
			cjk.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushCJK()
			word.WriteRune(r)
		default:
			flushWord()
			flushCJK()
		}
	}
	flushWord()
	flushCJK()

	return tokens
}

// isCJK returns true if the rune is a CJK character.
func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
