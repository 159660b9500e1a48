// Package rag provides keyword retrieval over the knowledge base. The
// generative fallback uses it to select the few intents most relevant to
// an unrecognized utterance instead of shipping the whole knowledge base
// as prompt context.
package rag

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/crawlab-team/bm25"

	"github.com/campusbot/campus-chatbot-go/internal/knowledge"
	"github.com/campusbot/campus-chatbot-go/internal/logger"
)

// Result is one retrieved intent with a rank-based confidence score.
// Confidence is derived from rank position, not semantic similarity.
type Result struct {
	Tag        string
	Score      float64 // BM25 score, higher is better
	Rank       int     // 1-indexed rank position
	Confidence float32 // rank-based confidence in (0,1)
}

// Index is a BM25 index over the knowledge base's intents. Each intent
// contributes one document per pattern plus one per response, so a query
// matching either side retrieves the intent.
type Index struct {
	okapi       *bm25.BM25Okapi
	corpus      []string
	docTags     []string // document index -> intent tag
	logger      *logger.Logger
	mu          sync.RWMutex
	initialized bool
}

// NewIndex creates an empty index. Call Initialize before searching.
func NewIndex(log *logger.Logger) *Index {
	return &Index{logger: log}
}

// Initialize builds the index from the knowledge base. An empty base is
// not an error; the index simply returns no results.
func (idx *Index) Initialize(base *knowledge.Base) error {
	if idx == nil {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	var corpus []string
	var docTags []string
	for _, intent := range base.Intents() {
		docs := make([]string, 0, len(intent.Patterns)+len(intent.Responses))
		docs = append(docs, intent.Patterns...)
		docs = append(docs, intent.Responses...)
		for _, doc := range docs {
			if strings.TrimSpace(doc) == "" {
				continue
			}
			corpus = append(corpus, doc)
			docTags = append(docTags, intent.Tag)
		}
	}

	if len(corpus) == 0 {
		idx.initialized = true
		return nil
	}

	// k1=1.5, b=0.75 are standard BM25 parameters.
	okapi, err := bm25.NewBM25Okapi(corpus, tokenize, 1.5, 0.75, nil)
	if err != nil {
		return fmt.Errorf("failed to create BM25 index: %w", err)
	}

	idx.corpus = corpus
	idx.docTags = docTags
	idx.okapi = okapi
	idx.initialized = true

	idx.logger.WithField("docs", len(corpus)).Info("BM25 index initialized")
	return nil
}

// Search returns up to topN intent tags ranked by BM25 relevance to the
// query. Tags are deduplicated, keeping each tag's highest-scoring
// document. A zero-result search returns nil, nil.
func (idx *Index) Search(query string, topN int) ([]Result, error) {
	if idx == nil {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.initialized || idx.okapi == nil {
		return nil, nil
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	tokenized := tokenize(query)
	if len(tokenized) == 0 {
		return nil, nil
	}

	scores, err := idx.okapi.GetScores(tokenized)
	if err != nil {
		return nil, fmt.Errorf("BM25 scoring failed: %w", err)
	}

	// Deduplicate by tag, keeping the highest score.
	best := make(map[string]float64)
	for docID, score := range scores {
		if score <= 0 {
			continue
		}
		tag := idx.docTags[docID]
		if score > best[tag] {
			best[tag] = score
		}
	}

	results := make([]Result, 0, len(best))
	for tag, score := range best {
		results = append(results, Result{Tag: tag, Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Tag < results[j].Tag
	})

	for i := range results {
		results[i].Rank = i + 1
		results[i].Confidence = rankConfidence(i + 1)
	}

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results, nil
}

// TopTags returns just the ranked tags, for callers that only need
// context selection.
func (idx *Index) TopTags(query string, topN int) []string {
	results, err := idx.Search(query, topN)
	if err != nil {
		idx.logger.WithError(err).Warn("BM25 search failed, returning no context")
		return nil
	}
	tags := make([]string, len(results))
	for i, r := range results {
		tags[i] = r.Tag
	}
	return tags
}

// IsEnabled returns true once the index is initialized with documents.
func (idx *Index) IsEnabled() bool {
	if idx == nil {
		return false
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.initialized && idx.okapi != nil
}

// Count returns the number of indexed documents.
func (idx *Index) Count() int {
	if idx == nil {
		return 0
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.corpus)
}

// rankConfidence maps a 1-indexed rank to a confidence proxy.
// BM25 scores are unbounded and query-dependent, so rank is the signal:
// rank 1 → 0.95, rank 5 → 0.80, rank 10 → 0.67.
func rankConfidence(rank int) float32 {
	if rank <= 0 {
		return 0
	}
	return float32(1.0 / (1.0 + 0.05*float64(rank)))
}

// tokenize lowercases and splits on non-alphanumeric boundaries. CJK
// characters are emitted individually plus as bigrams so untranslated
// no-space scripts still retrieve.
func tokenize(text string) []string {
	text = strings.ToLower(text)

	var tokens []string
	var word strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		switch {
		case isCJK(r):
			if word.Len() > 0 {
				tokens = append(tokens, word.String())
				word.Reset()
			}
			tokens = append(tokens, string(r))
			if i+1 < len(runes) && isCJK(runes[i+1]) {
				tokens = append(tokens, string(r)+string(runes[i+1]))
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		default:
			if word.Len() > 0 {
				tokens = append(tokens, word.String())
				word.Reset()
			}
		}
	}
	if word.Len() > 0 {
		tokens = append(tokens, word.String())
	}
	return tokens
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
