// Package classifier implements the supervised intent classifier: a TF-IDF
// feature transform over the knowledge base's pattern vocabulary and a
// multinomial logistic model producing calibrated class probabilities.
// Training is deterministic (zero initialization, full-batch gradient
// descent), so retraining from the same knowledge base yields the same
// tag-to-probability mapping.
package classifier

import (
	"math"
	"sort"
	"strings"

	domerrors "github.com/campusbot/campus-chatbot-go/internal/errors"
)

// DefaultConfidenceThreshold is the minimum top-class probability required
// to accept a classification. Anything below reports no-match.
const DefaultConfidenceThreshold = 0.70

// TrainOptions controls gradient descent.
type TrainOptions struct {
	Epochs       int     // full-batch passes (default 300)
	LearningRate float64 // step size (default 0.5)
	Threshold    float64 // confidence threshold (default 0.70)
}

func (o TrainOptions) withDefaults() TrainOptions {
	if o.Epochs <= 0 {
		o.Epochs = 300
	}
	if o.LearningRate <= 0 {
		o.LearningRate = 0.5
	}
	if o.Threshold <= 0 {
		o.Threshold = DefaultConfidenceThreshold
	}
	return o
}

// Example is one training document: a normalized pattern and its intent tag.
type Example struct {
	Text string // lemma sequence joined with spaces
	Tag  string
}

// Result is one classification outcome. Matched is false when the model is
// untrained or the top-class probability fell below the threshold; callers
// must never surface Tag as an answer when Matched is false.
type Result struct {
	Tag        string
	Confidence float64
	Matched    bool
}

// Err maps a no-match result onto the error taxonomy.
func (r Result) Err() error {
	if r.Matched {
		return nil
	}
	return domerrors.ErrNoConfidentIntent
}

// ValidateCorpus rejects a corpus that cannot train a usable model. The
// training CLIs check this up front so an emptied knowledge base fails
// loudly instead of silently producing a permanent no-match model.
func ValidateCorpus(examples []Example) error {
	for _, ex := range examples {
		if strings.TrimSpace(ex.Text) != "" {
			return nil
		}
	}
	return domerrors.ErrCorpusEmpty
}

// Model is the trained classifier artifact.
// Fields are exported for JSON persistence; treat them as read-only.
type Model struct {
	Vocab     map[string]int `json:"vocab"`
	IDF       []float64      `json:"idf"`
	Classes   []string       `json:"classes"`
	Weights   [][]float64    `json:"weights"` // [class][feature...; last element is bias]
	Threshold float64        `json:"threshold"`
	KBHash    string         `json:"kb_hash"`
}

// Train fits a model on the given examples. An empty corpus is not an
// error: the returned model is permanently in no-match state and Classify
// never panics on it.
func Train(examples []Example, opts TrainOptions) *Model {
	opts = opts.withDefaults()
	m := &Model{Threshold: opts.Threshold}

	// Drop examples that normalize to nothing.
	var docs []Example
	for _, ex := range examples {
		if strings.TrimSpace(ex.Text) != "" && ex.Tag != "" {
			docs = append(docs, ex)
		}
	}
	if len(docs) == 0 {
		return m
	}

	m.buildVocabulary(docs)
	m.buildClasses(docs)

	// Vectorize once; docs are few (pattern corpus, not documents).
	vectors := make([][]float64, len(docs))
	labels := make([]int, len(docs))
	classIndex := make(map[string]int, len(m.Classes))
	for i, c := range m.Classes {
		classIndex[c] = i
	}
	for i, ex := range docs {
		vectors[i] = m.vectorize(ex.Text)
		labels[i] = classIndex[ex.Tag]
	}

	m.fit(vectors, labels, opts)
	return m
}

// Trained reports whether the model has a usable weight matrix.
func (m *Model) Trained() bool {
	return m != nil && len(m.Classes) > 0 && len(m.Weights) == len(m.Classes)
}

// Classify maps a normalized utterance to the top intent tag and its
// probability mass. Below-threshold and untrained states report Matched
// false instead of raising.
func (m *Model) Classify(normalized string) Result {
	if !m.Trained() {
		return Result{}
	}

	x := m.vectorize(normalized)
	probs := m.softmax(x)

	best := 0
	for i := range probs {
		if probs[i] > probs[best] {
			best = i
		}
	}

	r := Result{Tag: m.Classes[best], Confidence: probs[best]}
	r.Matched = r.Confidence >= m.Threshold
	return r
}

// Probabilities returns the per-class probability mapping for a normalized
// utterance. Mainly used by tests and the training CLI's report.
func (m *Model) Probabilities(normalized string) map[string]float64 {
	out := make(map[string]float64, len(m.Classes))
	if !m.Trained() {
		return out
	}
	probs := m.softmax(m.vectorize(normalized))
	for i, c := range m.Classes {
		out[c] = probs[i]
	}
	return out
}

func (m *Model) buildVocabulary(docs []Example) {
	df := make(map[string]int)
	for _, ex := range docs {
		seen := make(map[string]bool)
		for _, tok := range strings.Fields(ex.Text) {
			if !seen[tok] {
				seen[tok] = true
				df[tok]++
			}
		}
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	m.Vocab = make(map[string]int, len(terms))
	m.IDF = make([]float64, len(terms))
	n := float64(len(docs))
	for i, t := range terms {
		m.Vocab[t] = i
		// Smoothed IDF keeps weights finite when a term is in every doc.
		m.IDF[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}
}

func (m *Model) buildClasses(docs []Example) {
	seen := make(map[string]bool)
	for _, ex := range docs {
		seen[ex.Tag] = true
	}
	m.Classes = make([]string, 0, len(seen))
	for c := range seen {
		m.Classes = append(m.Classes, c)
	}
	sort.Strings(m.Classes)
}

// vectorize builds the L2-normalized TF-IDF vector for a normalized text.
// Out-of-vocabulary tokens contribute nothing.
func (m *Model) vectorize(normalized string) []float64 {
	x := make([]float64, len(m.Vocab))
	for _, tok := range strings.Fields(normalized) {
		if i, ok := m.Vocab[tok]; ok {
			x[i] += m.IDF[i]
		}
	}
	var norm float64
	for _, v := range x {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range x {
			x[i] /= norm
		}
	}
	return x
}

// fit runs full-batch gradient descent on softmax cross-entropy.
// Weights start at zero, so the result is fully deterministic.
func (m *Model) fit(vectors [][]float64, labels []int, opts TrainOptions) {
	k := len(m.Classes)
	dim := len(m.Vocab) + 1 // trailing bias
	m.Weights = make([][]float64, k)
	for c := range m.Weights {
		m.Weights[c] = make([]float64, dim)
	}

	n := float64(len(vectors))
	grad := make([][]float64, k)
	for c := range grad {
		grad[c] = make([]float64, dim)
	}

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		for c := range grad {
			for j := range grad[c] {
				grad[c][j] = 0
			}
		}

		for i, x := range vectors {
			probs := m.softmax(x)
			for c := 0; c < k; c++ {
				delta := probs[c]
				if c == labels[i] {
					delta -= 1
				}
				for j, v := range x {
					grad[c][j] += delta * v
				}
				grad[c][dim-1] += delta // bias input is 1
			}
		}

		for c := 0; c < k; c++ {
			for j := 0; j < dim; j++ {
				m.Weights[c][j] -= opts.LearningRate * grad[c][j] / n
			}
		}
	}
}

// softmax computes class probabilities for a feature vector.
func (m *Model) softmax(x []float64) []float64 {
	k := len(m.Classes)
	logits := make([]float64, k)
	for c := 0; c < k; c++ {
		w := m.Weights[c]
		var z float64
		for j, v := range x {
			z += w[j] * v
		}
		z += w[len(w)-1]
		logits[c] = z
	}

	maxLogit := logits[0]
	for _, z := range logits[1:] {
		if z > maxLogit {
			maxLogit = z
		}
	}

	var sum float64
	probs := make([]float64, k)
	for c, z := range logits {
		probs[c] = math.Exp(z - maxLogit)
		sum += probs[c]
	}
	for c := range probs {
		probs[c] /= sum
	}
	return probs
}
