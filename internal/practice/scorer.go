package practice

import (
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// Default blend weights. Text similarity dominates so the score tracks what
// was actually said, while the recognizer's own confidence still moves the
// needle for short words it tends to mis-transcribe into near-misses.
const (
	defaultSimilarityWeight = 0.7
	defaultConfidenceWeight = 0.3
)

// ScorerOption is a functional option for configuring a [Scorer].
type ScorerOption func(*Scorer)

// WithWeights sets the blend weights for text similarity and recognizer
// confidence. Callers should keep similarity + confidence == 1 so scores stay
// on the 0-100 scale; [config.Validate] enforces this for configured values.
// Default: 0.7 / 0.3.
func WithWeights(similarity, confidence float64) ScorerOption {
	return func(s *Scorer) {
		s.similarityWeight = similarity
		s.confidenceWeight = confidence
	}
}

// Scorer computes the blended pronunciation score for a recognised utterance
// against a target word. All methods are safe for concurrent use; the Scorer
// is read-only after construction.
type Scorer struct {
	similarityWeight float64
	confidenceWeight float64
}

// NewScorer returns a Scorer configured with the supplied options.
func NewScorer(opts ...ScorerOption) *Scorer {
	s := &Scorer{
		similarityWeight: defaultSimilarityWeight,
		confidenceWeight: defaultConfidenceWeight,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Score computes the final score in [0, 100] for transcript spoken against
// target, blending normalised edit-distance similarity with the recognizer's
// reported confidence.
//
// Both strings are canonicalised via [Normalize] before comparison. Canonical
// equality yields full text similarity; otherwise similarity is
// (maxLen - editDistance) / maxLen over the canonical rune lengths, with two
// empty strings counting as a perfect match.
//
// confidence must be pre-clamped to [0, 1] by the caller. The scorer passes
// it through unvalidated, so out-of-range confidence yields out-of-range
// scores. Clamp at the capability boundary if that guarantee is needed.
func (s *Scorer) Score(transcript string, confidence float64, target string) float64 {
	textSimilarity := s.textSimilarity(transcript, target) * 100
	return textSimilarity*s.similarityWeight + confidence*100*s.confidenceWeight
}

// textSimilarity returns the normalised edit-distance similarity in [0, 1]
// between the canonical forms of transcript and target.
func (s *Scorer) textSimilarity(transcript, target string) float64 {
	a := Normalize(transcript)
	b := Normalize(target)

	if a == b {
		return 1.0
	}

	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1.0
	}

	dist := matchr.Levenshtein(a, b)
	return float64(maxLen-dist) / float64(maxLen)
}
