package textutil

import "strings"

const (
	// ExactScore is awarded when both labels normalize to the same string.
	ExactScore = 1.0
	// ContainmentScore is awarded when one normalized label contains the other.
	ContainmentScore = 0.85
)

// MatchKind names the scoring tier that produced a similarity score.
type MatchKind string

const (
	MatchExact       MatchKind = "exact"
	MatchContainment MatchKind = "containment"
	MatchToken       MatchKind = "token"
	MatchNone        MatchKind = "none"
)

// Scorer compares labels using a tiered strategy: exact, containment, then
// token-set Jaccard similarity.
type Scorer struct {
	tokenizer Tokenizer
}

// NewScorer returns a scorer that tokenizes with the supplied tokenizer.
func NewScorer(tokenizer Tokenizer) Scorer {
	return Scorer{tokenizer: tokenizer}
}

// DefaultScorer returns a scorer using DefaultStopwords.
func DefaultScorer() Scorer {
	return NewScorer(DefaultTokenizer())
}

// Score returns the similarity of candidate a and registry label b in [0,1].
func (s Scorer) Score(a, b string) float64 {
	score, _ := s.Classify(a, b)
	return score
}

// Classify returns the similarity score along with the tier that produced it.
// The first applicable tier wins.
func (s Scorer) Classify(a, b string) (float64, MatchKind) {
	na := Normalize(a)
	nb := Normalize(b)
	if na != "" && nb != "" {
		if na == nb {
			return ExactScore, MatchExact
		}
		if strings.Contains(na, nb) || strings.Contains(nb, na) {
			return ContainmentScore, MatchContainment
		}
	}
	score := Jaccard(s.tokenizer.Tokenize(a), s.tokenizer.Tokenize(b))
	if score == 0 {
		return 0, MatchNone
	}
	return score, MatchToken
}

// Jaccard computes |a ∩ b| / |a ∪ b|. It returns 0 when either set is empty.
func Jaccard(a, b TokenSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	intersection := 0
	for token := range small {
		if large.Has(token) {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// Score compares two labels with the default scorer.
func Score(a, b string) float64 {
	return DefaultScorer().Score(a, b)
}
