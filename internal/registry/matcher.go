package registry

import (
	"sort"

	"docent/internal/textutil"
)

// DefaultThreshold is the minimum score a guess needs to claim a registry entry.
// Containment (0.85) passes; token overlap alone must be nearly complete.
const DefaultThreshold = 0.82

// MatchResult is the outcome of a registry lookup. Entry is nil when no
// entry cleared the threshold; Score is always the best score observed.
type MatchResult struct {
	Entry *Entry
	Score float64
	Kind  textutil.MatchKind
}

// Matched reports whether an entry was accepted.
func (r MatchResult) Matched() bool {
	return r.Entry != nil
}

// Candidate is one scored entry, used for diagnostics. Only the top-ranked
// candidate can be Accepted.
type Candidate struct {
	Entry    Entry
	Score    float64
	Kind     textutil.MatchKind
	Accepted bool
}

// Matcher finds the registry entry a guess refers to.
type Matcher struct {
	scorer    textutil.Scorer
	threshold float64
}

// NewMatcher builds a matcher with the supplied scorer and acceptance threshold.
func NewMatcher(scorer textutil.Scorer, threshold float64) Matcher {
	return Matcher{scorer: scorer, threshold: threshold}
}

// DefaultMatcher returns a matcher with the default stopwords and threshold.
func DefaultMatcher() Matcher {
	return NewMatcher(textutil.DefaultScorer(), DefaultThreshold)
}

// Threshold returns the acceptance threshold.
func (m Matcher) Threshold() float64 {
	return m.threshold
}

// FindMatch scores guessName against every entry and returns the best one when
// its score is at least the threshold. Ties keep the first entry in input order.
func (m Matcher) FindMatch(guessName string, entries []Entry) MatchResult {
	bestIdx := -1
	bestScore := 0.0
	bestKind := textutil.MatchNone
	for idx := range entries {
		score, kind := m.scorer.Classify(guessName, entries[idx].Name)
		if bestIdx < 0 || score > bestScore {
			bestIdx = idx
			bestScore = score
			bestKind = kind
		}
	}
	if bestIdx < 0 {
		return MatchResult{Score: 0, Kind: textutil.MatchNone}
	}
	if bestScore >= m.threshold {
		entry := entries[bestIdx].Clone()
		return MatchResult{Entry: &entry, Score: bestScore, Kind: bestKind}
	}
	return MatchResult{Score: bestScore, Kind: bestKind}
}

// Rank scores every entry and returns them best-first. Equal scores keep input
// order, so the first candidate is the one FindMatch would pick.
func (m Matcher) Rank(guessName string, entries []Entry) []Candidate {
	candidates := make([]Candidate, 0, len(entries))
	for _, entry := range entries {
		score, kind := m.scorer.Classify(guessName, entry.Name)
		candidates = append(candidates, Candidate{
			Entry: entry.Clone(),
			Score: score,
			Kind:  kind,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > 0 && candidates[0].Score >= m.threshold {
		candidates[0].Accepted = true
	}
	return candidates
}
