package resolution

import (
	"docent/internal/registry"
	"docent/internal/textutil"
)

// GateReason explains why matching was skipped or what it concluded.
type GateReason string

const (
	ReasonNotClaimed    GateReason = "guess_not_matched"
	ReasonEmptyRegistry GateReason = "empty_registry"
	ReasonEmptyName     GateReason = "empty_name"
	ReasonBelowThresh   GateReason = "below_threshold"
	ReasonMatched       GateReason = "matched"
)

// Decision is a response together with the evidence behind it.
type Decision struct {
	Response Response
	Match    registry.MatchResult
	Reason   GateReason
	// Attempted is true when the matcher ran.
	Attempted bool
}

// Resolver decides whether a guess names a registry entry.
type Resolver struct {
	matcher registry.Matcher
}

// NewResolver builds a resolver around matcher.
func NewResolver(matcher registry.Matcher) Resolver {
	return Resolver{matcher: matcher}
}

// DefaultResolver uses the default stopwords and threshold.
func DefaultResolver() Resolver {
	return NewResolver(registry.DefaultMatcher())
}

// Resolve produces the visitor-facing response for guess.
func (r Resolver) Resolve(guess Guess, entries []registry.Entry) Response {
	return r.ResolveDetailed(guess, entries).Response
}

// ResolveDetailed is Resolve plus the match evidence, for logging and metrics.
func (r Resolver) ResolveDetailed(guess Guess, entries []registry.Entry) Decision {
	switch {
	case !guess.Matched:
		return Decision{Response: guessResponse(guess), Reason: ReasonNotClaimed}
	case len(entries) == 0:
		return Decision{Response: guessResponse(guess), Reason: ReasonEmptyRegistry}
	case textutil.Normalize(guess.Name) == "":
		return Decision{Response: guessResponse(guess), Reason: ReasonEmptyName}
	}

	match := r.matcher.FindMatch(guess.Name, entries)
	if !match.Matched() {
		return Decision{
			Response:  guessResponse(guess),
			Match:     match,
			Reason:    ReasonBelowThresh,
			Attempted: true,
		}
	}

	entry := match.Entry
	photos := append([]string{}, entry.Photos...)
	return Decision{
		Response: Response{
			Provenance:  ProvenanceRegistry,
			ID:          entry.ID,
			Name:        entry.Name,
			Date:        firstSet(entry.Date, guess.Date),
			Description: firstSet(entry.Description, guess.Description),
			Photos:      photos,
		},
		Match:     match,
		Reason:    ReasonMatched,
		Attempted: true,
	}
}

func firstSet(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}
