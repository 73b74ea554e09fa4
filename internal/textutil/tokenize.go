package textutil

import "strings"

// DefaultStopwords lists generic museum filler words that carry no identity.
var DefaultStopwords = []string{
	"artifact",
	"artefact",
	"unknown",
	"object",
	"item",
	"non",
	"audio",
}

// TokenSet is an unordered set of significant words.
type TokenSet map[string]struct{}

// Has reports whether token is in the set.
func (s TokenSet) Has(token string) bool {
	_, ok := s[token]
	return ok
}

// Tokenizer splits labels into significant words.
type Tokenizer struct {
	stopwords map[string]struct{}
}

// NewTokenizer builds a tokenizer that discards the supplied stopwords.
// Stopwords are normalized the same way labels are, so "Artéfact" and
// "artefact" are equivalent entries. A nil slice disables stopword filtering.
func NewTokenizer(stopwords []string) Tokenizer {
	set := make(map[string]struct{}, len(stopwords))
	for _, word := range stopwords {
		normalized := Normalize(word)
		if normalized == "" || strings.Contains(normalized, " ") {
			continue
		}
		set[normalized] = struct{}{}
	}
	return Tokenizer{stopwords: set}
}

// DefaultTokenizer returns a tokenizer using DefaultStopwords.
func DefaultTokenizer() Tokenizer {
	return NewTokenizer(DefaultStopwords)
}

// Tokenize normalizes s, splits it into words, and drops stopwords.
// Duplicate words collapse.
func (t Tokenizer) Tokenize(s string) TokenSet {
	normalized := Normalize(s)
	if normalized == "" {
		return TokenSet{}
	}
	fields := strings.Fields(normalized)
	tokens := make(TokenSet, len(fields))
	for _, field := range fields {
		if _, stop := t.stopwords[field]; stop {
			continue
		}
		tokens[field] = struct{}{}
	}
	return tokens
}

// IsStopword reports whether word is filtered by the tokenizer.
func (t Tokenizer) IsStopword(word string) bool {
	_, ok := t.stopwords[Normalize(word)]
	return ok
}

// Tokenize splits s with the default stopword list.
func Tokenize(s string) TokenSet {
	return DefaultTokenizer().Tokenize(s)
}
