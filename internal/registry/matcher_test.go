package registry

import (
	"testing"

	"docent/internal/textutil"
)

func TestFindMatchExact(t *testing.T) {
	entries := SampleEntries()
	result := DefaultMatcher().FindMatch("Berliner Gramophone", entries)
	if !result.Matched() {
		t.Fatalf("expected match, got %+v", result)
	}
	if result.Entry.ID != "sample-1" {
		t.Fatalf("expected sample-1, got %s", result.Entry.ID)
	}
	if result.Score != 1.0 || result.Kind != textutil.MatchExact {
		t.Fatalf("expected exact score 1.0, got %v (%s)", result.Score, result.Kind)
	}
}

func TestFindMatchContainmentPasses(t *testing.T) {
	entries := []Entry{{ID: "d", Name: "Berliner Gramophone Model D"}}
	result := DefaultMatcher().FindMatch("Berliner Gramophone", entries)
	if !result.Matched() || result.Score != 0.85 {
		t.Fatalf("expected containment match at 0.85, got %+v", result)
	}
}

func TestFindMatchRejectsBelowThreshold(t *testing.T) {
	result := DefaultMatcher().FindMatch("Mystery Box", SampleEntries())
	if result.Matched() {
		t.Fatalf("expected no match, got %+v", result.Entry)
	}
	if result.Score != 0 {
		t.Fatalf("expected best score 0, got %v", result.Score)
	}
}

func TestFindMatchPartialOverlapReportsScore(t *testing.T) {
	entries := []Entry{{ID: "v", Name: "Victor Phonograph Machine"}}
	result := DefaultMatcher().FindMatch("Victor Talking Machine", entries)
	if result.Matched() {
		t.Fatal("expected half overlap to be rejected")
	}
	if result.Score != 0.5 || result.Kind != textutil.MatchToken {
		t.Fatalf("expected token score 0.5, got %v (%s)", result.Score, result.Kind)
	}
}

func TestFindMatchEmptyRegistry(t *testing.T) {
	result := DefaultMatcher().FindMatch("Berliner Gramophone", nil)
	if result.Matched() || result.Score != 0 {
		t.Fatalf("expected {nil, 0}, got %+v", result)
	}
}

func TestFindMatchEmptyGuess(t *testing.T) {
	for _, name := range []string{"", "   ", "?!"} {
		result := DefaultMatcher().FindMatch(name, SampleEntries())
		if result.Matched() {
			t.Fatalf("expected no match for %q, got %+v", name, result.Entry)
		}
	}
}

func TestFindMatchTieKeepsFirst(t *testing.T) {
	// Both entries share two of three tokens with the guess.
	entries := []Entry{
		{ID: "first", Name: "Edison Cylinder Phonograph"},
		{ID: "second", Name: "Edison Cylinder Recorder"},
	}
	matcher := NewMatcher(textutil.DefaultScorer(), 0.4)
	result := matcher.FindMatch("Edison Cylinder Player", entries)
	if !result.Matched() {
		t.Fatalf("expected match with lowered threshold, got %+v", result)
	}
	if result.Entry.ID != "first" {
		t.Fatalf("expected first-in-order entry, got %s", result.Entry.ID)
	}
}

func TestFindMatchTieAtNonMaximalScoreKeepsFirst(t *testing.T) {
	entries := []Entry{
		{ID: "a", Name: "Edison Cylinder Phonograph"},
		{ID: "b", Name: "Edison Cylinder Recorder"},
		{ID: "c", Name: "Edison Cylinder Player"},
	}
	ranked := DefaultMatcher().Rank("Edison Cylinder Player", entries)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(ranked))
	}
	if ranked[0].Entry.ID != "c" || !ranked[0].Accepted {
		t.Fatalf("expected exact entry first and accepted, got %+v", ranked[0])
	}
	if ranked[1].Entry.ID != "a" || ranked[2].Entry.ID != "b" {
		t.Fatalf("expected tied candidates in input order, got %s, %s", ranked[1].Entry.ID, ranked[2].Entry.ID)
	}
	if ranked[1].Accepted || ranked[2].Accepted {
		t.Fatal("only the top candidate can be accepted")
	}
}

func TestFindMatchThresholdInclusive(t *testing.T) {
	entries := []Entry{{ID: "v", Name: "Victor Phonograph Machine"}}
	matcher := NewMatcher(textutil.DefaultScorer(), 0.5)
	result := matcher.FindMatch("Victor Talking Machine", entries)
	if !result.Matched() {
		t.Fatalf("expected score equal to threshold to match, got %+v", result)
	}
}

func TestFindMatchReturnsCopy(t *testing.T) {
	entries := []Entry{{ID: "p", Name: "Pathé Phonograph", Photos: []string{"a.jpg"}}}
	result := DefaultMatcher().FindMatch("Pathe Phonograph", entries)
	if !result.Matched() {
		t.Fatal("expected diacritic-insensitive match")
	}
	result.Entry.Photos[0] = "changed.jpg"
	if entries[0].Photos[0] != "a.jpg" {
		t.Fatal("match result must not alias registry photos")
	}
}

func TestRankEmpty(t *testing.T) {
	if got := DefaultMatcher().Rank("anything", nil); len(got) != 0 {
		t.Fatalf("expected no candidates, got %v", got)
	}
}
