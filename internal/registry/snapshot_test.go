package registry

import (
	"context"
	"errors"
	"testing"
)

type staticLister struct {
	entries []Entry
	err     error
}

func (s staticLister) List(context.Context) ([]Entry, error) {
	return s.entries, s.err
}

func TestSnapshotFallsBackToSamples(t *testing.T) {
	snap := NewSnapshotter(staticLister{}, true)
	entries, err := snap.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	if len(entries) != len(SampleEntries()) {
		t.Fatalf("expected sample entries, got %d", len(entries))
	}
}

func TestSnapshotWithoutFallbackIsEmpty(t *testing.T) {
	snap := NewSnapshotter(staticLister{}, false)
	entries, err := snap.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty snapshot, got %d", len(entries))
	}
}

func TestSnapshotCopiesEntries(t *testing.T) {
	source := []Entry{{ID: "a", Name: "A", Photos: []string{"a.jpg"}}}
	snap := NewSnapshotter(staticLister{entries: source}, true)
	entries, err := snap.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	entries[0].Photos[0] = "mutated.jpg"
	if source[0].Photos[0] != "a.jpg" {
		t.Fatal("snapshot must not alias the backing entries")
	}
}

func TestSnapshotPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	snap := NewSnapshotter(staticLister{err: boom}, true)
	if _, err := snap.Snapshot(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
