package registry

import (
	"context"
	"fmt"
)

// Lister is the read side of a registry backend.
type Lister interface {
	List(ctx context.Context) ([]Entry, error)
}

// Snapshotter hands out immutable copies of the current registry.
type Snapshotter struct {
	lister         Lister
	sampleFallback bool
}

// NewSnapshotter wraps lister. When sampleFallback is true an empty registry
// yields SampleEntries instead.
func NewSnapshotter(lister Lister, sampleFallback bool) *Snapshotter {
	return &Snapshotter{lister: lister, sampleFallback: sampleFallback}
}

// Snapshot returns a deep copy of the registry contents.
func (s *Snapshotter) Snapshot(ctx context.Context) ([]Entry, error) {
	if s == nil {
		return nil, nil
	}
	var entries []Entry
	if s.lister != nil {
		listed, err := s.lister.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("registry snapshot: %w", err)
		}
		entries = listed
	}
	if len(entries) == 0 && s.sampleFallback {
		return SampleEntries(), nil
	}
	snapshot := make([]Entry, len(entries))
	for idx, entry := range entries {
		snapshot[idx] = entry.Clone()
	}
	return snapshot, nil
}
