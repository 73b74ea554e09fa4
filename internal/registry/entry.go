package registry

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the requested entry does not exist.
	ErrNotFound = errors.New("registry entry not found")
	// ErrInvalidEntry indicates an entry failed validation.
	ErrInvalidEntry = errors.New("invalid registry entry")
)

// Entry is one curated artifact.
type Entry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Date        string   `json:"date,omitempty"`
	Description string   `json:"description,omitempty"`
	Photos      []string `json:"photos"`
}

// Clone returns a deep copy so callers cannot alias the photo slice.
func (e Entry) Clone() Entry {
	out := e
	if e.Photos != nil {
		out.Photos = append([]string(nil), e.Photos...)
	}
	return out
}

func (e *Entry) normalize() {
	e.ID = strings.TrimSpace(e.ID)
	e.Name = strings.TrimSpace(e.Name)
	e.Date = strings.TrimSpace(e.Date)
	e.Description = strings.TrimSpace(e.Description)
	e.Photos = cleanPhotos(e.Photos)
}

func (e Entry) validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: id required", ErrInvalidEntry)
	}
	if e.Name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidEntry)
	}
	return nil
}

func cleanPhotos(photos []string) []string {
	cleaned := make([]string, 0, len(photos))
	for _, photo := range photos {
		if trimmed := strings.TrimSpace(photo); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}

// Names returns the entry names in input order.
func Names(entries []Entry) []string {
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name)
	}
	return names
}
