package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultSheetTimeout = 30 * time.Second

// SheetSource fetches registry entries from a published spreadsheet CSV export.
type SheetSource struct {
	url        string
	httpClient *http.Client
}

// NewSheetSource constructs a source for the provided CSV export URL.
// A nil client uses a default client with a 30s timeout.
func NewSheetSource(url string, client *http.Client) *SheetSource {
	if client == nil {
		client = &http.Client{Timeout: defaultSheetTimeout}
	}
	return &SheetSource{url: strings.TrimSpace(url), httpClient: client}
}

// Fetch downloads and parses the current spreadsheet contents.
func (s *SheetSource) Fetch(ctx context.Context) ([]Entry, error) {
	if s == nil || s.url == "" {
		return nil, errors.New("registry sheet: url required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("registry sheet: new request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Accept", "text/csv")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry sheet: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("registry sheet: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	entries, err := ParseCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("registry sheet: %w", err)
	}
	return entries, nil
}
