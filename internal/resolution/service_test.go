package resolution_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"docent/internal/logging"
	"docent/internal/metrics"
	"docent/internal/registry"
	"docent/internal/resolution"
	"docent/internal/services"
)

type stubVision struct {
	guess      resolution.Guess
	err        error
	calls      int
	imageURL   string
	candidates []string
}

func (s *stubVision) IdentifyArtifact(_ context.Context, imageURL string, candidates []string) (resolution.Guess, error) {
	s.calls++
	s.imageURL = imageURL
	s.candidates = append([]string(nil), candidates...)
	return s.guess, s.err
}

type stubSnapshots struct {
	entries []registry.Entry
	err     error
}

func (s stubSnapshots) Snapshot(context.Context) ([]registry.Entry, error) {
	return s.entries, s.err
}

func newTestService(t *testing.T, vision resolution.Vision, snaps resolution.Snapshotter) (*resolution.Service, *metrics.Metrics, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	return resolution.NewService(resolution.DefaultResolver(), vision, snaps, logger, m), m, &buf
}

func TestAnalyzeReturnsRegistryEntry(t *testing.T) {
	vision := &stubVision{guess: resolution.Guess{Name: "Berliner Gramophone", Date: "1890s", Matched: true}}
	svc, m, logs := newTestService(t, vision, stubSnapshots{entries: gramophoneRegistry()})

	ctx := services.WithRequestID(context.Background(), "req-1")
	got, err := svc.Analyze(ctx, "https://example.com/photo.jpg")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.Provenance != resolution.ProvenanceRegistry || got.ID != "a-1" {
		t.Fatalf("expected registry provenance, got %+v", got)
	}
	if diff := cmp.Diff([]string{"a.jpg"}, got.Photos); diff != "" {
		t.Fatalf("photos mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Berliner Gramophone", "Edison Phonograph"}, vision.candidates); diff != "" {
		t.Fatalf("candidates mismatch (-want +got):\n%s", diff)
	}
	if vision.imageURL != "https://example.com/photo.jpg" {
		t.Fatalf("unexpected image url %q", vision.imageURL)
	}
	if v := testutil.ToFloat64(m.Resolutions.WithLabelValues("registry", "matched")); v != 1 {
		t.Fatalf("registry resolution counter = %v", v)
	}
	out := logs.String()
	for _, want := range []string{`"decision_result":"registry"`, `"correlation_id":"req-1"`, `"registry_id":"a-1"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in logs:\n%s", want, out)
		}
	}
}

func TestAnalyzeValidatesImageURL(t *testing.T) {
	vision := &stubVision{}
	svc, _, _ := newTestService(t, vision, stubSnapshots{})

	for _, input := range []string{"", "   ", "ftp://example.com/a.jpg", "photo.jpg"} {
		_, err := svc.Analyze(context.Background(), input)
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("Analyze(%q) error = %v, want validation error", input, err)
		}
	}
	if vision.calls != 0 {
		t.Fatalf("vision should not be called for invalid input, got %d calls", vision.calls)
	}

	if _, err := svc.Analyze(context.Background(), "data:image/png;base64,AAAA"); err != nil {
		t.Fatalf("data URL should be accepted: %v", err)
	}
}

func TestAnalyzePropagatesVisionErrors(t *testing.T) {
	tests := []struct {
		marker error
		kind   string
	}{
		{services.ErrRateLimited, "rate_limited"},
		{services.ErrCreditsExhausted, "credits"},
		{context.DeadlineExceeded, "timeout"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			vision := &stubVision{err: services.Wrap(tt.marker, "vision", "identify", "", tt.marker)}
			svc, m, _ := newTestService(t, vision, stubSnapshots{entries: gramophoneRegistry()})

			_, err := svc.Analyze(context.Background(), "https://example.com/a.jpg")
			if !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v, got %v", tt.marker, err)
			}
			if v := testutil.ToFloat64(m.VisionErrors.WithLabelValues(tt.kind)); v != 1 {
				t.Fatalf("vision error counter[%s] = %v", tt.kind, v)
			}
		})
	}
}

type alertCall struct {
	kind  string
	cause error
}

type chanAlerter chan alertCall

func (c chanAlerter) NotifyVisionQuota(_ context.Context, kind string, cause error) error {
	c <- alertCall{kind: kind, cause: cause}
	return nil
}

func TestAnalyzeAlertsOnQuotaErrors(t *testing.T) {
	vision := &stubVision{err: services.Wrap(services.ErrCreditsExhausted, "vision", "identify", "402", nil)}
	svc, _, _ := newTestService(t, vision, stubSnapshots{entries: gramophoneRegistry()})
	alerts := make(chanAlerter, 4)
	svc.SetAlerter(alerts)

	if _, err := svc.Analyze(context.Background(), "https://example.com/a.jpg"); err == nil {
		t.Fatal("expected error")
	}
	select {
	case call := <-alerts:
		if call.kind != "credits" || !errors.Is(call.cause, services.ErrCreditsExhausted) {
			t.Fatalf("unexpected alert %+v", call)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected a credits alert")
	}

	vision.err = errors.New("boom")
	if _, err := svc.Analyze(context.Background(), "https://example.com/a.jpg"); err == nil {
		t.Fatal("expected error")
	}
	select {
	case call := <-alerts:
		t.Fatalf("generic failures must not alert, got %+v", call)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAnalyzeWithoutVisionIsConfigurationError(t *testing.T) {
	svc, _, _ := newTestService(t, nil, stubSnapshots{})
	if _, err := svc.Analyze(context.Background(), "https://example.com/a.jpg"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSnapshotFailureDegradesToGuess(t *testing.T) {
	vision := &stubVision{guess: resolution.Guess{Name: "Berliner Gramophone", Description: "From the model", Matched: true}}
	svc, m, logs := newTestService(t, vision, stubSnapshots{err: errors.New("database is locked")})

	got, err := svc.Analyze(context.Background(), "https://example.com/a.jpg")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	want := resolution.Response{Provenance: resolution.ProvenanceGuess, Name: "Berliner Gramophone", Description: "From the model"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("response mismatch (-want +got):\n%s", diff)
	}
	if len(vision.candidates) != 0 {
		t.Fatalf("expected no candidates, got %v", vision.candidates)
	}
	if v := testutil.ToFloat64(m.SnapshotFailures); v != 1 {
		t.Fatalf("snapshot failure counter = %v", v)
	}
	if !strings.Contains(logs.String(), `"event_type":"registry_snapshot_failed"`) {
		t.Fatalf("expected snapshot warning in logs:\n%s", logs.String())
	}
}

func TestResolveGuessSkipsVision(t *testing.T) {
	vision := &stubVision{}
	svc, m, _ := newTestService(t, vision, stubSnapshots{entries: gramophoneRegistry()})

	got := svc.ResolveGuess(context.Background(), resolution.Guess{Name: "Mystery Box", Matched: true})
	if got.Provenance != resolution.ProvenanceGuess {
		t.Fatalf("expected guess provenance, got %+v", got)
	}
	if vision.calls != 0 {
		t.Fatal("ResolveGuess must not call the vision model")
	}
	if v := testutil.ToFloat64(m.Resolutions.WithLabelValues("guess", "below_threshold")); v != 1 {
		t.Fatalf("guess resolution counter = %v", v)
	}
	if testutil.CollectAndCount(m.MatchScore) != 1 {
		t.Fatal("expected the match score histogram to be populated")
	}
}

func TestServiceUsesSampleFallback(t *testing.T) {
	snaps := registry.NewSnapshotter(nil, true)
	svc, _, _ := newTestService(t, &stubVision{}, snaps)

	got := svc.ResolveGuess(context.Background(), resolution.Guess{Name: "RCA Ribbon Microphone", Matched: true})
	if got.Provenance != resolution.ProvenanceRegistry || got.ID != "sample-3" {
		t.Fatalf("expected sample registry match, got %+v", got)
	}
}
