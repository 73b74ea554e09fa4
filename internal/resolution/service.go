package resolution

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"docent/internal/logging"
	"docent/internal/metrics"
	"docent/internal/registry"
	"docent/internal/services"
)

// Vision identifies the artifact shown in an image. candidates lists the
// registry names the model may choose from.
type Vision interface {
	IdentifyArtifact(ctx context.Context, imageURL string, candidates []string) (Guess, error)
}

// Snapshotter returns the registry entries for one resolution.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]registry.Entry, error)
}

// Alerter is told when the vision provider refuses work for quota reasons.
type Alerter interface {
	NotifyVisionQuota(ctx context.Context, kind string, cause error) error
}

const alertTimeout = 15 * time.Second

// Service runs the full pipeline: registry snapshot, vision guess, resolution.
type Service struct {
	resolver  Resolver
	vision    Vision
	snapshots Snapshotter
	alerter   Alerter
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewService wires the pipeline. vision may be nil for deployments that only
// resolve caller-supplied guesses; metrics may be nil.
func NewService(resolver Resolver, vision Vision, snapshots Snapshotter, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		resolver:  resolver,
		vision:    vision,
		snapshots: snapshots,
		logger:    logging.NewComponentLogger(logger, "resolution"),
		metrics:   m,
	}
}

// SetAlerter registers the operator alert hook for quota failures.
func (s *Service) SetAlerter(alerter Alerter) {
	s.alerter = alerter
}

// Analyze identifies the artifact in imageURL and resolves it against the registry.
func (s *Service) Analyze(ctx context.Context, imageURL string) (Response, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return Response{}, services.Wrap(services.ErrValidation, "resolution", "analyze", "imageUrl is required", nil)
	}
	if !supportedImageURL(imageURL) {
		return Response{}, services.Wrap(services.ErrValidation, "resolution", "analyze", "imageUrl must be an http(s) or data:image URL", nil)
	}
	if s.vision == nil {
		return Response{}, services.Wrap(services.ErrConfiguration, "resolution", "analyze", "vision model not configured", nil)
	}

	logger := logging.WithContext(ctx, s.logger)
	entries := s.Snapshot(ctx)

	start := time.Now()
	guess, err := s.vision.IdentifyArtifact(ctx, imageURL, registry.Names(entries))
	s.metrics.ObserveVisionLatency(time.Since(start))
	if err != nil {
		kind := visionErrorKind(err)
		s.metrics.IncrementVisionError(kind)
		logging.ErrorWithContext(logger, "vision identification failed", "vision_failed",
			logging.String("error_kind", kind),
			logging.Duration("elapsed", time.Since(start)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, visionErrorHint(kind)),
		)
		if kind == "rate_limited" || kind == "credits" {
			s.alert(ctx, kind, err)
		}
		return Response{}, err
	}
	logger.Debug("vision guess received",
		logging.String("guess_name", guess.Name),
		logging.Bool("guess_matched", guess.Matched),
		logging.Int("candidates", len(entries)),
	)

	return s.record(ctx, s.resolver.ResolveDetailed(guess, entries)), nil
}

// ResolveGuess resolves a caller-supplied guess without calling the vision model.
func (s *Service) ResolveGuess(ctx context.Context, guess Guess) Response {
	return s.record(ctx, s.resolver.ResolveDetailed(guess, s.Snapshot(ctx)))
}

// Snapshot returns the current registry. A failing registry degrades to an
// empty snapshot so the visitor still gets the model's guess.
func (s *Service) Snapshot(ctx context.Context) []registry.Entry {
	if s.snapshots == nil {
		return nil
	}
	entries, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		s.metrics.IncrementSnapshotFailure()
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "registry snapshot failed", "registry_snapshot_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the registry database or run 'docent registry list'"),
			logging.String(logging.FieldImpact, "responses fall back to the model guess"),
		)
		return nil
	}
	return entries
}

func (s *Service) record(ctx context.Context, decision Decision) Response {
	resp := decision.Response
	s.metrics.IncrementResolution(string(resp.Provenance), string(decision.Reason))
	if decision.Attempted {
		s.metrics.ObserveMatchScore(decision.Match.Score)
	}

	attrs := logging.DecisionAttrs("artifact_resolution", string(resp.Provenance), string(decision.Reason))
	attrs = append(attrs, logging.String("name", resp.Name))
	if decision.Attempted {
		attrs = append(attrs,
			logging.Float64("score", decision.Match.Score),
			logging.String("match_kind", string(decision.Match.Kind)),
			logging.Float64("threshold", s.resolver.matcher.Threshold()),
		)
	}
	if resp.ID != "" {
		attrs = append(attrs,
			logging.String("registry_id", resp.ID),
			logging.Int("photos", len(resp.Photos)),
		)
	}
	logging.WithContext(ctx, s.logger).Info("artifact resolved", logging.Args(attrs...)...)
	return resp
}

// alert notifies the operator without delaying the visitor's error response.
func (s *Service) alert(ctx context.Context, kind string, cause error) {
	if s.alerter == nil {
		return
	}
	logger := logging.WithContext(ctx, s.logger)
	go func() {
		alertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
		defer cancel()
		if err := s.alerter.NotifyVisionQuota(alertCtx, kind, cause); err != nil {
			logger.Warn("operator alert failed", logging.String("alert", kind), logging.Error(err))
		}
	}()
}

func supportedImageURL(value string) bool {
	lower := strings.ToLower(value)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "data:image/")
}

func visionErrorKind(err error) string {
	switch {
	case errors.Is(err, services.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, services.ErrCreditsExhausted):
		return "credits"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, services.ErrTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

func visionErrorHint(kind string) string {
	switch kind {
	case "rate_limited":
		return "wait and retry; consider a higher rate limit tier"
	case "credits":
		return "add funds to the model provider account"
	case "timeout":
		return "raise llm.timeout_seconds or try a faster model"
	default:
		return "check llm.base_url, llm.model, and the api key"
	}
}
