package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/classifier"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/logging"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/metrics"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/sampler"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/tracing"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/video"
	"github.com/therealutkarshpriyadarshi/emergencyprep/pkg/models"
)

// ErrTimeout is returned when an analysis exceeds its deadline
var ErrTimeout = errors.New("analysis timed out")

// Config holds analyzer settings
type Config struct {
	MaxSamples int
	Timeout    time.Duration
}

// Service runs the sample-then-classify pipeline over video files
type Service struct {
	opener  video.Opener
	sampler *sampler.Sampler
	timeout time.Duration
	logger  *logging.Logger
}

// NewService creates a new analyzer service
func NewService(opener video.Opener, cfg Config, logger *logging.Logger) (*Service, error) {
	s, err := sampler.New(cfg.MaxSamples)
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Service{
		opener:  opener,
		sampler: s,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// AnalyzeFile classifies the video at path. It returns an error wrapping
// video.ErrVideoUnreadable, classifier.ErrInsufficientEvidence or
// ErrTimeout when no result can be produced.
func (s *Service) AnalyzeFile(ctx context.Context, path string) (*models.ClassificationResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	span, ctx := tracing.StartSpan(ctx, tracing.SpanAnalyze)
	defer tracing.FinishSpan(span)

	result, err := s.analyze(ctx, path)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		tracing.LogError(span, err)
		return nil, err
	}

	tracing.SetTag(span, "label", string(result.Label))
	return result, nil
}

func (s *Service) analyze(ctx context.Context, path string) (*models.ClassificationResult, error) {
	openSpan, openCtx := tracing.StartSpan(ctx, tracing.SpanOpen)
	src, err := s.opener.Open(openCtx, path)
	tracing.LogError(openSpan, err)
	tracing.FinishSpan(openSpan)
	if err != nil {
		return nil, fmt.Errorf("failed to open video: %w", err)
	}

	tally := classifier.NewTally(s.sampler.MaxSamples())

	sampleSpan, sampleCtx := tracing.StartSpan(ctx, tracing.SpanSample)
	pass, err := s.sampler.Each(sampleCtx, src, func(index int, frame *video.Frame) error {
		if _, err := tally.Observe(frame); err != nil {
			return fmt.Errorf("failed to observe frame %d: %w", index, err)
		}
		return nil
	})
	if pass != nil {
		tracing.SetTag(sampleSpan, "frames.total", pass.TotalFrames)
		tracing.SetTag(sampleSpan, "frames.sampled", pass.Sampled())
		tracing.SetTag(sampleSpan, "truncated", pass.Truncated)
	}
	tracing.LogError(sampleSpan, err)
	tracing.FinishSpan(sampleSpan)
	if err != nil {
		return nil, fmt.Errorf("failed to sample video: %w", err)
	}

	if pass.Truncated {
		s.logger.WithError(pass.StopErr).
			WithField("decoded", pass.Sampled()).
			WithField("planned", pass.Planned).
			Warn("Frame decoding stopped early")
	}

	classifySpan, _ := tracing.StartSpan(ctx, tracing.SpanClassify)
	defer tracing.FinishSpan(classifySpan)

	result, err := tally.Result(pass.TotalFrames, pass.Truncated)
	if err != nil {
		tracing.LogError(classifySpan, err)
		if pass.StopErr != nil {
			return nil, fmt.Errorf("%w: %v", err, pass.StopErr)
		}
		return nil, err
	}
	return result, nil
}

// Reason maps an analysis error to the reason reported to callers. It
// returns an empty string for errors that are not analysis outcomes.
func Reason(err error) string {
	switch {
	case errors.Is(err, video.ErrVideoUnreadable):
		return models.ReasonVideoUnreadable
	case errors.Is(err, classifier.ErrInsufficientEvidence):
		return models.ReasonInsufficientEvidence
	case errors.Is(err, ErrTimeout):
		return models.ReasonTimeout
	default:
		return ""
	}
}

// Run analyzes path and wraps the outcome in an Analysis envelope.
// Unreadable, empty and timed out videos produce an "unavailable" analysis
// rather than an error; any other failure is returned.
func (s *Service) Run(ctx context.Context, path string) (*models.Analysis, error) {
	analysis := &models.Analysis{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
	}
	logger := s.logger.WithAnalysisID(analysis.ID)

	metrics.AnalysesInProgress.Inc()
	defer metrics.AnalysesInProgress.Dec()

	result, err := s.AnalyzeFile(ctx, path)
	analysis.CompletedAt = time.Now()
	duration := analysis.CompletedAt.Sub(analysis.StartedAt)

	if err != nil {
		reason := Reason(err)
		if reason == "" {
			logger.ErrorWithErr("Analysis failed", err)
			return nil, err
		}
		analysis.Status = models.AnalysisStatusUnavailable
		analysis.Reason = reason
		logger.LogAnalysisUnavailable(analysis.ID, reason, err)
		metrics.RecordAnalysisUnavailable(reason, duration.Seconds())
		return analysis, nil
	}

	analysis.Status = models.AnalysisStatusCompleted
	analysis.Result = result
	logger.LogAnalysis(analysis.ID, result, duration)
	metrics.RecordAnalysis(result, duration.Seconds())
	return analysis, nil
}

// Disabled returns the envelope used when the classifier is switched off
func Disabled() *models.Analysis {
	now := time.Now()
	return &models.Analysis{
		ID:          uuid.New().String(),
		Status:      models.AnalysisStatusDisabled,
		StartedAt:   now,
		CompletedAt: now,
	}
}
