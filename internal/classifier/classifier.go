package classifier

import (
	"errors"
	"fmt"

	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/video"
	"github.com/therealutkarshpriyadarshi/emergencyprep/pkg/models"
)

// Errors returned by the classifier
var (
	ErrInsufficientEvidence = errors.New("no frames could be sampled")
	ErrSampleLimit          = errors.New("sample limit reached")
)

// Tally accumulates indicator counts one frame at a time. Only the
// grayscale plane of the previous frame is retained between calls.
type Tally struct {
	limit      int
	thresholds Thresholds
	counts     models.IndicatorCounts

	prevGray []uint8
	prevW    int
	prevH    int
	spare    []uint8
}

// NewTally creates a tally for a sample budget of limit frames
func NewTally(limit int) *Tally {
	if limit <= 0 {
		limit = CalibratedSamples
	}
	return &Tally{
		limit:      limit,
		thresholds: ScaleThresholds(limit),
	}
}

// Thresholds returns the thresholds the tally decides with
func (t *Tally) Thresholds() Thresholds {
	return t.thresholds
}

// Counts returns the counts so far
func (t *Tally) Counts() models.IndicatorCounts {
	return t.counts
}

// Observe computes the statistics of the next sampled frame and updates
// the counters. Motion is only measured against a previous frame of the
// same dimensions.
func (t *Tally) Observe(f *video.Frame) (FrameStats, error) {
	if t.counts.SampledFrames >= t.limit {
		return FrameStats{}, fmt.Errorf("%w: %d", ErrSampleLimit, t.limit)
	}

	stats, err := ColorStats(f)
	if err != nil {
		return FrameStats{}, err
	}

	gray := f.Gray(t.spare)
	if t.prevGray != nil && t.prevW == f.Width && t.prevH == f.Height {
		motion, err := MeanAbsDiff(gray, t.prevGray)
		if err != nil {
			return FrameStats{}, err
		}
		stats.Motion = motion
		stats.HasMotion = true
	}
	t.spare, t.prevGray = t.prevGray, gray
	t.prevW, t.prevH = f.Width, f.Height

	t.counts.SampledFrames++
	if stats.IsWater() {
		t.counts.WaterFrames++
	}
	if stats.IsFire() {
		t.counts.FireFrames++
	}
	if stats.IsDark() {
		t.counts.DarkFrames++
	}
	if stats.IsMoving() {
		t.counts.MotionFrames++
	}

	return stats, nil
}

// Result applies the decision rule to the counts. totalFrames and
// truncated describe the sampling pass that fed the tally.
func (t *Tally) Result(totalFrames int, truncated bool) (*models.ClassificationResult, error) {
	if t.counts.SampledFrames == 0 {
		return nil, ErrInsufficientEvidence
	}

	label, confidence := Decide(t.counts, t.thresholds)
	return &models.ClassificationResult{
		Label:       label,
		Confidence:  confidence,
		Counts:      t.counts,
		SampleLimit: t.limit,
		TotalFrames: totalFrames,
		Truncated:   truncated,
	}, nil
}

// Classify runs the classifier over an already sampled frame sequence
func Classify(frames []*video.Frame) (*models.ClassificationResult, error) {
	if len(frames) > CalibratedSamples {
		return nil, fmt.Errorf("%w: got %d frames", ErrSampleLimit, len(frames))
	}

	tally := NewTally(CalibratedSamples)
	for i, f := range frames {
		if _, err := tally.Observe(f); err != nil {
			return nil, fmt.Errorf("failed to observe frame %d: %w", i, err)
		}
	}
	return tally.Result(len(frames), false)
}
