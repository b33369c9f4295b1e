package sampler

import (
	"context"
	"errors"
	"fmt"

	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/video"
)

// DefaultMaxSamples is the sampling budget the classifier thresholds are
// calibrated against
const DefaultMaxSamples = 15

// ErrInvalidMaxSamples is returned for a non-positive sampling budget
var ErrInvalidMaxSamples = errors.New("max samples must be positive")

// Sampler picks an evenly spaced, deterministic subset of frames
type Sampler struct {
	maxSamples int
}

// New creates a sampler with the given budget
func New(maxSamples int) (*Sampler, error) {
	if maxSamples <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMaxSamples, maxSamples)
	}
	return &Sampler{maxSamples: maxSamples}, nil
}

// MaxSamples returns the sampling budget
func (s *Sampler) MaxSamples() int {
	return s.maxSamples
}

// Stride returns the index step for a video of total frames
func (s *Sampler) Stride(total int) int {
	stride := total / s.maxSamples
	if stride < 1 {
		stride = 1
	}
	return stride
}

// Plan returns the candidate frame indexes, in decode order
func (s *Sampler) Plan(total int) []int {
	if total <= 0 {
		return nil
	}

	stride := s.Stride(total)
	plan := make([]int, 0, s.maxSamples)
	for i := 0; i < total && len(plan) < s.maxSamples; i += stride {
		plan = append(plan, i)
	}
	return plan
}

// Pass describes one sampling run
type Pass struct {
	TotalFrames int
	Planned     int
	Indices     []int
	// Truncated is set when a decode failure ended the pass early.
	// StopErr carries that failure.
	Truncated bool
	StopErr   error
}

// Sampled returns the number of frames delivered
func (p *Pass) Sampled() int {
	return len(p.Indices)
}

// Visitor receives each decoded frame. The frame must not be retained
// after the call returns.
type Visitor func(index int, frame *video.Frame) error

// Each decodes the planned frames in order and hands them to visit. It
// takes ownership of src and closes it on every path. The first decode
// failure stops the pass without an error; cancellation of ctx is checked
// before every decode.
func (s *Sampler) Each(ctx context.Context, src video.Source, visit Visitor) (pass *Pass, err error) {
	defer func() {
		if cerr := src.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close video: %w", cerr)
		}
	}()

	total := src.FrameCount()
	plan := s.Plan(total)
	pass = &Pass{
		TotalFrames: total,
		Planned:     len(plan),
		Indices:     make([]int, 0, len(plan)),
	}

	for _, index := range plan {
		if err := ctx.Err(); err != nil {
			return pass, err
		}

		frame, err := src.ReadFrame(ctx, index)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return pass, ctxErr
			}
			pass.Truncated = true
			pass.StopErr = err
			return pass, nil
		}

		if err := visit(index, frame); err != nil {
			return pass, err
		}
		pass.Indices = append(pass.Indices, index)
	}

	return pass, nil
}

// SampledFrame is a decoded frame with its original index
type SampledFrame struct {
	Index int
	Frame *video.Frame
}

// Sample collects the sampled frames into a slice. Prefer Each for large
// frames: Sample keeps every decoded frame alive.
func (s *Sampler) Sample(ctx context.Context, src video.Source) ([]SampledFrame, *Pass, error) {
	var frames []SampledFrame
	pass, err := s.Each(ctx, src, func(index int, frame *video.Frame) error {
		frames = append(frames, SampledFrame{Index: index, Frame: frame})
		return nil
	})
	if err != nil {
		return nil, pass, err
	}
	return frames, pass, nil
}
