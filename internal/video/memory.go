package video

import (
	"context"
	"fmt"
)

// MemorySource serves pre-decoded frames. It reports Total frames and
// fails decoding from FailAt onwards when FailAt >= 0.
type MemorySource struct {
	Frames []*Frame
	Total  int
	FailAt int

	// Reads records every index passed to ReadFrame, in call order
	Reads  []int
	Closed bool
}

// NewMemorySource builds a source whose frame count is len(frames)
func NewMemorySource(frames []*Frame) *MemorySource {
	return &MemorySource{
		Frames: frames,
		Total:  len(frames),
		FailAt: -1,
	}
}

func (m *MemorySource) FrameCount() int {
	return m.Total
}

func (m *MemorySource) ReadFrame(ctx context.Context, index int) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.Reads = append(m.Reads, index)

	if index < 0 || index >= m.Total {
		return nil, fmt.Errorf("%w: %d", ErrFrameOutOfRange, index)
	}
	if m.FailAt >= 0 && index >= m.FailAt {
		return nil, fmt.Errorf("%w at %d", ErrDecodeFailed, index)
	}
	if index >= len(m.Frames) || m.Frames[index] == nil {
		return nil, fmt.Errorf("%w at %d: no frame", ErrDecodeFailed, index)
	}
	return m.Frames[index], nil
}

func (m *MemorySource) Close() error {
	m.Closed = true
	return nil
}

// MemoryOpener hands out in-memory sources keyed by path
type MemoryOpener struct {
	Sources map[string]*MemorySource
}

// Open returns the registered source or ErrVideoUnreadable
func (o *MemoryOpener) Open(ctx context.Context, path string) (Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, ok := o.Sources[path]
	if !ok {
		return nil, unreadable(path, fmt.Errorf("not registered"))
	}
	return src, nil
}
