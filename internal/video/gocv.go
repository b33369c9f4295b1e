//go:build gocv

package video

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"
)

// GoCVOpener opens videos through OpenCV's VideoCapture
type GoCVOpener struct{}

// NewGoCVOpener creates a new OpenCV-backed opener
func NewGoCVOpener() *GoCVOpener {
	return &GoCVOpener{}
}

func newGoCVOpener() (Opener, error) {
	return NewGoCVOpener(), nil
}

// Open opens the capture and reads its frame count
func (o *GoCVOpener) Open(ctx context.Context, path string) (Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, unreadable(path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, unreadable(path, fmt.Errorf("capture not opened"))
	}

	return &gocvSource{
		capture: vc,
		total:   int(vc.Get(gocv.VideoCaptureFrameCount)),
	}, nil
}

type gocvSource struct {
	capture *gocv.VideoCapture
	total   int
}

func (s *gocvSource) FrameCount() int {
	return s.total
}

func (s *gocvSource) ReadFrame(ctx context.Context, index int) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 || index >= s.total {
		return nil, fmt.Errorf("%w: %d", ErrFrameOutOfRange, index)
	}

	s.capture.Set(gocv.VideoCapturePosFrames, float64(index))

	mat := gocv.NewMat()
	defer mat.Close()

	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		return nil, fmt.Errorf("%w at %d", ErrDecodeFailed, index)
	}
	if mat.Channels() != 3 {
		return nil, fmt.Errorf("%w at %d: %d channels", ErrDecodeFailed, index, mat.Channels())
	}

	// OpenCV hands back BGR, which is the Frame layout already.
	return &Frame{
		Width:  mat.Cols(),
		Height: mat.Rows(),
		Pix:    mat.ToBytes(),
	}, nil
}

func (s *gocvSource) Close() error {
	return s.capture.Close()
}
