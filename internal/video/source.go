package video

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrVideoUnreadable is returned when a video cannot be opened or probed
	ErrVideoUnreadable = errors.New("video unreadable")
	// ErrDecodeFailed is returned when a single frame cannot be decoded
	ErrDecodeFailed = errors.New("frame decode failed")
	// ErrFrameOutOfRange is returned for indexes outside [0, FrameCount)
	ErrFrameOutOfRange = errors.New("frame index out of range")
)

// Source is a decodable, seekable sequence of frames. Implementations are
// not safe for concurrent use.
type Source interface {
	// FrameCount returns the known or estimated number of frames
	FrameCount() int
	// ReadFrame seeks to index and decodes one frame
	ReadFrame(ctx context.Context, index int) (*Frame, error)
	// Close releases the underlying decoder
	Close() error
}

// Opener opens a video file as a Source
type Opener interface {
	Open(ctx context.Context, path string) (Source, error)
}

// Decoder backends
const (
	BackendFFmpeg = "ffmpeg"
	BackendGoCV   = "gocv"
)

// OpenerConfig selects and configures a decoder backend
type OpenerConfig struct {
	Backend     string
	FFmpegPath  string
	FFprobePath string
}

// NewOpener returns the opener for the configured backend
func NewOpener(cfg OpenerConfig) (Opener, error) {
	switch cfg.Backend {
	case "", BackendFFmpeg:
		return NewFFmpegOpener(cfg.FFmpegPath, cfg.FFprobePath), nil
	case BackendGoCV:
		return newGoCVOpener()
	default:
		return nil, fmt.Errorf("unknown decoder backend %q", cfg.Backend)
	}
}

var supportedExtensions = map[string]bool{
	".mp4": true,
	".avi": true,
	".mov": true,
	".mkv": true,
}

// SupportedExtension reports whether the filename has an accepted container
// extension
func SupportedExtension(filename string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

func unreadable(path string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrVideoUnreadable, filepath.Base(path), err)
}
