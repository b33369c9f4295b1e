package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegOpener opens videos through the ffmpeg and ffprobe binaries
type FFmpegOpener struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpegOpener creates a new FFmpeg-backed opener
func NewFFmpegOpener(ffmpegPath, ffprobePath string) *FFmpegOpener {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegOpener{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}
}

// ProbeResult holds the parts of ffprobe output the sampler needs
type ProbeResult struct {
	Format  FormatInfo   `json:"format"`
	Streams []StreamInfo `json:"streams"`
}

// FormatInfo holds format information
type FormatInfo struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

// StreamInfo holds stream information
type StreamInfo struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	NbFrames     string `json:"nb_frames"`
	Duration     string `json:"duration"`
	AvgFrameRate string `json:"avg_frame_rate"`
	FrameRate    string `json:"r_frame_rate"`
}

// Probe runs ffprobe against a file
func (o *FFmpegOpener) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"-select_streams", "v:0",
		path,
	}

	cmd := exec.CommandContext(ctx, o.ffprobePath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, stderr.String())
	}

	var result ProbeResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	return &result, nil
}

// Open probes the file and returns a Source that decodes frames on demand.
// No decoder process runs until the first ReadFrame.
func (o *FFmpegOpener) Open(ctx context.Context, path string) (Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, unreadable(path, err)
	}

	probe, err := o.Probe(ctx, path)
	if err != nil {
		return nil, unreadable(path, err)
	}

	stream, ok := probe.videoStream()
	if !ok {
		return nil, unreadable(path, fmt.Errorf("no video stream"))
	}
	if stream.Width <= 0 || stream.Height <= 0 {
		return nil, unreadable(path, fmt.Errorf("invalid dimensions %dx%d", stream.Width, stream.Height))
	}

	ffmpegPath := o.ffmpegPath
	return &ffmpegSource{
		width:  stream.Width,
		height: stream.Height,
		total:  frameCount(probe.Format, stream),
		start: func(ctx context.Context) (frameStream, error) {
			return startFFmpeg(ctx, ffmpegPath, path)
		},
	}, nil
}

func (p *ProbeResult) videoStream() (StreamInfo, bool) {
	for _, s := range p.Streams {
		if s.CodecType == "video" {
			return s, true
		}
	}
	return StreamInfo{}, false
}

// frameCount prefers the container's frame count and falls back to
// duration times average frame rate, the same estimate most demuxers
// report when the header carries no count.
func frameCount(format FormatInfo, stream StreamInfo) int {
	if n, err := strconv.Atoi(stream.NbFrames); err == nil && n > 0 {
		return n
	}

	duration, err := strconv.ParseFloat(stream.Duration, 64)
	if err != nil || duration <= 0 {
		duration, err = strconv.ParseFloat(format.Duration, 64)
		if err != nil || duration <= 0 {
			return 0
		}
	}

	fps := parseRational(stream.AvgFrameRate)
	if fps <= 0 {
		fps = parseRational(stream.FrameRate)
	}
	if fps <= 0 {
		return 0
	}

	return int(math.Round(duration * fps))
}

// parseRational parses ffprobe rates such as "30000/1001"
func parseRational(s string) float64 {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

// frameStream is a running decoder writing packed BGR24 frames
type frameStream interface {
	io.Reader
	// Close stops the decoder and waits for it to exit
	Close() error
	// Err reports why the decoder stopped early, after a short read
	Err() error
}

type ffmpegSource struct {
	width  int
	height int
	total  int

	start  func(ctx context.Context) (frameStream, error)
	stream frameStream
	next   int // index of the next frame the stream will yield
}

func (s *ffmpegSource) FrameCount() int {
	return s.total
}

// ReadFrame reads frames sequentially from a single decoder process,
// discarding those before index. A lower index than the stream position
// restarts the decoder. The process is bound to the ctx of the ReadFrame
// call that started it.
func (s *ffmpegSource) ReadFrame(ctx context.Context, index int) (*Frame, error) {
	if index < 0 || index >= s.total {
		return nil, fmt.Errorf("%w: %d", ErrFrameOutOfRange, index)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.stream != nil && index < s.next {
		s.stop()
	}
	if s.stream == nil {
		stream, err := s.start(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w at %d: %v", ErrDecodeFailed, index, err)
		}
		s.stream = stream
		s.next = 0
	}

	frameSize := s.width * s.height * 3
	if skip := int64(index-s.next) * int64(frameSize); skip > 0 {
		n, err := io.CopyN(io.Discard, s.stream, skip)
		s.next += int(n / int64(frameSize))
		if err != nil {
			return nil, s.readError(ctx, index, err)
		}
	}

	pix := make([]byte, frameSize)
	if _, err := io.ReadFull(s.stream, pix); err != nil {
		return nil, s.readError(ctx, index, err)
	}
	s.next = index + 1

	return &Frame{
		Width:  s.width,
		Height: s.height,
		Pix:    pix,
	}, nil
}

// readError stops the stream after a short read. The next ReadFrame starts
// over, so the position is never left between frames.
func (s *ffmpegSource) readError(ctx context.Context, index int, err error) error {
	defer s.stop()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if cause := s.stream.Err(); cause != nil {
		return fmt.Errorf("%w at %d: %v", ErrDecodeFailed, index, cause)
	}
	return fmt.Errorf("%w at %d: %v", ErrDecodeFailed, index, err)
}

func (s *ffmpegSource) stop() {
	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
	}
	s.next = 0
}

// Close kills the decoder process, if one is running, and reaps it
func (s *ffmpegSource) Close() error {
	if s.stream == nil {
		return nil
	}
	err := s.stream.Close()
	s.stream = nil
	return err
}

// ffmpegProcess decodes the first video stream to raw BGR24 on stdout.
// -noautorotate keeps the output geometry equal to the probed one and
// passthrough sync keeps one output frame per decoded frame.
type ffmpegProcess struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer

	waited  bool
	waitErr error
}

func startFFmpeg(ctx context.Context, ffmpegPath, path string) (*ffmpegProcess, error) {
	args := []string{
		"-v", "error",
		"-noautorotate",
		"-i", path,
		"-map", "0:v:0",
		"-an",
		"-vsync", "passthrough",
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"pipe:1",
	}

	p := &ffmpegProcess{cmd: exec.CommandContext(ctx, ffmpegPath, args...)}
	p.cmd.Stderr = &p.stderr

	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	p.stdout = stdout

	if err := p.cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	return p, nil
}

func (p *ffmpegProcess) Read(b []byte) (int, error) {
	return p.stdout.Read(b)
}

func (p *ffmpegProcess) wait() error {
	if !p.waited {
		p.waitErr = p.cmd.Wait()
		p.waited = true
	}
	return p.waitErr
}

// Err waits for the process, which has closed stdout, and returns its exit
// status with stderr attached
func (p *ffmpegProcess) Err() error {
	if err := p.wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w, stderr: %s", err, strings.TrimSpace(p.stderr.String()))
	}
	return nil
}

func (p *ffmpegProcess) Close() error {
	if !p.waited && p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	p.wait()
	return nil
}
