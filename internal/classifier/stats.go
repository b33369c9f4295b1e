package classifier

import (
	"errors"
	"fmt"

	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/video"
)

// Indicator predicate constants, calibrated on 8-bit BGR frames
const (
	WaterBlueRatio       = 0.4
	WaterBrightBlueRatio = 0.3
	WaterBrightness      = 100.0
	FireRedRatio         = 0.4
	FireBrightness       = 70.0
	DarkBrightness       = 45.0
	MotionThreshold      = 25.0
)

// ErrInvalidFrame is returned for frames whose buffer does not match their size
var ErrInvalidFrame = errors.New("invalid frame")

// FrameStats are the per-frame statistics the indicators are computed from
type FrameStats struct {
	// AvgColor is the per-channel mean in B, G, R order
	AvgColor   [3]float64
	Brightness float64
	// Motion is the mean absolute grayscale difference against the
	// previous sampled frame. Only meaningful when HasMotion is set.
	Motion    float64
	HasMotion bool
}

func (s FrameStats) blue() float64  { return s.AvgColor[video.ChannelBlue] }
func (s FrameStats) green() float64 { return s.AvgColor[video.ChannelGreen] }
func (s FrameStats) red() float64   { return s.AvgColor[video.ChannelRed] }

func (s FrameStats) sum() float64 {
	return s.blue() + s.green() + s.red()
}

// BlueRatio is B / (B+G+R+1)
func (s FrameStats) BlueRatio() float64 {
	return s.blue() / (s.sum() + 1)
}

// RedRatio is R / (B+G+R+1)
func (s FrameStats) RedRatio() float64 {
	return s.red() / (s.sum() + 1)
}

// IsWater reports whether the frame looks like water or muddy flood water.
// The first clause matches any frame where red is the weakest channel.
func (s FrameStats) IsWater() bool {
	blueRatio := s.BlueRatio()
	return (s.red() < s.blue() && s.red() < s.green()) ||
		blueRatio > WaterBlueRatio ||
		(s.Brightness > WaterBrightness && blueRatio > WaterBrightBlueRatio)
}

// IsFire reports a red-dominant, reasonably bright frame
func (s FrameStats) IsFire() bool {
	return s.RedRatio() > FireRedRatio && s.Brightness > FireBrightness
}

// IsDark reports a frame below the darkness brightness
func (s FrameStats) IsDark() bool {
	return s.Brightness < DarkBrightness
}

// IsMoving reports significant change since the previous sampled frame
func (s FrameStats) IsMoving() bool {
	return s.HasMotion && s.Motion > MotionThreshold
}

// ColorStats computes the channel means and brightness of a frame
func ColorStats(f *video.Frame) (FrameStats, error) {
	if !f.Valid() {
		return FrameStats{}, ErrInvalidFrame
	}

	var sums [3]uint64
	for i := 0; i < len(f.Pix); i += 3 {
		sums[video.ChannelBlue] += uint64(f.Pix[i+video.ChannelBlue])
		sums[video.ChannelGreen] += uint64(f.Pix[i+video.ChannelGreen])
		sums[video.ChannelRed] += uint64(f.Pix[i+video.ChannelRed])
	}

	n := float64(f.Pixels())
	var stats FrameStats
	for c := range sums {
		stats.AvgColor[c] = float64(sums[c]) / n
	}
	stats.Brightness = (stats.AvgColor[0] + stats.AvgColor[1] + stats.AvgColor[2]) / 3
	return stats, nil
}

// MeanAbsDiff returns the mean absolute difference of two grayscale planes
func MeanAbsDiff(cur, prev []uint8) (float64, error) {
	if len(cur) != len(prev) {
		return 0, fmt.Errorf("plane size mismatch: %d vs %d", len(cur), len(prev))
	}
	if len(cur) == 0 {
		return 0, nil
	}

	var total uint64
	for i := range cur {
		if cur[i] > prev[i] {
			total += uint64(cur[i] - prev[i])
		} else {
			total += uint64(prev[i] - cur[i])
		}
	}
	return float64(total) / float64(len(cur)), nil
}
