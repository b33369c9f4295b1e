package models

import "fmt"

// Label is the emergency category assigned to a video
type Label string

// Label constants
const (
	LabelFlood       Label = "flood"
	LabelFire        Label = "fire"
	LabelEarthquake  Label = "earthquake"
	LabelPowerOutage Label = "power_outage"
	LabelAccident    Label = "accident"
	LabelGeneral     Label = "general"
)

// Labels lists every label in decision-rule priority order
var Labels = []Label{
	LabelFlood,
	LabelFire,
	LabelEarthquake,
	LabelPowerOutage,
	LabelAccident,
	LabelGeneral,
}

// ParseLabel converts a string into a Label
func ParseLabel(s string) (Label, error) {
	for _, l := range Labels {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown label %q", s)
}

// Confidence is the coarse confidence tier of a classification. It reflects
// which rule fired, not a probability.
type Confidence string

// Confidence constants
const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
)

// IndicatorCounts holds the per-indicator tallies over the sampled frames.
// Each counter is incremented at most once per frame, and a frame may
// satisfy several predicates.
type IndicatorCounts struct {
	WaterFrames   int `json:"water_frames"`
	FireFrames    int `json:"fire_frames"`
	DarkFrames    int `json:"dark_frames"`
	MotionFrames  int `json:"motion_frames"`
	SampledFrames int `json:"sampled_frames"`
}

// ClassificationResult is the outcome of one analysis
type ClassificationResult struct {
	Label       Label           `json:"label"`
	Confidence  Confidence      `json:"confidence"`
	Counts      IndicatorCounts `json:"counts"`
	SampleLimit int             `json:"sample_limit"`
	TotalFrames int             `json:"total_frames"`
	// Truncated is set when decoding stopped before the sampling plan
	// was exhausted.
	Truncated bool `json:"truncated"`
}

// Summary returns a one-line description of the indicator evidence
func (r *ClassificationResult) Summary() string {
	return fmt.Sprintf("Water/Muddy=%d, Fire=%d, Motion=%d, Dark=%d/%d",
		r.Counts.WaterFrames, r.Counts.FireFrames, r.Counts.MotionFrames,
		r.Counts.DarkFrames, r.Counts.SampledFrames)
}

// AnalysisStatus constants
const (
	AnalysisStatusCompleted   = "completed"
	AnalysisStatusUnavailable = "unavailable"
	AnalysisStatusDisabled    = "disabled"
)

// Unavailability reasons reported to callers
const (
	ReasonVideoUnreadable      = "video_unreadable"
	ReasonInsufficientEvidence = "insufficient_evidence"
	ReasonTimeout              = "timeout"
)
