package classifier

import (
	"math"

	"github.com/therealutkarshpriyadarshi/emergencyprep/pkg/models"
)

// CalibratedSamples is the sample budget the base thresholds assume
const CalibratedSamples = 15

// Thresholds are the minimum indicator counts for each rule
type Thresholds struct {
	Flood       int
	Fire        int
	Earthquake  int
	PowerOutage int
	Accident    int
}

// DefaultThresholds returns the thresholds for a 15-frame budget
func DefaultThresholds() Thresholds {
	return Thresholds{
		Flood:       5,
		Fire:        4,
		Earthquake:  8,
		PowerOutage: 10,
		Accident:    4,
	}
}

// ScaleThresholds rescales the default thresholds to another sample budget
// so they keep the same share of the budget. Each threshold is at least 1.
func ScaleThresholds(budget int) Thresholds {
	base := DefaultThresholds()
	if budget == CalibratedSamples || budget <= 0 {
		return base
	}

	scale := func(v int) int {
		scaled := int(math.Round(float64(v) * float64(budget) / CalibratedSamples))
		if scaled < 1 {
			return 1
		}
		return scaled
	}

	return Thresholds{
		Flood:       scale(base.Flood),
		Fire:        scale(base.Fire),
		Earthquake:  scale(base.Earthquake),
		PowerOutage: scale(base.PowerOutage),
		Accident:    scale(base.Accident),
	}
}

// Decide applies the ordered rule. The first matching rule wins.
func Decide(counts models.IndicatorCounts, th Thresholds) (models.Label, models.Confidence) {
	switch {
	case counts.WaterFrames >= th.Flood:
		return models.LabelFlood, models.ConfidenceHigh
	case counts.FireFrames >= th.Fire:
		return models.LabelFire, models.ConfidenceHigh
	case counts.MotionFrames >= th.Earthquake:
		return models.LabelEarthquake, models.ConfidenceMedium
	case counts.DarkFrames >= th.PowerOutage:
		return models.LabelPowerOutage, models.ConfidenceMedium
	case counts.MotionFrames >= th.Accident:
		return models.LabelAccident, models.ConfidenceMedium
	default:
		return models.LabelGeneral, models.ConfidenceMedium
	}
}
