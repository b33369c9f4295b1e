package models

import (
	"time"
)

// SituationContext is the caller-supplied context used to render guidance
type SituationContext struct {
	Language     string   `json:"language"`
	DisasterType string   `json:"disaster_type,omitempty"`
	Resources    []string `json:"resources"`
	Location     string   `json:"location"`
	PeopleCount  int      `json:"people_count"`
}

// AnalysisJob is an asynchronous analysis request carried on the queue
type AnalysisJob struct {
	ID          string           `json:"id"`
	VideoKey    string           `json:"video_key"`
	CallbackURL string           `json:"callback_url"`
	Context     SituationContext `json:"context"`
	Attempt     int              `json:"attempt"`
	SubmittedBy string           `json:"submitted_by,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Analysis is the response envelope for a single analysis
type Analysis struct {
	ID          string                `json:"analysis_id"`
	Status      string                `json:"status"`
	Reason      string                `json:"reason,omitempty"`
	Result      *ClassificationResult `json:"result,omitempty"`
	Guidance    interface{}           `json:"guidance,omitempty"`
	StartedAt   time.Time             `json:"started_at"`
	CompletedAt time.Time             `json:"completed_at"`
}

// DurationSeconds returns how long the analysis took
func (a *Analysis) DurationSeconds() float64 {
	if a.CompletedAt.IsZero() || a.StartedAt.IsZero() {
		return 0
	}
	return a.CompletedAt.Sub(a.StartedAt).Seconds()
}
