package analytics

import "time"

type EventType string

const (
	EventAssessment EventType = "assessment"
	EventPreview    EventType = "preview"
)

// AssessmentEvent is published once per ranking served.
type AssessmentEvent struct {
	Type         EventType `json:"type"`
	PredictID    int64     `json:"predict_id,omitempty"`
	UserID       int64     `json:"user_id,omitempty"`
	TopDisease   string    `json:"top_disease"`
	Source       string    `json:"source"`
	SymptomCount int       `json:"symptom_count"`
	Duration     string    `json:"duration"`
	Severity     string    `json:"severity"`
	Padded       bool      `json:"padded"`
	Persisted    bool      `json:"persisted"`
	LatencyMs    int64     `json:"latency_ms"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id,omitempty"`
}
