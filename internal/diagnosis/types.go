// Package diagnosis defines the request/response types and the persisted
// assessment record shared by the ranking engine, the HTTP layer and the
// assessment store.
package diagnosis

import (
	"fmt"
	"strings"
	"time"
)

// ResultSize is the fixed length of every ranked result.
const ResultSize = 3

// Source records which path produced a candidate.
type Source string

const (
	SourceHeuristic  Source = "heuristic"
	SourceClassifier Source = "classifier"
	SourceFallback   Source = "fallback"
)

// Candidate is a disease name with a confidence score in [0,100].
type Candidate struct {
	Disease string  `json:"disease"`
	Score   float64 `json:"probability"`
	Source  Source  `json:"source,omitempty"`
}

// FollowUpAnswer is one answer to a dynamic follow-up question.
type FollowUpAnswer struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
}

// PredictRequest is the JSON body accepted by the predict endpoint.
type PredictRequest struct {
	Symptoms        []string          `json:"symptoms"`
	Duration        string            `json:"duration"`
	Severity        string            `json:"severity"`
	UserID          int64             `json:"user_id"`
	FollowUpAnswers []FollowUpAnswer  `json:"follow_up_answers,omitempty"`
	JourneyMetadata map[string]string `json:"journey_metadata,omitempty"`
	Timestamp       *time.Time        `json:"timestamp,omitempty"`
}

// AssessmentInput echoes the normalized input back to the caller.
type AssessmentInput struct {
	MainSymptom     string            `json:"main_symptom"`
	OtherSymptoms   []string          `json:"other_symptoms"`
	Duration        string            `json:"duration"`
	Severity        string            `json:"severity"`
	FollowUpAnswers []FollowUpAnswer  `json:"follow_up_answers"`
	JourneyMetadata map[string]string `json:"journey_metadata"`
	TotalSymptoms   int               `json:"total_symptoms"`
}

// PredictResponse is returned after a prediction. RecordID is nil only for
// previews that are never persisted.
type PredictResponse struct {
	RecordID    *int64          `json:"record_id"`
	Input       AssessmentInput `json:"input"`
	Ranked      []Candidate     `json:"ranked"`
	SummaryText string          `json:"summary_text"`
}

// AssessmentRecord is the persisted outcome of one prediction call. It is
// created once and never mutated.
type AssessmentRecord struct {
	ID              int64             `json:"predict_id"`
	UserID          int64             `json:"user_id"`
	MainSymptom     string            `json:"main_symptom"`
	OtherSymptoms   []string          `json:"other_symptoms"`
	Duration        string            `json:"duration"`
	Severity        string            `json:"severity"`
	TopResults      []Candidate       `json:"top_results"`
	FollowUpAnswers []FollowUpAnswer  `json:"follow_up_answers"`
	JourneyMetadata map[string]string `json:"journey_metadata"`
	Summary         string            `json:"assessment_summary"`
	TotalSymptoms   int               `json:"total_symptoms"`
	AssessedAt      *time.Time        `json:"timestamp,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Input rebuilds the caller-facing echo of the record's input.
func (r *AssessmentRecord) Input() AssessmentInput {
	others := r.OtherSymptoms
	if others == nil {
		others = []string{}
	}
	answers := r.FollowUpAnswers
	if answers == nil {
		answers = []FollowUpAnswer{}
	}
	journey := r.JourneyMetadata
	if journey == nil {
		journey = map[string]string{}
	}
	return AssessmentInput{
		MainSymptom:     r.MainSymptom,
		OtherSymptoms:   others,
		Duration:        r.Duration,
		Severity:        r.Severity,
		FollowUpAnswers: answers,
		JourneyMetadata: journey,
		TotalSymptoms:   r.TotalSymptoms,
	}
}

// SplitSymptoms returns the main symptom and the rest.
func SplitSymptoms(symptoms []string) (string, []string) {
	if len(symptoms) == 0 {
		return "", []string{}
	}
	others := make([]string, len(symptoms)-1)
	copy(others, symptoms[1:])
	return symptoms[0], others
}

// RepairLegacy fills the summary and symptom count of records written before
// those columns existed. hasSummary and hasTotal report whether the stored
// values were present; a stored empty summary or zero count is kept.
func (r *AssessmentRecord) RepairLegacy(hasSummary, hasTotal bool) {
	if !hasSummary {
		r.Summary = fmt.Sprintf("%s - %s - %s", orUnknown(r.MainSymptom), orUnknown(r.Duration), orUnknown(r.Severity))
	}
	if !hasTotal {
		r.TotalSymptoms = 1
		for _, s := range r.OtherSymptoms {
			if strings.TrimSpace(s) != "" {
				r.TotalSymptoms++
			}
		}
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
