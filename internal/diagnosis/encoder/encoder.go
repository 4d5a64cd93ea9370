// Package encoder turns raw symptom input into a feature vector aligned to a
// schema.Schema.
package encoder

import (
	"errors"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/schema"
)

// ErrEncodingUnavailable means no schema is loaded. Callers treat it as
// "classifier path unavailable" and continue heuristic-only.
var ErrEncodingUnavailable = errors.New("feature encoding unavailable: no schema loaded")

const (
	feverSymptom = "fever"
	mildFever    = "mild_fever"
	highFever    = "high_fever"
)

// Vector is a dense feature row. float32 matches the classifier input tensor.
type Vector struct {
	SchemaVersion string
	Values        []float32
}

// Encode builds the feature row for one request. symptoms are expected
// lower-cased; duration and severity already normalized. Unknown symptoms
// contribute no flag.
func Encode(s *schema.Schema, symptoms []string, duration schema.Duration, severity schema.Severity) (Vector, error) {
	if s == nil {
		return Vector{}, ErrEncodingUnavailable
	}
	values := make([]float32, s.Len())
	for _, sym := range symptoms {
		col := featureFor(sym, severity)
		if !s.HasSymptom(col) {
			continue
		}
		i, _ := s.Index(col)
		values[i] = 1
	}
	if i, ok := s.Index(schema.DurationColumn(duration)); ok {
		values[i] = 1
	}
	if i, ok := s.Index(schema.SeverityColumn(severity)); ok {
		values[i] = 1
	}
	return Vector{SchemaVersion: s.Version(), Values: values}, nil
}

// featureFor resolves the column a symptom sets. A bare "fever" never maps
// to itself: the model was trained on severity-qualified fever columns only.
func featureFor(symptom string, severity schema.Severity) string {
	if symptom != feverSymptom {
		return symptom
	}
	if severity == schema.SeverityMild {
		return mildFever
	}
	return highFever
}
