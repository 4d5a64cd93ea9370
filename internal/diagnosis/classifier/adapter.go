// Package classifier wraps the optional trained disease classifier. An
// Adapter is selected once at startup: either an ONNX-backed model or
// Unavailable, so callers never branch on presence themselves.
package classifier

import (
	"errors"
	"math"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/encoder"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/schema"
	apperrors "github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/errors"
)

var (
	ErrUnavailable    = apperrors.ErrModelUnavailable
	ErrSchemaMismatch = errors.New("feature vector does not match classifier schema")
)

// Adapter produces one Candidate per known label for an encoded vector.
// Candidates are unsorted.
type Adapter interface {
	Available() bool
	// Schema is the feature schema the model was trained on. It may be
	// non-nil even when the model itself failed to load.
	Schema() *schema.Schema
	Infer(v encoder.Vector) ([]diagnosis.Candidate, error)
	Close() error
}

// Unavailable is the Adapter used when the model or its artifacts could
// not be loaded.
type Unavailable struct {
	Reason error
	schema *schema.Schema
}

// NewUnavailable returns an Unavailable adapter. s may be nil.
func NewUnavailable(reason error, s *schema.Schema) *Unavailable {
	return &Unavailable{Reason: reason, schema: s}
}

func (u *Unavailable) Available() bool { return false }
func (u *Unavailable) Schema() *schema.Schema { return u.schema }
func (u *Unavailable) Close() error { return nil }

func (u *Unavailable) Infer(encoder.Vector) ([]diagnosis.Candidate, error) {
	return nil, ErrUnavailable
}

// toScore converts a probability to a percentage rounded to two decimals.
func toScore(p float32) float64 {
	v := math.Round(float64(p)*10000) / 100
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
