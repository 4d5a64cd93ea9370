package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/classifier"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/encoder"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/fusion"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/schema"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/tracing"
)

type fakeAdapter struct {
	schema *schema.Schema
	out    []diagnosis.Candidate
	err    error
	seen   []encoder.Vector
}

func (f *fakeAdapter) Available() bool { return true }
func (f *fakeAdapter) Schema() *schema.Schema { return f.schema }
func (f *fakeAdapter) Close() error { return nil }

func (f *fakeAdapter) Infer(v encoder.Vector) ([]diagnosis.Candidate, error) {
	f.seen = append(f.seen, v)
	return f.out, f.err
}

func newSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New("v1", []string{"cough", "runny nose", "high_fever", "mild_fever"})
	require.NoError(t, err)
	return s
}

func names(cs []diagnosis.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Disease
	}
	return out
}

func TestRankHeuristicOnly(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	e := New(classifier.NewUnavailable(errors.New("no model"), nil), m)

	r := e.Rank(context.Background(), []string{"cough", "runny nose"}, schema.DurationShort, schema.SeverityMild)

	assert.Equal(t, []string{"Common Cold", "Allergic Rhinitis", "Throat Irritation"}, names(r.Ranked))
	assert.Equal(t, []float64{80, 70, 60}, []float64{r.Ranked[0].Score, r.Ranked[1].Score, r.Ranked[2].Score})
	assert.False(t, r.ClassifierUsed)
	assert.Equal(t, SourceHeuristic, r.Source())
	assert.Equal(t, "respiratory", r.HeuristicGroup)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ClassifierAvailable))
	assert.False(t, e.ClassifierAvailable())
	assert.Nil(t, e.Schema())
}

func TestRankNilAdapter(t *testing.T) {
	e := New(nil, nil)
	r := e.Rank(context.Background(), nil, schema.DurationShort, schema.SeverityMild)
	assert.Len(t, r.Ranked, diagnosis.ResultSize)
	assert.Equal(t, "General Health Assessment Needed", r.Ranked[0].Disease)
}

func TestRankHybrid(t *testing.T) {
	s := newSchema(t)
	fa := &fakeAdapter{schema: s, out: []diagnosis.Candidate{
		{Disease: "Bronchitis", Score: 91.5, Source: diagnosis.SourceClassifier},
		{Disease: "Lung Cancer", Score: 12, Source: diagnosis.SourceClassifier},
		{Disease: "Common Cold", Score: 99, Source: diagnosis.SourceClassifier},
	}}
	m := metrics.New(prometheus.NewRegistry())
	e := New(fa, m)

	ctx, root := tracing.StartSpan(context.Background(), "predict", "t1")
	r := e.Rank(ctx, []string{"cough", "fever"}, schema.DurationShort, schema.SeveritySevere)
	root.End()

	assert.True(t, r.ClassifierUsed)
	assert.Equal(t, SourceHybrid, r.Source())
	assert.Equal(t, []string{"Bronchitis", "Upper Respiratory Infection", "Viral Pharyngitis"}, names(r.Ranked))
	assert.Equal(t, 1, r.Merged)
	assert.Equal(t, 1, r.Filtered[fusion.ReasonSevereLowConfidence])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImplausibleCandidatesTotal.WithLabelValues("severe_low_confidence")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClassifierAvailable))

	require.Len(t, fa.seen, 1)
	hi, _ := s.Index("high_fever")
	assert.Equal(t, float32(1), fa.seen[0].Values[hi])

	var spans []string
	for _, c := range root.Children() {
		spans = append(spans, c.Name)
	}
	assert.Equal(t, []string{"encode", "infer", "heuristic", "fuse"}, spans)
}

func TestRankClassifierFailureFallsBack(t *testing.T) {
	for _, err := range []error{
		errors.New("session crashed"),
		fmt.Errorf("%w: vector v0", classifier.ErrSchemaMismatch),
	} {
		t.Run(err.Error(), func(t *testing.T) {
			m := metrics.New(prometheus.NewRegistry())
			e := New(&fakeAdapter{schema: newSchema(t), err: err}, m)

			r := e.Rank(context.Background(), []string{"cough"}, schema.DurationShort, schema.SeverityMild)

			assert.False(t, r.ClassifierUsed)
			assert.Equal(t, []string{"Common Cold", "Allergic Rhinitis", "Throat Irritation"}, names(r.Ranked))
			assert.Equal(t, 1.0, testutil.ToFloat64(m.ClassifierErrorsTotal))
		})
	}
}

func TestRankEncodingUnavailable(t *testing.T) {
	fa := &fakeAdapter{schema: nil}
	e := New(fa, nil)
	r := e.Rank(context.Background(), []string{"itching"}, schema.DurationShort, schema.SeverityMild)
	assert.False(t, r.ClassifierUsed)
	assert.Empty(t, fa.seen)
	assert.Equal(t, "Contact Dermatitis", r.Ranked[0].Disease)
}
