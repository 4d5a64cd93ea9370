package classifier

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/encoder"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/schema"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/config"
)

type fakeSession struct {
	probs     []float32
	err       error
	got       []float32
	destroyed bool
}

func (f *fakeSession) Predict(features []float32) ([]float32, error) {
	f.got = features
	return f.probs, f.err
}

func (f *fakeSession) Destroy() error {
	f.destroyed = true
	return nil
}

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New("v1", []string{"cough", "itching", "high_fever"})
	require.NoError(t, err)
	return s
}

func TestModelInfer(t *testing.T) {
	s := testSchema(t)
	sess := &fakeSession{probs: []float32{0.61237, 0.3, 0.08763}}
	m := newModel(s, []string{"Common Cold", "Allergy", "Cancer"}, sess)

	v, err := encoder.Encode(s, []string{"cough"}, schema.DurationShort, schema.SeverityMild)
	require.NoError(t, err)

	got, err := m.Infer(v)
	require.NoError(t, err)
	assert.Equal(t, v.Values, sess.got)
	require.Len(t, got, 3)
	assert.Equal(t, diagnosis.Candidate{Disease: "Common Cold", Score: 61.24, Source: diagnosis.SourceClassifier}, got[0])
	assert.Equal(t, "Allergy", got[1].Disease)
	assert.InDelta(t, 30.0, got[1].Score, 0.001)
	assert.InDelta(t, 8.76, got[2].Score, 0.001)
	assert.True(t, m.Available())
	assert.Equal(t, []string{"Common Cold", "Allergy", "Cancer"}, m.Labels())

	require.NoError(t, m.Close())
	assert.True(t, sess.destroyed)
}

func TestModelInferSchemaMismatch(t *testing.T) {
	s := testSchema(t)
	m := newModel(s, []string{"A"}, &fakeSession{probs: []float32{1}})

	_, err := m.Infer(encoder.Vector{SchemaVersion: "v1", Values: []float32{1, 0}})
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = m.Infer(encoder.Vector{SchemaVersion: "v2", Values: make([]float32, s.Len())})
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestModelInferSessionErrors(t *testing.T) {
	s := testSchema(t)
	v := encoder.Vector{SchemaVersion: "v1", Values: make([]float32, s.Len())}

	boom := errors.New("boom")
	m := newModel(s, []string{"A", "B"}, &fakeSession{err: boom})
	_, err := m.Infer(v)
	assert.ErrorIs(t, err, boom)

	m = newModel(s, []string{"A", "B"}, &fakeSession{probs: []float32{1}})
	_, err = m.Infer(v)
	assert.Error(t, err)
}

func TestToScore(t *testing.T) {
	assert.Equal(t, 0.0, toScore(-0.1))
	assert.Equal(t, 100.0, toScore(1.2))
	assert.Equal(t, 50.0, toScore(0.5))
	assert.Equal(t, 12.35, toScore(0.123456))
}

func TestUnavailable(t *testing.T) {
	u := NewUnavailable(errors.New("missing"), nil)
	assert.False(t, u.Available())
	assert.Nil(t, u.Schema())
	_, err := u.Infer(encoder.Vector{})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NoError(t, u.Close())
}

func writeArtifacts(t *testing.T) config.ModelConfig {
	t.Helper()
	dir := t.TempDir()
	features := filepath.Join(dir, "symptom_columns.json")
	labels := filepath.Join(dir, "labels.json")
	require.NoError(t, os.WriteFile(features, []byte(`["cough", "itching", "high_fever"]`), 0o644))
	require.NoError(t, os.WriteFile(labels, []byte(`["Common Cold", " Allergy "]`), 0o644))
	return config.ModelConfig{
		Enabled:      true,
		ModelPath:    filepath.Join(dir, "model.onnx"),
		FeaturesPath: features,
		LabelsPath:   labels,
	}
}

func TestLoaderLoadsOnce(t *testing.T) {
	cfg := writeArtifacts(t)
	l := NewLoader(cfg)
	var opens atomic.Int32
	l.open = func(_ config.ModelConfig, numColumns, numLabels int) (session, error) {
		opens.Add(1)
		assert.Equal(t, 3+len(schema.Durations)+len(schema.Severities), numColumns)
		assert.Equal(t, 2, numLabels)
		return &fakeSession{}, nil
	}

	a := l.Adapter()
	b := l.Adapter()
	assert.Same(t, a, b)
	assert.Equal(t, int32(1), opens.Load())
	require.True(t, a.Available())

	m, ok := a.(*Model)
	require.True(t, ok)
	assert.Equal(t, []string{"Common Cold", "Allergy"}, m.Labels())
}

func TestLoaderFailureIsPermanent(t *testing.T) {
	cfg := writeArtifacts(t)
	l := NewLoader(cfg)
	var opens atomic.Int32
	l.open = func(config.ModelConfig, int, int) (session, error) {
		opens.Add(1)
		return nil, errors.New("no runtime")
	}

	a := l.Adapter()
	assert.False(t, a.Available())
	assert.NotNil(t, a.Schema(), "schema survives a model failure")
	l.Adapter()
	assert.Equal(t, int32(1), opens.Load())
}

func TestLoaderMissingArtifacts(t *testing.T) {
	cfg := writeArtifacts(t)

	noSchema := cfg
	noSchema.FeaturesPath = filepath.Join(t.TempDir(), "nope.json")
	a := NewLoader(noSchema).Adapter()
	assert.False(t, a.Available())
	assert.Nil(t, a.Schema())

	noLabels := cfg
	noLabels.LabelsPath = filepath.Join(t.TempDir(), "nope.json")
	a = NewLoader(noLabels).Adapter()
	assert.False(t, a.Available())
	assert.NotNil(t, a.Schema())

	disabled := cfg
	disabled.Enabled = false
	a = NewLoader(disabled).Adapter()
	assert.False(t, a.Available())
	assert.NotNil(t, a.Schema())
}
