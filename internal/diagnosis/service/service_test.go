package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/assessment/cache"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/classifier"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/engine"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/materializer"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/schema"
	apperrors "github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/metrics"
)

type fakeStore struct {
	mu        sync.Mutex
	saved     []*diagnosis.AssessmentRecord
	saveErr   error
	nextID    int64
	records   []diagnosis.AssessmentRecord
	listErr   error
	listCalls int
	owners    map[int64]int64
}

func (f *fakeStore) Save(_ context.Context, rec *diagnosis.AssessmentRecord) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	f.saved = append(f.saved, rec)
	return f.nextID, nil
}

func (f *fakeStore) ListByUser(_ context.Context, _ int64, _ int) ([]diagnosis.AssessmentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.records, f.listErr
}

func (f *fakeStore) DeleteByID(_ context.Context, predictID int64) (int64, error) {
	owner, ok := f.owners[predictID]
	if !ok {
		return 0, apperrors.ErrPredictionNotFound
	}
	return owner, nil
}

type fakeUsers struct {
	known map[int64]bool
	err   error
}

func (f fakeUsers) UserExists(_ context.Context, userID int64) (bool, error) {
	return f.known[userID], f.err
}

type fakeHistory struct {
	invalidated []int64
	loads       int
}

func (f *fakeHistory) GetOrLoad(ctx context.Context, _ int64, load cache.LoadFunc) ([]diagnosis.AssessmentRecord, bool, error) {
	f.loads++
	records, err := load(ctx)
	return records, false, err
}

func (f *fakeHistory) Invalidate(_ context.Context, userID int64) {
	f.invalidated = append(f.invalidated, userID)
}

type fakeTracker struct {
	events []analytics.AssessmentEvent
}

func (f *fakeTracker) Track(e analytics.AssessmentEvent) { f.events = append(f.events, e) }

type fixture struct {
	svc     *Service
	store   *fakeStore
	history *fakeHistory
	tracker *fakeTracker
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, users UserDirectory) fixture {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	store := &fakeStore{nextID: 42, owners: map[int64]int64{7: 5}}
	history := &fakeHistory{}
	tracker := &fakeTracker{}
	svc := New(Deps{
		Engine:       engine.New(nil, m),
		Materializer: materializer.New(store, nil, time.Second, m),
		Store:        store,
		Users:        users,
		History:      history,
		Tracker:      tracker,
		Metrics:      m,
		HistoryLimit: 10,
	})
	return fixture{svc: svc, store: store, history: history, tracker: tracker, metrics: m}
}

func knownUser() fakeUsers {
	return fakeUsers{known: map[int64]bool{5: true}}
}

func TestPredictRejectsBadUserID(t *testing.T) {
	f := newFixture(t, knownUser())

	_, err := f.svc.Predict(context.Background(), diagnosis.PredictRequest{UserID: 0, Symptoms: []string{"cough"}})
	assert.ErrorIs(t, err, apperrors.ErrInvalidUser)

	_, err = f.svc.Predict(context.Background(), diagnosis.PredictRequest{UserID: 99, Symptoms: []string{"cough"}})
	assert.ErrorIs(t, err, apperrors.ErrInvalidUser)
	assert.Empty(t, f.store.saved)
	assert.Empty(t, f.tracker.events)
}

func TestPredictContinuesWhenDirectoryFails(t *testing.T) {
	f := newFixture(t, fakeUsers{err: errors.New("db down")})

	resp, err := f.svc.Predict(context.Background(), diagnosis.PredictRequest{UserID: 5, Symptoms: []string{"cough"}})
	require.NoError(t, err)
	assert.Len(t, resp.Ranked, diagnosis.ResultSize)
}

func TestPredictPersistsAndTracks(t *testing.T) {
	f := newFixture(t, knownUser())

	resp, err := f.svc.Predict(context.Background(), diagnosis.PredictRequest{
		UserID:   5,
		Symptoms: []string{" Cough", "Runny Nose"},
		Duration: "4-7 DAYS",
		Severity: "whatever",
	})
	require.NoError(t, err)

	require.NotNil(t, resp.RecordID)
	assert.Equal(t, int64(42), *resp.RecordID)
	assert.Equal(t, []diagnosis.Candidate{
		{Disease: "Common Cold", Score: 80, Source: diagnosis.SourceHeuristic},
		{Disease: "Allergic Rhinitis", Score: 70, Source: diagnosis.SourceHeuristic},
		{Disease: "Throat Irritation", Score: 60, Source: diagnosis.SourceHeuristic},
	}, resp.Ranked)
	assert.Equal(t, "cough", resp.Input.MainSymptom)
	assert.Equal(t, []string{"runny nose"}, resp.Input.OtherSymptoms)
	assert.Equal(t, "4-7 days", resp.Input.Duration)
	assert.Equal(t, "Mild", resp.Input.Severity)
	assert.Equal(t, 2, resp.Input.TotalSymptoms)
	assert.NotEmpty(t, resp.SummaryText)

	require.Len(t, f.store.saved, 1)
	assert.Equal(t, int64(5), f.store.saved[0].UserID)
	assert.Equal(t, []int64{5}, f.history.invalidated)

	require.Len(t, f.tracker.events, 1)
	ev := f.tracker.events[0]
	assert.Equal(t, analytics.EventAssessment, ev.Type)
	assert.Equal(t, int64(42), ev.PredictID)
	assert.Equal(t, "Common Cold", ev.TopDisease)
	assert.Equal(t, engine.SourceHeuristic, ev.Source)
	assert.Equal(t, 2, ev.SymptomCount)
	assert.True(t, ev.Persisted)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PredictionsTotal.WithLabelValues(engine.SourceHeuristic)))
}

func TestPredictSurvivesPersistenceFailure(t *testing.T) {
	f := newFixture(t, knownUser())
	f.store.saveErr = errors.New("connection refused")

	resp, err := f.svc.Predict(context.Background(), diagnosis.PredictRequest{UserID: 5, Symptoms: []string{"headache"}})
	require.NoError(t, err)

	require.NotNil(t, resp.RecordID)
	assert.Positive(t, *resp.RecordID)
	assert.Equal(t, "Tension Headache", resp.Ranked[0].Disease)
	assert.Empty(t, f.history.invalidated)
	require.Len(t, f.tracker.events, 1)
	assert.False(t, f.tracker.events[0].Persisted)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PersistenceFailuresTotal))
}

func TestPredictEmptySymptoms(t *testing.T) {
	f := newFixture(t, knownUser())

	resp, err := f.svc.Predict(context.Background(), diagnosis.PredictRequest{UserID: 5})
	require.NoError(t, err)
	assert.Equal(t, "General Health Assessment Needed", resp.Ranked[0].Disease)
	assert.Equal(t, []string{}, resp.Input.OtherSymptoms)
}

func TestPredictBlankSymptomsUseDefaultRule(t *testing.T) {
	f := newFixture(t, knownUser())

	resp, err := f.svc.Predict(context.Background(), diagnosis.PredictRequest{UserID: 5, Symptoms: []string{"", " "}})
	require.NoError(t, err)
	require.Len(t, resp.Ranked, diagnosis.ResultSize)
	assert.Equal(t, "General Viral Illness", resp.Ranked[0].Disease)
	assert.Equal(t, 2, resp.Input.TotalSymptoms)
}

func TestHistory(t *testing.T) {
	f := newFixture(t, knownUser())
	f.store.records = []diagnosis.AssessmentRecord{{ID: 2, UserID: 5}, {ID: 1, UserID: 5}}

	records, err := f.svc.History(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 1, f.history.loads)

	_, err = f.svc.History(context.Background(), 6)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	_, err = f.svc.History(context.Background(), -1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidUser)
}

func TestHistoryEmptyAndStoreErrors(t *testing.T) {
	f := newFixture(t, knownUser())

	records, err := f.svc.History(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)

	f.store.listErr = errors.New("timeout")
	_, err = f.svc.History(context.Background(), 5)
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
}

func TestDelete(t *testing.T) {
	f := newFixture(t, knownUser())

	require.NoError(t, f.svc.Delete(context.Background(), 7))
	assert.Equal(t, []int64{5}, f.history.invalidated)

	err := f.svc.Delete(context.Background(), 8)
	assert.ErrorIs(t, err, apperrors.ErrPredictionNotFound)
	assert.Equal(t, 404, apperrors.HTTPStatusCode(err))

	assert.ErrorIs(t, f.svc.Delete(context.Background(), 0), apperrors.ErrInvalidInput)
}

func TestPreview(t *testing.T) {
	f := newFixture(t, knownUser())

	_, err := f.svc.Preview(context.Background(), nil, "", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	blank, err := f.svc.Preview(context.Background(), []string{" ", ""}, "", "")
	require.NoError(t, err)
	assert.Equal(t, "default", blank.HeuristicGroup)

	p, err := f.svc.Preview(context.Background(), []string{"Diarrhea", "fever"}, "", "severe")
	require.NoError(t, err)
	assert.Equal(t, []string{"diarrhea", "fever"}, p.Symptoms)
	assert.Equal(t, "Severe", p.Severity)
	assert.Equal(t, "digestive", p.HeuristicGroup)
	assert.Equal(t, engine.SourceHeuristic, p.Source)
	assert.Equal(t, "Gastroenteritis", p.Ranked[0].Disease)

	assert.Empty(t, f.store.saved)
	require.Len(t, f.tracker.events, 2)
	assert.Equal(t, analytics.EventPreview, f.tracker.events[1].Type)
	assert.Zero(t, f.tracker.events[0].PredictID)
}

func TestCatalog(t *testing.T) {
	f := newFixture(t, nil)
	c := f.svc.Catalog()
	assert.Equal(t, []string{}, c.Symptoms)
	assert.Len(t, c.Categories, 9)

	s, err := schema.New("", []string{"vomiting", "cough"})
	require.NoError(t, err)
	svc := New(Deps{Engine: engine.New(classifier.NewUnavailable(classifier.ErrUnavailable, s), nil)})
	assert.Equal(t, []string{"cough", "vomiting"}, svc.Catalog().Symptoms)
}

func TestNilCollaborators(t *testing.T) {
	svc := New(Deps{Engine: engine.New(nil, nil)})

	resp, err := svc.Predict(context.Background(), diagnosis.PredictRequest{UserID: 3, Symptoms: []string{"rash"}})
	require.NoError(t, err)
	assert.Len(t, resp.Ranked, diagnosis.ResultSize)

	_, err = svc.History(context.Background(), 3)
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
}
