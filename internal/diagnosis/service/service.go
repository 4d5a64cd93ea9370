// Package service runs the request flow around the ranking engine: user
// validation, ranking, materialization, history caching and analytics.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/assessment/cache"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/engine"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/materializer"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/schema"
	apperrors "github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/tracing"
)

// Store is the persistence collaborator.
type Store interface {
	materializer.Saver
	ListByUser(ctx context.Context, userID int64, limit int) ([]diagnosis.AssessmentRecord, error)
	DeleteByID(ctx context.Context, predictID int64) (int64, error)
}

// UserDirectory resolves caller-supplied user ids.
type UserDirectory interface {
	UserExists(ctx context.Context, userID int64) (bool, error)
}

// HistoryCache fronts Store.ListByUser.
type HistoryCache interface {
	GetOrLoad(ctx context.Context, userID int64, load cache.LoadFunc) ([]diagnosis.AssessmentRecord, bool, error)
	Invalidate(ctx context.Context, userID int64)
}

// Tracker receives one event per ranking served.
type Tracker interface {
	Track(event analytics.AssessmentEvent)
}

// Deps wires a Service. Only Engine is required; every other collaborator
// may be nil and its step is skipped.
type Deps struct {
	Engine       *engine.Engine
	Materializer *materializer.Materializer
	Store        Store
	Users        UserDirectory
	History      HistoryCache
	Tracker      Tracker
	Metrics      *metrics.Metrics
	HistoryLimit int
}

// Catalog lists the symptoms the client may offer.
type Catalog struct {
	Symptoms   []string                 `json:"symptoms"`
	Categories []schema.DisplayCategory `json:"categories"`
}

// Preview is a ranking computed without persistence.
type Preview struct {
	Symptoms       []string              `json:"symptoms"`
	Duration       string                `json:"duration"`
	Severity       string                `json:"severity"`
	Ranked         []diagnosis.Candidate `json:"ranked"`
	Source         string                `json:"source"`
	HeuristicGroup string                `json:"heuristic_group"`
	Filtered       int                   `json:"filtered"`
	Padded         bool                  `json:"padded"`
}

type Service struct {
	engine       *engine.Engine
	materializer *materializer.Materializer
	store        Store
	users        UserDirectory
	history      HistoryCache
	tracker      Tracker
	metrics      *metrics.Metrics
	historyLimit int
	now          func() time.Time
	logger       *slog.Logger
}

func New(deps Deps) *Service {
	mat := deps.Materializer
	if mat == nil {
		mat = materializer.New(deps.Store, nil, 0, deps.Metrics)
	}
	return &Service{
		engine:       deps.Engine,
		materializer: mat,
		store:        deps.Store,
		users:        deps.Users,
		history:      deps.History,
		tracker:      deps.Tracker,
		metrics:      deps.Metrics,
		historyLimit: deps.HistoryLimit,
		now:          time.Now,
		logger:       slog.Default().With("component", "diagnosis-service"),
	}
}

// Predict ranks the reported symptoms and records the assessment. The only
// errors returned concern the caller's user id; classifier and persistence
// problems degrade the response instead.
func (s *Service) Predict(ctx context.Context, req diagnosis.PredictRequest) (*diagnosis.PredictResponse, error) {
	start := s.now()
	if err := s.validateUser(ctx, req.UserID); err != nil {
		return nil, err
	}

	symptoms := schema.NormalizeSymptoms(req.Symptoms)
	duration := schema.NormalizeDuration(req.Duration)
	severity := schema.NormalizeSeverity(req.Severity)

	ctx, span := tracing.StartSpan(ctx, "predict", logger.RequestID(ctx))
	span.SetAttr("user_id", req.UserID)
	span.SetAttr("symptoms", len(symptoms))

	ranking := s.engine.Rank(ctx, symptoms, duration, severity)

	_, pspan := tracing.StartChildSpan(ctx, "persist")
	outcome := s.materializer.Materialize(ctx, materializer.Input{
		UserID:          req.UserID,
		Symptoms:        symptoms,
		Duration:        duration,
		Severity:        severity,
		Ranked:          ranking.Ranked,
		FollowUpAnswers: req.FollowUpAnswers,
		JourneyMetadata: req.JourneyMetadata,
		AssessedAt:      req.Timestamp,
	})
	pspan.SetAttr("persisted", outcome.Persisted)
	pspan.End()

	if outcome.Persisted && s.history != nil {
		s.history.Invalidate(ctx, req.UserID)
	}

	latency := s.now().Sub(start)
	span.SetAttr("source", ranking.Source())
	span.End()
	span.Log(logger.FromContext(ctx))

	if s.metrics != nil {
		s.metrics.PredictionsTotal.WithLabelValues(ranking.Source()).Inc()
		s.metrics.PredictionLatency.Observe(latency.Seconds())
	}
	s.track(ctx, analytics.EventAssessment, ranking, len(symptoms), duration, severity, outcome.Record.ID, req.UserID, outcome.Persisted, latency)

	logger.FromContext(ctx).Info("prediction served",
		"user_id", req.UserID,
		"predict_id", outcome.Record.ID,
		"source", ranking.Source(),
		"top", ranking.Ranked[0].Disease,
		"persisted", outcome.Persisted,
		"latency_ms", latency.Milliseconds(),
	)

	id := outcome.Record.ID
	return &diagnosis.PredictResponse{
		RecordID:    &id,
		Input:       outcome.Record.Input(),
		Ranked:      ranking.Ranked,
		SummaryText: outcome.Record.Summary,
	}, nil
}

// History returns the user's assessments, newest first.
func (s *Service) History(ctx context.Context, userID int64) ([]diagnosis.AssessmentRecord, error) {
	if userID <= 0 {
		return nil, apperrors.New(apperrors.ErrInvalidUser, http.StatusBadRequest, "user_id must be a positive integer")
	}
	if s.store == nil {
		return nil, fmt.Errorf("listing history: %w", apperrors.ErrPersistence)
	}
	if s.users != nil {
		exists, err := s.users.UserExists(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("looking up user %d: %w: %w", userID, apperrors.ErrPersistence, err)
		}
		if !exists {
			return nil, apperrors.Newf(apperrors.ErrUserNotFound, http.StatusNotFound, "user %d not found", userID)
		}
	}

	load := func(ctx context.Context) ([]diagnosis.AssessmentRecord, error) {
		return s.store.ListByUser(ctx, userID, s.historyLimit)
	}
	var (
		records []diagnosis.AssessmentRecord
		err     error
	)
	if s.history != nil {
		records, _, err = s.history.GetOrLoad(ctx, userID, load)
	} else {
		records, err = load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("listing history for user %d: %w: %w", userID, apperrors.ErrPersistence, err)
	}
	if records == nil {
		records = []diagnosis.AssessmentRecord{}
	}
	return records, nil
}

// Delete removes one assessment and drops its owner's cached history.
func (s *Service) Delete(ctx context.Context, predictID int64) error {
	if predictID <= 0 {
		return apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "prediction id must be a positive integer")
	}
	if s.store == nil {
		return fmt.Errorf("deleting prediction: %w", apperrors.ErrPersistence)
	}
	owner, err := s.store.DeleteByID(ctx, predictID)
	if err != nil {
		if errors.Is(err, apperrors.ErrPredictionNotFound) {
			return apperrors.Newf(apperrors.ErrPredictionNotFound, http.StatusNotFound, "prediction %d not found", predictID)
		}
		return fmt.Errorf("deleting prediction %d: %w: %w", predictID, apperrors.ErrPersistence, err)
	}
	if s.history != nil {
		s.history.Invalidate(ctx, owner)
	}
	s.logger.Info("prediction deleted", "predict_id", predictID, "user_id", owner)
	return nil
}

// Preview ranks symptoms without a user or persistence.
func (s *Service) Preview(ctx context.Context, symptoms []string, duration, severity string) (*Preview, error) {
	start := s.now()
	normalized := schema.NormalizeSymptoms(symptoms)
	if len(normalized) == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "no symptoms provided")
	}
	d := schema.NormalizeDuration(duration)
	sv := schema.NormalizeSeverity(severity)

	ctx, span := tracing.StartSpan(ctx, "preview", logger.RequestID(ctx))
	ranking := s.engine.Rank(ctx, normalized, d, sv)
	span.End()
	span.Log(logger.FromContext(ctx))

	filtered := 0
	for _, n := range ranking.Filtered {
		filtered += n
	}
	s.track(ctx, analytics.EventPreview, ranking, len(normalized), d, sv, 0, 0, false, s.now().Sub(start))

	return &Preview{
		Symptoms:       normalized,
		Duration:       string(d),
		Severity:       string(sv),
		Ranked:         ranking.Ranked,
		Source:         ranking.Source(),
		HeuristicGroup: ranking.HeuristicGroup,
		Filtered:       filtered,
		Padded:         ranking.Padded,
	}, nil
}

// Catalog returns the schema's symptom features and the picker layout.
func (s *Service) Catalog() Catalog {
	symptoms := []string{}
	if sc := s.engine.Schema(); sc != nil {
		symptoms = sc.Symptoms()
	}
	return Catalog{Symptoms: symptoms, Categories: schema.DisplayCategories}
}

// validateUser rejects malformed and unknown ids. A failing directory does
// not block prediction.
func (s *Service) validateUser(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return apperrors.New(apperrors.ErrInvalidUser, http.StatusBadRequest, "user_id must be a positive integer")
	}
	if s.users == nil {
		return nil
	}
	exists, err := s.users.UserExists(ctx, userID)
	if err != nil {
		logger.FromContext(ctx).Warn("user lookup failed, continuing", "user_id", userID, "error", err)
		return nil
	}
	if !exists {
		return apperrors.Newf(apperrors.ErrInvalidUser, http.StatusBadRequest, "user %d does not exist", userID)
	}
	return nil
}

func (s *Service) track(ctx context.Context, typ analytics.EventType, r engine.Ranking, symptomCount int, d schema.Duration, sv schema.Severity, predictID, userID int64, persisted bool, latency time.Duration) {
	if s.tracker == nil {
		return
	}
	s.tracker.Track(analytics.AssessmentEvent{
		Type:         typ,
		PredictID:    predictID,
		UserID:       userID,
		TopDisease:   r.Ranked[0].Disease,
		Source:       r.Source(),
		SymptomCount: symptomCount,
		Duration:     string(d),
		Severity:     string(sv),
		Padded:       r.Padded,
		Persisted:    persisted,
		LatencyMs:    latency.Milliseconds(),
		Timestamp:    s.now().UTC(),
		RequestID:    logger.RequestID(ctx),
	})
}
