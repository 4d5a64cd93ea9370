// Package materializer packages a ranked result into an AssessmentRecord and
// hands it to the store. A failed save never fails the request: the record
// gets a synthetic id and the caller still receives its ranking.
package materializer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/schema"
	apperrors "github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/resilience"
)

// Saver persists a record and returns its id.
type Saver interface {
	Save(ctx context.Context, rec *diagnosis.AssessmentRecord) (int64, error)
}

// Input is everything that goes into one record.
type Input struct {
	UserID          int64
	Symptoms        []string
	Duration        schema.Duration
	Severity        schema.Severity
	Ranked          []diagnosis.Candidate
	FollowUpAnswers []diagnosis.FollowUpAnswer
	JourneyMetadata map[string]string
	AssessedAt      *time.Time
}

// Outcome is the materialized record. Persisted is false when the id is
// synthetic.
type Outcome struct {
	Record    *diagnosis.AssessmentRecord
	Persisted bool
	Err       error
}

type Materializer struct {
	saver   Saver
	breaker *resilience.Breaker
	timeout time.Duration
	metrics *metrics.Metrics
	now     func() time.Time
	logger  *slog.Logger
}

// New creates a Materializer. breaker and m may be nil.
func New(saver Saver, breaker *resilience.Breaker, timeout time.Duration, m *metrics.Metrics) *Materializer {
	return &Materializer{
		saver:   saver,
		breaker: breaker,
		timeout: timeout,
		metrics: m,
		now:     time.Now,
		logger:  slog.Default().With("component", "materializer"),
	}
}

// Build assembles the record without saving it.
func (m *Materializer) Build(in Input) *diagnosis.AssessmentRecord {
	first, others := diagnosis.SplitSymptoms(in.Symptoms)
	ranked := make([]diagnosis.Candidate, len(in.Ranked))
	copy(ranked, in.Ranked)
	return &diagnosis.AssessmentRecord{
		UserID:          in.UserID,
		MainSymptom:     first,
		OtherSymptoms:   others,
		Duration:        string(in.Duration),
		Severity:        string(in.Severity),
		TopResults:      ranked,
		FollowUpAnswers: in.FollowUpAnswers,
		JourneyMetadata: in.JourneyMetadata,
		Summary:         Summary(in.Symptoms, in.Duration, in.Severity, in.FollowUpAnswers, in.JourneyMetadata),
		TotalSymptoms:   len(in.Symptoms),
		AssessedAt:      in.AssessedAt,
		CreatedAt:       m.now().UTC(),
	}
}

// Materialize builds and saves the record. Save errors are logged and
// reported in Outcome.Err, never returned.
func (m *Materializer) Materialize(ctx context.Context, in Input) Outcome {
	rec := m.Build(in)
	id, err := m.save(ctx, rec)
	if err != nil {
		rec.ID = m.now().Unix()
		if m.metrics != nil {
			m.metrics.PersistenceFailuresTotal.Inc()
		}
		logger.FromContext(ctx).With("component", "materializer").Error("failed to save assessment, using synthetic id",
			"user_id", rec.UserID,
			"synthetic_id", rec.ID,
			"error", err,
		)
		return Outcome{Record: rec, Persisted: false, Err: fmt.Errorf("%w: %w", apperrors.ErrPersistence, err)}
	}
	rec.ID = id
	return Outcome{Record: rec, Persisted: true}
}

func (m *Materializer) save(ctx context.Context, rec *diagnosis.AssessmentRecord) (int64, error) {
	if m.saver == nil {
		return 0, errors.New("no assessment store configured")
	}
	var id int64
	call := func() error {
		return resilience.WithTimeout(ctx, m.timeout, "save-assessment", func(ctx context.Context) error {
			var err error
			id, err = m.saver.Save(ctx, rec)
			return err
		})
	}
	var err error
	if m.breaker != nil {
		err = m.breaker.Execute(call)
	} else {
		err = call()
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}
