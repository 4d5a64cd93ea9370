// Package store is the Postgres persistence collaborator for assessment
// records, plus the user lookup used to validate callers.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis"
	apperrors "github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/postgres"
)

// Store reads and writes the predictions table. The users table belongs to
// the account service; this package only checks existence.
//
//	CREATE TABLE predictions (
//	    predict_id           BIGSERIAL PRIMARY KEY,
//	    user_id              BIGINT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
//	    main_symptom         TEXT,
//	    other_symptoms       TEXT[] NOT NULL DEFAULT '{}',
//	    duration             TEXT NOT NULL,
//	    severity             TEXT NOT NULL,
//	    top_results          JSONB NOT NULL,
//	    dynamic_answers      JSONB,
//	    user_journey         JSONB,
//	    assessment_summary   TEXT,
//	    total_symptoms_count INTEGER,
//	    assessment_timestamp TIMESTAMPTZ,
//	    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE INDEX predictions_user_id_idx ON predictions (user_id, predict_id DESC);
type Store struct {
	db     *postgres.Client
	psql   sq.StatementBuilderType
	logger *slog.Logger
}

const predictionsTable = "predictions"

// errUndecodable marks a row whose JSON columns cannot be read. ListByUser
// skips such rows instead of failing the whole history.
var errUndecodable = errors.New("undecodable prediction row")

var recordColumns = []string{
	"predict_id",
	"user_id",
	"main_symptom",
	"other_symptoms",
	"duration",
	"severity",
	"top_results",
	"dynamic_answers",
	"user_journey",
	"assessment_summary",
	"total_symptoms_count",
	"assessment_timestamp",
	"created_at",
}

func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		psql:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger: slog.Default().With("component", "assessment-store"),
	}
}

// Save inserts rec and returns the new predict_id.
func (s *Store) Save(ctx context.Context, rec *diagnosis.AssessmentRecord) (int64, error) {
	results, err := json.Marshal(rec.TopResults)
	if err != nil {
		return 0, fmt.Errorf("marshaling top results: %w", err)
	}
	answers, err := marshalNullable(rec.FollowUpAnswers, len(rec.FollowUpAnswers) == 0)
	if err != nil {
		return 0, fmt.Errorf("marshaling follow-up answers: %w", err)
	}
	journey, err := marshalNullable(rec.JourneyMetadata, len(rec.JourneyMetadata) == 0)
	if err != nil {
		return 0, fmt.Errorf("marshaling journey metadata: %w", err)
	}

	var assessedAt any
	if rec.AssessedAt != nil {
		assessedAt = rec.AssessedAt.UTC()
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query, args, err := s.psql.Insert(predictionsTable).
		Columns(recordColumns[1:]...).
		Values(
			rec.UserID,
			sql.NullString{String: rec.MainSymptom, Valid: rec.MainSymptom != ""},
			pq.StringArray(nonNil(rec.OtherSymptoms)),
			rec.Duration,
			rec.Severity,
			results,
			answers,
			journey,
			rec.Summary,
			rec.TotalSymptoms,
			assessedAt,
			createdAt,
		).
		Suffix("RETURNING predict_id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building insert: %w", err)
	}

	var id int64
	if err := s.db.DB.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("inserting prediction: %w", err)
	}
	s.logger.Debug("prediction saved", "predict_id", id, "user_id", rec.UserID)
	return id, nil
}

// ListByUser returns the user's records newest first. limit <= 0 means no
// limit. Records from older clients are repaired on the way out.
func (s *Store) ListByUser(ctx context.Context, userID int64, limit int) ([]diagnosis.AssessmentRecord, error) {
	b := s.psql.Select(recordColumns...).
		From(predictionsTable).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("predict_id DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}

	rows, err := s.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing predictions: %w", err)
	}
	defer rows.Close()

	records := make([]diagnosis.AssessmentRecord, 0)
	for rows.Next() {
		rec, err := s.scanRecord(rows)
		if errors.Is(err, errUndecodable) {
			s.logger.Warn("skipping unreadable prediction", "predict_id", rec.ID, "user_id", userID, "error", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating predictions: %w", err)
	}
	return records, nil
}

// DeleteByID removes a record and returns the owning user id.
func (s *Store) DeleteByID(ctx context.Context, predictID int64) (int64, error) {
	query, args, err := s.psql.Delete(predictionsTable).
		Where(sq.Eq{"predict_id": predictID}).
		Suffix("RETURNING user_id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building delete: %w", err)
	}

	var userID int64
	err = s.db.DB.QueryRowContext(ctx, query, args...).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperrors.ErrPredictionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("deleting prediction %d: %w", predictID, err)
	}
	return userID, nil
}

// UserExists reports whether userID has an account.
func (s *Store) UserExists(ctx context.Context, userID int64) (bool, error) {
	query, args, err := s.psql.Select("1").
		From("users").
		Where(sq.Eq{"user_id": userID}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building user lookup: %w", err)
	}

	var exists bool
	if err := s.db.DB.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("looking up user %d: %w", userID, err)
	}
	return exists, nil
}

func (s *Store) scanRecord(rows *sql.Rows) (diagnosis.AssessmentRecord, error) {
	var (
		rec        diagnosis.AssessmentRecord
		mainSym    sql.NullString
		others     pq.StringArray
		results    []byte
		answers    []byte
		journey    []byte
		summary    sql.NullString
		total      sql.NullInt64
		assessedAt sql.NullTime
	)
	err := rows.Scan(
		&rec.ID,
		&rec.UserID,
		&mainSym,
		&others,
		&rec.Duration,
		&rec.Severity,
		&results,
		&answers,
		&journey,
		&summary,
		&total,
		&assessedAt,
		&rec.CreatedAt,
	)
	if err != nil {
		return rec, fmt.Errorf("scanning prediction row: %w", err)
	}

	rec.MainSymptom = mainSym.String
	rec.OtherSymptoms = nonNil([]string(others))
	rec.Summary = summary.String
	rec.TotalSymptoms = int(total.Int64)
	if assessedAt.Valid {
		t := assessedAt.Time
		rec.AssessedAt = &t
	}

	if rec.TopResults, err = decodeTopResults(results); err != nil {
		return rec, fmt.Errorf("%w: prediction %d: %w", errUndecodable, rec.ID, err)
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &rec.FollowUpAnswers); err != nil {
			s.logger.Warn("dropping unreadable follow-up answers", "predict_id", rec.ID, "error", err)
			rec.FollowUpAnswers = nil
		}
	}
	if rec.JourneyMetadata, err = decodeJourney(journey); err != nil {
		s.logger.Warn("dropping unreadable journey metadata", "predict_id", rec.ID, "error", err)
		rec.JourneyMetadata = nil
	}

	rec.RepairLegacy(summary.Valid, total.Valid)
	return rec, nil
}

// marshalNullable encodes v as JSON, or SQL NULL when empty.
func marshalNullable(v any, empty bool) (any, error) {
	if empty {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
