// Package snapshot persists aggregated assessment stats to PostgreSQL so the
// analytics service can restore its last view after a restart.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/postgres"
)

// Store requires an `analytics_snapshots` table:
//
//	CREATE TABLE analytics_snapshots (
//	    id          BIGSERIAL PRIMARY KEY,
//	    data        JSONB NOT NULL,
//	    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Store struct {
	db        *postgres.Client
	psql      sq.StatementBuilderType
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

const table = "analytics_snapshots"

// NewStore creates a Store. Snapshots older than retention are pruned on
// every save; zero keeps everything.
func NewStore(db *postgres.Client, retention time.Duration) *Store {
	return &Store{
		db:        db,
		psql:      sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		retention: retention,
		now:       time.Now,
		logger:    slog.Default().With("component", "analytics-snapshot"),
	}
}

// SaveSnapshot inserts stats and prunes expired snapshots in one
// transaction.
func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	now := s.now().UTC()
	insert, insertArgs, err := s.psql.Insert(table).
		Columns("data", "captured_at").
		Values(data, now).
		ToSql()
	if err != nil {
		return fmt.Errorf("building snapshot insert: %w", err)
	}

	var pruned int64
	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insert, insertArgs...); err != nil {
			return err
		}
		if s.retention <= 0 {
			return nil
		}
		prune, pruneArgs, err := s.psql.Delete(table).
			Where(sq.Lt{"captured_at": now.Add(-s.retention)}).
			ToSql()
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, prune, pruneArgs...)
		if err != nil {
			return err
		}
		pruned, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Info("analytics snapshot saved",
		"total_assessments", stats.TotalAssessments,
		"persistence_failures", stats.PersistenceFailures,
		"pruned", pruned,
	)
	return nil
}

// LatestSnapshot returns nil, nil when no snapshot exists yet.
func (s *Store) LatestSnapshot(ctx context.Context) (*analytics.AggregatedStats, error) {
	list, err := s.ListSnapshots(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

// ListSnapshots returns the last limit snapshots, newest first. Corrupt rows
// are skipped.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]analytics.AggregatedStats, error) {
	query, args, err := s.psql.Select("data").
		From(table).
		OrderBy("captured_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building snapshot select: %w", err)
	}
	rows, err := s.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []analytics.AggregatedStats
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		var stats analytics.AggregatedStats
		if err := json.Unmarshal(data, &stats); err != nil {
			s.logger.Warn("skipping corrupt snapshot", "error", err)
			continue
		}
		snapshots = append(snapshots, stats)
	}
	return snapshots, rows.Err()
}

// Run snapshots source every interval until ctx is done, then writes one
// final snapshot.
func (s *Store) Run(ctx context.Context, source analytics.StatsSource, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("periodic snapshot started", "interval", interval)

	for {
		select {
		case <-ticker.C:
			if err := s.SaveSnapshot(ctx, source.Stats()); err != nil {
				s.logger.Error("periodic snapshot failed", "error", err)
			}
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.SaveSnapshot(shutdownCtx, source.Stats()); err != nil {
				s.logger.Error("final snapshot failed", "error", err)
			}
			return nil
		}
	}
}
