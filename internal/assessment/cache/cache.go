// Package cache keeps each user's assessment history in Redis. Concurrent
// misses for the same user are coalesced into one store read.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/redis"
)

const keyPrefix = "history:user:"

// LoadFunc reads a user's history from the store.
type LoadFunc func(ctx context.Context) ([]diagnosis.AssessmentRecord, error)

// HistoryCache is safe to use with a nil client, in which case every call
// goes to the store.
type HistoryCache struct {
	client  *pkgredis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
	group   singleflight.Group
	logger  *slog.Logger
}

func New(client *pkgredis.Client, ttl time.Duration, m *metrics.Metrics) *HistoryCache {
	return &HistoryCache{
		client:  client,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "history-cache"),
	}
}

// GetOrLoad returns the cached history for userID, calling load on a miss.
// The bool result reports a cache hit. Redis errors degrade to a miss.
func (c *HistoryCache) GetOrLoad(ctx context.Context, userID int64, load LoadFunc) ([]diagnosis.AssessmentRecord, bool, error) {
	if c.client == nil {
		records, err := load(ctx)
		return records, false, err
	}
	if records, ok := c.get(ctx, userID); ok {
		c.record(true)
		return records, true, nil
	}
	c.record(false)

	key := buildKey(userID)
	val, err, _ := c.group.Do(key, func() (any, error) {
		if records, ok := c.get(ctx, userID); ok {
			return records, nil
		}
		records, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.set(ctx, userID, records)
		return records, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]diagnosis.AssessmentRecord), false, nil
}

// Invalidate drops the cached history for userID.
func (c *HistoryCache) Invalidate(ctx context.Context, userID int64) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, buildKey(userID)); err != nil {
		c.logger.Warn("history invalidate failed", "user_id", userID, "error", err)
	}
}

func (c *HistoryCache) get(ctx context.Context, userID int64) ([]diagnosis.AssessmentRecord, bool) {
	key := buildKey(userID)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("history cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	var records []diagnosis.AssessmentRecord
	if err := json.Unmarshal(data, &records); err != nil {
		c.logger.Error("history cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return records, true
}

func (c *HistoryCache) set(ctx context.Context, userID int64, records []diagnosis.AssessmentRecord) {
	key := buildKey(userID)
	data, err := json.Marshal(records)
	if err != nil {
		c.logger.Error("history cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("history cache set failed", "key", key, "error", err)
	}
}

func (c *HistoryCache) record(hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.HistoryCacheHitsTotal.Inc()
	} else {
		c.metrics.HistoryCacheMissesTotal.Inc()
	}
}

func buildKey(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}

// Enabled reports whether a Redis client is configured.
func (c *HistoryCache) Enabled() bool {
	return c.client != nil
}
