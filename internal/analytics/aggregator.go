package analytics

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/kafka"
)

const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalAssessments        int64            `json:"total_assessments"`
	TotalPreviews           int64            `json:"total_previews"`
	Persisted               int64            `json:"persisted"`
	PersistenceFailures     int64            `json:"persistence_failures"`
	ClassifierAssisted      int64            `json:"classifier_assisted"`
	ClassifierAssistedRatio float64          `json:"classifier_assisted_ratio"`
	Padded                  int64            `json:"padded"`
	AvgLatencyMs            float64          `json:"avg_latency_ms"`
	P50LatencyMs            int64            `json:"p50_latency_ms"`
	P95LatencyMs            int64            `json:"p95_latency_ms"`
	P99LatencyMs            int64            `json:"p99_latency_ms"`
	TopDiseases             []DiseaseCount   `json:"top_diseases"`
	SymptomCountBuckets     map[string]int64 `json:"symptom_count_buckets"`
	BySeverity              map[string]int64 `json:"by_severity"`
	AssessmentsPerMinute    float64          `json:"assessments_per_minute"`
}

type DiseaseCount struct {
	Disease string `json:"disease"`
	Count   int64  `json:"count"`
}

type Aggregator struct {
	mu                  sync.RWMutex
	totalAssessments    atomic.Int64
	totalPreviews       atomic.Int64
	persisted           atomic.Int64
	persistenceFailures atomic.Int64
	classifierAssisted  atomic.Int64
	padded              atomic.Int64
	latencies           []int64
	diseaseCounts       map[string]int64
	symptomBuckets      map[string]int64
	severityCounts      map[string]int64
	startTime           time.Time
	// seeded is the assessment total restored by Seed; it is excluded from
	// the per-minute rate.
	seeded int64
}

// NewAggregator creates an empty Aggregator. Feed it through Record or wrap
// it with HandleEvent for a Kafka consumer.
func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:      make([]int64, 0, 1024),
		diseaseCounts:  make(map[string]int64),
		symptomBuckets: make(map[string]int64),
		severityCounts: make(map[string]int64),
		startTime:      time.Now(),
	}
}

// HandleEvent adapts the aggregator to a Kafka message handler. Undecodable
// payloads are returned as errors; the consumer logs and skips them.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[AssessmentEvent](value)
		if err != nil {
			return err
		}
		agg.Record(event)
		return nil
	}
}

// Seed adds a persisted snapshot's counters to the aggregator so totals
// survive a restart. Latency samples and diseases outside the snapshot's
// top list cannot be restored.
func (a *Aggregator) Seed(snap AggregatedStats) {
	a.totalAssessments.Add(snap.TotalAssessments)
	a.totalPreviews.Add(snap.TotalPreviews)
	a.persisted.Add(snap.Persisted)
	a.persistenceFailures.Add(snap.PersistenceFailures)
	a.classifierAssisted.Add(snap.ClassifierAssisted)
	a.padded.Add(snap.Padded)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.seeded += snap.TotalAssessments
	for _, d := range snap.TopDiseases {
		a.diseaseCounts[d.Disease] += d.Count
	}
	for k, v := range snap.SymptomCountBuckets {
		a.symptomBuckets[k] += v
	}
	for k, v := range snap.BySeverity {
		a.severityCounts[k] += v
	}
}

// Record folds one event into the running stats.
func (a *Aggregator) Record(event AssessmentEvent) {
	if event.Type == EventPreview {
		a.totalPreviews.Add(1)
		return
	}
	a.totalAssessments.Add(1)
	if event.Persisted {
		a.persisted.Add(1)
	} else {
		a.persistenceFailures.Add(1)
	}
	if event.Source == "hybrid" {
		a.classifierAssisted.Add(1)
	}
	if event.Padded {
		a.padded.Add(1)
	}

	a.mu.Lock()
	if len(a.latencies) >= maxLatencySamples {
		a.latencies = a.latencies[1:]
	}
	a.latencies = append(a.latencies, event.LatencyMs)
	if event.TopDisease != "" {
		a.diseaseCounts[event.TopDisease]++
	}
	a.symptomBuckets[symptomBucket(event.SymptomCount)]++
	if event.Severity != "" {
		a.severityCounts[event.Severity]++
	}
	a.mu.Unlock()
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalAssessments:    a.totalAssessments.Load(),
		TotalPreviews:       a.totalPreviews.Load(),
		Persisted:           a.persisted.Load(),
		PersistenceFailures: a.persistenceFailures.Load(),
		ClassifierAssisted:  a.classifierAssisted.Load(),
		Padded:              a.padded.Load(),
		SymptomCountBuckets: maps.Clone(a.symptomBuckets),
		BySeverity:          maps.Clone(a.severityCounts),
	}
	if stats.TotalAssessments > 0 {
		stats.ClassifierAssistedRatio = float64(stats.ClassifierAssisted) / float64(stats.TotalAssessments)
	}
	if len(a.latencies) > 0 {
		sorted := slices.Clone(a.latencies)
		slices.Sort(sorted)

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopDiseases = topN(a.diseaseCounts, 10)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.AssessmentsPerMinute = float64(stats.TotalAssessments-a.seeded) / elapsed
	}
	return stats
}

func symptomBucket(n int) string {
	switch {
	case n == 0:
		return "0"
	case n <= 2:
		return "1-2"
	case n <= 5:
		return "3-5"
	default:
		return "6+"
	}
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []DiseaseCount {
	result := make([]DiseaseCount, 0, len(counts))
	for disease, count := range counts {
		result = append(result, DiseaseCount{Disease: disease, Count: count})
	}
	slices.SortFunc(result, func(x, y DiseaseCount) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return cmp.Compare(x.Disease, y.Disease)
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
