// Package engine runs one ranking: encode, infer (when a classifier is
// loaded), apply the rule table, and fuse. Rank never fails; classifier
// problems only narrow the result to rule-table output.
package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/classifier"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/encoder"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/fusion"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/heuristic"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/schema"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/tracing"
)

const (
	SourceHybrid    = "hybrid"
	SourceHeuristic = "heuristic"
)

// Ranking is the fused result plus how it was produced.
type Ranking struct {
	Ranked         []diagnosis.Candidate
	HeuristicGroup string
	ClassifierUsed bool
	Merged         int
	Filtered       map[fusion.Reason]int
	Padded         bool
}

// Source is "hybrid" when classifier output took part, else "heuristic".
func (r Ranking) Source() string {
	if r.ClassifierUsed {
		return SourceHybrid
	}
	return SourceHeuristic
}

type Engine struct {
	adapter classifier.Adapter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an Engine. A nil adapter is treated as unavailable; m may be
// nil.
func New(adapter classifier.Adapter, m *metrics.Metrics) *Engine {
	if adapter == nil {
		adapter = classifier.NewUnavailable(classifier.ErrUnavailable, nil)
	}
	if m != nil {
		if adapter.Available() {
			m.ClassifierAvailable.Set(1)
		} else {
			m.ClassifierAvailable.Set(0)
		}
	}
	return &Engine{
		adapter: adapter,
		metrics: m,
		logger:  slog.Default().With("component", "engine"),
	}
}

// Schema returns the loaded feature schema, or nil.
func (e *Engine) Schema() *schema.Schema {
	return e.adapter.Schema()
}

// ClassifierAvailable reports whether the trained classifier is loaded.
func (e *Engine) ClassifierAvailable() bool {
	return e.adapter.Available()
}

// Rank ranks normalized input. symptoms must already be lower-cased.
func (e *Engine) Rank(ctx context.Context, symptoms []string, duration schema.Duration, severity schema.Severity) Ranking {
	classified := e.infer(ctx, symptoms, duration, severity)

	_, hspan := tracing.StartChildSpan(ctx, "heuristic")
	h := heuristic.Classify(symptoms, duration, severity)
	hspan.SetAttr("group", h.Group)
	hspan.End()

	_, fspan := tracing.StartChildSpan(ctx, "fuse")
	fused := fusion.Fuse(h.Candidates, classified, symptoms)
	fspan.SetAttr("merged", fused.Merged)
	fspan.SetAttr("padded", fused.Padded)
	fspan.End()

	if e.metrics != nil {
		for reason, n := range fused.Filtered {
			e.metrics.ImplausibleCandidatesTotal.WithLabelValues(string(reason)).Add(float64(n))
		}
		if fused.Padded {
			e.metrics.FusionPaddingTotal.Inc()
		}
	}

	return Ranking{
		Ranked:         fused.Ranked,
		HeuristicGroup: h.Group,
		ClassifierUsed: classified != nil,
		Merged:         fused.Merged,
		Filtered:       fused.Filtered,
		Padded:         fused.Padded,
	}
}

// infer returns classifier candidates, or nil when the classifier path is
// unavailable or failed.
func (e *Engine) infer(ctx context.Context, symptoms []string, duration schema.Duration, severity schema.Severity) []diagnosis.Candidate {
	if !e.adapter.Available() {
		return nil
	}
	log := logger.FromContext(ctx).With("component", "engine")

	_, espan := tracing.StartChildSpan(ctx, "encode")
	vec, err := encoder.Encode(e.adapter.Schema(), symptoms, duration, severity)
	espan.End()
	if err != nil {
		log.Warn("encoding unavailable, ranking from rule table", "error", err)
		return nil
	}

	_, ispan := tracing.StartChildSpan(ctx, "infer")
	defer ispan.End()
	candidates, err := e.adapter.Infer(vec)
	if err != nil {
		if e.metrics != nil {
			e.metrics.ClassifierErrorsTotal.Inc()
		}
		if errors.Is(err, classifier.ErrSchemaMismatch) {
			log.Error("classifier schema mismatch, skipping classifier output", "error", err)
		} else {
			log.Warn("classifier inference failed, skipping classifier output", "error", err)
		}
		ispan.SetAttr("error", err.Error())
		return nil
	}
	ispan.SetAttr("labels", len(candidates))
	return candidates
}
