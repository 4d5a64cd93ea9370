// Package fusion merges heuristic and classifier candidates into the final
// ranked result. Fuse always returns exactly diagnosis.ResultSize entries.
package fusion

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis"
)

// MaxClassifierCandidates caps how many filtered classifier candidates are
// considered for the pool.
const MaxClassifierCandidates = 7

// emergencyFallbacks pad a pool that is short of ResultSize, in order.
var emergencyFallbacks = [...]diagnosis.Candidate{
	{Disease: "Acute Minor Illness", Score: 65, Source: diagnosis.SourceFallback},
	{Disease: "Viral Infection", Score: 55, Source: diagnosis.SourceFallback},
	{Disease: "General Malaise", Score: 45, Source: diagnosis.SourceFallback},
	{Disease: "Stress Response", Score: 40, Source: diagnosis.SourceFallback},
	{Disease: "Mild Infection", Score: 35, Source: diagnosis.SourceFallback},
}

// EmergencyFallbacks returns a copy of the padding list in priority order.
func EmergencyFallbacks() []diagnosis.Candidate {
	out := make([]diagnosis.Candidate, len(emergencyFallbacks))
	copy(out, emergencyFallbacks[:])
	return out
}

// Result is the fused ranking with provenance for metrics and logging.
type Result struct {
	Ranked []diagnosis.Candidate
	// Filtered counts classifier candidates dropped by reason.
	Filtered map[Reason]int
	// Merged is how many classifier candidates entered the pool.
	Merged int
	Padded bool
}

// Fuse merges the heuristic triple with classifier output. classifier may be
// nil when the model is unavailable. symptoms drive the implausibility filter.
func Fuse(heuristic, classifier []diagnosis.Candidate, symptoms []string) Result {
	res := Result{Filtered: map[Reason]int{}}

	pool := make([]diagnosis.Candidate, 0, len(heuristic)+MaxClassifierCandidates)
	for _, c := range heuristic {
		if blank(c.Disease) {
			continue
		}
		pool = append(pool, c)
	}

	if len(classifier) > 0 {
		sorted := make([]diagnosis.Candidate, len(classifier))
		copy(sorted, classifier)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

		kept, dropped := Filter(sorted, symptoms)
		for reason, n := range dropped {
			res.Filtered[reason] += n
		}
		if len(kept) > MaxClassifierCandidates {
			kept = kept[:MaxClassifierCandidates]
		}
		for _, c := range kept {
			if blank(c.Disease) || containsDuplicate(pool, c.Disease) {
				continue
			}
			pool = append(pool, c)
			res.Merged++
		}
	}

	sort.SliceStable(pool, func(i, j int) bool { return pool[i].Score > pool[j].Score })

	if len(pool) < diagnosis.ResultSize {
		pool = pad(pool, containsDuplicate)
		// A short name like "e" loosely matches every fallback; fill the
		// remainder by exact name so the result is never short.
		pool = pad(pool, containsName)
		res.Padded = true
		sort.SliceStable(pool, func(i, j int) bool { return pool[i].Score > pool[j].Score })
	}

	res.Ranked = clampScores(pool[:diagnosis.ResultSize])
	return res
}

// IsDuplicate is the loose name equivalence used for merging: equal names,
// or one name contained in the other, ignoring case.
func IsDuplicate(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}

// blank names would duplicate every other name.
func blank(name string) bool {
	return strings.TrimSpace(name) == ""
}

func containsDuplicate(pool []diagnosis.Candidate, name string) bool {
	for _, c := range pool {
		if IsDuplicate(c.Disease, name) {
			return true
		}
	}
	return false
}

// pad appends emergency fallbacks the taken predicate rejects until the pool
// holds ResultSize candidates or the fallbacks run out.
func pad(pool []diagnosis.Candidate, taken func([]diagnosis.Candidate, string) bool) []diagnosis.Candidate {
	for _, fb := range emergencyFallbacks {
		if len(pool) >= diagnosis.ResultSize {
			break
		}
		if taken(pool, fb.Disease) {
			continue
		}
		pool = append(pool, fb)
	}
	return pool
}

func containsName(pool []diagnosis.Candidate, name string) bool {
	for _, c := range pool {
		if strings.EqualFold(c.Disease, name) {
			return true
		}
	}
	return false
}

func clampScores(cs []diagnosis.Candidate) []diagnosis.Candidate {
	out := make([]diagnosis.Candidate, len(cs))
	for i, c := range cs {
		switch {
		case c.Score < 0:
			c.Score = 0
		case c.Score > 100:
			c.Score = 100
		}
		out[i] = c
	}
	return out
}
