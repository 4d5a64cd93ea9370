package fusion

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis"
)

// Reason names why a classifier candidate was judged implausible.
type Reason string

const (
	ReasonSevereLowConfidence Reason = "severe_low_confidence"
	ReasonDigestiveMismatch   Reason = "digestive_mismatch"
)

// SevereScoreFloor is the minimum score a severe-condition label needs to
// survive the filter.
const SevereScoreFloor = 50.0

var (
	severeConditions = []string{"heart attack", "aids", "tuberculosis", "cancer", "paralysis"}

	// Narrower than the heuristic digestive keywords; the two lists are
	// independent.
	digestiveSymptoms = []string{"diarrhea", "nausea", "vomiting"}

	digestiveIncompatible = []string{"vertigo", "impetigo", "acne", "arthritis", "cervical"}
)

// Filter drops implausible classifier candidates, keeping input order. It
// returns the survivors and per-reason drop counts.
func Filter(candidates []diagnosis.Candidate, symptoms []string) ([]diagnosis.Candidate, map[Reason]int) {
	blob := strings.ToLower(strings.Join(symptoms, " "))
	digestive := containsAny(blob, digestiveSymptoms)

	kept := make([]diagnosis.Candidate, 0, len(candidates))
	dropped := map[Reason]int{}
	for _, c := range candidates {
		name := strings.ToLower(c.Disease)
		if containsAny(name, severeConditions) && c.Score < SevereScoreFloor {
			dropped[ReasonSevereLowConfidence]++
			continue
		}
		if digestive && containsAny(name, digestiveIncompatible) {
			dropped[ReasonDigestiveMismatch]++
			continue
		}
		kept = append(kept, c)
	}
	return kept, dropped
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
