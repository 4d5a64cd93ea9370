// Package heuristic is the always-available rule-based ranker. It matches
// the reported symptoms against an ordered table of keyword groups; the
// first group that matches decides the result.
package heuristic

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/schema"
)

// Input is what a rule sees: the lower-cased symptom blob and the
// normalized categories.
type Input struct {
	Blob     string
	Duration schema.Duration
	Severity schema.Severity
}

// Contains reports whether the blob contains kw as a substring.
func (in Input) Contains(kw string) bool {
	return strings.Contains(in.Blob, kw)
}

// Triple is a fixed-size ranked result in descending score order.
type Triple [diagnosis.ResultSize]diagnosis.Candidate

// Rule is one keyword group with its sub-branch resolver.
type Rule struct {
	Name     string
	Keywords []string
	Resolve  func(Input) Triple
}

// Matches reports whether any of the rule's keywords appears in the blob.
func (r Rule) Matches(in Input) bool {
	for _, kw := range r.Keywords {
		if in.Contains(kw) {
			return true
		}
	}
	return false
}

// Result is a ranked triple plus the group that produced it.
type Result struct {
	Group      string
	Candidates []diagnosis.Candidate
}

const (
	GroupEmpty   = "empty"
	GroupDefault = "default"
)

// Groups returns the rule group names in priority order.
func Groups() []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	return names
}

// Blob joins symptoms with spaces and lower-cases them.
func Blob(symptoms []string) string {
	return strings.ToLower(strings.Join(symptoms, " "))
}

// Classify returns the rule-table triple for the input. It is pure and
// deterministic.
func Classify(symptoms []string, duration schema.Duration, severity schema.Severity) Result {
	if len(symptoms) == 0 {
		return Result{Group: GroupEmpty, Candidates: emptyInput.slice()}
	}
	in := Input{Blob: Blob(symptoms), Duration: duration, Severity: severity}
	for _, r := range rules {
		if r.Matches(in) {
			return Result{Group: r.Name, Candidates: r.Resolve(in).slice()}
		}
	}
	return Result{Group: GroupDefault, Candidates: fallthroughDefault.slice()}
}

func (t Triple) slice() []diagnosis.Candidate {
	out := make([]diagnosis.Candidate, len(t))
	copy(out, t[:])
	return out
}

func tri(a string, as float64, b string, bs float64, c string, cs float64) Triple {
	return Triple{
		{Disease: a, Score: as, Source: diagnosis.SourceHeuristic},
		{Disease: b, Score: bs, Source: diagnosis.SourceHeuristic},
		{Disease: c, Score: cs, Source: diagnosis.SourceHeuristic},
	}
}
