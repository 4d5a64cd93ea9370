package schema

import (
	"strings"

	"golang.org/x/text/cases"
)

// Duration is one of the closed set of reported symptom durations.
type Duration string

const (
	DurationShort  Duration = "1-3 days"
	DurationMedium Duration = "4-7 days"
	DurationLong   Duration = "More than a week"
)

// Severity is one of the closed set of reported severities.
type Severity string

const (
	SeverityMild     Severity = "Mild"
	SeverityModerate Severity = "Moderate"
	SeveritySevere   Severity = "Severe"
)

// Durations and Severities are in one-hot column order.
var (
	Durations  = []Duration{DurationShort, DurationMedium, DurationLong}
	Severities = []Severity{SeverityMild, SeverityModerate, SeveritySevere}
)

// NormalizeDuration snaps raw input to a known duration, ignoring case and
// surrounding or repeated whitespace. Unrecognized input is DurationShort.
func NormalizeDuration(raw string) Duration {
	key := foldKey(raw)
	for _, d := range Durations {
		if foldKey(string(d)) == key {
			return d
		}
	}
	return DurationShort
}

// NormalizeSeverity is NormalizeDuration for severities; the default is
// SeverityMild.
func NormalizeSeverity(raw string) Severity {
	key := foldKey(raw)
	for _, s := range Severities {
		if foldKey(string(s)) == key {
			return s
		}
	}
	return SeverityMild
}

// Elevated reports whether the severity is Moderate or Severe.
func (s Severity) Elevated() bool {
	return s == SeverityModerate || s == SeveritySevere
}

// DurationColumn is the one-hot column name for d.
func DurationColumn(d Duration) string {
	return "duration_" + string(d)
}

// SeverityColumn is the one-hot column name for s.
func SeverityColumn(s Severity) string {
	return "severity_" + string(s)
}

// NormalizeSymptoms lower-cases and trims every symptom. Order, duplicates
// and blank entries are kept: [""] is a reported symptom set, not an empty one.
func NormalizeSymptoms(raw []string) []string {
	out := make([]string, len(raw))
	for i, s := range raw {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

func foldKey(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}
