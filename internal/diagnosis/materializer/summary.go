package materializer

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/schema"
)

const (
	summarySeparator   = " | "
	leadingSymptoms    = 3
	maxSummaryAnswers  = 5
	questionCharBudget = 30
)

// summaryJourneyKeys are the journey metadata keys surfaced in summaries,
// in output order.
var summaryJourneyKeys = []string{"age", "gender", "location", "triggers"}

// Summary renders the human-readable assessment summary stored with each
// record.
func Summary(symptoms []string, duration schema.Duration, severity schema.Severity,
	answers []diagnosis.FollowUpAnswer, journey map[string]string) string {
	var parts []string

	if len(symptoms) > 0 {
		lead := symptoms
		if len(lead) > leadingSymptoms {
			lead = lead[:leadingSymptoms]
		}
		parts = append(parts, "Primary symptoms: "+strings.Join(lead, ", "))
		if extra := len(symptoms) - leadingSymptoms; extra > 0 {
			parts = append(parts, fmt.Sprintf("Plus %d additional symptoms", extra))
		}
	}

	parts = append(parts, fmt.Sprintf("Duration: %s, Severity: %s", duration, severity))

	if len(answers) > maxSummaryAnswers {
		answers = answers[:maxSummaryAnswers]
	}
	var responses []string
	for _, a := range answers {
		if a.Question == "" || a.Answer == "" {
			continue
		}
		responses = append(responses, fmt.Sprintf("%s... -> %s", truncateRunes(a.Question, questionCharBudget), a.Answer))
	}
	if len(responses) > 0 {
		parts = append(parts, "Key responses: "+strings.Join(responses, "; "))
	}

	var details []string
	for _, key := range summaryJourneyKeys {
		if v := journey[key]; v != "" {
			details = append(details, key+": "+v)
		}
	}
	if len(details) > 0 {
		parts = append(parts, "Context: "+strings.Join(details, ", "))
	}

	return strings.Join(parts, summarySeparator)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
