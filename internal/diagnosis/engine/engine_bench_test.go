package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/schema"
)

func benchSchema(b *testing.B, n int) *schema.Schema {
	b.Helper()
	cols := make([]string, n)
	for i := range cols {
		cols[i] = fmt.Sprintf("symptom_%d", i)
	}
	s, err := schema.New("", cols)
	if err != nil {
		b.Fatal(err)
	}
	return s
}

// BenchmarkRank measures a full ranking for rule-table-only and hybrid
// engines across symptom counts.
func BenchmarkRank(b *testing.B) {
	s := benchSchema(b, 130)
	labels := make([]diagnosis.Candidate, 41)
	for i := range labels {
		labels[i] = diagnosis.Candidate{Disease: fmt.Sprintf("Disease %d", i), Score: float64(i), Source: diagnosis.SourceClassifier}
	}
	engines := map[string]*Engine{
		"heuristic": New(nil, nil),
		"hybrid":    New(&fakeAdapter{schema: s, out: labels}, nil),
	}
	inputs := map[string][]string{
		"empty":   nil,
		"two":     {"cough", "symptom_3"},
		"ten":     {"symptom_1", "symptom_2", "symptom_3", "symptom_4", "symptom_5", "headache", "fever", "chills", "rash", "nausea"},
		"unknown": {"glowing_ears", "purple_tongue"},
	}

	for engineName, e := range engines {
		for inputName, symptoms := range inputs {
			b.Run(engineName+"/"+inputName, func(b *testing.B) {
				b.ReportAllocs()
				ctx := context.Background()
				for i := 0; i < b.N; i++ {
					_ = e.Rank(ctx, symptoms, schema.DurationMedium, schema.SeverityModerate)
				}
			})
		}
	}
}
