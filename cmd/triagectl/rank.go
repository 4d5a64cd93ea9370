package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/engine"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/schema"
)

func newRankCmd() *cobra.Command {
	var (
		duration string
		severity string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "rank [symptom...]",
		Short: "Rank symptoms and print the top three candidates",
		Example: `  triagectl rank cough "runny nose"
  triagectl rank diarrhea fever --severity Severe --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := loadAdapter(cmd)
			if err != nil {
				return err
			}
			defer adapter.Close()

			symptoms := schema.NormalizeSymptoms(args)
			d := schema.NormalizeDuration(duration)
			sv := schema.NormalizeSeverity(severity)
			ranking := engine.New(adapter, nil).Rank(context.Background(), symptoms, d, sv)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"symptoms":        symptoms,
					"duration":        d,
					"severity":        sv,
					"source":          ranking.Source(),
					"heuristic_group": ranking.HeuristicGroup,
					"ranked":          ranking.Ranked,
				})
			}

			fmt.Fprintf(out, "source: %s (rule group %s)\n", ranking.Source(), ranking.HeuristicGroup)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tDISEASE\tSCORE\tFROM")
			for i, c := range ranking.Ranked {
				fmt.Fprintf(tw, "%d\t%s\t%.2f\t%s\n", i+1, c.Disease, c.Score, c.Source)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&duration, "duration", "d", string(schema.DurationShort), "symptom duration")
	cmd.Flags().StringVarP(&severity, "severity", "s", string(schema.SeverityMild), "symptom severity")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
