package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/classifier"
)

func newSchemaCmd() *cobra.Command {
	var symptomsOnly bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the feature schema the classifier was trained on",
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := loadAdapter(cmd)
			if err != nil {
				return err
			}
			defer adapter.Close()

			s := adapter.Schema()
			if s == nil {
				return errors.New("feature schema not loaded; check model.featuresPath")
			}
			out := cmd.OutOrStdout()
			if symptomsOnly {
				for _, name := range s.Symptoms() {
					fmt.Fprintln(out, name)
				}
				return nil
			}
			fmt.Fprintf(out, "version: %s\ncolumns: %d\nclassifier available: %t\n", s.Version(), s.Len(), adapter.Available())
			if m, ok := adapter.(*classifier.Model); ok {
				fmt.Fprintf(out, "labels: %d\n", len(m.Labels()))
			}
			for i, col := range s.Columns() {
				fmt.Fprintf(out, "%4d  %s\n", i, col)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&symptomsOnly, "symptoms", false, "print only symptom columns, sorted")
	return cmd
}
