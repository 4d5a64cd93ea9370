package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/classifier"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "triagectl",
		Short:         "Offline tools for the diagnosis ranking engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			level, _ := cmd.Flags().GetString("log-level")
			logger.SetupWriter(cmd.ErrOrStderr(), level, "text")
		},
	}
	root.PersistentFlags().String("config", "configs/development.yaml", "path to config file")
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("no-model", false, "skip loading the trained classifier")

	root.AddCommand(newRankCmd())
	root.AddCommand(newSchemaCmd())
	return root
}

// loadAdapter resolves the classifier from --config. --no-model keeps the
// feature schema but never opens the model.
func loadAdapter(cmd *cobra.Command) (classifier.Adapter, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if noModel, _ := cmd.Flags().GetBool("no-model"); noModel {
		cfg.Model.Enabled = false
	}
	return classifier.NewLoader(cfg.Model).Adapter(), nil
}
