package cmd

import (
	"context"
	"fmt"

	"github.com/spigell/jobfit/internal/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check both scoring backends and print which one a run would use",
	RunE: func(_ *cobra.Command, _ []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		cfg, err := getConfig()
		if err != nil {
			return err
		}

		result, err := pipeline.New(cfg, pipeline.Deps{Logger: log}).Probe(context.Background())
		if err != nil {
			return err
		}

		log.Info("probe finished",
			zap.Bool("local_available", result.Availability.Local),
			zap.Bool("hosted_available", result.Availability.Hosted),
		)
		fmt.Printf("selected backend: %s\n", result.Selected)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
