package cmd

import (
	"github.com/spigell/jobfit/internal/pipeline"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Score the already collected postings without running the collector or the report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runStages(cmd, pipeline.Stages{Enrich: true})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the report from the enriched table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runStages(cmd, pipeline.Stages{Report: true})
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)
	rootCmd.AddCommand(reportCmd)

	enrichCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation before existing output is moved to a backup")
	reportCmd.Flags().Int("page-size", 0, "cards per report page")

	viper.BindPFlag("report.page-size", reportCmd.Flags().Lookup("page-size"))
}
