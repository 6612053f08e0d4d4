package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spigell/jobfit/internal/logger"
	"github.com/spigell/jobfit/internal/pipeline"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect postings, score them and render the report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runStages(cmd, pipeline.AllStages)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation before existing output is moved to a backup")
	runCmd.Flags().Bool("skip-collect", false, "use the existing collected table instead of running the collector")

	viper.BindPFlag("collector.skip", runCmd.Flags().Lookup("skip-collect"))
}

// runStages is shared by run, enrich and report.
func runStages(cmd *cobra.Command, stages pipeline.Stages) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := getConfig()
	if err != nil {
		return err
	}

	if cfg.Collector.Skip {
		stages.Collect = false
	}

	log.Info("starting the jobfit", zap.String("version", version), zap.String("data_dir", cfg.DataDir))

	if stages.Enrich {
		yes, _ := cmd.Flags().GetBool("yes")
		proceed, err := confirmOverwrite(yes, cfg.EnrichedPath())
		if err != nil {
			return err
		}
		if !proceed {
			log.Info("exiting", zap.String("reason", "got no from prompt"))
			return nil
		}
	}

	result, err := pipeline.New(cfg, pipeline.Deps{Logger: log}).Run(ctx, stages)
	if err != nil {
		return err
	}

	fields := []zap.Field{zap.Stringer("backend", result.Selected)}
	if result.Enrich != nil {
		fields = append(fields,
			zap.Int("enriched", result.Enrich.Enriched),
			zap.Int("parse_failed", result.Enrich.ParseFailed),
			zap.Int("failed", result.Enrich.Failed),
			zap.Bool("fell_back", result.Enrich.FellBack),
		)
	}
	if result.Report != nil {
		fields = append(fields, zap.String("report", result.Report.Path))
	}
	log.Info("pipeline finished", fields...)

	return nil
}

func newLogger() (*zap.Logger, error) {
	log, err := logger.New(logger.Options{
		JSON:   viper.GetBool("json"),
		Debug:  viper.GetBool("debug"),
		Output: viper.GetString("log-output"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}
	return logger.WithRun(log, uuid.NewString()), nil
}

// isTerminal reports whether f is an interactive character device.
var isTerminal = func(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// confirmOverwrite asks before an existing enriched table is moved to a backup.
func confirmOverwrite(yes bool, paths ...string) (bool, error) {
	var existing []string
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			existing = append(existing, path)
		}
	}
	// Without a terminal there is nobody to answer; the existing table is
	// still moved to a backup before it is rewritten.
	if yes || len(existing) == 0 || !isTerminal(os.Stdin) {
		return true, nil
	}

	prompt := promptui.Select{
		Label: fmt.Sprintf("%s will be moved to a backup. Proceed?", strings.Join(existing, ", ")),
		Items: []string{PromptYes, PromptNo},
	}

	_, answer, err := prompt.Run()
	if err != nil {
		return false, err
	}

	return answer == PromptYes, nil
}
