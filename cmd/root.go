package cmd

import (
	"errors"
	"io/fs"
	"log"

	"github.com/spigell/jobfit/internal/config"
	"github.com/spigell/jobfit/internal/pipeline"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "jobfit"
)

// envBindings maps config keys to the environment names of the container deployment.
var envBindings = [][2]string{
	{"data-dir", "DATA_DIR"},

	{"files.input", "INPUT_FILE"},
	{"files.enriched", "ENRICHED_FILE"},
	{"files.report", "REPORT_FILE"},

	{"ollama.base-url", "OLLAMA_BASE_URL"},
	{"ollama.model", "OLLAMA_MODEL"},
	{"ollama.keep-alive", "OLLAMA_KEEP_ALIVE"},
	{"ollama.temperature", "TEMPERATURE"},
	{"ollama.num-ctx", "NUM_CTX"},

	{"anythingllm.base-url", "ANYTHINGLLM_BASE_URL"},
	{"anythingllm.api-key", "ANYTHINGLLM_API_KEY"},
	{"anythingllm.api-key-file", "ANYTHINGLLM_API_KEY_FILE"},
	{"anythingllm.workspace", "ANYTHINGLLM_WORKSPACE"},

	{"candidate.name", "CANDIDATE_NAME"},
	{"candidate.resume", "RESUME_PATH"},
	{"candidate.chunk-size", "CHUNK_SIZE"},
	{"candidate.chunk-overlap", "CHUNK_OVERLAP"},

	{"enrich.retries", "RETRIES"},
	{"enrich.timeout-minutes", "TIMEOUT_MINUTES"},
	{"enrich.requests-per-second", "REQUESTS_PER_SECOND"},
	{"enrich.halt-on-exhausted", "HALT_ON_EXHAUSTED"},
	{"enrich.max-log-length", "MAX_LOG_LENGTH"},

	{"scoring.must-haves", "MUST_HAVES"},
	{"scoring.nice-to-haves", "NICE_TO_HAVES"},
	{"scoring.exclusions", "EXCLUSIONS"},
	{"scoring.locale", "LOCALE"},
	{"scoring.language-preference", "LANGUAGE_PREFERENCE"},
	{"scoring.seniority-target", "SENIORITY_TARGET"},

	{"filters.exclude-companies", "EXCLUDE_COMPANIES"},
	{"filters.exclude-file", "EXCLUDE_FILE"},
	{"filters.disable", "DISABLE_FILTERS"},

	{"report.page-size", "PAGE_SIZE"},
	{"report.default-logo", "DEFAULT_LOGO"},

	{"collector.command", "COLLECTOR_COMMAND"},
	{"collector.skip", "SKIP_COLLECTOR"},
	{"collector.sites", "SITE_NAME"},
	{"collector.search-terms", "SEARCH_TERMS"},
	{"collector.google-search-term", "GOOGLE_SEARCH_TERM"},
	{"collector.location", "LOCATION"},
	{"collector.results-wanted", "RESULTS_WANTED"},
	{"collector.hours-old", "HOURS_OLD"},
	{"collector.country-indeed", "COUNTRY_INDEED"},
	{"collector.linkedin-fetch-description", "LINKEDIN_FETCH_DESCRIPTION"},
}

var (
	// Used for flags.
	cfgFile string

	// initErr is reported by the commands that need a config.
	initErr error

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "jobfit collects job postings, scores them against a resume with a local or hosted model and renders a report",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for _, b := range envBindings {
		if err := viper.BindEnv(b[0], b[1]); err != nil {
			log.Fatalf("binding %s environment variable: %v", b[1], err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jobfit.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("log-output", "stdout", "where logs go: stdout, stderr or a file path")
	rootCmd.PersistentFlags().String("data-dir", "", "directory with the collected, enriched and report files")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("log-output", rootCmd.PersistentFlags().Lookup("log-output"))
	viper.BindPFlag("data-dir", rootCmd.PersistentFlags().Lookup("data-dir"))
}

func initConfig() {
	// A .env file is optional. Variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		initErr = err
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// Only an explicitly requested config file must exist.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			initErr = err
		}
	}
}

func getConfig() (*config.Config, error) {
	if initErr != nil {
		return nil, configError(initErr)
	}

	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, configError(err)
	}
	cfg.ApplyDefaults()

	return &cfg, nil
}

func configError(err error) error {
	return &pipeline.HaltError{Reason: pipeline.ReasonConfiguration, Err: err}
}
