package config

import (
	"path/filepath"
	"strings"

	"github.com/spigell/jobfit/internal/report"
)

const (
	DefaultInputFile    = "flat_jobs_list.csv"
	DefaultEnrichedFile = "enriched_jobs.csv"
	DefaultReportFile   = "jobs_report.html"
	DefaultCollector    = "python3 collector.py"

	DefaultOllamaModel    = "llama3.1:8b"
	DefaultKeepAlive      = "5m"
	DefaultTemperature    = 0.2
	DefaultNumCtx         = 8192
	DefaultRetries        = 3
	DefaultTimeoutMinutes = 5
	DefaultMaxLogLength   = 200
)

// Config is decoded once at start-up and passed by pointer. Components never
// read the environment themselves.
type Config struct {
	DataDir     string            `mapstructure:"data-dir"`
	Files       FilesConfig       `mapstructure:"files"`
	Ollama      OllamaConfig      `mapstructure:"ollama"`
	AnythingLLM AnythingLLMConfig `mapstructure:"anythingllm"`
	Candidate   CandidateConfig   `mapstructure:"candidate"`
	Enrich      EnrichConfig      `mapstructure:"enrich"`
	Scoring     ScoringConfig     `mapstructure:"scoring"`
	Filters     FiltersConfig     `mapstructure:"filters"`
	Report      ReportConfig      `mapstructure:"report"`
	Collector   CollectorConfig   `mapstructure:"collector"`
}

// FilesConfig names the pipeline files. Relative names live in the data directory.
type FilesConfig struct {
	Input    string `mapstructure:"input"`
	Enriched string `mapstructure:"enriched"`
	Report   string `mapstructure:"report"`
}

type OllamaConfig struct {
	BaseURL     string   `mapstructure:"base-url"`
	Model       string   `mapstructure:"model"`
	KeepAlive   string   `mapstructure:"keep-alive"`
	Temperature *float64 `mapstructure:"temperature"`
	NumCtx      int      `mapstructure:"num-ctx"`
}

type AnythingLLMConfig struct {
	BaseURL    string `mapstructure:"base-url"`
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Workspace  string `mapstructure:"workspace"`
}

// Configured reports whether the hosted gateway is meant to be used at all.
func (a AnythingLLMConfig) Configured() bool {
	return strings.TrimSpace(a.BaseURL) != ""
}

type CandidateConfig struct {
	Name         string `mapstructure:"name"`
	Resume       string `mapstructure:"resume"`
	ChunkSize    int    `mapstructure:"chunk-size"`
	ChunkOverlap int    `mapstructure:"chunk-overlap"`
}

type EnrichConfig struct {
	Retries           int     `mapstructure:"retries"`
	TimeoutMinutes    int     `mapstructure:"timeout-minutes"`
	RequestsPerSecond float64 `mapstructure:"requests-per-second"`
	HaltOnExhausted   *bool   `mapstructure:"halt-on-exhausted"`
	MaxLogLength      int     `mapstructure:"max-log-length"`
}

type ScoringConfig struct {
	MustHaves          []string `mapstructure:"must-haves"`
	NiceToHaves        []string `mapstructure:"nice-to-haves"`
	Exclusions         []string `mapstructure:"exclusions"`
	Locale             string   `mapstructure:"locale"`
	LanguagePreference string   `mapstructure:"language-preference"`
	SeniorityTarget    string   `mapstructure:"seniority-target"`
}

// FiltersConfig tunes the filters applied before enrichment. Disable names
// filters to skip, e.g. duplicate_url.
type FiltersConfig struct {
	ExcludeCompanies []string `mapstructure:"exclude-companies"`
	ExcludeFile      string   `mapstructure:"exclude-file"`
	Disable          []string `mapstructure:"disable"`
}

type ReportConfig struct {
	PageSize    int            `mapstructure:"page-size"`
	DefaultLogo string         `mapstructure:"default-logo"`
	Columns     report.Columns `mapstructure:"columns"`
}

// CollectorConfig drives the external scraping command. The search settings are
// exported to it as environment variables.
type CollectorConfig struct {
	Command                  string   `mapstructure:"command"`
	Skip                     bool     `mapstructure:"skip"`
	Sites                    []string `mapstructure:"sites"`
	SearchTerms              []string `mapstructure:"search-terms"`
	GoogleSearchTerm         string   `mapstructure:"google-search-term"`
	Location                 string   `mapstructure:"location"`
	ResultsWanted            int      `mapstructure:"results-wanted"`
	HoursOld                 int      `mapstructure:"hours-old"`
	CountryIndeed            string   `mapstructure:"country-indeed"`
	LinkedInFetchDescription *bool    `mapstructure:"linkedin-fetch-description"`
}

// ApplyDefaults fills unset values and trims list entries.
func (c *Config) ApplyDefaults() {
	c.DataDir = strings.TrimSpace(c.DataDir)

	c.Files.Input = orDefault(c.Files.Input, DefaultInputFile)
	c.Files.Enriched = orDefault(c.Files.Enriched, DefaultEnrichedFile)
	c.Files.Report = orDefault(c.Files.Report, DefaultReportFile)

	c.Ollama.BaseURL = strings.TrimSpace(c.Ollama.BaseURL)
	c.Ollama.Model = orDefault(c.Ollama.Model, DefaultOllamaModel)
	c.Ollama.KeepAlive = orDefault(c.Ollama.KeepAlive, DefaultKeepAlive)
	if c.Ollama.Temperature == nil {
		t := DefaultTemperature
		c.Ollama.Temperature = &t
	}
	if c.Ollama.NumCtx == 0 {
		c.Ollama.NumCtx = DefaultNumCtx
	}

	c.AnythingLLM.BaseURL = strings.TrimSpace(c.AnythingLLM.BaseURL)
	c.AnythingLLM.Workspace = strings.TrimSpace(c.AnythingLLM.Workspace)

	if c.Enrich.Retries == 0 {
		c.Enrich.Retries = DefaultRetries
	}
	if c.Enrich.TimeoutMinutes == 0 {
		c.Enrich.TimeoutMinutes = DefaultTimeoutMinutes
	}
	if c.Enrich.HaltOnExhausted == nil {
		halt := true
		c.Enrich.HaltOnExhausted = &halt
	}
	if c.Enrich.MaxLogLength == 0 {
		c.Enrich.MaxLogLength = DefaultMaxLogLength
	}

	c.Scoring.MustHaves = cleanList(c.Scoring.MustHaves)
	c.Scoring.NiceToHaves = cleanList(c.Scoring.NiceToHaves)
	c.Scoring.Exclusions = cleanList(c.Scoring.Exclusions)
	c.Filters.ExcludeCompanies = cleanList(c.Filters.ExcludeCompanies)
	c.Filters.Disable = cleanList(c.Filters.Disable)

	if c.Report.PageSize == 0 {
		c.Report.PageSize = report.DefaultPageSize
	}

	c.Collector.Command = orDefault(c.Collector.Command, DefaultCollector)
	c.Collector.Sites = cleanList(c.Collector.Sites)
	c.Collector.SearchTerms = cleanList(c.Collector.SearchTerms)
}

func (c *Config) InputPath() string    { return c.path(c.Files.Input) }
func (c *Config) EnrichedPath() string { return c.path(c.Files.Enriched) }
func (c *Config) ReportPath() string   { return c.path(c.Files.Report) }

func (c *Config) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func cleanList(items []string) []string {
	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
