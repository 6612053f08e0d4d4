package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{
		DataDir:   t.TempDir(),
		Ollama:    OllamaConfig{BaseURL: "http://localhost:11434"},
		Candidate: CandidateConfig{Resume: "resume.txt"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func problemsOf(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	return verr.Problems
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{
		DataDir: " /data ",
		Scoring: ScoringConfig{MustHaves: []string{" go ", "", "k8s"}},
	}
	cfg.ApplyDefaults()

	if cfg.DataDir != "/data" {
		t.Fatalf("unexpected data dir %q", cfg.DataDir)
	}
	if cfg.InputPath() != filepath.Join("/data", DefaultInputFile) {
		t.Fatalf("unexpected input path %q", cfg.InputPath())
	}
	if cfg.EnrichedPath() != filepath.Join("/data", DefaultEnrichedFile) || cfg.ReportPath() != filepath.Join("/data", DefaultReportFile) {
		t.Fatalf("unexpected paths %q %q", cfg.EnrichedPath(), cfg.ReportPath())
	}
	if strings.Join(cfg.Scoring.MustHaves, ",") != "go,k8s" {
		t.Fatalf("unexpected must-haves %q", cfg.Scoring.MustHaves)
	}
	if cfg.Enrich.Retries != DefaultRetries || cfg.Enrich.TimeoutMinutes != DefaultTimeoutMinutes {
		t.Fatalf("unexpected enrich defaults %+v", cfg.Enrich)
	}
	if cfg.Enrich.HaltOnExhausted == nil || !*cfg.Enrich.HaltOnExhausted {
		t.Fatalf("halt on exhausted should default to true")
	}
	if cfg.Ollama.Temperature == nil || *cfg.Ollama.Temperature != DefaultTemperature {
		t.Fatalf("unexpected temperature default")
	}
	if cfg.Report.PageSize != 10 {
		t.Fatalf("unexpected page size %d", cfg.Report.PageSize)
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	halt := false
	zero := 0.0
	cfg := &Config{
		Files:  FilesConfig{Report: "/abs/out.html"},
		Ollama: OllamaConfig{Temperature: &zero},
		Enrich: EnrichConfig{HaltOnExhausted: &halt, Retries: 5},
	}
	cfg.ApplyDefaults()

	if *cfg.Enrich.HaltOnExhausted {
		t.Fatalf("explicit halt=false must survive defaults")
	}
	if *cfg.Ollama.Temperature != 0 {
		t.Fatalf("explicit zero temperature must survive defaults")
	}
	if cfg.Enrich.Retries != 5 {
		t.Fatalf("unexpected retries %d", cfg.Enrich.Retries)
	}
	if cfg.ReportPath() != "/abs/out.html" {
		t.Fatalf("absolute paths must not be joined, got %q", cfg.ReportPath())
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	problems := problemsOf(t, cfg.Validate())
	if len(problems) != 1 || !strings.Contains(problems[0], "DATA_DIR") {
		t.Fatalf("unexpected problems %q", problems)
	}

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.DataDir = file
	problems = problemsOf(t, cfg.Validate())
	if !strings.Contains(problems[0], "not a directory") {
		t.Fatalf("unexpected problems %q", problems)
	}

	if err := validConfig(t).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateDisabledFilters(t *testing.T) {
	cfg := validConfig(t)
	cfg.Filters.Disable = []string{"duplicate_url"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.Filters.Disable = []string{"duplicate_urls"}
	problems := problemsOf(t, cfg.Validate())
	if len(problems) != 1 || !strings.Contains(problems[0], `unknown filter "duplicate_urls"`) {
		t.Fatalf("unexpected problems %q", problems)
	}
}

func TestValidateEnrich(t *testing.T) {
	if err := validConfig(t).ValidateEnrich(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   []string
	}{
		{
			name:   "no backend",
			mutate: func(c *Config) { c.Ollama.BaseURL = "" },
			want:   []string{"no backend configured"},
		},
		{
			name:   "hosted without key and workspace",
			mutate: func(c *Config) { c.AnythingLLM.BaseURL = "http://gw" },
			want:   []string{"ANYTHINGLLM_API_KEY", "ANYTHINGLLM_WORKSPACE"},
		},
		{
			name:   "no resume",
			mutate: func(c *Config) { c.Candidate.Resume = " " },
			want:   []string{"RESUME_PATH"},
		},
		{
			name: "bad numbers",
			mutate: func(c *Config) {
				c.Enrich.Retries = -1
				c.Enrich.RequestsPerSecond = -2
				hot := 3.0
				c.Ollama.Temperature = &hot
			},
			want: []string{"enrich.retries", "requests-per-second", "ollama.temperature"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			problems := problemsOf(t, cfg.ValidateEnrich())
			if len(problems) != len(tt.want) {
				t.Fatalf("expected %d problems, got %q", len(tt.want), problems)
			}
			for i, want := range tt.want {
				if !strings.Contains(problems[i], want) {
					t.Fatalf("problem %d: expected %q in %q", i, want, problems[i])
				}
			}
		})
	}
}

func TestValidateEnrichHostedOnly(t *testing.T) {
	cfg := validConfig(t)
	cfg.Ollama.BaseURL = ""
	cfg.AnythingLLM = AnythingLLMConfig{BaseURL: "http://gw", APIKey: "k", Workspace: "jobs"}

	if err := cfg.ValidateEnrich(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResolveSecrets(t *testing.T) {
	cfg := validConfig(t)
	cfg.AnythingLLM.APIKey = " inline "
	if err := cfg.ResolveSecrets(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AnythingLLM.APIKey != "inline" {
		t.Fatalf("unexpected key %q", cfg.AnythingLLM.APIKey)
	}

	keyFile := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(keyFile, []byte("from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.AnythingLLM.APIKeyFile = keyFile
	if err := cfg.ResolveSecrets(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AnythingLLM.APIKey != "from-file" {
		t.Fatalf("unexpected key %q", cfg.AnythingLLM.APIKey)
	}

	cfg.AnythingLLM.APIKeyFile = filepath.Join(t.TempDir(), "missing")
	problemsOf(t, cfg.ResolveSecrets())
}
