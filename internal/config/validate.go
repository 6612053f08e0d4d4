package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spigell/jobfit/internal/filtering"
	"github.com/spigell/jobfit/internal/secrets"
)

// ValidationError lists every configuration problem found at once.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

type problems []string

func (p *problems) add(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return &ValidationError{Problems: p}
}

// Validate checks what every command needs.
func (c *Config) Validate() error {
	var p problems
	c.validateCommon(&p)
	return p.err()
}

// ValidateEnrich additionally checks what scoring needs: at least one usable
// backend and a resume.
func (c *Config) ValidateEnrich() error {
	var p problems
	c.validateCommon(&p)

	if c.Ollama.BaseURL == "" && !c.AnythingLLM.Configured() {
		p.add("no backend configured: set ollama.base-url (OLLAMA_BASE_URL) or anythingllm.base-url (ANYTHINGLLM_BASE_URL)")
	}

	if c.AnythingLLM.Configured() {
		if strings.TrimSpace(c.AnythingLLM.APIKey) == "" {
			p.add("anythingllm.api-key (ANYTHINGLLM_API_KEY or ANYTHINGLLM_API_KEY_FILE) is required with anythingllm.base-url")
		}
		if c.AnythingLLM.Workspace == "" {
			p.add("anythingllm.workspace (ANYTHINGLLM_WORKSPACE) is required with anythingllm.base-url")
		}
	}

	if strings.TrimSpace(c.Candidate.Resume) == "" {
		p.add("candidate.resume (RESUME_PATH) is required")
	}
	if c.Enrich.Retries < 1 {
		p.add("enrich.retries must be at least 1, got %d", c.Enrich.Retries)
	}
	if c.Enrich.TimeoutMinutes < 1 {
		p.add("enrich.timeout-minutes must be at least 1, got %d", c.Enrich.TimeoutMinutes)
	}
	if c.Enrich.RequestsPerSecond < 0 {
		p.add("enrich.requests-per-second must not be negative")
	}
	if c.Ollama.Temperature != nil && (*c.Ollama.Temperature < 0 || *c.Ollama.Temperature > 2) {
		p.add("ollama.temperature must be within [0,2], got %g", *c.Ollama.Temperature)
	}
	if c.Ollama.NumCtx < 0 {
		p.add("ollama.num-ctx must not be negative")
	}

	return p.err()
}

func (c *Config) validateCommon(p *problems) {
	if c.DataDir == "" {
		p.add("data-dir (DATA_DIR) is required")
	} else if info, err := os.Stat(c.DataDir); err == nil && !info.IsDir() {
		p.add("data-dir %q is not a directory", c.DataDir)
	}
	if c.Report.PageSize < 1 {
		p.add("report.page-size must be at least 1, got %d", c.Report.PageSize)
	}

	known := filtering.Names()
	for _, name := range c.Filters.Disable {
		if !slices.Contains(known, name) {
			p.add("filters.disable: unknown filter %q, known filters are %s", name, strings.Join(known, ", "))
		}
	}
}

// ResolveSecrets loads the hosted API key from its file when one is configured.
// The file wins over an inline key.
func (c *Config) ResolveSecrets() error {
	if strings.TrimSpace(c.AnythingLLM.APIKeyFile) == "" {
		c.AnythingLLM.APIKey = strings.TrimSpace(c.AnythingLLM.APIKey)
		return nil
	}

	key, err := secrets.Load(secrets.Source{
		Name:  "anythingllm api key",
		Value: c.AnythingLLM.APIKey,
		File:  c.AnythingLLM.APIKeyFile,
		Hint:  "check ANYTHINGLLM_API_KEY_FILE",
	})
	if err != nil {
		return &ValidationError{Problems: []string{err.Error()}}
	}

	c.AnythingLLM.APIKey = key
	return nil
}
