package pipeline

import (
	"github.com/spigell/jobfit/internal/ai"
	"github.com/spigell/jobfit/internal/ai/anythingllm"
	"github.com/spigell/jobfit/internal/ai/ollama"
	"github.com/spigell/jobfit/internal/config"
	"go.uber.org/zap"
)

// NewBackends builds the configured backends. An unconfigured backend is nil.
func NewBackends(cfg *config.Config, logger *zap.Logger) (local, hosted ai.Backend) {
	if cfg.Ollama.BaseURL != "" {
		var temperature float64
		if cfg.Ollama.Temperature != nil {
			temperature = *cfg.Ollama.Temperature
		}
		local = ollama.New(ollama.Config{
			BaseURL:     cfg.Ollama.BaseURL,
			Model:       cfg.Ollama.Model,
			KeepAlive:   cfg.Ollama.KeepAlive,
			Temperature: temperature,
			NumCtx:      cfg.Ollama.NumCtx,
		}, logger)
	}

	if cfg.AnythingLLM.Configured() {
		hosted = anythingllm.New(anythingllm.Config{
			BaseURL:   cfg.AnythingLLM.BaseURL,
			APIKey:    cfg.AnythingLLM.APIKey,
			Workspace: cfg.AnythingLLM.Workspace,
		}, logger)
	}

	return local, hosted
}
