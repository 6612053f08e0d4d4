package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spigell/jobfit/internal/ai"
	"github.com/spigell/jobfit/internal/config"
	"github.com/spigell/jobfit/internal/enrich"
	"github.com/spigell/jobfit/internal/filtering"
	"github.com/spigell/jobfit/internal/profile"
	"github.com/spigell/jobfit/internal/records"
	"github.com/spigell/jobfit/internal/report"
	"go.uber.org/zap"
)

// Stages selects which parts of the pipeline a run executes.
type Stages struct {
	Collect bool
	Enrich  bool
	Report  bool
}

// AllStages is the full collect, enrich and report run.
var AllStages = Stages{Collect: true, Enrich: true, Report: true}

// Deps lets callers replace the collaborators built from configuration.
type Deps struct {
	// Backends builds the local and hosted backends after validation.
	// Defaults to NewBackends.
	Backends func(cfg *config.Config, logger *zap.Logger) (local, hosted ai.Backend)
	// Collector defaults to a CommandCollector.
	Collector Collector
	Logger    *zap.Logger
}

// Result describes a run that reached StateDone.
type Result struct {
	Selected     ai.Kind
	Availability ai.Availability
	Enrich       *enrich.Summary
	Report       *report.Summary
}

// Controller sequences validation, backend selection, collection, enrichment and
// reporting. A Controller serves a single run.
type Controller struct {
	cfg     *config.Config
	deps    Deps
	logger  *zap.Logger
	state   State
	history []State

	local  ai.Backend
	hosted ai.Backend
}

func New(cfg *config.Config, deps Deps) *Controller {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Backends == nil {
		deps.Backends = NewBackends
	}

	return &Controller{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger,
	}
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// History returns every state the run has entered, in order.
func (c *Controller) History() []State {
	return append([]State(nil), c.history...)
}

// Run executes the selected stages. Every failure is returned as a *HaltError.
func (c *Controller) Run(ctx context.Context, stages Stages) (*Result, error) {
	result := &Result{}

	c.enter(StateConfigValidating)
	if err := c.validate(stages); err != nil {
		return result, c.halt(ReasonConfiguration, err)
	}

	var primary, fallback ai.Backend
	if stages.Enrich {
		var err error
		primary, fallback, err = c.selectBackend(ctx, result)
		if err != nil {
			return result, err
		}
	}

	if stages.Collect {
		c.enter(StateCollecting)
		collector := c.deps.Collector
		if collector == nil {
			collector = NewCommandCollector(c.cfg, c.logger)
		}
		if err := collector.Collect(ctx); err != nil {
			return result, c.halt(ReasonCollectorFailure, err)
		}
	}

	if stages.Enrich {
		c.enter(StateEnriching)
		summary, err := c.enrich(ctx, primary, fallback)
		result.Enrich = summary
		if summary != nil {
			result.Selected = summary.Backend
		}
		if err != nil {
			var exhausted *enrich.FallbackExhaustedError
			if errors.As(err, &exhausted) {
				return result, c.halt(ReasonFallbackExhausted, err)
			}
			return result, c.halt(ReasonFailure, err)
		}
	}

	if stages.Report {
		c.enter(StateReporting)
		summary, err := c.report()
		result.Report = summary
		if err != nil {
			return result, c.halt(ReasonFailure, err)
		}
	}

	c.enter(StateDone)
	return result, nil
}

// Probe validates the scoring configuration and reports which backend a run
// would use, without collecting or enriching anything.
func (c *Controller) Probe(ctx context.Context) (*Result, error) {
	result := &Result{}

	c.enter(StateConfigValidating)
	if err := c.validate(Stages{Enrich: true}); err != nil {
		return result, c.halt(ReasonConfiguration, err)
	}

	if _, _, err := c.selectBackend(ctx, result); err != nil {
		return result, err
	}

	c.enter(StateDone)
	return result, nil
}

// selectBackend probes both backends once. Local wins; hosted then only serves
// as its fallback.
func (c *Controller) selectBackend(ctx context.Context, result *Result) (primary, fallback ai.Backend, err error) {
	c.enter(StateProbing)
	kind, avail := ai.ProbeAll(ctx, c.local, c.hosted, c.logger)
	result.Selected = kind
	result.Availability = avail

	switch kind {
	case ai.KindLocal:
		c.enter(StateUsingLocal)
		if avail.Hosted {
			return c.local, c.hosted, nil
		}
		return c.local, nil, nil
	case ai.KindHosted:
		c.enter(StateUsingHosted)
		return c.hosted, nil, nil
	default:
		return nil, nil, c.halt(ReasonProbeUnavailable, ErrNoBackend)
	}
}

func (c *Controller) validate(stages Stages) error {
	if !stages.Enrich {
		return c.cfg.Validate()
	}

	if err := c.cfg.ResolveSecrets(); err != nil {
		return err
	}
	if err := c.cfg.ValidateEnrich(); err != nil {
		return err
	}

	c.local, c.hosted = c.deps.Backends(c.cfg, c.logger)
	return nil
}

func (c *Controller) enrich(ctx context.Context, primary, fallback ai.Backend) (*enrich.Summary, error) {
	cfg := c.cfg

	prof, err := profile.Load(profile.Options{
		Name:         cfg.Candidate.Name,
		ResumePath:   cfg.Candidate.Resume,
		DataDir:      cfg.DataDir,
		ChunkSize:    cfg.Candidate.ChunkSize,
		ChunkOverlap: cfg.Candidate.ChunkOverlap,
	}, c.logger)
	if err != nil {
		return nil, fmt.Errorf("load candidate profile: %w", err)
	}
	c.logger.Info("candidate profile loaded",
		zap.Int("chunks", len(prof.Chunks)),
		zap.Int("approx_tokens", prof.ApproxTokens()),
		zap.Bool("reused", prof.Reused),
	)
	if tokens := prof.ApproxTokens(); cfg.Ollama.NumCtx > 0 && tokens > cfg.Ollama.NumCtx {
		c.logger.Warn("resume alone may exceed the local model context window",
			zap.Int("approx_tokens", tokens),
			zap.Int("num_ctx", cfg.Ollama.NumCtx),
		)
	}

	table, err := records.Read(cfg.InputPath())
	if err != nil {
		return nil, fmt.Errorf("read collected table: %w", err)
	}

	steps := filtering.Default()
	for _, name := range cfg.Filters.Disable {
		filtering.DisableByName(steps, name, "disabled by configuration")
	}

	table, err = filtering.Run(ctx, &filtering.Config{
		ExcludeCompanies: cfg.Filters.ExcludeCompanies,
		ExcludeFile:      cfg.Filters.ExcludeFile,
	}, filtering.Deps{Logger: c.logger}, steps, table)
	if err != nil {
		return nil, fmt.Errorf("filter postings: %w", err)
	}

	system := enrich.SystemPrompt(enrich.Scoring{
		CandidateName:      cfg.Candidate.Name,
		MustHaves:          cfg.Scoring.MustHaves,
		NiceToHaves:        cfg.Scoring.NiceToHaves,
		Exclusions:         cfg.Scoring.Exclusions,
		Locale:             cfg.Scoring.Locale,
		LanguagePreference: cfg.Scoring.LanguagePreference,
		SeniorityTarget:    cfg.Scoring.SeniorityTarget,
	})

	halt := true
	if cfg.Enrich.HaltOnExhausted != nil {
		halt = *cfg.Enrich.HaltOnExhausted
	}

	orchestrator := enrich.New(enrich.Options{
		OutputPath:        cfg.EnrichedPath(),
		Attempts:          cfg.Enrich.Retries,
		Timeout:           time.Duration(cfg.Enrich.TimeoutMinutes) * time.Minute,
		RequestsPerSecond: cfg.Enrich.RequestsPerSecond,
		HaltOnExhausted:   halt,
		MaxLogLength:      cfg.Enrich.MaxLogLength,
	}, system, prof.Text, primary, fallback, c.logger)

	orchestrator.SetHooks(enrich.Hooks{
		Fallback: func(from, to ai.Kind) {
			c.logger.Warn("switching scoring backend", zap.Stringer("from", from), zap.Stringer("to", to))
			c.enter(StateUsingHosted)
			c.enter(StateEnriching)
		},
	})

	return orchestrator.Run(ctx, table)
}

func (c *Controller) report() (*report.Summary, error) {
	cfg := c.cfg

	table, err := records.Read(cfg.EnrichedPath())
	if err != nil {
		return nil, fmt.Errorf("read enriched table: %w", err)
	}

	return report.Generate(table, report.Options{
		OutputPath:  cfg.ReportPath(),
		PageSize:    cfg.Report.PageSize,
		DefaultLogo: cfg.Report.DefaultLogo,
		BaseDir:     cfg.DataDir,
		Candidate:   cfg.Candidate.Name,
		Columns:     cfg.Report.Columns,
	}, c.logger)
}

func (c *Controller) enter(s State) {
	c.logger.Debug("pipeline state", zap.Stringer("from", c.state), zap.Stringer("to", s))
	c.state = s
	c.history = append(c.history, s)
}

func (c *Controller) halt(reason Reason, err error) error {
	c.enter(StateHalted)
	c.logger.Error("pipeline halted", zap.String("reason", string(reason)), zap.Error(err))
	return &HaltError{Reason: reason, Err: err}
}
