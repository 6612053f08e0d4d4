package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/spigell/jobfit/internal/ai"
	"github.com/spigell/jobfit/internal/records"
	"github.com/spigell/jobfit/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout      = 5 * time.Minute
	defaultMaxLogLength = 200
)

type Options struct {
	OutputPath string
	// Attempts per backend for one record.
	Attempts int
	// Timeout applies to every single attempt.
	Timeout time.Duration
	// RequestsPerSecond paces backend calls. Zero means unlimited.
	RequestsPerSecond float64
	// HaltOnExhausted stops the run when a record exhausts every backend.
	HaltOnExhausted bool
	MaxLogLength    int
}

// Hooks let callers observe the run. Both are optional.
type Hooks struct {
	State    func(index int, state State)
	Fallback func(from, to ai.Kind)
}

// Summary describes a finished (or halted) run.
type Summary struct {
	Total       int
	Enriched    int
	ParseFailed int
	Failed      int
	Skipped     int
	Backend     ai.Kind
	FellBack    bool
	Backup      string
}

// Orchestrator scores records one at a time against the selected backend and
// rewrites the output table after every record.
type Orchestrator struct {
	opts     Options
	system   string
	resume   string
	primary  ai.Backend
	fallback ai.Backend
	active   ai.Backend
	limiter  *rate.Limiter
	logger   *zap.Logger
	hooks    Hooks
	policy   func(kind ai.Kind, attempts int) ai.RetryPolicy
	wait     func(ctx context.Context, d time.Duration) error
}

// New creates an orchestrator. fallback may be nil when no second backend is available.
func New(opts Options, system, resume string, primary, fallback ai.Backend, logger *zap.Logger) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Attempts <= 0 {
		opts.Attempts = ai.DefaultAttempts
	}
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = defaultMaxLogLength
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Orchestrator{
		opts:     opts,
		system:   system,
		resume:   resume,
		primary:  primary,
		fallback: fallback,
		active:   primary,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
		policy:   ai.PolicyFor,
		wait:     utils.WaitFor,
	}
}

func (o *Orchestrator) SetHooks(h Hooks) { o.hooks = h }

// Run enriches every record with a description. Records without one are
// copied to the output unchanged and never sent to a backend. The existing
// output is moved to a timestamped backup first. The run stops early only on a
// fatal error: a cancelled context, a write failure or, when HaltOnExhausted
// is set, a *FallbackExhaustedError. Records persisted before that stay on disk.
func (o *Orchestrator) Run(ctx context.Context, table *records.Table) (*Summary, error) {
	if o.primary == nil {
		return nil, errors.New("no backend selected")
	}

	lock, err := records.AcquireLock(o.opts.OutputPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			o.logger.Warn("release output lock", zap.Error(err))
		}
	}()

	summary := &Summary{Total: table.Len(), Backend: o.active.Kind()}

	backup, err := records.RenameToBackup(o.opts.OutputPath)
	if err != nil {
		return summary, err
	}
	if backup != "" {
		summary.Backup = backup
		o.logger.Info("previous output moved to backup", zap.String("backup", backup))
	}

	out := &records.Table{Records: make([]*records.Record, 0, table.Len())}
	for i, rec := range table.Records {
		if rec.First(records.DescriptionColumn) == "" {
			summary.Skipped++
			o.logger.Debug("passing through record without description", zap.Int("record", i+1))
			out.Append(rec.Clone())
			if err := records.Write(o.opts.OutputPath, out); err != nil {
				return summary, fmt.Errorf("persist record %d: %w", i+1, err)
			}
			continue
		}

		o.transition(i, StatePending)
		merged, recErr := o.enrichRecord(ctx, i, table.Len(), rec, summary)
		if merged == nil {
			return summary, recErr
		}

		out.Append(merged)
		if err := records.Write(o.opts.OutputPath, out); err != nil {
			return summary, fmt.Errorf("persist record %d: %w", i+1, err)
		}
		o.transition(i, StatePersisted)

		if recErr != nil {
			summary.Failed++
			if o.opts.HaltOnExhausted {
				return summary, recErr
			}
			o.logger.Error("record left unscored", zap.Int("record", i+1), zap.Error(recErr))
		}
	}

	if out.Len() == 0 {
		if err := records.Write(o.opts.OutputPath, out); err != nil {
			return summary, fmt.Errorf("persist empty output: %w", err)
		}
	}

	summary.Backend = o.active.Kind()
	o.logger.Info("enrichment finished",
		zap.Int("total", summary.Total),
		zap.Int("enriched", summary.Enriched),
		zap.Int("parse_failed", summary.ParseFailed),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Stringer("backend", summary.Backend),
	)

	return summary, nil
}

// enrichRecord returns the merged copy of rec. A nil record means the run must
// stop. A non-nil record with a *FallbackExhaustedError is persisted first.
func (o *Orchestrator) enrichRecord(ctx context.Context, i, total int, rec *records.Record, summary *Summary) (*records.Record, error) {
	merged := rec.Clone()

	job, err := JobPayload(rec)
	if err != nil {
		return nil, err
	}
	prompt := ai.Prompt{System: o.system, Resume: o.resume, Job: job}

	o.logger.Info("enriching record",
		zap.Int("record", i+1),
		zap.Int("total", total),
		zap.String("title", rec.First(records.TitleColumn)),
		zap.Stringer("backend", o.active.Kind()),
	)
	o.logger.Debug("scoring request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt.System)+utf8.RuneCountInString(prompt.UserMessage())),
		zap.String("job_preview", utils.TruncateForLog(job, o.opts.MaxLogLength)),
	)

	o.transition(i, StateCalling)
	text, err := o.call(ctx, o.active, prompt)

	var exhausted *ai.ExhaustedError
	if errors.As(err, &exhausted) && o.canFallback() {
		from, to := o.active.Kind(), o.fallback.Kind()
		o.logger.Warn("switching to fallback backend for the rest of the run",
			zap.Stringer("from", from),
			zap.Stringer("to", to),
			zap.Error(err),
		)
		o.active = o.fallback
		summary.FellBack = true
		summary.Backend = to
		if o.hooks.Fallback != nil {
			o.hooks.Fallback(from, to)
		}
		text, err = o.call(ctx, o.active, prompt)
	}

	if err != nil {
		var shape *ai.EnvelopeShapeError
		switch {
		case errors.As(err, &exhausted):
			merged.Set(records.RawResponseColumn, "error: "+err.Error())
			return merged, &FallbackExhaustedError{Backend: o.active.Kind(), Record: i + 1, Err: err}
		case errors.As(err, &shape):
			o.logger.Warn("unexpected response envelope", zap.Int("record", i+1), zap.Error(err))
			merged.Set(records.RawResponseColumn, "error: "+err.Error())
			o.transition(i, StateParseFailed)
			summary.ParseFailed++
			return merged, nil
		default:
			return nil, err
		}
	}

	o.logger.Debug("scoring response",
		zap.Int("response_length", utf8.RuneCountInString(text)),
		zap.String("response_preview", utils.TruncateForLog(text, o.opts.MaxLogLength)),
	)

	data, err := ParseResponse(text)
	if err != nil {
		o.logger.Warn("scoring response is not valid JSON", zap.Int("record", i+1), zap.Error(err))
		merged.Set(records.RawResponseColumn, text)
		o.transition(i, StateParseFailed)
		summary.ParseFailed++
		return merged, nil
	}
	o.transition(i, StateParsed)

	Merge(merged, data)
	merged.Set(records.RawResponseColumn, text)
	o.transition(i, StateMerged)
	summary.Enriched++

	o.logger.Info("record enriched", zap.Int("record", i+1), zap.String("score", merged.Get(ScoreColumn)))

	return merged, nil
}

// call runs the retry loop for one backend. Transport failures the policy gives up
// on come back as *ai.ExhaustedError.
func (o *Orchestrator) call(ctx context.Context, backend ai.Backend, prompt ai.Prompt) (string, error) {
	policy := o.policy(backend.Kind(), o.opts.Attempts)

	for attempt := 1; ; attempt++ {
		if err := o.limiter.Wait(ctx); err != nil {
			return "", err
		}

		callCtx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
		envelope, err := backend.Chat(callCtx, prompt)
		cancel()

		if err == nil {
			return envelope.Text()
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		if !policy.ShouldRetry(attempt, err) {
			var transport *ai.TransportError
			if errors.As(err, &transport) {
				return "", &ai.ExhaustedError{Backend: backend.Kind(), Attempts: attempt, Err: err}
			}
			return "", err
		}

		delay := policy.Wait(attempt)
		o.logger.Warn("backend call failed, retrying",
			zap.Stringer("backend", backend.Kind()),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", policy.Attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := o.wait(ctx, delay); err != nil {
			return "", err
		}
	}
}

func (o *Orchestrator) canFallback() bool {
	return o.fallback != nil && o.active == o.primary && o.primary.Kind() == ai.KindLocal
}

func (o *Orchestrator) transition(i int, s State) {
	o.logger.Debug("record state", zap.Int("record", i+1), zap.Stringer("state", s))
	if o.hooks.State != nil {
		o.hooks.State(i, s)
	}
}
