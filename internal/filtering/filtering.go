package filtering

import (
	"context"
	"fmt"

	"github.com/spigell/jobfit/internal/records"
	"go.uber.org/zap"
)

// Filter represents a single filtering step applied to the collected postings.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, t *records.Table) (*records.Table, Step, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger *zap.Logger
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Config contains configuration settings consumed by the filters.
type Config struct {
	ExcludeCompanies []string
	ExcludeFile      string
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

// Default returns the filters every enrichment run applies, in order.
func Default() []Filter {
	return []Filter{
		NewDuplicateURL(),
		NewExcludedCompanies(),
		NewExcludeFile(),
	}
}

// Names lists the filters Default returns.
func Names() []string {
	var names []string
	for _, step := range Default() {
		names = append(names, step.Name())
	}
	return names
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
// It reports whether such a filter exists.
func DisableByName(steps []Filter, name, reason string) bool {
	found := false
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
			found = true
		}
	}
	return found
}

// Run executes the supplied filters sequentially and returns the remaining postings.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, t *records.Table) (*records.Table, error) {
	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			if deps.Logger != nil {
				deps.Logger.Info("filter disabled", zap.String("name", step.Name()))
			}
			continue
		}

		next, info, err := step.Apply(ctx, deps, t)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		if deps.Logger != nil {
			deps.Logger.Info("filter step",
				zap.String("name", step.Name()),
				zap.Int("initial", info.Initial),
				zap.Int("dropped", info.Dropped),
				zap.Int("left", info.Left),
			)
		}

		t = next
	}

	return t, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

func identifiers(removed []*records.Record) []string {
	ids := make([]string, 0, len(removed))
	for _, r := range removed {
		id := r.First(records.URLColumns...)
		if id == "" {
			id = r.First("title")
		}
		ids = append(ids, id)
	}
	return ids
}
