package filtering

import (
	"context"
	"strings"

	"github.com/spigell/jobfit/internal/records"
	"go.uber.org/zap"
)

type duplicateURLFilter struct {
	disabled bool
	reason   string
}

// NewDuplicateURL creates a filter that keeps only the first posting for each URL.
// Postings without a URL are always kept.
func NewDuplicateURL() Filter {
	return &duplicateURLFilter{}
}

func (f *duplicateURLFilter) Name() string { return "duplicate_url" }

func (f *duplicateURLFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *duplicateURLFilter) IsEnabled() bool { return !f.disabled }

func (f *duplicateURLFilter) Validate(*Config) error { return nil }

func (f *duplicateURLFilter) Apply(_ context.Context, deps Deps, t *records.Table) (*records.Table, Step, error) {
	initial := t.Len()
	seen := make(map[string]struct{}, initial)

	removed := t.Exclude(func(r *records.Record) bool {
		key := strings.ToLower(strings.TrimSpace(r.First(records.URLColumns...)))
		if key == "" {
			return false
		}
		if _, ok := seen[key]; ok {
			return true
		}
		seen[key] = struct{}{}
		return false
	})

	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Info("excluding duplicated postings",
			zap.Strings("excluded_postings", identifiers(removed)),
			zap.Int("postings_left", t.Len()),
		)
	}

	return t, Step{Initial: initial, Dropped: len(removed), Left: t.Len()}, nil
}

func (f *duplicateURLFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}
