package filtering

import (
	"context"
	"strings"

	"github.com/spigell/jobfit/internal/records"
	"go.uber.org/zap"
)

type excludedCompaniesFilter struct {
	companies map[string]struct{}
	names     []string
}

// NewExcludedCompanies creates a filter that removes postings of configured companies.
func NewExcludedCompanies() Filter {
	return &excludedCompaniesFilter{}
}

func (f *excludedCompaniesFilter) Name() string { return "excluded_companies" }

func (f *excludedCompaniesFilter) Disable(string) {}

func (f *excludedCompaniesFilter) IsEnabled() bool { return true }

func (f *excludedCompaniesFilter) Validate(cfg *Config) error {
	f.companies = make(map[string]struct{})
	f.names = nil
	if cfg == nil {
		return nil
	}
	for _, name := range cfg.ExcludeCompanies {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		f.companies[key] = struct{}{}
		f.names = append(f.names, strings.TrimSpace(name))
	}
	return nil
}

func (f *excludedCompaniesFilter) Apply(_ context.Context, deps Deps, t *records.Table) (*records.Table, Step, error) {
	initial := t.Len()
	if len(f.companies) == 0 {
		return t, Step{Initial: initial, Dropped: 0, Left: t.Len()}, nil
	}

	removed := t.Exclude(func(r *records.Record) bool {
		_, ok := f.companies[strings.ToLower(strings.TrimSpace(r.First(records.CompanyColumn)))]
		return ok
	})

	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Info("excluding postings by companies",
			zap.Strings("excluded_companies", f.names),
			zap.Strings("excluded_postings", identifiers(removed)),
			zap.Int("postings_left", t.Len()),
		)
	}

	return t, Step{Initial: initial, Dropped: len(removed), Left: t.Len()}, nil
}

func (f *excludedCompaniesFilter) Status() Status {
	details := map[string]string{}
	if len(f.names) > 0 {
		details["companies"] = strings.Join(f.names, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
