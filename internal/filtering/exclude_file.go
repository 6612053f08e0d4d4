package filtering

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spigell/jobfit/internal/records"
	"go.uber.org/zap"
)

type excludeFileFilter struct {
	path string
}

// NewExcludeFile creates a filter that removes postings whose URL is listed in a file,
// one URL per line. Blank lines and lines starting with # are ignored.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Disable(string) {}

func (f *excludeFileFilter) IsEnabled() bool { return true }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.ExcludeFile)
	}
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, t *records.Table) (*records.Table, Step, error) {
	initial := t.Len()
	if f.path == "" {
		return t, Step{Initial: initial, Dropped: 0, Left: t.Len()}, nil
	}

	urls, err := readExcludeFile(f.path)
	if err != nil {
		return t, Step{}, fmt.Errorf("getting excluded postings from file: %w", err)
	}

	removed := t.Exclude(func(r *records.Record) bool {
		_, ok := urls[strings.ToLower(strings.TrimSpace(r.First(records.URLColumns...)))]
		return ok
	})

	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Info("excluding postings based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_postings", identifiers(removed)),
			zap.Int("postings_left", t.Len()),
		)
	}

	return t, Step{Initial: initial, Dropped: len(removed), Left: t.Len()}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

func readExcludeFile(path string) (map[string]struct{}, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	urls := make(map[string]struct{})
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls[strings.ToLower(line)] = struct{}{}
	}

	return urls, scanner.Err()
}
