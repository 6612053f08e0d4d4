package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/spigell/jobfit/internal/config"
	"go.uber.org/zap"
)

// Collector produces the input table for enrichment.
type Collector interface {
	Collect(ctx context.Context) error
}

// CommandCollector runs the external scraping command through the shell. The
// search settings reach it as environment variables and its output is streamed
// into the log line by line.
type CommandCollector struct {
	Command    string
	Env        []string
	OutputPath string
	logger     *zap.Logger
}

func NewCommandCollector(cfg *config.Config, logger *zap.Logger) *CommandCollector {
	return &CommandCollector{
		Command:    cfg.Collector.Command,
		Env:        CollectorEnv(cfg),
		OutputPath: cfg.InputPath(),
		logger:     logger.With(zap.String("component", "collector")),
	}
}

// CollectorEnv returns the variables exported to the collector command. Unset
// settings are left out so that the collector falls back to its own defaults.
func CollectorEnv(cfg *config.Config) []string {
	c := cfg.Collector

	var env []string
	add := func(name, value string) {
		if value = strings.TrimSpace(value); value != "" {
			env = append(env, name+"="+value)
		}
	}

	add("DATA_DIR", cfg.DataDir)
	add("SITE_NAME", strings.Join(c.Sites, ","))
	add("SEARCH_TERMS", strings.Join(c.SearchTerms, ","))
	add("GOOGLE_SEARCH_TERM", c.GoogleSearchTerm)
	add("LOCATION", c.Location)
	add("COUNTRY_INDEED", c.CountryIndeed)
	if c.ResultsWanted > 0 {
		add("RESULTS_WANTED", strconv.Itoa(c.ResultsWanted))
	}
	if c.HoursOld > 0 {
		add("HOURS_OLD", strconv.Itoa(c.HoursOld))
	}
	if c.LinkedInFetchDescription != nil {
		add("LINKEDIN_FETCH_DESCRIPTION", strconv.FormatBool(*c.LinkedInFetchDescription))
	}

	return env
}

// Collect runs the command unless the collected table already exists.
func (c *CommandCollector) Collect(ctx context.Context) error {
	if _, err := os.Stat(c.OutputPath); err == nil {
		c.logger.Info("collected table already exists, skipping collector", zap.String("path", c.OutputPath))
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", c.OutputPath, err)
	}

	if strings.TrimSpace(c.Command) == "" {
		return errors.New("collector command is not configured")
	}

	c.logger.Info("starting collector", zap.String("command", c.Command))

	cmd := exec.CommandContext(ctx, "sh", "-c", c.Command)
	cmd.Env = append(os.Environ(), c.Env...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("collector stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("collector stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start collector: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go c.stream(&wg, stdout, "stdout")
	go c.stream(&wg, stderr, "stderr")
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("collector %q: %w", c.Command, err)
	}

	if _, err := os.Stat(c.OutputPath); err != nil {
		return fmt.Errorf("collector finished without producing %s: %w", c.OutputPath, err)
	}

	c.logger.Info("collector finished", zap.String("path", c.OutputPath))
	return nil
}

func (c *CommandCollector) stream(wg *sync.WaitGroup, r io.Reader, name string) {
	defer wg.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		c.logger.Info(line, zap.String("stream", name))
	}
	if err := scanner.Err(); err != nil {
		c.logger.Warn("reading collector output", zap.String("stream", name), zap.Error(err))
		_, _ = io.Copy(io.Discard, r)
	}
}
