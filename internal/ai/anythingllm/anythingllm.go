package anythingllm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spigell/jobfit/internal/ai"
	"github.com/spigell/jobfit/internal/logger"
	"github.com/spigell/jobfit/internal/utils"
	"go.uber.org/zap"
)

const (
	contentType  = "application/json"
	maxLogLength = 200
)

// checkTimeout bounds each availability request on its own.
var checkTimeout = 5 * time.Second

type Config struct {
	BaseURL   string
	APIKey    string
	Workspace string
}

// Client talks to an AnythingLLM workspace.
type Client struct {
	cfg        Config
	logger     *zap.Logger
	HTTPClient *http.Client
}

func New(cfg Config, log *zap.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Workspace = strings.TrimSpace(cfg.Workspace)

	return &Client{
		cfg:        cfg,
		logger:     logger.WithCommonFields(log, ai.KindHosted.String(), cfg.Workspace),
		HTTPClient: &http.Client{},
	}
}

type ChatRequest struct {
	Message string `json:"message"`
	Mode    string `json:"mode"`
	Reset   bool   `json:"reset"`
}

// ChatResponse is the workspace chat envelope.
type ChatResponse struct {
	TextResponse *string `json:"textResponse"`
	Error        *string `json:"error"`

	raw string
}

func (r *ChatResponse) Text() (string, error) {
	if r.TextResponse == nil || strings.TrimSpace(*r.TextResponse) == "" {
		return "", &ai.EnvelopeShapeError{Backend: ai.KindHosted, Field: "textResponse", Body: r.raw}
	}
	return *r.TextResponse, nil
}

func (c *Client) Kind() ai.Kind { return ai.KindHosted }

// Model is the workspace slug. The model itself is chosen inside the workspace.
func (c *Client) Model() string { return c.cfg.Workspace }

// Probe checks the health endpoint and falls back to reading the workspace.
func (c *Client) Probe(ctx context.Context) error {
	if c.cfg.BaseURL == "" || c.cfg.APIKey == "" || c.cfg.Workspace == "" {
		return fmt.Errorf("anythingllm base url, api key and workspace are required: %w", ai.ErrUnavailable)
	}

	healthErr := c.get(ctx, "/api/health")
	if healthErr == nil {
		return nil
	}
	c.logger.Debug("anythingllm health check failed, trying workspace endpoint", zap.Error(healthErr))

	workspaceErr := c.get(ctx, c.workspacePath())
	if workspaceErr == nil {
		return nil
	}

	return fmt.Errorf("%w: %v", ai.ErrUnavailable, errors.Join(healthErr, workspaceErr))
}

func (c *Client) Chat(ctx context.Context, prompt ai.Prompt) (ai.Envelope, error) {
	body, err := json.Marshal(ChatRequest{Message: prompt.Combined(), Mode: "chat", Reset: false})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+c.workspacePath()+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.request(req)
	if err != nil {
		return nil, &ai.TransportError{Backend: ai.KindHosted, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ai.TransportError{Backend: ai.KindHosted, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ai.TransportError{Backend: ai.KindHosted, StatusCode: resp.StatusCode, Body: string(data)}
	}

	c.logger.Debug("anythingllm chat response",
		zap.Int("response_length", len(data)),
		zap.String("response_preview", utils.TruncateForLog(string(data), maxLogLength)),
	)

	envelope := &ChatResponse{raw: string(data)}
	if err := json.Unmarshal(data, envelope); err != nil {
		return nil, &ai.EnvelopeShapeError{Backend: ai.KindHosted, Field: "textResponse", Body: string(data)}
	}

	return envelope, nil
}

func (c *Client) workspacePath() string {
	return "/api/v1/workspace/" + url.PathEscape(c.cfg.Workspace)
}

func (c *Client) get(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("GET %s: bad status: %s", path, resp.Status)
	}

	return nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.cfg.APIKey))
	req.Header.Set("Accept", contentType)

	c.logger.Debug("make request", zap.String("method", req.Method), zap.String("url", req.URL.String()))
	return c.HTTPClient.Do(req)
}
