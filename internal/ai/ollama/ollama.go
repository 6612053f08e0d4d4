package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spigell/jobfit/internal/ai"
	"github.com/spigell/jobfit/internal/logger"
	"github.com/spigell/jobfit/internal/utils"
	"go.uber.org/zap"
)

const (
	contentType  = "application/json"
	probeTimeout = 5 * time.Second
	maxLogLength = 200
)

type Config struct {
	BaseURL     string
	Model       string
	KeepAlive   string
	Temperature float64
	NumCtx      int
}

// Client talks to a local Ollama server.
type Client struct {
	cfg        Config
	logger     *zap.Logger
	HTTPClient *http.Client
}

func New(cfg Config, log *zap.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return &Client{
		cfg:        cfg,
		logger:     logger.WithCommonFields(log, ai.KindLocal.String(), cfg.Model),
		HTTPClient: &http.Client{},
	}
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Options struct {
	Temperature float64 `json:"temperature"`
	NumCtx      int     `json:"num_ctx,omitempty"`
}

type ChatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	Format    string    `json:"format"`
	Stream    bool      `json:"stream"`
	KeepAlive string    `json:"keep_alive,omitempty"`
	Options   Options   `json:"options"`
}

// ChatResponse is the non-streaming /api/chat envelope.
type ChatResponse struct {
	Message *Message `json:"message"`

	raw string
}

func (r *ChatResponse) Text() (string, error) {
	if r.Message == nil || strings.TrimSpace(r.Message.Content) == "" {
		return "", &ai.EnvelopeShapeError{Backend: ai.KindLocal, Field: "message.content", Body: r.raw}
	}
	return r.Message.Content, nil
}

func (c *Client) Kind() ai.Kind { return ai.KindLocal }

func (c *Client) Model() string { return c.cfg.Model }

// Probe lists the installed models. Any 2xx answer within five seconds means available.
func (c *Client) Probe(ctx context.Context) error {
	if c.cfg.BaseURL == "" {
		return fmt.Errorf("ollama base url is not configured: %w", ai.ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return err
	}

	resp, err := c.request(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ai.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: bad status: %s", ai.ErrUnavailable, resp.Status)
	}

	return nil
}

func (c *Client) Chat(ctx context.Context, prompt ai.Prompt) (ai.Envelope, error) {
	payload := ChatRequest{
		Model: c.cfg.Model,
		Messages: []Message{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.UserMessage()},
		},
		Format:    "json",
		Stream:    false,
		KeepAlive: c.cfg.KeepAlive,
		Options:   Options{Temperature: c.cfg.Temperature, NumCtx: c.cfg.NumCtx},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.request(req)
	if err != nil {
		return nil, &ai.TransportError{Backend: ai.KindLocal, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ai.TransportError{Backend: ai.KindLocal, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ai.TransportError{Backend: ai.KindLocal, StatusCode: resp.StatusCode, Body: string(data)}
	}

	c.logger.Debug("ollama chat response",
		zap.Int("response_length", len(data)),
		zap.String("response_preview", utils.TruncateForLog(string(data), maxLogLength)),
	)

	envelope := &ChatResponse{raw: string(data)}
	if err := json.Unmarshal(data, envelope); err != nil {
		return nil, &ai.EnvelopeShapeError{Backend: ai.KindLocal, Field: "message.content", Body: string(data)}
	}

	return envelope, nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("method", req.Method), zap.String("url", req.URL.String()))
	return c.HTTPClient.Do(req)
}
