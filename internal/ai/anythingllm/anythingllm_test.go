package anythingllm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spigell/jobfit/internal/ai"
	"go.uber.org/zap"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, req.Method+" "+req.URL.Path+" "+req.Header.Get("Authorization"))
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name            string
		healthStatus    int
		workspaceStatus int
		wantErr         bool
		wantCalls       []string
	}{
		{
			name:         "health ok",
			healthStatus: http.StatusOK,
			wantCalls:    []string{"GET /api/health Bearer secret"},
		},
		{
			name:            "health fails, workspace ok",
			healthStatus:    http.StatusNotFound,
			workspaceStatus: http.StatusOK,
			wantCalls:       []string{"GET /api/health Bearer secret", "GET /api/v1/workspace/jobs Bearer secret"},
		},
		{
			name:            "both fail",
			healthStatus:    http.StatusInternalServerError,
			workspaceStatus: http.StatusForbidden,
			wantErr:         true,
			wantCalls:       []string{"GET /api/health Bearer secret", "GET /api/v1/workspace/jobs Bearer secret"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				rec.add(r)
				if r.URL.Path == "/api/health" {
					w.WriteHeader(tt.healthStatus)
					return
				}
				w.WriteHeader(tt.workspaceStatus)
			}))
			defer srv.Close()

			client := New(Config{BaseURL: srv.URL, APIKey: " secret ", Workspace: "jobs"}, zap.NewNop())
			err := client.Probe(context.Background())

			if tt.wantErr {
				if !errors.Is(err, ai.ErrUnavailable) {
					t.Fatalf("expected ErrUnavailable, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if strings.Join(rec.calls, "|") != strings.Join(tt.wantCalls, "|") {
				t.Fatalf("unexpected calls %v, want %v", rec.calls, tt.wantCalls)
			}
		})
	}
}

func TestWorkspaceCheckAfterHangingHealth(t *testing.T) {
	original := checkTimeout
	checkTimeout = 200 * time.Millisecond
	defer func() { checkTimeout = original }()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/health" {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, APIKey: "secret", Workspace: "jobs"}, zap.NewNop())
	if err := client.Probe(context.Background()); err != nil {
		t.Fatalf("workspace endpoint must get its own timeout, got %v", err)
	}
}

func TestProbeRequiresCredentials(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	for _, cfg := range []Config{
		{BaseURL: srv.URL, Workspace: "jobs"},
		{BaseURL: srv.URL, APIKey: "secret"},
		{APIKey: "secret", Workspace: "jobs"},
	} {
		if err := New(cfg, zap.NewNop()).Probe(context.Background()); !errors.Is(err, ai.ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable for %+v, got %v", cfg, err)
		}
	}

	if called {
		t.Fatalf("probe must not call the server without credentials")
	}
}

func TestChat(t *testing.T) {
	var got ChatRequest
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, path = r.Header.Get("Authorization"), r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":"1","type":"textResponse","textResponse":"{\"score\":55}","sources":[]}`))
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, APIKey: "secret", Workspace: "jobs"}, zap.NewNop())
	envelope, err := client.Chat(context.Background(), ai.Prompt{System: "rubric", Resume: "cv", Job: `{"title":"SRE"}`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text, err := envelope.Text()
	if err != nil || text != `{"score":55}` {
		t.Fatalf("unexpected text %q (%v)", text, err)
	}

	if path != "/api/v1/workspace/jobs/chat" || auth != "Bearer secret" {
		t.Fatalf("unexpected request path %q auth %q", path, auth)
	}
	if got.Mode != "chat" || got.Reset {
		t.Fatalf("unexpected request body: %+v", got)
	}
	if !strings.HasPrefix(got.Message, "rubric") || !strings.Contains(got.Message, `{"title":"SRE"}`) {
		t.Fatalf("message must embed instruction and job: %q", got.Message)
	}
}

func TestChatErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantShape  bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"invalid key"}`, wantStatus: 401},
		{name: "null text", status: http.StatusOK, body: `{"textResponse":null,"error":"no llm"}`, wantShape: true},
		{name: "missing text", status: http.StatusOK, body: `{"type":"abort"}`, wantShape: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := New(Config{BaseURL: srv.URL, APIKey: "k", Workspace: "w"}, zap.NewNop())
			envelope, err := client.Chat(context.Background(), ai.Prompt{})
			if err == nil {
				_, err = envelope.Text()
			}

			if tt.wantShape {
				var shape *ai.EnvelopeShapeError
				if !errors.As(err, &shape) {
					t.Fatalf("expected shape error, got %v", err)
				}
				return
			}

			var transport *ai.TransportError
			if !errors.As(err, &transport) || transport.StatusCode != tt.wantStatus || transport.Retryable() {
				t.Fatalf("expected non-retryable transport error %d, got %v", tt.wantStatus, err)
			}
		})
	}
}
