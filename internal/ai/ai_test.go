package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeBackend struct {
	kind     Kind
	probeErr error
	probes   int
	chats    int
}

func (f *fakeBackend) Kind() Kind    { return f.kind }
func (f *fakeBackend) Model() string { return "fake" }

func (f *fakeBackend) Probe(context.Context) error {
	f.probes++
	return f.probeErr
}

func (f *fakeBackend) Chat(context.Context, Prompt) (Envelope, error) {
	f.chats++
	return nil, errors.New("not used")
}

func TestProbeAll(t *testing.T) {
	down := fmt.Errorf("probe: %w", ErrUnavailable)

	tests := []struct {
		name      string
		local     *fakeBackend
		hosted    *fakeBackend
		wantKind  Kind
		wantAvail Availability
	}{
		{
			name:      "local preferred when both available",
			local:     &fakeBackend{kind: KindLocal},
			hosted:    &fakeBackend{kind: KindHosted},
			wantKind:  KindLocal,
			wantAvail: Availability{Local: true, Hosted: true},
		},
		{
			name:      "hosted when local down",
			local:     &fakeBackend{kind: KindLocal, probeErr: down},
			hosted:    &fakeBackend{kind: KindHosted},
			wantKind:  KindHosted,
			wantAvail: Availability{Hosted: true},
		},
		{
			name:      "none when both down",
			local:     &fakeBackend{kind: KindLocal, probeErr: down},
			hosted:    &fakeBackend{kind: KindHosted, probeErr: down},
			wantKind:  KindNone,
			wantAvail: Availability{},
		},
		{
			name:      "hosted only configured",
			hosted:    &fakeBackend{kind: KindHosted},
			wantKind:  KindHosted,
			wantAvail: Availability{Hosted: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var local, hosted Backend
			if tt.local != nil {
				local = tt.local
			}
			if tt.hosted != nil {
				hosted = tt.hosted
			}

			kind, avail := ProbeAll(context.Background(), local, hosted, zap.NewNop())
			if kind != tt.wantKind {
				t.Fatalf("expected %s, got %s", tt.wantKind, kind)
			}
			if avail != tt.wantAvail {
				t.Fatalf("expected availability %+v, got %+v", tt.wantAvail, avail)
			}
			if tt.local != nil && tt.local.chats != 0 {
				t.Fatalf("probing must not chat with local backend")
			}
			if tt.hosted != nil && tt.hosted.chats != 0 {
				t.Fatalf("probing must not chat with hosted backend")
			}
		})
	}
}

func TestProbeAllLogsUnavailable(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	local := &fakeBackend{kind: KindLocal, probeErr: ErrUnavailable}

	ProbeAll(context.Background(), local, nil, zap.New(core))

	if observed.FilterMessage("local inference backend is not available").Len() != 1 {
		t.Fatalf("expected warning about local backend, got %v", observed.All())
	}
}

func TestTransportErrorRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  *TransportError
		want bool
	}{
		{name: "network", err: &TransportError{Err: errors.New("connection refused")}, want: true},
		{name: "timeout", err: &TransportError{Err: context.DeadlineExceeded}, want: true},
		{name: "canceled", err: &TransportError{Err: context.Canceled}, want: false},
		{name: "server error", err: &TransportError{StatusCode: http.StatusBadGateway}, want: true},
		{name: "rate limited", err: &TransportError{StatusCode: http.StatusTooManyRequests}, want: true},
		{name: "unauthorized", err: &TransportError{StatusCode: http.StatusUnauthorized}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Retryable(); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRetryPolicy(t *testing.T) {
	policy := PolicyFor(KindLocal, 3)
	transport := fmt.Errorf("call: %w", &TransportError{Backend: KindLocal, Err: errors.New("reset")})

	if !policy.ShouldRetry(1, transport) {
		t.Fatalf("expected retry after first attempt")
	}
	if !policy.ShouldRetry(2, transport) {
		t.Fatalf("expected retry after second attempt")
	}
	if policy.ShouldRetry(3, transport) {
		t.Fatalf("expected no retry after last attempt")
	}
	if policy.ShouldRetry(1, &EnvelopeShapeError{Backend: KindLocal, Field: "message"}) {
		t.Fatalf("shape errors must not be retried")
	}
	if policy.ShouldRetry(1, nil) {
		t.Fatalf("nil error must not be retried")
	}
}

func TestPolicyDelays(t *testing.T) {
	local := PolicyFor(KindLocal, 0)
	if local.Attempts != DefaultAttempts {
		t.Fatalf("expected default attempts, got %d", local.Attempts)
	}
	if got := local.Wait(1); got != 2*time.Second {
		t.Fatalf("expected 2s after first local attempt, got %s", got)
	}
	if got := local.Wait(2); got != 4*time.Second {
		t.Fatalf("expected 4s after second local attempt, got %s", got)
	}

	hosted := PolicyFor(KindHosted, 5)
	for attempt := 1; attempt <= 4; attempt++ {
		if got := hosted.Wait(attempt); got != 10*time.Second {
			t.Fatalf("expected fixed 10s, got %s", got)
		}
	}

	if (RetryPolicy{Attempts: 2}).Wait(1) != 0 {
		t.Fatalf("expected zero wait without a delay function")
	}
}

func TestPromptMessages(t *testing.T) {
	p := Prompt{System: " rubric ", Resume: "\nGo developer\n", Job: `{"title":"SRE"}`}

	user := p.UserMessage()
	if !strings.Contains(user, "Go developer") || !strings.Contains(user, `{"title":"SRE"}`) {
		t.Fatalf("unexpected user message: %q", user)
	}

	combined := p.Combined()
	if !strings.HasPrefix(combined, "rubric\n\n") || !strings.HasSuffix(combined, user) {
		t.Fatalf("unexpected combined message: %q", combined)
	}
}

func TestErrorsUnwrap(t *testing.T) {
	inner := &TransportError{Backend: KindHosted, StatusCode: 503, Body: "busy"}
	err := fmt.Errorf("enrich: %w", &ExhaustedError{Backend: KindHosted, Attempts: 3, Err: inner})

	var transport *TransportError
	if !errors.As(err, &transport) || transport.StatusCode != 503 {
		t.Fatalf("expected to unwrap transport error, got %v", err)
	}
	if !strings.Contains(err.Error(), "hosted-gateway: giving up after 3 attempt(s)") {
		t.Fatalf("unexpected message: %s", err)
	}
}
