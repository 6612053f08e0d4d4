package ai

import (
	"context"
	"fmt"
	"strings"
)

// Kind identifies one of the two scoring services. KindNone means no backend is selected.
type Kind int

const (
	KindNone Kind = iota
	KindLocal
	KindHosted
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local-inference"
	case KindHosted:
		return "hosted-gateway"
	default:
		return "none"
	}
}

// Prompt is everything a backend needs to score one job.
type Prompt struct {
	System string
	Resume string
	Job    string
}

// UserMessage renders the resume and the job payload as a single user turn.
func (p Prompt) UserMessage() string {
	return fmt.Sprintf("Candidate resume:\n%s\n\nJob (JSON):\n%s", strings.TrimSpace(p.Resume), p.Job)
}

// Combined folds the system instruction into the user message for backends
// that accept a single message only.
func (p Prompt) Combined() string {
	return strings.TrimSpace(p.System) + "\n\n" + p.UserMessage()
}

// Envelope is a backend specific chat response. Text extracts the assistant text.
type Envelope interface {
	Text() (string, error)
}

// Backend is a scoring service.
type Backend interface {
	Kind() Kind
	Model() string
	// Probe reports whether the service is reachable. It never mutates remote state.
	Probe(ctx context.Context) error
	Chat(ctx context.Context, prompt Prompt) (Envelope, error)
}
