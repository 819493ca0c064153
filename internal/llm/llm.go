package llm

import (
	"context"
	"errors"

	"ai-diet-planner/internal/shared"
)

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request describes a single generation call. History and Prompt are always
// sent; System and Schema are optional. When Schema is set the provider is
// asked for structured JSON output conforming to it.
type Request struct {
	System  string
	History []Message
	Prompt  string
	Schema  *Schema
}

// Response contains the generated text and metadata like token usage.
type Response struct {
	Content string
	Usage   shared.TokenUsage
}

// Generator is the abstract collaborator: given an instruction, conversation
// history and an optional schema constraint, it returns text. Responses are
// untrusted; callers must validate everything they parse out of them.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}

// ErrUnavailable wraps transport-level failures (network, timeout, non-200
// status, empty candidate list). Callers may surface these as retryable.
var ErrUnavailable = errors.New("llm: provider unavailable")
