package shared

import (
	"time"
)

// TokenUsage tracks the tokens consumed by a single collaborator request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// AgentMeta holds operational metadata for one agent execution
// (extractor, dietitian or planner run).
type AgentMeta struct {
	AgentName string
	Usage     TokenUsage
	Latency   time.Duration
}
