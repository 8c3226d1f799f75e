// Package llm defines the Completer capability (spec §6.1): the LLM
// abstraction the orchestrator and agent runtime drive, with concrete
// provider HTTP clients out of scope per spec.md's Non-goals. Two
// optional adapters (anthropicllm, openaillm) are wired here so the
// capability has at least one concrete, testable implementation, but the
// core never imports either adapter directly — it depends only on the
// Completer interface.
package llm

import (
	"context"
	"time"

	"github.com/orito-ai/orito-core/pkg/models"
)

// Usage is the token accounting returned alongside a completion (spec §6.1).
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Options configures a single completion or stream call.
type Options struct {
	ModelID     string
	Temperature float64
	MaxTokens   int
	Tools       []ToolSpec
	ToolChoice  string
	SkipCache   bool
}

// ToolSpec is a provider-facing tool declaration, convertible from an
// internal/tools.Definition.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  []byte // JSON Schema document
}

// Result is the shape returned by both complete and stream (spec §6.1).
type Result struct {
	Content    string
	ToolCalls  []models.ToolCall
	ModelUsed  string
	Usage      *Usage
}

// ChunkFunc receives partial content strings in generation order.
type ChunkFunc func(chunk string)

// Completer is the out-of-scope-by-contract LLM capability. Concrete
// implementations live behind this interface; the orchestrator and agent
// runtime depend on nothing else.
type Completer interface {
	Complete(ctx context.Context, messages []models.Message, opts Options) (Result, error)
	Stream(ctx context.Context, messages []models.Message, opts Options, onChunk ChunkFunc) (Result, error)
}

// Error wraps repeated completion failures after the retry policy of
// spec §6.1 is exhausted (kinderr.KindLLMError at the call site).
type Error struct {
	Attempts  int
	LastError error
}

func (e *Error) Error() string {
	return "llm: exhausted " + itoa(e.Attempts) + " attempts: " + e.LastError.Error()
}

func (e *Error) Unwrap() error { return e.LastError }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// RetryBackoff implements spec §6.1's retry policy: up to 3 attempts with
// exponential backoff min(1000*2^(n-1), 30000)ms plus 0-30% jitter. jitter
// is a caller-supplied [0,1) source so callers can make the delay
// deterministic in tests.
func RetryBackoff(attempt int, jitter float64) time.Duration {
	base := 1000 * (1 << uint(attempt-1))
	if base > 30000 {
		base = 30000
	}
	delay := float64(base) * (1 + 0.3*jitter)
	return time.Duration(delay) * time.Millisecond
}

const MaxAttempts = 3
