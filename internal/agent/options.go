package agent

import "time"

// Options configures a Runtime's timeouts, retries, and tool-calling loop
// bounds (spec §4.4, §5, §6.6 AgentDefaults), mirroring the teacher's
// RuntimeOptions/DefaultRuntimeOptions shape.
type Options struct {
	// MaxToolCalls bounds iterations per callWithTools invocation.
	// Default 5 (spec §4.4, §5).
	MaxToolCalls int

	// Timeout bounds the overall run() invocation. Default 120s (spec §5).
	Timeout time.Duration

	// MaxRetries/RetryDelay govern executeWithRetry's linear backoff:
	// RetryDelay * (attempt+1) (spec §4.4).
	MaxRetries int
	RetryDelay time.Duration

	// QuestionTimeout/SubAgentTimeout bound askUserQuestions and
	// spawnSubAgent. Default 120s each (spec §4.4, §5).
	QuestionTimeout time.Duration
	SubAgentTimeout time.Duration

	// MaxAgentDepth is MAX_AGENT_DEPTH (spec §3): default 2.
	MaxAgentDepth int
}

// DefaultOptions returns spec.md's stated defaults.
func DefaultOptions() Options {
	return Options{
		MaxToolCalls:    5,
		Timeout:         120 * time.Second,
		MaxRetries:      2,
		RetryDelay:      500 * time.Millisecond,
		QuestionTimeout: 120 * time.Second,
		SubAgentTimeout: 120 * time.Second,
		MaxAgentDepth:   2,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxToolCalls <= 0 {
		o.MaxToolCalls = d.MaxToolCalls
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = d.MaxRetries
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = d.RetryDelay
	}
	if o.QuestionTimeout <= 0 {
		o.QuestionTimeout = d.QuestionTimeout
	}
	if o.SubAgentTimeout <= 0 {
		o.SubAgentTimeout = d.SubAgentTimeout
	}
	if o.MaxAgentDepth <= 0 {
		o.MaxAgentDepth = d.MaxAgentDepth
	}
	return o
}
