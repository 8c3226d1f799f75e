// Package agent implements the Base Agent Runtime (spec §4.4): lifecycle,
// metrics, circuit breaker, the tool-calling loop, the question/sub-agent
// protocol, and event emission shared by every specialized agent (§4.5).
// It models the teacher's inheritance-based BaseAgent as a struct
// embedding shared state, per spec §9's design note: specializations
// supply only their prompt context and a Run method.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orito-ai/orito-core/internal/agentdef"
	"github.com/orito-ai/orito-core/internal/circuitbreaker"
	"github.com/orito-ai/orito-core/internal/kinderr"
	"github.com/orito-ai/orito-core/internal/llm"
	"github.com/orito-ai/orito-core/internal/tools"
	"github.com/orito-ai/orito-core/pkg/models"
)

// Runtime is the live instance of an agent: identity, state machine,
// metrics, circuit breaker, tool registry binding, and the pending
// question/sub-agent maps (spec §3 "Agent instance").
type Runtime struct {
	ID            string
	AgentType     string
	Name          string
	Task          string
	ParentAgentID string
	Depth         int

	Definition *models.AgentDefinition
	Prompt     string // rendered system prompt

	opts      Options
	completer llm.Completer
	registry  *tools.Registry
	groups    *tools.GroupResolver
	breaker   *circuitbreaker.Breaker
	sink      EventSink
	color     string

	mu             sync.Mutex
	status         models.AgentStatus
	metrics        models.AgentMetrics
	spawnedSubAgents []string

	pendingMu        sync.Mutex
	pendingQuestions map[string]chan string
	pendingSubAgents map[string]chan subAgentOutcome

	spawnRequestCh chan SubAgentRequest
}

type subAgentOutcome struct {
	result any
	err    error
}

// Config bundles a Runtime's collaborators, supplied by the orchestrator
// at spawn time.
type Config struct {
	ID            string
	AgentType     string
	Name          string
	Task          string
	ParentAgentID string
	Depth         int

	Definition *models.AgentDefinition
	Completer  llm.Completer
	Registry   *tools.Registry
	Groups     *tools.GroupResolver
	Breaker    *circuitbreaker.Breaker
	Sink       EventSink
	Options    Options
}

// New constructs a Runtime in the spawning state (spec §3 lifecycle:
// "created by orchestrator on demand").
func New(cfg Config) *Runtime {
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	color := ""
	if cfg.Definition != nil {
		color = cfg.Definition.Color
	}
	return &Runtime{
		ID:               id,
		AgentType:        cfg.AgentType,
		Name:             cfg.Name,
		Task:             cfg.Task,
		ParentAgentID:    cfg.ParentAgentID,
		Depth:            cfg.Depth,
		Definition:       cfg.Definition,
		opts:             cfg.Options.withDefaults(),
		completer:        cfg.Completer,
		registry:         cfg.Registry,
		groups:           cfg.Groups,
		breaker:          cfg.Breaker,
		sink:             cfg.Sink,
		color:            color,
		status:           models.StatusSpawning,
		pendingQuestions: make(map[string]chan string),
		pendingSubAgents: make(map[string]chan subAgentOutcome),
		spawnRequestCh:   make(chan SubAgentRequest, 8),
	}
}

// Status returns the current lifecycle state.
func (r *Runtime) Status() models.AgentStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Metrics returns a snapshot of the agent's resource usage.
func (r *Runtime) Metrics() models.AgentMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics
}

// Transition moves the agent to a new status if the state machine of
// spec §4.4 permits it and emits an agent:status event for the new status.
// A rejected transition leaves the status unchanged, emits no event, and
// returns an error.
func (r *Runtime) Transition(ctx context.Context, to models.AgentStatus) error {
	r.mu.Lock()
	from := r.status
	if !models.CanTransition(from, to) {
		r.mu.Unlock()
		return fmt.Errorf("agent %s: invalid transition %s -> %s", r.ID, from, to)
	}
	r.status = to
	r.mu.Unlock()

	r.emit(ctx, models.Event{Type: models.EventAgentStatus, AgentID: r.ID, Status: string(to)})
	return nil
}

// Initialize renders the system prompt from the agent's definition
// template using renderCtx (spec §4.4 "Initialization"). Callers
// typically pass {task, tier, agentName, agentType, systemProfile?,
// conversationContext?, currentDate}.
func (r *Runtime) Initialize(renderCtx map[string]string) {
	if r.Definition != nil {
		r.Prompt = agentdef.Render(r.Definition.SystemPrompt, renderCtx)
	}
}

// StartMetrics records the run's start time (spec §4.4).
func (r *Runtime) StartMetrics() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics.StartTime = time.Now()
}

// EndMetrics records the run's end time and duration, adding tokensUsed
// to the running total (spec §4.4: "tokensUsed is monotonically
// non-decreasing").
func (r *Runtime) EndMetrics(tokensUsed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics.EndTime = time.Now()
	if !r.metrics.StartTime.IsZero() {
		r.metrics.DurationMs = r.metrics.EndTime.Sub(r.metrics.StartTime).Milliseconds()
	}
	if tokensUsed > 0 {
		r.metrics.TokensUsed += tokensUsed
	}
}

func (r *Runtime) addTokens(n int) {
	if n <= 0 {
		return
	}
	r.mu.Lock()
	r.metrics.TokensUsed += n
	r.mu.Unlock()
}

func (r *Runtime) incToolCalls() {
	r.mu.Lock()
	r.metrics.ToolCallsCount++
	r.mu.Unlock()
}

// CanExecute reports whether the circuit breaker currently permits a call
// (spec §4.4).
func (r *Runtime) CanExecute() bool {
	if r.breaker == nil {
		return true
	}
	return r.breaker.CanExecute()
}

// RecordFailure/RecordSuccess forward to the per-instance circuit breaker.
func (r *Runtime) RecordFailure() {
	if r.breaker != nil {
		r.breaker.RecordFailure()
	}
}

func (r *Runtime) RecordSuccess() {
	if r.breaker != nil {
		r.breaker.RecordSuccess()
	}
}

// emit stamps and forwards an event to the configured sink.
func (r *Runtime) emit(ctx context.Context, event models.Event) {
	event.Timestamp = time.Now()
	if event.AgentID == "" {
		event.AgentID = r.ID
	}
	if r.sink != nil {
		r.sink.Emit(ctx, event)
	}
}

// EmitSpawn emits the agent:spawn event the orchestrator is expected to
// send immediately after constructing a Runtime (spec §6.4).
func (r *Runtime) EmitSpawn(ctx context.Context) {
	r.emit(ctx, models.Event{
		Type:          models.EventAgentSpawn,
		Name:          r.Name,
		AgentType:     r.AgentType,
		Color:         r.color,
		Task:          r.Task,
		ParentAgentID: r.ParentAgentID,
		Depth:         r.Depth,
	})
}

// EmitResult emits the single terminal agent:result event (spec §3
// invariant: "exactly one terminal event per run").
func (r *Runtime) EmitResult(ctx context.Context, summary string) {
	r.emit(ctx, models.Event{Type: models.EventAgentResult, Summary: summary})
}

// EmitError emits the single terminal error event for a failed run.
func (r *Runtime) EmitError(ctx context.Context, message string) {
	r.emit(ctx, models.Event{Type: models.EventError, Message: message})
}

// EmitDiscovery emits a system:discovery event carrying the client-side
// commands Curious wants run, plus the accompanying prompt (spec §4.5
// command mode, §6.4).
func (r *Runtime) EmitDiscovery(ctx context.Context, commands []string, prompt string) {
	r.emit(ctx, models.Event{Type: models.EventSystemDiscovery, Commands: commands, Prompt: prompt})
}

// ExecuteWithTimeout runs fn, failing with kinderr.KindTimeout if it does
// not complete within t (spec §4.4).
func ExecuteWithTimeout[T any](ctx context.Context, t time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, t)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		val, err := fn(ctx)
		done <- outcome{val, err}
	}()

	select {
	case o := <-done:
		return o.val, o.err
	case <-ctx.Done():
		var zero T
		return zero, kinderr.New(kinderr.KindTimeout, "operation exceeded its timeout")
	}
}

// ExecuteWithRetry retries fn up to r.opts.MaxRetries times with linear
// backoff RetryDelay*(attempt+1) (spec §4.4). On exhausted retries it
// records a circuit-breaker failure and returns the last error.
func (r *Runtime) ExecuteWithRetry(ctx context.Context, label string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= r.opts.MaxRetries; attempt++ {
		if err := fn(ctx); err != nil {
			lastErr = err
			if attempt == r.opts.MaxRetries {
				break
			}
			delay := time.Duration(attempt+1) * r.opts.RetryDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}
		return nil
	}
	r.RecordFailure()
	return fmt.Errorf("%s: exhausted retries: %w", label, lastErr)
}

// CanUseTool reports whether toolName passes the agent's policy, after
// expanding any named tool groups the definition's allow list references
// (spec §4.1, SPEC_FULL.md §12 group supplement).
func (r *Runtime) CanUseTool(toolName string) bool {
	if r.Definition == nil {
		return false
	}
	policy := r.Definition.Tools
	if r.groups != nil {
		policy.Allowed = r.groups.Expand(policy.Allowed)
	}
	return policy.IsAllowed(toolName)
}

// ValidateToolUse emits an error event and returns a ToolNotAllowed error
// if toolName is denied by the agent's policy (spec §4.4).
func (r *Runtime) ValidateToolUse(ctx context.Context, toolName string) error {
	if r.CanUseTool(toolName) {
		return nil
	}
	err := kinderr.New(kinderr.KindToolNotAllowed, fmt.Sprintf("tool %q is not permitted for agent type %q", toolName, r.AgentType))
	r.EmitError(ctx, err.Error())
	return err
}

// SpawnedSubAgents lists the ids of sub-agents this instance has spawned.
func (r *Runtime) SpawnedSubAgents() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.spawnedSubAgents...)
}

// CanSpawnSubAgent reports whether another sub-agent may be spawned
// (spec §3: depth < MAX_AGENT_DEPTH and |spawned| < maxSubAgents).
func (r *Runtime) CanSpawnSubAgent() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	maxSub := 0
	if r.Definition != nil {
		maxSub = r.Definition.MaxSubAgents
	}
	return r.Depth < r.opts.MaxAgentDepth && len(r.spawnedSubAgents) < maxSub
}
