package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/orito-ai/orito-core/internal/circuitbreaker"
	"github.com/orito-ai/orito-core/internal/tools"
	"github.com/orito-ai/orito-core/pkg/models"
)

func newTestRuntime(t *testing.T, def *models.AgentDefinition, sink EventSink) *Runtime {
	t.Helper()
	if def == nil {
		def = &models.AgentDefinition{
			Name: "research", Description: "d", Mode: models.ModeAutonomous, Color: "blue",
			Tools: models.ToolPolicy{Allowed: []string{"web_*"}},
		}
	}
	registry := tools.NewRegistry()
	if err := registry.Register(tools.Definition{
		Name:    "web_search",
		Handler: func(ctx context.Context, args map[string]any) (any, error) { return map[string]any{"ok": true}, nil },
	}); err != nil {
		t.Fatalf("register tool: %v", err)
	}
	return New(Config{
		AgentType:  "research",
		Name:       "Research",
		Task:       "investigate",
		Definition: def,
		Registry:   registry,
		Breaker:    circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 2, ResetTimeout: 20 * time.Millisecond}),
		Sink:       sink,
		Options:    Options{QuestionTimeout: 50 * time.Millisecond, SubAgentTimeout: 50 * time.Millisecond, MaxRetries: 1, RetryDelay: time.Millisecond},
	})
}

func TestRuntime_StatusTransitions(t *testing.T) {
	r := newTestRuntime(t, nil, NopSink{})
	if r.Status() != models.StatusSpawning {
		t.Fatalf("expected spawning, got %s", r.Status())
	}
	if err := r.Transition(context.Background(), models.StatusThinking); err != nil {
		t.Fatalf("transition to thinking: %v", err)
	}
	if err := r.Transition(context.Background(), models.StatusSpawning); err == nil {
		t.Fatal("expected invalid transition thinking -> spawning to fail")
	}
	if err := r.Transition(context.Background(), models.StatusDone); err != nil {
		t.Fatalf("transition to done: %v", err)
	}
}

func TestRuntime_CircuitBreakerDelegation(t *testing.T) {
	r := newTestRuntime(t, nil, NopSink{})
	if !r.CanExecute() {
		t.Fatal("expected breaker closed initially")
	}
	r.RecordFailure()
	r.RecordFailure()
	if r.CanExecute() {
		t.Fatal("expected breaker open after threshold failures")
	}
	time.Sleep(25 * time.Millisecond)
	if !r.CanExecute() {
		t.Fatal("expected breaker to allow a half-open probe after reset timeout")
	}
}

func TestRuntime_ExecuteWithTimeout(t *testing.T) {
	_, err := ExecuteWithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestRuntime_ExecuteWithRetry_Succeeds(t *testing.T) {
	r := newTestRuntime(t, nil, NopSink{})
	attempts := 0
	err := r.ExecuteWithRetry(context.Background(), "test", func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestRuntime_ExecuteWithRetry_ExhaustsAndRecordsFailure(t *testing.T) {
	r := newTestRuntime(t, nil, NopSink{})
	err := r.ExecuteWithRetry(context.Background(), "test", func(ctx context.Context) error {
		return errors.New("always fails")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if got := r.breaker.Stats().Failures; got != 1 {
		t.Fatalf("expected one recorded circuit-breaker failure, got %d", got)
	}
}

func TestRuntime_CanUseTool_WildcardAndRestricted(t *testing.T) {
	def := &models.AgentDefinition{
		Name: "research", Description: "d", Mode: models.ModeAutonomous, Color: "blue",
		Tools: models.ToolPolicy{Allowed: []string{"web_*"}, Restricted: []string{"web_dangerous"}},
	}
	r := newTestRuntime(t, def, NopSink{})
	if !r.CanUseTool("web_search") {
		t.Fatal("expected web_search allowed by wildcard")
	}
	if r.CanUseTool("web_dangerous") {
		t.Fatal("expected web_dangerous denied by restricted list")
	}
	if r.CanUseTool("calculate") {
		t.Fatal("expected calculate denied (not in allow list)")
	}
}

func TestRuntime_ValidateToolUse_EmitsErrorOnDenied(t *testing.T) {
	sink := &RecordingSink{}
	r := newTestRuntime(t, nil, sink)
	if err := r.ValidateToolUse(context.Background(), "calculate"); err == nil {
		t.Fatal("expected denial error")
	}
	if len(sink.Events) != 1 || sink.Events[0].Type != models.EventError {
		t.Fatalf("expected one error event, got %+v", sink.Events)
	}
}

func TestRuntime_AskUserQuestions_ResolvedInOrder(t *testing.T) {
	sink := &RecordingSink{}
	r := newTestRuntime(t, nil, sink)

	go func() {
		// Give AskUserQuestions time to register both pending entries.
		time.Sleep(5 * time.Millisecond)
		for _, e := range sink.Events {
			r.ResolveUserAnswer(e.QuestionID, "answer-for-"+e.Question)
		}
	}()

	answers, err := r.AskUserQuestions(context.Background(), []models.Question{
		{Question: "distro?"},
		{Question: "shell?"},
	})
	if err != nil {
		t.Fatalf("AskUserQuestions: %v", err)
	}
	if answers[0] != "answer-for-distro?" || answers[1] != "answer-for-shell?" {
		t.Fatalf("unexpected answers: %+v", answers)
	}
}

func TestRuntime_AskUserQuestions_TimesOut(t *testing.T) {
	r := newTestRuntime(t, nil, NopSink{})
	_, err := r.AskUserQuestions(context.Background(), []models.Question{{Question: "distro?"}})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	if len(r.pendingQuestions) != 0 {
		t.Fatal("expected pending question map to be cleared after timeout")
	}
}

func TestRuntime_SpawnSubAgent_DepthLimit(t *testing.T) {
	def := &models.AgentDefinition{
		Name: "research", Description: "d", Mode: models.ModeAutonomous, Color: "blue",
		MaxSubAgents: 1,
	}
	r := newTestRuntime(t, def, NopSink{})
	r.Depth = 2 // already at MAX_AGENT_DEPTH
	_, err := r.SpawnSubAgent(context.Background(), "research", "dig deeper", nil, nil)
	if err == nil {
		t.Fatal("expected AgentLimitReached at max depth")
	}
}

func TestRuntime_SpawnSubAgent_ResolvedByOrchestrator(t *testing.T) {
	def := &models.AgentDefinition{
		Name: "research", Description: "d", Mode: models.ModeAutonomous, Color: "blue",
		MaxSubAgents: 1,
	}
	r := newTestRuntime(t, def, NopSink{})

	go func() {
		req := <-r.SpawnRequests()
		r.ResolveSubAgent(req.RequestID, map[string]any{"citations": 2}, nil)
	}()

	result, err := r.SpawnSubAgent(context.Background(), "research", "dig deeper", nil, nil)
	if err != nil {
		t.Fatalf("SpawnSubAgent: %v", err)
	}
	m, ok := result.(map[string]any)
	if !ok || m["citations"] != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
}
