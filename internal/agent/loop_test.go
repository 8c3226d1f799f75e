package agent

import (
	"context"
	"testing"

	"github.com/orito-ai/orito-core/internal/circuitbreaker"
	"github.com/orito-ai/orito-core/internal/llm"
	"github.com/orito-ai/orito-core/internal/tools"
	"github.com/orito-ai/orito-core/pkg/models"
)

// stubCompleter returns a scripted sequence of results, one per call to
// Complete, so a test can drive a multi-round tool-calling loop
// deterministically.
type stubCompleter struct {
	replies []llm.Result
	calls   int
}

func (s *stubCompleter) Complete(ctx context.Context, messages []models.Message, opts llm.Options) (llm.Result, error) {
	if s.calls >= len(s.replies) {
		return llm.Result{Content: "done"}, nil
	}
	r := s.replies[s.calls]
	s.calls++
	return r, nil
}

func (s *stubCompleter) Stream(ctx context.Context, messages []models.Message, opts llm.Options, onChunk llm.ChunkFunc) (llm.Result, error) {
	return s.Complete(ctx, messages, opts)
}

func newLoopRuntime(t *testing.T, completer llm.Completer, sink EventSink) *Runtime {
	t.Helper()
	registry := tools.NewRegistry()
	if err := registry.Register(tools.Definition{
		Name: "web_search",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return map[string]any{"results": []string{"one result"}}, nil
		},
	}); err != nil {
		t.Fatalf("register tool: %v", err)
	}
	def := &models.AgentDefinition{
		Name: "research", Description: "d", Mode: models.ModeAutonomous, Color: "blue",
		Tools: models.ToolPolicy{Allowed: []string{"*"}},
	}
	return New(Config{
		AgentType:  "research",
		Definition: def,
		Completer:  completer,
		Registry:   registry,
		Breaker:    circuitbreaker.New(circuitbreaker.Config{}),
		Sink:       sink,
		Options:    Options{MaxToolCalls: 5},
	})
}

func TestCallWithTools_NoToolCallReturnsImmediately(t *testing.T) {
	completer := &stubCompleter{replies: []llm.Result{{Content: "hello there", Usage: &llm.Usage{TotalTokens: 10}}}}
	r := newLoopRuntime(t, completer, NopSink{})

	out, err := r.CallWithTools(context.Background(), []models.Message{{Role: models.RoleUser, Content: "hi"}}, LoopOptions{})
	if err != nil {
		t.Fatalf("CallWithTools: %v", err)
	}
	if out != "hello there" {
		t.Fatalf("expected immediate reply, got %q", out)
	}
	if completer.calls != 1 {
		t.Fatalf("expected exactly one completion call, got %d", completer.calls)
	}
	if r.Metrics().TokensUsed != 10 {
		t.Fatalf("expected tokens accounted, got %d", r.Metrics().TokensUsed)
	}
}

func TestCallWithTools_OneToolRoundThenReply(t *testing.T) {
	sink := &RecordingSink{}
	completer := &stubCompleter{replies: []llm.Result{
		{Content: `<tool>web_search</tool><params>{"query":"disk full"}</params>`, Usage: &llm.Usage{TotalTokens: 5}},
		{Content: "your disk is full because of old logs", Usage: &llm.Usage{TotalTokens: 7}},
	}}
	r := newLoopRuntime(t, completer, sink)

	out, err := r.CallWithTools(context.Background(), []models.Message{{Role: models.RoleUser, Content: "why is my disk full"}}, LoopOptions{})
	if err != nil {
		t.Fatalf("CallWithTools: %v", err)
	}
	if out != "your disk is full because of old logs" {
		t.Fatalf("unexpected final content: %q", out)
	}
	if completer.calls != 2 {
		t.Fatalf("expected two completion rounds, got %d", completer.calls)
	}
	if r.Metrics().TokensUsed != 12 {
		t.Fatalf("expected 12 accumulated tokens, got %d", r.Metrics().TokensUsed)
	}
	if r.Metrics().ToolCallsCount != 1 {
		t.Fatalf("expected one tool call recorded, got %d", r.Metrics().ToolCallsCount)
	}

	var sawRunning, sawDone bool
	for _, e := range sink.Events {
		if e.Type != models.EventAgentTool {
			continue
		}
		if e.ToolStatus == models.ToolEventRunning {
			sawRunning = true
		}
		if e.ToolStatus == models.ToolEventDone {
			sawDone = true
			if e.ToolOutput == "" {
				t.Fatal("expected non-empty tool output on done event")
			}
		}
	}
	if !sawRunning || !sawDone {
		t.Fatalf("expected both running and done agent:tool events, got %+v", sink.Events)
	}
}

func TestCallWithTools_MaxIterationsReturnsLastContent(t *testing.T) {
	looping := `<tool>web_search</tool><params>{"query":"x"}</params>`
	completer := &stubCompleter{replies: []llm.Result{
		{Content: looping}, {Content: looping}, {Content: looping},
	}}
	r := newLoopRuntime(t, completer, NopSink{})

	out, err := r.CallWithTools(context.Background(), []models.Message{{Role: models.RoleUser, Content: "loop forever"}}, LoopOptions{MaxToolCalls: 3})
	if err != nil {
		t.Fatalf("CallWithTools: %v", err)
	}
	if out != looping {
		t.Fatalf("expected last round's raw content when max iterations reached, got %q", out)
	}
	if completer.calls != 3 {
		t.Fatalf("expected exactly max rounds of completion, got %d", completer.calls)
	}
}

func TestCallWithTools_DeniedToolReportsErrorButContinues(t *testing.T) {
	def := &models.AgentDefinition{
		Name: "research", Description: "d", Mode: models.ModeAutonomous, Color: "blue",
		Tools: models.ToolPolicy{Allowed: []string{"web_search"}},
	}
	registry := tools.NewRegistry()
	if err := registry.Register(tools.Definition{
		Name:    "rm_rf",
		Handler: func(ctx context.Context, args map[string]any) (any, error) { return nil, nil },
	}); err != nil {
		t.Fatalf("register tool: %v", err)
	}
	completer := &stubCompleter{replies: []llm.Result{
		{Content: `<tool>rm_rf</tool><params>{}</params>`},
		{Content: "recovered and explained the restriction"},
	}}
	r := New(Config{
		AgentType:  "research",
		Definition: def,
		Completer:  completer,
		Registry:   registry,
		Breaker:    circuitbreaker.New(circuitbreaker.Config{}),
		Sink:       NopSink{},
		Options:    Options{MaxToolCalls: 5},
	})

	out, err := r.CallWithTools(context.Background(), []models.Message{{Role: models.RoleUser, Content: "delete everything"}}, LoopOptions{})
	if err != nil {
		t.Fatalf("CallWithTools: %v", err)
	}
	if out != "recovered and explained the restriction" {
		t.Fatalf("unexpected final content: %q", out)
	}
}
