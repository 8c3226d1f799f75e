package specialized

import (
	"context"
	"testing"

	"github.com/orito-ai/orito-core/internal/agent"
	"github.com/orito-ai/orito-core/internal/circuitbreaker"
	"github.com/orito-ai/orito-core/internal/llm"
	"github.com/orito-ai/orito-core/internal/tools"
	"github.com/orito-ai/orito-core/pkg/models"
)

type scriptedCompleter struct {
	replies []llm.Result
	calls   int
}

func (s *scriptedCompleter) Complete(ctx context.Context, messages []models.Message, opts llm.Options) (llm.Result, error) {
	if s.calls >= len(s.replies) {
		return llm.Result{Content: "{}"}, nil
	}
	r := s.replies[s.calls]
	s.calls++
	return r, nil
}

func (s *scriptedCompleter) Stream(ctx context.Context, messages []models.Message, opts llm.Options, onChunk llm.ChunkFunc) (llm.Result, error) {
	return s.Complete(ctx, messages, opts)
}

func newBareRuntime(t *testing.T, completer llm.Completer, maxSubAgents, depth int) *agent.Runtime {
	t.Helper()
	def := &models.AgentDefinition{
		Name: "research", Description: "d", Mode: models.ModeAutonomous, Color: "blue",
		Tools: models.ToolPolicy{Allowed: []string{"*"}}, MaxSubAgents: maxSubAgents,
	}
	return agent.New(agent.Config{
		AgentType:  "research",
		Depth:      depth,
		Definition: def,
		Completer:  completer,
		Registry:   tools.NewRegistry(),
		Breaker:    circuitbreaker.New(circuitbreaker.Config{}),
		Sink:       agent.NopSink{},
	})
}

func TestResearchAgent_ParsesCitedSummary(t *testing.T) {
	completer := &scriptedCompleter{replies: []llm.Result{
		{Content: `{"citations":[{"title":"Arch Wiki: systemd","url":"https://wiki.archlinux.org/systemd"}],"summary":"systemd is the init system","needsDeeper":false}`, Usage: &llm.Usage{TotalTokens: 42}},
	}}
	r := newBareRuntime(t, completer, 1, 0)
	a := NewResearchAgent(r, models.StrategyQuick)

	result, err := a.Run(context.Background(), "what is systemd?", 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Summary != "systemd is the init system" {
		t.Fatalf("unexpected summary: %q", result.Summary)
	}
	if len(result.Citations) != 1 || result.Citations[0].URL != "https://wiki.archlinux.org/systemd" {
		t.Fatalf("unexpected citations: %+v", result.Citations)
	}
	if result.TokensUsed != 42 {
		t.Fatalf("expected tokens recorded, got %d", result.TokensUsed)
	}
}

func TestResearchAgent_FallsBackToRawContentOnUnparsableOutput(t *testing.T) {
	completer := &scriptedCompleter{replies: []llm.Result{{Content: "not json at all"}}}
	r := newBareRuntime(t, completer, 1, 0)
	a := NewResearchAgent(r, models.StrategyAdaptive)

	result, err := a.Run(context.Background(), "tell me about btrfs", 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Summary != "not json at all" {
		t.Fatalf("expected raw content as fallback summary, got %q", result.Summary)
	}
}

func TestResearchAgent_SpawnsSubResearchWhenNeedsDeeper(t *testing.T) {
	completer := &scriptedCompleter{replies: []llm.Result{
		{Content: `{"citations":[],"summary":"partial answer","needsDeeper":true}`},
	}}
	r := newBareRuntime(t, completer, 1, 0)
	a := NewResearchAgent(r, models.StrategyDeep)

	go func() {
		req := <-r.SpawnRequests()
		r.ResolveSubAgent(req.RequestID, ResearchResult{
			Citations: []models.Citation{{Title: "deeper source", URL: "https://example.org"}},
			Summary:   "deeper detail",
		}, nil)
	}()

	result, err := a.Run(context.Background(), "kernel scheduler internals", 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Citations) != 1 {
		t.Fatalf("expected sub-research citation merged in, got %+v", result.Citations)
	}
	if result.Summary != "partial answer\n\ndeeper detail" {
		t.Fatalf("unexpected merged summary: %q", result.Summary)
	}
}

func TestResearchAgent_DoesNotRecurseBeyondMaxSubResearch(t *testing.T) {
	completer := &scriptedCompleter{replies: []llm.Result{
		{Content: `{"citations":[],"summary":"still partial","needsDeeper":true}`},
	}}
	r := newBareRuntime(t, completer, 1, 0)
	a := NewResearchAgent(r, models.StrategyDeep)

	result, err := a.Run(context.Background(), "deep topic", MaxSubResearch)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Summary != "still partial" {
		t.Fatalf("expected no sub-research merge at max depth, got %q", result.Summary)
	}
}
