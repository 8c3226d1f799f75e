// Package specialized implements the five concrete agent types of spec
// §4.5 (Curious, Research, Planner, Validator, Synthesizer) as thin
// specializations over the Base Agent Runtime: each supplies only its own
// prompt context, tool set, and a Run method that drives the shared
// tool-calling loop and shapes the final structured result.
package specialized

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/orito-ai/orito-core/internal/agent"
	"github.com/orito-ai/orito-core/pkg/models"
)

// MaxSubResearch bounds how deep a Research agent may recurse into further
// research sub-agents (spec §4.5: "MAX_SUB_RESEARCH = 2").
const MaxSubResearch = 2

// strategyMaxResults maps a ResearchStrategy to its tool-result cap (spec
// §4.5).
var strategyMaxResults = map[models.ResearchStrategy]int{
	models.StrategyQuick:    3,
	models.StrategyAdaptive: 5,
	models.StrategyDeep:     8,
}

// ResearchResult is the Research agent's output (spec §4.5).
type ResearchResult struct {
	Citations   []models.Citation `json:"citations"`
	Summary     string            `json:"summary"`
	NeedsDeeper bool              `json:"needsDeeper"`
	TokensUsed  int               `json:"-"`
}

// researchLLMOutput is the JSON shape the research prompt asks the model to
// produce; TokensUsed is filled in separately from the runtime's metrics,
// not parsed from the model's own output.
type researchLLMOutput struct {
	Citations   []models.Citation `json:"citations"`
	Summary     string            `json:"summary"`
	NeedsDeeper bool              `json:"needsDeeper"`
}

// ResearchAgent drives web_search / search_wikipedia tools to produce a
// cited summary, bounded by a ResearchStrategy (spec §4.5).
type ResearchAgent struct {
	Runtime  *agent.Runtime
	Strategy models.ResearchStrategy
}

// NewResearchAgent wraps an already-constructed runtime.
func NewResearchAgent(r *agent.Runtime, strategy models.ResearchStrategy) *ResearchAgent {
	return &ResearchAgent{Runtime: r, Strategy: strategy}
}

// Run executes the research tool-calling loop for query and returns a
// cited summary. If the model's reply signals needsDeeper and the runtime
// is still within MAX_SUB_RESEARCH / MAX_AGENT_DEPTH bounds, it spawns one
// further research sub-agent and merges its citations in.
func (a *ResearchAgent) Run(ctx context.Context, query string, subResearchDepth int) (ResearchResult, error) {
	maxResults := strategyMaxResults[a.Strategy]
	if maxResults == 0 {
		maxResults = strategyMaxResults[models.StrategyAdaptive]
	}

	if err := a.Runtime.Transition(ctx, models.StatusThinking); err != nil {
		return ResearchResult{}, err
	}
	a.Runtime.StartMetrics()

	messages := []models.Message{
		{Role: models.RoleSystem, Content: a.Runtime.Prompt},
		{Role: models.RoleUser, Content: researchPrompt(query, maxResults)},
	}

	content, err := a.Runtime.CallWithTools(ctx, messages, agent.LoopOptions{})
	if err != nil {
		a.Runtime.RecordFailure()
		_ = a.Runtime.Transition(ctx, models.StatusError)
		return ResearchResult{}, err
	}
	a.Runtime.RecordSuccess()

	out := parseResearchOutput(content)
	result := ResearchResult{Citations: out.Citations, Summary: out.Summary, NeedsDeeper: out.NeedsDeeper}

	if result.NeedsDeeper && subResearchDepth < MaxSubResearch && a.Runtime.CanSpawnSubAgent() {
		sub, err := a.Runtime.SpawnSubAgent(ctx, "research", "go deeper on: "+query, map[string]any{
			"query": query,
		}, map[string]any{"subResearchDepth": subResearchDepth + 1})
		if err == nil {
			if deeper, ok := sub.(ResearchResult); ok {
				result.Citations = append(result.Citations, deeper.Citations...)
				result.Summary = strings.TrimSpace(result.Summary + "\n\n" + deeper.Summary)
			}
		}
	}

	result.TokensUsed = a.Runtime.Metrics().TokensUsed
	a.Runtime.EndMetrics(0)
	_ = a.Runtime.Transition(ctx, models.StatusDone)
	a.Runtime.EmitResult(ctx, result.Summary)
	return result, nil
}

func researchPrompt(query string, maxResults int) string {
	return "Research the following and respond with a single JSON object " +
		`{"citations":[{"title":,"url":,"snippet":}],"summary":,"needsDeeper":bool}` +
		". Use at most " + strconv.Itoa(maxResults) + " distinct sources. Query: " + query
}

func parseResearchOutput(content string) researchLLMOutput {
	var out researchLLMOutput
	if json.Unmarshal([]byte(extractJSONObject(content)), &out) != nil {
		out.Summary = content
	}
	return out
}

// extractJSONObject returns the substring of s from its first '{' to its
// last '}', tolerating prose the model may wrap the JSON in.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
