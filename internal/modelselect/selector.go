// Package modelselect implements the Model Selector (spec §4.2): a
// heuristic mapping from a TaskContext to a model id, a fallback chain,
// and per-model sampling defaults.
package modelselect

import (
	"strings"

	"github.com/orito-ai/orito-core/pkg/models"
)

// Models names the model roles this selector picks between. The exact
// model id strings are configuration, not part of this contract (spec
// §9 Open Questions); these are sensible concrete defaults.
const (
	ModelReasoning     = "reasoning-pro"
	ModelCoding        = "coding-pro"
	ModelToolFast      = "tool-fast"
	ModelLongContext   = "long-context"
	ModelBalanced      = "balanced"
	ModelFastAgent     = "fast-agent"
)

// LongContextThreshold is the token-count cut-over named in spec §4.2
// rule 5.
const LongContextThreshold = 128_000

var codingKeywords = []string{
	"code", "function", "script", "python", "golang", "rust", "java",
	"compile", "debug code", "refactor", "programming", "bug in my code",
}

func hasCodingKeyword(query string) bool {
	lower := strings.ToLower(query)
	for _, kw := range codingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Selector chooses a model id, fallback chain, and confidence for a
// TaskContext, using Config for the configured default model and chain
// order (spec §6.6 configuration boundary).
type Selector struct {
	defaultModel  string
	fallbackOrder []string
	modelParams   map[string]models.ModelParams
}

// New builds a Selector. fallbackOrder is the configured model order
// (spec §9: "the precise set of LLM models ... is configuration").
func New(defaultModel string, fallbackOrder []string, modelParams map[string]models.ModelParams) *Selector {
	if defaultModel == "" {
		defaultModel = ModelFastAgent
	}
	if len(fallbackOrder) == 0 {
		fallbackOrder = []string{ModelFastAgent, ModelBalanced, ModelToolFast, ModelCoding, ModelReasoning, ModelLongContext}
	}
	return &Selector{defaultModel: defaultModel, fallbackOrder: fallbackOrder, modelParams: modelParams}
}

// Select applies the ordered priority rules of spec §4.2 and returns the
// chosen model, a fallback chain, and a latency estimate.
func (s *Selector) Select(tc models.TaskContext, userPreferredModel string) models.ModelSelection {
	var selected string
	var confidence float64
	var reasoning string

	switch {
	case userPreferredModel != "":
		selected, confidence, reasoning = userPreferredModel, 1.0, "user-preferred model override"
	case tc.RequiresDeepReasoning && tc.Urgency == models.UrgencyThorough:
		selected, confidence, reasoning = ModelReasoning, 0.9, "deep reasoning requested at thorough urgency"
	case hasCodingKeyword(tc.Query) || tc.RequiresCoding:
		selected, confidence, reasoning = ModelCoding, 0.85, "coding-oriented query"
	case tc.RequiresTools && tc.Urgency == models.UrgencyFast && tc.ToolCount > 0:
		selected, confidence, reasoning = ModelToolFast, 0.8, "fast tool-calling path"
	case tc.RequiresLongContext || tc.EstimatedContextSize > LongContextThreshold:
		selected, confidence, reasoning = ModelLongContext, 0.75, "long context window required"
	case tc.RequiresTools && tc.ToolCount > 0:
		selected, confidence, reasoning = ModelToolFast, 0.7, "complex toolchain"
	case tc.Complexity == models.ComplexityComplex || tc.Complexity == models.ComplexityModerate:
		selected, confidence, reasoning = ModelBalanced, 0.65, "moderate/complex query needs general-purpose model"
	default:
		selected, confidence, reasoning = s.defaultModel, 0.5, "default fast agent model"
	}

	chain := buildFallbackChain(selected, s.fallbackOrder)
	return models.ModelSelection{
		SelectedModel:    selected,
		Confidence:       confidence,
		Reasoning:        reasoning,
		FallbackChain:    chain,
		EstimatedLatency: estimateLatency(selected),
	}
}

// buildFallbackChain begins with selected, followed by the remaining
// models in order, de-duplicated (spec §4.2).
func buildFallbackChain(selected string, order []string) []string {
	chain := make([]string, 0, len(order)+1)
	seen := map[string]bool{}
	chain = append(chain, selected)
	seen[selected] = true
	for _, m := range order {
		if !seen[m] {
			seen[m] = true
			chain = append(chain, m)
		}
	}
	return chain
}

func estimateLatency(model string) models.EstimatedLatency {
	switch model {
	case ModelFastAgent, ModelToolFast:
		return models.LatencyFast
	case ModelReasoning, ModelLongContext:
		return models.LatencySlow
	default:
		return models.LatencyMedium
	}
}

// GetNextFallback returns the next untried model in chain after the
// models already present in attempted, or ("", false) if the chain is
// exhausted (spec §4.2).
func GetNextFallback(chain []string, attempted map[string]bool) (string, bool) {
	for _, m := range chain {
		if !attempted[m] {
			return m, true
		}
	}
	return "", false
}

// GetOptimalParams returns model's default sampling params, or a
// reasonable baseline if the model has no configured entry (spec §4.2
// getOptimalParams).
func (s *Selector) GetOptimalParams(model string) models.ModelParams {
	if p, ok := s.modelParams[model]; ok {
		return p
	}
	return models.ModelParams{Temperature: 0.7, TopP: 1.0, MaxTokens: 4096}
}
