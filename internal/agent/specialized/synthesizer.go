package specialized

import (
	"context"
	"fmt"
	"strings"

	"github.com/orito-ai/orito-core/internal/agent"
	"github.com/orito-ai/orito-core/internal/llm"
	"github.com/orito-ai/orito-core/pkg/models"
)

// SynthesizerInput bundles everything upstream agents produced for a turn
// (spec §4.8: "synthesizer invocation receives {researchSummary, steps,
// commands, citations, warnings, blocked}").
type SynthesizerInput struct {
	ResearchSummary string
	Steps           []string
	Commands        []models.Command
	Citations       []models.Citation
	Warnings        []string
	Blocked         []models.BlockedCommand
	Suggestions     []string
	Troubleshooting []string
	Prerequisites   []string
}

// SynthesizerMetadata is the metadata payload of spec §4.5.
type SynthesizerMetadata struct {
	ResponseType string `json:"responseType"`
	Complexity   string `json:"complexity"`
	CommandCount int    `json:"commandCount"`
}

// SynthesizerResult is the Synthesizer agent's output (spec §4.5).
type SynthesizerResult struct {
	Response   string
	Metadata   SynthesizerMetadata
	TokensUsed int
}

// SynthesizerAgent composes the final user-facing response, streaming
// chunks as they're generated and appending a deterministic markdown guide
// built from structured inputs (spec §4.5).
type SynthesizerAgent struct {
	Runtime    *agent.Runtime
	Completer  llm.Completer
	OnChunk    func(chunk string)
}

// NewSynthesizerAgent wraps an already-constructed runtime.
func NewSynthesizerAgent(r *agent.Runtime, completer llm.Completer, onChunk func(string)) *SynthesizerAgent {
	return &SynthesizerAgent{Runtime: r, Completer: completer, OnChunk: onChunk}
}

// Run streams the synthesized response. On a streaming failure it falls
// back to one non-streaming completion and emits the whole content as a
// single chunk (spec §4.5).
func (a *SynthesizerAgent) Run(ctx context.Context, task string, complexity models.Complexity, in SynthesizerInput) (SynthesizerResult, error) {
	if err := a.Runtime.Transition(ctx, models.StatusThinking); err != nil {
		return SynthesizerResult{}, err
	}
	a.Runtime.StartMetrics()

	messages := []models.Message{
		{Role: models.RoleSystem, Content: a.Runtime.Prompt},
		{Role: models.RoleUser, Content: synthesizerPrompt(task, in)},
	}

	content, usage, err := a.stream(ctx, messages)
	if err != nil {
		a.Runtime.RecordFailure()
		_ = a.Runtime.Transition(ctx, models.StatusError)
		return SynthesizerResult{}, err
	}
	a.Runtime.RecordSuccess()
	if usage != nil {
		a.Runtime.EndMetrics(usage.TotalTokens)
	} else {
		a.Runtime.EndMetrics(0)
	}

	guide := buildInteractiveGuide(in)
	response := strings.TrimSpace(content) + "\n\n" + guide

	result := SynthesizerResult{
		Response: response,
		Metadata: SynthesizerMetadata{
			ResponseType: string(complexity),
			Complexity:   string(complexity),
			CommandCount: len(in.Commands),
		},
		TokensUsed: a.Runtime.Metrics().TokensUsed,
	}

	_ = a.Runtime.Transition(ctx, models.StatusDone)
	a.Runtime.EmitResult(ctx, "response synthesized")
	return result, nil
}

// stream drives llm.Completer.Stream, forwarding chunks via a.OnChunk and
// falling back to one non-streaming Complete call if streaming itself
// fails (spec §4.5: "On streaming failure, falls back to non-streaming
// completion and emits the full content as one chunk").
func (a *SynthesizerAgent) stream(ctx context.Context, messages []models.Message) (string, *llm.Usage, error) {
	var sb strings.Builder
	res, err := a.Completer.Stream(ctx, messages, llm.Options{}, func(chunk string) {
		sb.WriteString(chunk)
		if a.OnChunk != nil {
			a.OnChunk(chunk)
		}
	})
	if err == nil {
		return sb.String(), res.Usage, nil
	}

	fallback, ferr := llm.CompleteWithRetry(ctx, a.Completer, messages, llm.Options{})
	if ferr != nil {
		return "", nil, ferr
	}
	if a.OnChunk != nil {
		a.OnChunk(fallback.Content)
	}
	return fallback.Content, fallback.Usage, nil
}

func synthesizerPrompt(task string, in SynthesizerInput) string {
	return "Write a clear, direct answer to: " + task +
		"\n\nGrounding research:\n" + in.ResearchSummary +
		"\n\nDo not repeat the step-by-step commands verbatim; a structured guide will be appended separately."
}

// riskGlyph renders a command's risk level as a short glyph, matching the
// synthesizer's "risk glyphs" requirement (spec §4.5).
func riskGlyph(risk models.Risk) string {
	switch risk {
	case models.RiskHigh:
		return "⚠️" // warning sign
	case models.RiskMedium:
		return "⚡" // lightning bolt
	default:
		return "✓" // checkmark
	}
}

// buildInteractiveGuide renders the deterministic markdown guide of spec
// §4.5 independent of LLM output: Overview, Prerequisites, Steps, Commands
// (with risk glyphs), Verification, Warnings, Blocked, Suggestions,
// Troubleshooting. Empty sections are omitted.
func buildInteractiveGuide(in SynthesizerInput) string {
	var sb strings.Builder
	sb.WriteString("## Interactive Guide\n\n")

	if in.ResearchSummary != "" {
		sb.WriteString("### Overview\n\n")
		sb.WriteString(in.ResearchSummary)
		sb.WriteString("\n\n")
	}

	if len(in.Prerequisites) > 0 {
		sb.WriteString("### Prerequisites\n\n")
		for _, p := range in.Prerequisites {
			sb.WriteString("- " + p + "\n")
		}
		sb.WriteString("\n")
	}

	if len(in.Steps) > 0 {
		sb.WriteString("### Steps\n\n")
		for i, s := range in.Steps {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, s))
		}
		sb.WriteString("\n")
	}

	if len(in.Commands) > 0 {
		sb.WriteString("### Commands\n\n")
		for _, c := range in.Commands {
			sb.WriteString(fmt.Sprintf("%s `%s` — %s\n", riskGlyph(c.Risk), c.Command, c.RiskExplanation))
			if c.ExpectedOutput != "" {
				sb.WriteString("  - Expected output: " + c.ExpectedOutput + "\n")
			}
		}
		sb.WriteString("\n")

		var verification []string
		for _, c := range in.Commands {
			if c.ExpectedOutput != "" {
				verification = append(verification, "- `"+c.Command+"` should show: "+c.ExpectedOutput+"\n")
			}
		}
		if len(verification) > 0 {
			sb.WriteString("### Verification\n\n")
			for _, line := range verification {
				sb.WriteString(line)
			}
			sb.WriteString("\n")
		}
	}

	if len(in.Warnings) > 0 {
		sb.WriteString("### Warnings\n\n")
		for _, w := range in.Warnings {
			sb.WriteString("- " + w + "\n")
		}
		sb.WriteString("\n")
	}

	if len(in.Blocked) > 0 {
		sb.WriteString("### Blocked Commands\n\n")
		for _, b := range in.Blocked {
			sb.WriteString(fmt.Sprintf("- `%s`: %s\n", b.Command.Command, b.Reason))
		}
		sb.WriteString("\n")
	}

	if len(in.Suggestions) > 0 {
		sb.WriteString("### Suggestions\n\n")
		for _, s := range in.Suggestions {
			sb.WriteString("- " + s + "\n")
		}
		sb.WriteString("\n")
	}

	if len(in.Troubleshooting) > 0 {
		sb.WriteString("### Troubleshooting\n\n")
		for _, t := range in.Troubleshooting {
			sb.WriteString("- " + t + "\n")
		}
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}
