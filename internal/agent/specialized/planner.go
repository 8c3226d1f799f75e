package specialized

import (
	"context"
	"encoding/json"

	"github.com/orito-ai/orito-core/internal/agent"
	"github.com/orito-ai/orito-core/pkg/models"
)

// PlannerResult is the Planner agent's output (spec §4.5).
type PlannerResult struct {
	Steps           []string         `json:"steps"`
	Commands        []models.Command `json:"commands"`
	Prerequisites   []string         `json:"prerequisites"`
	Troubleshooting []string         `json:"troubleshooting"`
	TokensUsed      int              `json:"-"`
}

// PlannerAgent turns a research summary into an ordered plan of shell
// commands with risk annotations, using the calculate and search_packages
// tools (spec §4.5).
type PlannerAgent struct {
	Runtime *agent.Runtime
}

// NewPlannerAgent wraps an already-constructed runtime.
func NewPlannerAgent(r *agent.Runtime) *PlannerAgent {
	return &PlannerAgent{Runtime: r}
}

// Run produces a plan for task given researchSummary as grounding context.
// If any proposed command is high risk, it spawns a validator sub-agent and
// folds the validated results back into the plan.
func (a *PlannerAgent) Run(ctx context.Context, task, researchSummary string) (PlannerResult, error) {
	if err := a.Runtime.Transition(ctx, models.StatusThinking); err != nil {
		return PlannerResult{}, err
	}
	a.Runtime.StartMetrics()

	messages := []models.Message{
		{Role: models.RoleSystem, Content: a.Runtime.Prompt},
		{Role: models.RoleUser, Content: plannerPrompt(task, researchSummary)},
	}

	content, err := a.Runtime.CallWithTools(ctx, messages, agent.LoopOptions{})
	if err != nil {
		a.Runtime.RecordFailure()
		_ = a.Runtime.Transition(ctx, models.StatusError)
		return PlannerResult{}, err
	}
	a.Runtime.RecordSuccess()

	result := parsePlannerOutput(content)

	if hasHighRisk(result.Commands) && a.Runtime.CanSpawnSubAgent() {
		sub, err := a.Runtime.SpawnSubAgent(ctx, "validator", "validate high-risk commands for: "+task, map[string]any{
			"commands": result.Commands,
		}, nil)
		if err == nil {
			if validated, ok := sub.(ValidatorResult); ok {
				result.Commands = validated.ValidatedCommands
			}
		}
	}

	result.TokensUsed = a.Runtime.Metrics().TokensUsed
	a.Runtime.EndMetrics(0)
	_ = a.Runtime.Transition(ctx, models.StatusDone)
	a.Runtime.EmitResult(ctx, "plan ready")
	return result, nil
}

func hasHighRisk(commands []models.Command) bool {
	for _, c := range commands {
		if c.Risk == models.RiskHigh {
			return true
		}
	}
	return false
}

func plannerPrompt(task, researchSummary string) string {
	return "Using this research, produce a plan to accomplish: " + task +
		"\n\nResearch:\n" + researchSummary +
		`. Respond with a single JSON object {"steps":[string],"commands":[{"command":,"privilegeLevel":"read-only|user|root","risk":"low|medium|high","riskExplanation":,"dryRunHint":,"expectedOutput":,"citations":[]}],"prerequisites":[string],"troubleshooting":[string]}.`
}

func parsePlannerOutput(content string) PlannerResult {
	var out PlannerResult
	if json.Unmarshal([]byte(extractJSONObject(content)), &out) != nil {
		out.Steps = []string{content}
	}
	return out
}
