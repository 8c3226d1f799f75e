package specialized

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/orito-ai/orito-core/internal/agent"
	"github.com/orito-ai/orito-core/pkg/models"
)

// ValidatorResult is the Validator agent's output (spec §4.5). Invariant:
// validatedCommands and blocked are disjoint by command string (spec §8
// testable property 6).
type ValidatorResult struct {
	ValidatedCommands []models.Command        `json:"validatedCommands"`
	Blocked           []models.BlockedCommand `json:"blocked"`
	Warnings          []string                `json:"warnings"`
	Suggestions       []string                `json:"suggestions"`
	TokensUsed        int                     `json:"-"`
}

// validatorLLMOutput is what the prompt asks the model to return per
// command before the Validator's own post-processing rules (blocked
// exclusivity, package-manager mismatch, dry-run suggestions) run.
type validatorLLMOutput struct {
	Verdicts []commandVerdict `json:"verdicts"`
}

type commandVerdict struct {
	Command models.Command `json:"command"`
	Blocked bool           `json:"blocked"`
	Reason  string         `json:"reason,omitempty"`
}

// ValidatorAgent checks proposed commands against validate_command,
// lookup_manpage, and search_packages, and applies the deterministic
// safety rules of spec §4.5.
type ValidatorAgent struct {
	Runtime            *agent.Runtime
	DetectedPackageMgr string
}

// NewValidatorAgent wraps an already-constructed runtime.
func NewValidatorAgent(r *agent.Runtime, detectedPackageMgr string) *ValidatorAgent {
	return &ValidatorAgent{Runtime: r, DetectedPackageMgr: detectedPackageMgr}
}

// Run validates commands, producing validatedCommands/blocked/warnings/
// suggestions per spec §4.5's rules.
func (a *ValidatorAgent) Run(ctx context.Context, commands []models.Command) (ValidatorResult, error) {
	if err := a.Runtime.Transition(ctx, models.StatusThinking); err != nil {
		return ValidatorResult{}, err
	}
	if err := a.Runtime.Transition(ctx, models.StatusValidating); err != nil {
		return ValidatorResult{}, err
	}
	a.Runtime.StartMetrics()

	messages := []models.Message{
		{Role: models.RoleSystem, Content: a.Runtime.Prompt},
		{Role: models.RoleUser, Content: validatorPrompt(commands)},
	}

	content, err := a.Runtime.CallWithTools(ctx, messages, agent.LoopOptions{})
	if err != nil {
		a.Runtime.RecordFailure()
		_ = a.Runtime.Transition(ctx, models.StatusError)
		return ValidatorResult{}, err
	}
	a.Runtime.RecordSuccess()

	verdicts := parseValidatorOutput(content, commands)
	result := a.applyRules(verdicts)

	result.TokensUsed = a.Runtime.Metrics().TokensUsed
	a.Runtime.EndMetrics(0)
	_ = a.Runtime.Transition(ctx, models.StatusDone)
	a.Runtime.EmitResult(ctx, "validation complete")
	return result, nil
}

// applyRules enforces the blocked-exclusivity invariant, package-manager
// mismatch warnings, and dry-run suggestions deterministically — the
// model's verdicts feed in, but these rules are never left to the LLM
// alone (spec §4.5, §8 testable property 6).
func (a *ValidatorAgent) applyRules(verdicts []commandVerdict) ValidatorResult {
	var result ValidatorResult
	for _, v := range verdicts {
		if v.Blocked {
			reason := v.Reason
			if reason == "" {
				reason = "blocked by policy"
			}
			result.Blocked = append(result.Blocked, models.BlockedCommand{Command: v.Command, Reason: reason})
			continue
		}

		cmd := v.Command
		if pm := detectCommandPackageManager(cmd.Command); pm != "" && a.DetectedPackageMgr != "" && pm != a.DetectedPackageMgr {
			result.Warnings = append(result.Warnings, "command uses "+pm+" but detected package manager is "+a.DetectedPackageMgr)
			result.Suggestions = append(result.Suggestions, "consider the "+a.DetectedPackageMgr+" equivalent of: "+cmd.Command)
		}
		if cmd.DryRunHint != "" && cmd.Risk != models.RiskLow {
			result.Suggestions = append(result.Suggestions, "test first with: "+cmd.DryRunHint)
		}
		result.ValidatedCommands = append(result.ValidatedCommands, cmd)
	}
	return result
}

var packageManagerBinaries = map[string]string{
	"apt-get": "apt", "apt": "apt", "dnf": "dnf", "yum": "dnf", "pacman": "pacman", "zypper": "zypper",
}

func detectCommandPackageManager(command string) string {
	for _, token := range strings.Fields(command) {
		if pm, ok := packageManagerBinaries[token]; ok {
			return pm
		}
	}
	return ""
}

func validatorPrompt(commands []models.Command) string {
	b, _ := json.Marshal(commands)
	return "Validate these proposed commands for safety. Respond with a single JSON object " +
		`{"verdicts":[{"command":<the original command object>,"blocked":bool,"reason":}]}` +
		". Commands:\n" + string(b)
}

func parseValidatorOutput(content string, original []models.Command) []commandVerdict {
	var out validatorLLMOutput
	if json.Unmarshal([]byte(extractJSONObject(content)), &out) != nil || len(out.Verdicts) == 0 {
		verdicts := make([]commandVerdict, len(original))
		for i, c := range original {
			verdicts[i] = commandVerdict{Command: c, Blocked: false}
		}
		return verdicts
	}
	return out.Verdicts
}
