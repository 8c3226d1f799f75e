package specialized

import (
	"context"
	"testing"

	"github.com/orito-ai/orito-core/internal/llm"
	"github.com/orito-ai/orito-core/pkg/models"
)

func TestValidatorAgent_BlockedExclusivity(t *testing.T) {
	commands := []models.Command{
		{Command: "rm -rf /", Risk: models.RiskHigh, RiskExplanation: "destroys the root filesystem"},
		{Command: "sudo apt update", Risk: models.RiskLow, RiskExplanation: "refreshes package index"},
	}
	completer := &scriptedCompleter{replies: []llm.Result{{Content: `{"verdicts":[
		{"command":{"command":"rm -rf /","risk":"high","riskExplanation":"destroys the root filesystem"},"blocked":true,"reason":"recursive delete of root"},
		{"command":{"command":"sudo apt update","risk":"low","riskExplanation":"refreshes package index"},"blocked":false}
	]}`}}}
	r := newBareRuntime(t, completer, 0, 0)
	v := NewValidatorAgent(r, "apt")

	result, err := v.Run(context.Background(), commands)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Blocked) != 1 || result.Blocked[0].Command.Command != "rm -rf /" {
		t.Fatalf("unexpected blocked: %+v", result.Blocked)
	}
	if len(result.ValidatedCommands) != 1 || result.ValidatedCommands[0].Command != "sudo apt update" {
		t.Fatalf("unexpected validated commands: %+v", result.ValidatedCommands)
	}
	for _, vc := range result.ValidatedCommands {
		for _, b := range result.Blocked {
			if vc.Command == b.Command.Command {
				t.Fatalf("command %q appears in both validated and blocked", vc.Command)
			}
		}
	}
}

func TestValidatorAgent_PackageManagerMismatchWarns(t *testing.T) {
	completer := &scriptedCompleter{replies: []llm.Result{{Content: `{"verdicts":[
		{"command":{"command":"sudo dnf install htop","risk":"low","riskExplanation":"installs a package"},"blocked":false}
	]}`}}}
	r := newBareRuntime(t, completer, 0, 0)
	v := NewValidatorAgent(r, "apt")

	result, err := v.Run(context.Background(), []models.Command{{Command: "sudo dnf install htop", Risk: models.RiskLow}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected a package manager mismatch warning, got %+v", result.Warnings)
	}
	if len(result.Suggestions) != 1 {
		t.Fatalf("expected a suggestion referencing the detected package manager, got %+v", result.Suggestions)
	}
}

func TestValidatorAgent_SuggestsDryRunForNonLowRisk(t *testing.T) {
	completer := &scriptedCompleter{replies: []llm.Result{{Content: `{"verdicts":[
		{"command":{"command":"sudo apt autoremove","risk":"medium","riskExplanation":"removes packages","dryRunHint":"sudo apt autoremove --dry-run"},"blocked":false}
	]}`}}}
	r := newBareRuntime(t, completer, 0, 0)
	v := NewValidatorAgent(r, "apt")

	result, err := v.Run(context.Background(), []models.Command{{Command: "sudo apt autoremove", Risk: models.RiskMedium, DryRunHint: "sudo apt autoremove --dry-run"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	found := false
	for _, s := range result.Suggestions {
		if s == "test first with: sudo apt autoremove --dry-run" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected dry-run suggestion, got %+v", result.Suggestions)
	}
}

func TestValidatorAgent_FallsBackToUnblockedWhenModelOutputUnparsable(t *testing.T) {
	completer := &scriptedCompleter{replies: []llm.Result{{Content: "not valid json"}}}
	r := newBareRuntime(t, completer, 0, 0)
	v := NewValidatorAgent(r, "")

	commands := []models.Command{{Command: "ls", Risk: models.RiskLow}}
	result, err := v.Run(context.Background(), commands)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.ValidatedCommands) != 1 || len(result.Blocked) != 0 {
		t.Fatalf("expected fallback to pass commands through unblocked, got %+v", result)
	}
}
