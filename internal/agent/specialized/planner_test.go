package specialized

import (
	"context"
	"testing"

	"github.com/orito-ai/orito-core/internal/llm"
	"github.com/orito-ai/orito-core/pkg/models"
)

func TestPlannerAgent_ParsesStepsAndCommands(t *testing.T) {
	completer := &scriptedCompleter{replies: []llm.Result{{Content: `{
		"steps": ["update package index", "install nginx"],
		"commands": [{"command":"sudo apt install -y nginx","privilegeLevel":"root","risk":"low","riskExplanation":"standard package install"}],
		"prerequisites": ["sudo access"],
		"troubleshooting": ["check apt sources if install fails"]
	}`}}}
	r := newBareRuntime(t, completer, 0, 0)
	p := NewPlannerAgent(r)

	result, err := p.Run(context.Background(), "install nginx", "nginx is a web server")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Steps) != 2 || len(result.Commands) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Commands[0].Command != "sudo apt install -y nginx" {
		t.Fatalf("unexpected command: %+v", result.Commands[0])
	}
}

func TestPlannerAgent_SpawnsValidatorOnHighRiskCommand(t *testing.T) {
	completer := &scriptedCompleter{replies: []llm.Result{{Content: `{
		"steps": ["remove the directory"],
		"commands": [{"command":"rm -rf /var/log/old","privilegeLevel":"root","risk":"high","riskExplanation":"destructive deletion"}]
	}`}}}
	r := newBareRuntime(t, completer, 1, 0)
	p := NewPlannerAgent(r)

	go func() {
		req := <-r.SpawnRequests()
		r.ResolveSubAgent(req.RequestID, ValidatorResult{
			ValidatedCommands: []models.Command{{Command: "rm -rf /var/log/old", Risk: models.RiskHigh, DryRunHint: "rm -rfi /var/log/old"}},
		}, nil)
	}()

	result, err := p.Run(context.Background(), "clean up old logs", "logs accumulate under /var/log")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Commands) != 1 || result.Commands[0].DryRunHint != "rm -rfi /var/log/old" {
		t.Fatalf("expected validator's commands to replace the planner's, got %+v", result.Commands)
	}
}

func TestPlannerAgent_NoValidatorSpawnForLowRiskOnly(t *testing.T) {
	completer := &scriptedCompleter{replies: []llm.Result{{Content: `{
		"steps": ["list files"],
		"commands": [{"command":"ls -la","privilegeLevel":"read-only","risk":"low","riskExplanation":"read only"}]
	}`}}}
	r := newBareRuntime(t, completer, 0, 0)
	p := NewPlannerAgent(r)

	result, err := p.Run(context.Background(), "show me my files", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Commands) != 1 {
		t.Fatalf("unexpected commands: %+v", result.Commands)
	}
}
