package specialized

import (
	"context"
	"strings"

	"github.com/orito-ai/orito-core/internal/agent"
	"github.com/orito-ai/orito-core/internal/profile"
	"github.com/orito-ai/orito-core/pkg/models"
)

// discoveryCommands maps a missing profile field to the shell command that
// would reveal it (spec §4.5 command mode's "fixed table").
var discoveryCommands = map[string]string{
	profile.FieldDistro:             "cat /etc/os-release",
	profile.FieldVersion:            "cat /etc/os-release",
	profile.FieldPackageManager:     "which apt dnf pacman zypper 2>/dev/null",
	profile.FieldShell:              "echo $SHELL",
	profile.FieldDesktopEnvironment: "echo $XDG_CURRENT_DESKTOP",
}

// fieldOrder is the fixed collection order shared with the interactive
// question set.
var fieldOrder = []string{
	profile.FieldDistro, profile.FieldVersion, profile.FieldPackageManager,
	profile.FieldShell, profile.FieldDesktopEnvironment,
}

// CuriousResult is the system-profile elicitor's output (spec §4.5).
type CuriousResult struct {
	Commands []string
	Prompt   string
	Fields   []string
}

// repairKeywords trigger a background research sub-agent when the task
// mentions a problem (spec §4.5: "If the task mentions an error/problem/
// issue, may spawn a research sub-agent for background reading").
var repairKeywords = []string{"error", "problem", "issue", "broken", "fail", "crash"}

// CuriousAgent elicits the system profile, either by proposing discovery
// commands (command mode) or by running the interactive question flow
// (question mode).
type CuriousAgent struct {
	Runtime   *agent.Runtime
	Collector *profile.Collector
}

// NewCuriousAgent wraps an already-constructed runtime and profile
// collector.
func NewCuriousAgent(r *agent.Runtime, collector *profile.Collector) *CuriousAgent {
	return &CuriousAgent{Runtime: r, Collector: collector}
}

// RunCommandMode derives the missing fields of existing (nil entries count
// as missing) and returns the discovery commands and a friendly prompt for
// the client to run locally (spec §4.5 command mode).
func (a *CuriousAgent) RunCommandMode(ctx context.Context, task string, existing *models.SystemProfileData) (CuriousResult, error) {
	if err := a.Runtime.Transition(ctx, models.StatusThinking); err != nil {
		return CuriousResult{}, err
	}
	a.Runtime.StartMetrics()

	missing := missingFields(existing)
	commands := make([]string, 0, len(missing))
	seen := map[string]bool{}
	for _, field := range missing {
		cmd := discoveryCommands[field]
		if cmd != "" && !seen[cmd] {
			commands = append(commands, cmd)
			seen[cmd] = true
		}
	}

	promptText := "I need a bit more information about your system to help accurately. " +
		"Run these commands and paste the output back:\n" + strings.Join(commands, "\n")

	a.Runtime.EmitDiscovery(ctx, commands, promptText)

	if needsResearchBackground(task) && a.Runtime.CanSpawnSubAgent() {
		_, _ = a.Runtime.SpawnSubAgent(ctx, "research", "background reading on: "+task, map[string]any{"query": task}, nil)
	}

	a.Runtime.EndMetrics(0)
	_ = a.Runtime.Transition(ctx, models.StatusDone)
	result := CuriousResult{Commands: commands, Prompt: promptText, Fields: missing}
	a.Runtime.EmitResult(ctx, promptText)
	return result, nil
}

// RunQuestionMode runs the interactive Profile Collector (spec §4.5
// question mode) and acknowledges completion.
func (a *CuriousAgent) RunQuestionMode(ctx context.Context, chatID string) (models.SystemProfileData, error) {
	if err := a.Runtime.Transition(ctx, models.StatusThinking); err != nil {
		return models.SystemProfileData{}, err
	}
	a.Runtime.StartMetrics()

	profileData, err := a.Collector.EnsureProfile(ctx, chatID, func(ctx context.Context, q models.Question) (string, error) {
		answers, err := a.Runtime.AskUserQuestions(ctx, []models.Question{q})
		if err != nil {
			return "", err
		}
		return answers[0], nil
	})
	if err != nil {
		a.Runtime.RecordFailure()
		_ = a.Runtime.Transition(ctx, models.StatusError)
		return models.SystemProfileData{}, err
	}

	a.Runtime.EndMetrics(0)
	_ = a.Runtime.Transition(ctx, models.StatusDone)
	a.Runtime.EmitResult(ctx, "system profile collected")
	return profileData, nil
}

func missingFields(existing *models.SystemProfileData) []string {
	if existing == nil {
		return append([]string(nil), fieldOrder...)
	}
	values := map[string]string{
		profile.FieldDistro:             existing.Distro,
		profile.FieldVersion:            existing.Version,
		profile.FieldPackageManager:     existing.PackageManager,
		profile.FieldShell:              existing.Shell,
		profile.FieldDesktopEnvironment: existing.DesktopEnvironment,
	}
	var missing []string
	for _, field := range fieldOrder {
		v := values[field]
		if v == "" || v == "Unknown" {
			missing = append(missing, field)
		}
	}
	return missing
}

func needsResearchBackground(task string) bool {
	lower := strings.ToLower(task)
	for _, kw := range repairKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
