package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/orito-ai/orito-core/internal/agent"
	"github.com/orito-ai/orito-core/internal/agent/specialized"
	"github.com/orito-ai/orito-core/internal/classifier"
	"github.com/orito-ai/orito-core/internal/kinderr"
	"github.com/orito-ai/orito-core/pkg/models"
)

// trackingSink wraps the turn's real sink and indexes every agent:question
// event by its owning runtime, so ResolveUserAnswer can route an inbound
// answer without the caller needing to know which runtime asked it (spec §9
// design note: "the map is purely an index from questionId to the pending
// future").
type trackingSink struct {
	o    *Orchestrator
	next agent.EventSink
}

func (s *trackingSink) Emit(ctx context.Context, event models.Event) {
	if event.Type == models.EventAgentQuestion {
		s.o.registerQuestionID(event.AgentID, event.QuestionID)
	}
	s.next.Emit(ctx, event)
}

// newSink builds the turn's shared tracking sink over out.
func (o *Orchestrator) newSink(out chan<- models.Event) agent.EventSink {
	return &trackingSink{o: o, next: agent.NewChanSink(out)}
}

// newRuntime loads agentType's definition, binds its circuit breaker, and
// constructs a Runtime registered in activeRuntimes for question routing
// (spec §4.3, §4.4).
func (o *Orchestrator) newRuntime(agentType, name, task, parentID string, depth int, sink agent.EventSink) (*agent.Runtime, error) {
	def, err := o.loader.Load(agentType)
	if err != nil {
		return nil, err
	}

	rt := agent.New(agent.Config{
		AgentType:     agentType,
		Name:          name,
		Task:          task,
		ParentAgentID: parentID,
		Depth:         depth,
		Definition:    def,
		Completer:     o.completer,
		Registry:      o.registry,
		Groups:        o.groups,
		Breaker:       o.breakers.Get(agentType),
		Sink:          sink,
		Options:       o.agentOpts,
	})
	o.registerRuntime(rt)
	return rt, nil
}

// observeAgentRun records a terminal agent outcome in both the metrics and
// circuit-breaker-state gauges (SPEC_FULL.md §11 DOMAIN STACK). A nil
// o.metrics makes every call here a no-op.
func (o *Orchestrator) observeAgentRun(agentType string, start time.Time, err error) {
	status := "done"
	if err != nil {
		status = "error"
	}
	o.metrics.AgentRunObserved(agentType, status, time.Since(start).Seconds())
	o.metrics.SetCircuitBreakerOpen(agentType, o.breakers.Get(agentType).Stats().IsOpen)
}

// renderContext builds the {{key}} substitution map an agent definition's
// system prompt template is rendered with (spec §4.4 Initialization).
func (o *Orchestrator) renderContext(octx *models.OrchestratorContext, agentType, name, task string) map[string]string {
	ctx := map[string]string{
		"task":                 task,
		"tier":                 string(octx.Tier),
		"agentName":            name,
		"agentType":            agentType,
		"systemProfile":        formatSystemProfile(octx.SystemProfile),
		"conversationContext":  formatConversationHistory(octx.MessageHistory),
		"currentDate":          time.Now().Format("2006-01-02"),
	}
	return ctx
}

func formatSystemProfile(p *models.SystemProfile) string {
	if p == nil {
		return "unknown"
	}
	var parts []string
	if p.Distro != "" {
		parts = append(parts, "distro="+p.Distro)
	}
	if p.PackageManager != "" {
		parts = append(parts, "packageManager="+p.PackageManager)
	}
	if p.Shell != "" {
		parts = append(parts, "shell="+p.Shell)
	}
	if p.DesktopEnvironment != "" {
		parts = append(parts, "desktopEnvironment="+p.DesktopEnvironment)
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, ", ")
}

func formatConversationHistory(history []models.Message) string {
	if len(history) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, m := range history {
		sb.WriteString(string(m.Role))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

// drainSpawnRequests services rt's outbound sub-agent spawn requests until
// done is closed, spinning up one goroutine per request so a slow
// sub-agent never blocks a sibling's spawn (spec §4.4, §9).
func (o *Orchestrator) drainSpawnRequests(ctx context.Context, rt *agent.Runtime, octx *models.OrchestratorContext, sink agent.EventSink, done <-chan struct{}) {
	for {
		select {
		case req := <-rt.SpawnRequests():
			go o.serviceSpawnRequest(ctx, rt, octx, sink, req)
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// serviceSpawnRequest runs the sub-agent req describes and resolves it back
// to the parent runtime's pending SpawnSubAgent call (spec §4.4).
func (o *Orchestrator) serviceSpawnRequest(ctx context.Context, parent *agent.Runtime, octx *models.OrchestratorContext, sink agent.EventSink, req agent.SubAgentRequest) {
	result, err := o.runSpecialized(ctx, parent, octx, sink, req)
	parent.ResolveSubAgent(req.RequestID, result, err)
}

// runSpecialized dispatches a sub-agent spawn request to its concrete
// agent type. Only "research" and "validator" are ever spawned as
// sub-agents (spec §4.5: curious/planner/synthesizer are always top-level).
func (o *Orchestrator) runSpecialized(ctx context.Context, parent *agent.Runtime, octx *models.OrchestratorContext, sink agent.EventSink, req agent.SubAgentRequest) (any, error) {
	if !o.spawnAgent(octx.Tier) {
		return nil, kinderr.New(kinderr.KindAgentLimitReached, fmt.Sprintf("tier concurrency limit reached spawning %s sub-agent", req.AgentType))
	}
	defer o.releaseAgent(octx.Tier)

	depth := parent.Depth + 1
	name := titleCase(req.AgentType)
	rt, err := o.newRuntime(req.AgentType, name, req.Task, parent.ID, depth, sink)
	if err != nil {
		return nil, err
	}
	rt.Initialize(o.renderContext(octx, req.AgentType, name, req.Task))
	rt.EmitSpawn(ctx)

	done := make(chan struct{})
	go o.drainSpawnRequests(ctx, rt, octx, sink, done)
	defer close(done)
	defer o.unregisterRuntime(rt)

	start := time.Now()

	switch req.AgentType {
	case "research":
		query, _ := req.Input["query"].(string)
		if query == "" {
			query = req.Task
		}
		depthSoFar := 0
		if req.Extra != nil {
			if d, ok := req.Extra["subResearchDepth"].(int); ok {
				depthSoFar = d
			}
		}
		strategy := classifier.DetermineResearchStrategy(query, models.IntentInfo)
		researcher := specialized.NewResearchAgent(rt, strategy)
		result, err := researcher.Run(ctx, query, depthSoFar)
		o.observeAgentRun("research", start, err)
		if err != nil {
			rt.EmitError(ctx, err.Error())
			return nil, err
		}
		return result, nil

	case "validator":
		commands, _ := req.Input["commands"].([]models.Command)
		detectedPM := ""
		if octx.SystemProfile != nil {
			detectedPM = octx.SystemProfile.PackageManager
		}
		validator := specialized.NewValidatorAgent(rt, detectedPM)
		result, err := validator.Run(ctx, commands)
		o.observeAgentRun("validator", start, err)
		if err != nil {
			rt.EmitError(ctx, err.Error())
			return nil, err
		}
		return result, nil

	default:
		err := kinderr.New(kinderr.KindUnknownAgentType, fmt.Sprintf("%q cannot be spawned as a sub-agent", req.AgentType))
		rt.EmitError(ctx, err.Error())
		return nil, err
	}
}

// titleCase upper-cases the first rune of s, used to turn a lowercase
// agent-type string into its display name (e.g. "research" -> "Research").
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
