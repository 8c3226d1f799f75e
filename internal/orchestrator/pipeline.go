package orchestrator

import (
	"context"
	"time"

	"github.com/orito-ai/orito-core/internal/agent"
	"github.com/orito-ai/orito-core/internal/agent/specialized"
	"github.com/orito-ai/orito-core/internal/classifier"
	"github.com/orito-ai/orito-core/internal/kinderr"
	"github.com/orito-ai/orito-core/internal/llm"
	"github.com/orito-ai/orito-core/internal/modelselect"
	"github.com/orito-ai/orito-core/pkg/models"
)

// withRetry retries fn up to o.maxRetries times with linear backoff
// o.retryDelay*(attempt+1) — the orchestrator-level retry layer of spec
// §4.8, distinct from both the agent-level (Runtime.ExecuteWithRetry) and
// LLM-level (llm.CompleteWithRetry) retry shapes.
func (o *Orchestrator) withRetry(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if err := fn(ctx); err != nil {
			lastErr = err
			if kerr, ok := err.(*kinderr.Error); ok && !kerr.Recoverable() {
				return err
			}
			if attempt == o.maxRetries {
				break
			}
			delay := time.Duration(attempt+1) * o.retryDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}
		return nil
	}
	return lastErr
}

// completeWithFallback walks selection's fallback chain, trying each model
// in turn via llm.CompleteWithRetry (which itself retries the same model
// with exponential backoff) until one succeeds (spec §4.2, §4.8).
func (o *Orchestrator) completeWithFallback(ctx context.Context, messages []models.Message, selection models.ModelSelection) (llm.Result, error) {
	attempted := map[string]bool{}
	var lastErr error
	for {
		model, ok := modelselect.GetNextFallback(selection.FallbackChain, attempted)
		if !ok {
			break
		}
		attempted[model] = true
		params := o.selector.GetOptimalParams(model)
		res, err := llm.CompleteWithRetry(ctx, o.completer, messages, llm.Options{
			ModelID:     model,
			Temperature: params.Temperature,
			MaxTokens:   params.MaxTokens,
		})
		if err == nil {
			return res, nil
		}
		lastErr = err
	}
	return llm.Result{}, kinderr.Wrap(kinderr.KindLLMError, "every model in the fallback chain failed", lastErr)
}

const simpleSystemPrompt = "You are Orito, a helpful Linux systems assistant. Answer directly and concisely; only mention shell commands the user actually needs."

// handleSimpleQuery answers directly from the completer with no agent
// spawned, per spec §4.8's simple-complexity path.
func (o *Orchestrator) handleSimpleQuery(ctx context.Context, octx *models.OrchestratorContext, userMessage string, classification models.Classification) (string, int, error) {
	tc := models.TaskContext{
		Query:      userMessage,
		Urgency:    models.UrgencyFast,
		Complexity: classification.Complexity,
	}
	preferred := ""
	if octx.UserConfig != nil {
		preferred = octx.UserConfig.PreferredModel
	}
	selection := o.selector.Select(tc, preferred)

	messages := []models.Message{
		{Role: models.RoleSystem, Content: simpleSystemPrompt},
		{Role: models.RoleUser, Content: userMessage},
	}

	var result llm.Result
	err := o.withRetry(ctx, func(ctx context.Context) error {
		res, err := o.completeWithFallback(ctx, messages, selection)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return "", 0, err
	}

	tokens := 0
	if result.Usage != nil {
		tokens = result.Usage.TotalTokens
	}
	return result.Content, tokens, nil
}

// handleModerateQuery runs research then synthesis (spec §4.8
// moderate-complexity path), falling back to a direct completion if the
// research agent cannot be spawned at all.
func (o *Orchestrator) handleModerateQuery(ctx context.Context, octx *models.OrchestratorContext, userMessage string, classification models.Classification, sink agent.EventSink) (string, []models.Citation, []models.Command, []models.AgentMetricEntry, error) {
	research, entry, err := o.runResearch(ctx, octx, userMessage, classification, sink)
	if err != nil {
		if !o.gracefulDegradation {
			return "", nil, nil, nil, err
		}
		response, tokens, ferr := o.handleSimpleQuery(ctx, octx, userMessage, classification)
		if ferr != nil {
			return "", nil, nil, nil, ferr
		}
		return response, nil, nil, []models.AgentMetricEntry{{AgentType: "fallback", TokensUsed: tokens}}, nil
	}

	entries := []models.AgentMetricEntry{entry}

	synthEntry, err := o.runSynthesizer(ctx, octx, userMessage, classification, sink, specialized.SynthesizerInput{
		ResearchSummary: research.Summary,
		Citations:       research.Citations,
	})
	if err != nil {
		return "", research.Citations, nil, entries, err
	}
	entries = append(entries, synthEntry)

	return "", research.Citations, nil, entries, nil
}

// handleComplexQuery runs research, planning, optional validation, and
// synthesis (spec §4.8 complex-complexity path), falling back to a
// research-only synthesis if the planner cannot be spawned.
func (o *Orchestrator) handleComplexQuery(ctx context.Context, octx *models.OrchestratorContext, userMessage string, classification models.Classification, sink agent.EventSink) (string, []models.Citation, []models.Command, []models.AgentMetricEntry, error) {
	research, researchEntry, err := o.runResearch(ctx, octx, userMessage, classification, sink)
	if err != nil {
		if !o.gracefulDegradation {
			return "", nil, nil, nil, err
		}
		response, tokens, ferr := o.handleSimpleQuery(ctx, octx, userMessage, classification)
		if ferr != nil {
			return "", nil, nil, nil, ferr
		}
		return response, nil, nil, []models.AgentMetricEntry{{AgentType: "fallback", TokensUsed: tokens}}, nil
	}
	entries := []models.AgentMetricEntry{researchEntry}

	plan, planEntry, err := o.runPlanner(ctx, octx, userMessage, research.Summary, sink)
	if err != nil {
		// Recoverable: fall back to a research-only synthesis rather than
		// failing the whole turn (spec §7 graceful degradation).
		synthEntry, serr := o.runSynthesizer(ctx, octx, userMessage, classification, sink, specialized.SynthesizerInput{
			ResearchSummary: research.Summary,
			Citations:       research.Citations,
		})
		if serr != nil {
			return "", research.Citations, nil, entries, serr
		}
		entries = append(entries, synthEntry)
		return "", research.Citations, nil, entries, nil
	}
	entries = append(entries, planEntry)

	validatorInput := specialized.SynthesizerInput{
		ResearchSummary: research.Summary,
		Steps:           plan.Steps,
		Commands:        plan.Commands,
		Citations:       research.Citations,
		Prerequisites:   plan.Prerequisites,
		Troubleshooting: plan.Troubleshooting,
	}

	if needsValidation(plan.Commands) {
		validated, valEntry, err := o.runValidator(ctx, octx, userMessage, plan.Commands, sink)
		if err == nil {
			validatorInput.Commands = validated.ValidatedCommands
			validatorInput.Warnings = validated.Warnings
			validatorInput.Suggestions = validated.Suggestions
			validatorInput.Blocked = validated.Blocked
			entries = append(entries, valEntry)
		}
		// A validator failure is recoverable: the plan's own commands are
		// used unvalidated rather than failing the turn (spec §7).
	}

	synthEntry, err := o.runSynthesizer(ctx, octx, userMessage, classification, sink, validatorInput)
	if err != nil {
		return "", research.Citations, validatorInput.Commands, entries, err
	}
	entries = append(entries, synthEntry)

	return "", research.Citations, validatorInput.Commands, entries, nil
}

// needsValidation reports whether any proposed command warrants the
// Validator sub-agent (spec §4.5: "If any command is high risk or any
// commands exist at all and the task is a repair/action").
func needsValidation(commands []models.Command) bool {
	return len(commands) > 0
}

func (o *Orchestrator) runResearch(ctx context.Context, octx *models.OrchestratorContext, userMessage string, classification models.Classification, sink agent.EventSink) (specialized.ResearchResult, models.AgentMetricEntry, error) {
	if !o.spawnAgent(octx.Tier) {
		return specialized.ResearchResult{}, models.AgentMetricEntry{}, kinderr.New(kinderr.KindAgentLimitReached, "tier concurrency limit reached spawning research agent")
	}
	defer o.releaseAgent(octx.Tier)

	ctx, span := o.tracer.Start(ctx, "agent.run:research")
	defer span.End()
	start := time.Now()

	rt, err := o.newRuntime("research", "Research", userMessage, "", 0, sink)
	if err != nil {
		return specialized.ResearchResult{}, models.AgentMetricEntry{}, err
	}
	rt.Initialize(o.renderContext(octx, "research", "Research", userMessage))
	rt.EmitSpawn(ctx)

	done := make(chan struct{})
	go o.drainSpawnRequests(ctx, rt, octx, sink, done)
	defer close(done)
	defer o.unregisterRuntime(rt)

	strategy := classifier.DetermineResearchStrategy(userMessage, classification.Intent)
	researcher := specialized.NewResearchAgent(rt, strategy)
	result, err := researcher.Run(ctx, userMessage, 0)
	defer func() { o.observeAgentRun("research", start, err) }()
	if err != nil {
		rt.EmitError(ctx, err.Error())
		o.tracer.RecordError(span, err)
		return specialized.ResearchResult{}, models.AgentMetricEntry{}, err
	}
	return result, models.AgentMetricEntry{AgentID: rt.ID, AgentType: "research", TokensUsed: result.TokensUsed}, nil
}

func (o *Orchestrator) runPlanner(ctx context.Context, octx *models.OrchestratorContext, userMessage, researchSummary string, sink agent.EventSink) (specialized.PlannerResult, models.AgentMetricEntry, error) {
	if !o.spawnAgent(octx.Tier) {
		return specialized.PlannerResult{}, models.AgentMetricEntry{}, kinderr.New(kinderr.KindAgentLimitReached, "tier concurrency limit reached spawning planner agent")
	}
	defer o.releaseAgent(octx.Tier)

	ctx, span := o.tracer.Start(ctx, "agent.run:planner")
	defer span.End()
	start := time.Now()

	rt, err := o.newRuntime("planner", "Planner", userMessage, "", 0, sink)
	if err != nil {
		return specialized.PlannerResult{}, models.AgentMetricEntry{}, err
	}
	rt.Initialize(o.renderContext(octx, "planner", "Planner", userMessage))
	rt.EmitSpawn(ctx)

	done := make(chan struct{})
	go o.drainSpawnRequests(ctx, rt, octx, sink, done)
	defer close(done)
	defer o.unregisterRuntime(rt)

	planner := specialized.NewPlannerAgent(rt)
	result, err := planner.Run(ctx, userMessage, researchSummary)
	defer func() { o.observeAgentRun("planner", start, err) }()
	if err != nil {
		rt.EmitError(ctx, err.Error())
		o.tracer.RecordError(span, err)
		return specialized.PlannerResult{}, models.AgentMetricEntry{}, err
	}
	return result, models.AgentMetricEntry{AgentID: rt.ID, AgentType: "planner", TokensUsed: result.TokensUsed}, nil
}

func (o *Orchestrator) runValidator(ctx context.Context, octx *models.OrchestratorContext, userMessage string, commands []models.Command, sink agent.EventSink) (specialized.ValidatorResult, models.AgentMetricEntry, error) {
	if !o.spawnAgent(octx.Tier) {
		return specialized.ValidatorResult{}, models.AgentMetricEntry{}, kinderr.New(kinderr.KindAgentLimitReached, "tier concurrency limit reached spawning validator agent")
	}
	defer o.releaseAgent(octx.Tier)

	ctx, span := o.tracer.Start(ctx, "agent.run:validator")
	defer span.End()
	start := time.Now()

	rt, err := o.newRuntime("validator", "Validator", userMessage, "", 0, sink)
	if err != nil {
		return specialized.ValidatorResult{}, models.AgentMetricEntry{}, err
	}
	rt.Initialize(o.renderContext(octx, "validator", "Validator", userMessage))
	rt.EmitSpawn(ctx)

	done := make(chan struct{})
	go o.drainSpawnRequests(ctx, rt, octx, sink, done)
	defer close(done)
	defer o.unregisterRuntime(rt)

	detectedPM := ""
	if octx.SystemProfile != nil {
		detectedPM = octx.SystemProfile.PackageManager
	}
	validator := specialized.NewValidatorAgent(rt, detectedPM)
	result, err := validator.Run(ctx, commands)
	defer func() { o.observeAgentRun("validator", start, err) }()
	if err != nil {
		rt.EmitError(ctx, err.Error())
		o.tracer.RecordError(span, err)
		return specialized.ValidatorResult{}, models.AgentMetricEntry{}, err
	}
	return result, models.AgentMetricEntry{AgentID: rt.ID, AgentType: "validator", TokensUsed: result.TokensUsed}, nil
}

func (o *Orchestrator) runSynthesizer(ctx context.Context, octx *models.OrchestratorContext, userMessage string, classification models.Classification, sink agent.EventSink, input specialized.SynthesizerInput) (models.AgentMetricEntry, error) {
	if !o.spawnAgent(octx.Tier) {
		return models.AgentMetricEntry{}, kinderr.New(kinderr.KindAgentLimitReached, "tier concurrency limit reached spawning synthesizer agent")
	}
	defer o.releaseAgent(octx.Tier)

	ctx, span := o.tracer.Start(ctx, "agent.run:synthesizer")
	defer span.End()
	start := time.Now()

	rt, err := o.newRuntime("synthesizer", "Synthesizer", userMessage, "", 0, sink)
	if err != nil {
		return models.AgentMetricEntry{}, err
	}
	rt.Initialize(o.renderContext(octx, "synthesizer", "Synthesizer", userMessage))
	rt.EmitSpawn(ctx)
	defer o.unregisterRuntime(rt)

	onChunk := func(chunk string) {
		o.emitChunk(ctx, sink, chunk)
	}
	synth := specialized.NewSynthesizerAgent(rt, o.completer, onChunk)
	result, err := synth.Run(ctx, userMessage, classification.Complexity, input)
	defer func() { o.observeAgentRun("synthesizer", start, err) }()
	if err != nil {
		rt.EmitError(ctx, err.Error())
		o.tracer.RecordError(span, err)
		return models.AgentMetricEntry{}, err
	}
	return models.AgentMetricEntry{AgentID: rt.ID, AgentType: "synthesizer", TokensUsed: result.TokensUsed}, nil
}
