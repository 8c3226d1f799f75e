// Package orchestrator implements the Orchestrator (spec §4.8): pipeline
// selection, agent lifecycle, sub-agent routing, event fan-out, the
// deferred-query queue, and the retry/fallback controller. It is the
// component every other package in this module exists to serve.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/orito-ai/orito-core/internal/agent"
	"github.com/orito-ai/orito-core/internal/agent/specialized"
	"github.com/orito-ai/orito-core/internal/agentdef"
	"github.com/orito-ai/orito-core/internal/circuitbreaker"
	"github.com/orito-ai/orito-core/internal/classifier"
	"github.com/orito-ai/orito-core/internal/config"
	"github.com/orito-ai/orito-core/internal/kinderr"
	"github.com/orito-ai/orito-core/internal/llm"
	"github.com/orito-ai/orito-core/internal/modelselect"
	"github.com/orito-ai/orito-core/internal/observability"
	"github.com/orito-ai/orito-core/internal/profile"
	"github.com/orito-ai/orito-core/internal/store"
	"github.com/orito-ai/orito-core/internal/tools"
	"github.com/orito-ai/orito-core/pkg/models"
)

// defaultTierLimits backs TIER_LIMITS (spec §5) when a deployment's
// config.yaml leaves tiers.limits unset.
var defaultTierLimits = map[models.Tier]int{
	models.TierFree: 2,
	models.TierPro:  6,
}

// Orchestrator executes the agent graph for one conversation turn at a
// time per chat: classification, pipeline selection, agent spawning,
// sub-agent routing, and streaming event fan-out (spec §4.8).
type Orchestrator struct {
	loader    *agentdef.Loader
	completer llm.Completer
	registry  *tools.Registry
	groups    *tools.GroupResolver
	selector  *modelselect.Selector
	collector *profile.Collector
	store     store.Store
	breakers  *circuitbreaker.Registry
	logger    *slog.Logger
	metrics   *observability.Metrics
	tracer    *observability.Tracer

	agentOpts    agent.Options
	tierLimits   map[models.Tier]int
	maxRetries   int
	retryDelay   time.Duration
	gracefulDegradation bool

	mu                sync.Mutex
	activeByTier      map[models.Tier]int
	profileInProgress map[string]bool
	pendingQuery      map[string]string
	questionOwners    map[string]string // questionID -> owning runtime id
	activeRuntimes    map[string]*agent.Runtime
	prefsLoaded       map[string]store.UserPreferences
}

// Deps bundles every collaborator the Orchestrator needs, per spec §4.8
// and the out-of-scope capabilities of §6.
type Deps struct {
	Config    *config.Config
	Completer llm.Completer
	Store     store.Store
	Registry  *tools.Registry
	Groups    *tools.GroupResolver
	Loader    *agentdef.Loader
	Logger    *slog.Logger

	// Metrics and Tracer are optional (SPEC_FULL.md §11 DOMAIN STACK); a
	// nil value disables the corresponding instrumentation without
	// affecting turn semantics.
	Metrics *observability.Metrics
	Tracer  *observability.Tracer

	// Breakers lets a caller share one circuit-breaker registry between
	// the Orchestrator and an external consumer such as
	// internal/cron.StatsReporter. A nil value makes New create its own,
	// private registry (the common case in tests).
	Breakers *circuitbreaker.Registry
}

// New constructs an Orchestrator from deps, filling in the selector,
// circuit-breaker registry, and profile collector it owns internally.
func New(deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.Config{}
	}

	modelParams := make(map[string]models.ModelParams, len(cfg.LLM.ModelParams))
	for name, p := range cfg.LLM.ModelParams {
		modelParams[name] = models.ModelParams{Temperature: p.Temperature, TopP: p.TopP, MaxTokens: p.MaxTokens}
	}

	tierLimits := make(map[models.Tier]int, len(cfg.Tiers.Limits))
	for name, limit := range cfg.Tiers.Limits {
		tierLimits[models.Tier(name)] = limit
	}
	for tier, limit := range defaultTierLimits {
		if _, ok := tierLimits[tier]; !ok {
			tierLimits[tier] = limit
		}
	}

	breakers := deps.Breakers
	if breakers == nil {
		breakers = circuitbreaker.NewRegistry(circuitbreaker.Config{
			FailureThreshold: cfg.AgentDefaults.CircuitBreaker.FailureThreshold,
			ResetTimeout:      time.Duration(cfg.AgentDefaults.CircuitBreaker.ResetTimeoutMs) * time.Millisecond,
		})
	}

	agentOpts := agent.Options{
		Timeout:    time.Duration(cfg.AgentDefaults.TimeoutMs) * time.Millisecond,
		MaxRetries: cfg.AgentDefaults.MaxRetries,
		RetryDelay: time.Duration(cfg.AgentDefaults.RetryDelayMs) * time.Millisecond,
	}

	o := &Orchestrator{
		loader:              deps.Loader,
		completer:           deps.Completer,
		registry:            deps.Registry,
		groups:              deps.Groups,
		selector:            modelselect.New(cfg.Orchestrator.DefaultModel, cfg.LLM.FallbackChain, modelParams),
		store:               deps.Store,
		breakers:            breakers,
		logger:              logger,
		metrics:             deps.Metrics,
		tracer:              deps.Tracer,
		agentOpts:           agentOpts,
		tierLimits:          tierLimits,
		maxRetries:          cfg.Orchestrator.MaxRetries,
		retryDelay:          time.Duration(cfg.Orchestrator.RetryDelayMs) * time.Millisecond,
		gracefulDegradation: cfg.Orchestrator.EnableGracefulDegradation,
		activeByTier:        make(map[models.Tier]int),
		profileInProgress:   make(map[string]bool),
		pendingQuery:        make(map[string]string),
		questionOwners:      make(map[string]string),
		activeRuntimes:      make(map[string]*agent.Runtime),
		prefsLoaded:         make(map[string]store.UserPreferences),
	}
	if deps.Store != nil {
		o.collector = profile.New(deps.Store)
	}
	if o.maxRetries <= 0 {
		o.maxRetries = 2
	}
	if o.retryDelay <= 0 {
		o.retryDelay = 500 * time.Millisecond
	}
	return o
}

// Process drives one user message through classification, pipeline
// selection, agent spawning, and final event emission (spec §4.8). It
// returns once the turn's terminal event (message:done or a fatal error)
// has been emitted to out; callers typically run it in its own goroutine
// per chat. While a profile collection is in progress for the chat, it
// instead stores userMessage as the chat's deferred query and returns
// without emitting any event. A non-empty octx.APIKey is passed to the
// completer for this turn through llm.WithAPIKey.
func (o *Orchestrator) Process(ctx context.Context, octx *models.OrchestratorContext, userMessage string, out chan<- models.Event) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.process")
	defer span.End()
	ctx = llm.WithAPIKey(ctx, octx.APIKey)

	sink := o.newSink(out)
	start := time.Now()

	// Step 1: profile gate re-entrancy (spec §3 invariant:
	// "profileCheckInProgress flag blocks concurrent collection").
	if o.isProfileInProgress(octx.ChatID) {
		o.setPendingQuery(octx.ChatID, userMessage)
		return
	}

	// Step 2: load preferences once per session.
	o.loadPreferencesOnce(ctx, octx)

	// Step 3: audit.
	o.audit(ctx, octx, "process_started", map[string]any{"message": userMessage})

	// Step 4: classify.
	classification := classifier.Classify(userMessage)
	o.metrics.ClassifierObserved(string(classification.Intent), string(classification.Complexity))

	agentsSpawned := 0

	switch {
	case classification.Complexity == models.ComplexityDecline:
		o.emitDecline(ctx, sink)
		o.auditCompleted(ctx, octx, start, classification, 0)
		return

	case classification.Intent == models.IntentSystemDiscovery:
		o.emitAck(ctx, sink, "Thanks, I've got your system details.")
		o.emitDone(ctx, sink, nil, nil, 0, nil)
		o.auditCompleted(ctx, octx, start, classification, 0)
		return

	case classifier.NeedsSystemProfile(classification.Intent) && !hasCompleteProfile(octx):
		o.setProfileInProgress(octx.ChatID, true)
		defer o.setProfileInProgress(octx.ChatID, false)

		collected, err := o.collectProfile(ctx, octx, sink)
		agentsSpawned++
		if err != nil {
			// Recoverable: continue the turn without a profile rather
			// than failing the whole request (spec §7 propagation
			// policy, graceful degradation).
			o.logger.WarnContext(ctx, "profile collection failed, continuing without it", "error", err)
		} else {
			octx.SystemProfile = &collected
		}
		// Re-classify is unnecessary: action/repair intents remain
		// complex regardless of profile state (spec §4.6 rule 4).
	}

	var (
		response        string
		citations       []models.Citation
		commands        []models.Command
		entries         []models.AgentMetricEntry
		totalTokens     int
		err             error
	)

	switch classification.Complexity {
	case models.ComplexitySimple:
		var tokens int
		response, tokens, err = o.handleSimpleQuery(ctx, octx, userMessage, classification)
		totalTokens = tokens
	case models.ComplexityModerate:
		response, citations, commands, entries, err = o.handleModerateQuery(ctx, octx, userMessage, classification, sink)
	default: // complex: research, planning, optional validation, synthesis
		response, citations, commands, entries, err = o.handleComplexQuery(ctx, octx, userMessage, classification, sink)
	}

	agentsSpawned += len(entries)
	for _, e := range entries {
		totalTokens += e.TokensUsed
	}

	if err != nil {
		o.emitChunk(ctx, sink, "I ran into a problem and couldn't finish that: "+err.Error())
		o.emitDone(ctx, sink, citations, commands, totalTokens, entries)
		o.auditCompleted(ctx, octx, start, classification, agentsSpawned)
		return
	}

	if response != "" {
		o.emitChunk(ctx, sink, response)
	}
	o.emitDone(ctx, sink, citations, commands, totalTokens, entries)
	o.auditCompleted(ctx, octx, start, classification, agentsSpawned)
}

func hasCompleteProfile(octx *models.OrchestratorContext) bool {
	if octx.SystemProfile == nil {
		return false
	}
	p := octx.SystemProfile
	return p.Distro != "" && p.PackageManager != "" && p.Shell != "" && p.DesktopEnvironment != ""
}

// collectProfile spawns the Curious agent in question mode (SPEC_FULL.md
// §12 open-question resolution: the orchestrator's profile gate always
// elicits structured answers in-band via agent:question/answer, matching
// the §8 scenario S5 event order) and persists the result.
func (o *Orchestrator) collectProfile(ctx context.Context, octx *models.OrchestratorContext, sink agent.EventSink) (models.SystemProfile, error) {
	if !o.spawnAgent(octx.Tier) {
		return models.SystemProfile{}, kinderr.New(kinderr.KindAgentLimitReached, "tier concurrency limit reached spawning curious agent")
	}
	defer o.releaseAgent(octx.Tier)

	ctx, span := o.tracer.Start(ctx, "agent.run:curious")
	defer span.End()
	start := time.Now()

	rt, err := o.newRuntime("curious", "Curious", "collect system profile", "", 0, sink)
	if err != nil {
		return models.SystemProfile{}, err
	}
	defer o.unregisterRuntime(rt)
	rt.Initialize(o.renderContext(octx, "curious", "Curious", "collect system profile"))
	rt.EmitSpawn(ctx)

	done := make(chan struct{})
	go o.drainSpawnRequests(ctx, rt, octx, sink, done)
	defer close(done)

	curious := specialized.NewCuriousAgent(rt, o.collector)
	data, err := curious.RunQuestionMode(ctx, octx.ChatID)
	defer func() { o.observeAgentRun("curious", start, err) }()
	if err != nil {
		rt.EmitError(ctx, err.Error())
		o.tracer.RecordError(span, err)
		return models.SystemProfile{}, err
	}
	return profile.ToLegacyProfile(data), nil
}

// isProfileInProgress / setProfileInProgress implement the re-entrancy
// guard of spec §3.
func (o *Orchestrator) isProfileInProgress(chatID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.profileInProgress[chatID]
}

func (o *Orchestrator) setProfileInProgress(chatID string, inProgress bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if inProgress {
		o.profileInProgress[chatID] = true
		return
	}
	delete(o.profileInProgress, chatID)
}

// setPendingQuery / takePendingQuery implement the deferred-query queue:
// one slot per chat, holding the latest deferred query, which
// takePendingQuery clears before UpdateSystemProfile re-invokes Process.
func (o *Orchestrator) setPendingQuery(chatID, query string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pendingQuery[chatID] = query
}

func (o *Orchestrator) takePendingQuery(chatID string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	q, ok := o.pendingQuery[chatID]
	if ok {
		delete(o.pendingQuery, chatID)
	}
	return q, ok
}

// UpdateSystemProfile routes an inbound {type: system_info, profile}
// session message (spec §6.5): it persists the profile and, if a query
// was deferred for this chat, re-invokes Process for it.
func (o *Orchestrator) UpdateSystemProfile(ctx context.Context, octx *models.OrchestratorContext, data models.SystemProfileData, out chan<- models.Event) {
	octx.SystemProfile = ptrProfile(profile.ToLegacyProfile(data))
	if o.collector != nil {
		_ = o.collector.Persist(ctx, octx.ChatID, data)
	}
	if query, ok := o.takePendingQuery(octx.ChatID); ok {
		o.Process(ctx, octx, query, out)
	}
}

func ptrProfile(p models.SystemProfile) *models.SystemProfile { return &p }

// ResolveUserAnswer routes an inbound {type: answer, questionId, answer}
// session message (spec §6.5) to whichever live runtime owns that
// question. The routing index is populated by the tracking sink every
// runtime in a turn shares (spec §9: "a per-agent mailbox ... the map is
// purely an index from questionId to the pending future").
func (o *Orchestrator) ResolveUserAnswer(questionID, answer string) bool {
	o.mu.Lock()
	runtimeID, ok := o.questionOwners[questionID]
	var rt *agent.Runtime
	if ok {
		rt = o.activeRuntimes[runtimeID]
	}
	o.mu.Unlock()
	if !ok || rt == nil {
		return false
	}
	resolved := rt.ResolveUserAnswer(questionID, answer)
	o.mu.Lock()
	delete(o.questionOwners, questionID)
	pending := len(o.questionOwners)
	o.mu.Unlock()
	o.metrics.SetPendingCounts(pending, 0)
	return resolved
}

func (o *Orchestrator) registerQuestionID(runtimeID, questionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.questionOwners[questionID] = runtimeID
	o.metrics.SetPendingCounts(len(o.questionOwners), 0)
}

func (o *Orchestrator) registerRuntime(rt *agent.Runtime) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.activeRuntimes[rt.ID] = rt
}

func (o *Orchestrator) unregisterRuntime(rt *agent.Runtime) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.activeRuntimes, rt.ID)
}

// loadPreferencesOnce fetches UserPreferences for octx.UserID the first
// time this session is seen, caching by SessionID (spec §4.8 step 2).
func (o *Orchestrator) loadPreferencesOnce(ctx context.Context, octx *models.OrchestratorContext) {
	if o.store == nil || octx.UserID == "" {
		return
	}
	o.mu.Lock()
	_, loaded := o.prefsLoaded[octx.SessionID]
	o.mu.Unlock()
	if loaded {
		return
	}

	prefs, err := o.store.FindUserPreferences(ctx, octx.UserID)
	if err != nil {
		return
	}
	o.mu.Lock()
	o.prefsLoaded[octx.SessionID] = prefs
	o.mu.Unlock()

	if octx.UserConfig == nil {
		octx.UserConfig = &models.UserConfig{}
	}
	if octx.UserConfig.DefaultDistro == "" {
		octx.UserConfig.DefaultDistro = prefs.DefaultDistro
	}
	if octx.UserConfig.DefaultShell == "" {
		octx.UserConfig.DefaultShell = prefs.DefaultShell
	}
	if octx.UserConfig.ResponseStyle == "" {
		octx.UserConfig.ResponseStyle = prefs.ResponseStyle
	}
}

// spawnAgent / releaseAgent enforce the per-tier concurrency limit of
// spec §5 TIER_LIMITS and §8 testable property 3.
func (o *Orchestrator) spawnAgent(tier models.Tier) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	limit, ok := o.tierLimits[tier]
	if !ok {
		limit = defaultTierLimits[models.TierFree]
	}
	if o.activeByTier[tier] >= limit {
		return false
	}
	o.activeByTier[tier]++
	o.metrics.SetActiveAgents(string(tier), o.activeByTier[tier])
	return true
}

func (o *Orchestrator) releaseAgent(tier models.Tier) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.activeByTier[tier] > 0 {
		o.activeByTier[tier]--
	}
	o.metrics.SetActiveAgents(string(tier), o.activeByTier[tier])
}

// --- event emission helpers -------------------------------------------

func (o *Orchestrator) emitChunk(ctx context.Context, sink agent.EventSink, content string) {
	sink.Emit(ctx, models.Event{Type: models.EventMessageChunk, Content: content})
}

func (o *Orchestrator) emitAck(ctx context.Context, sink agent.EventSink, content string) {
	o.emitChunk(ctx, sink, content)
}

func (o *Orchestrator) emitDecline(ctx context.Context, sink agent.EventSink) {
	o.emitChunk(ctx, sink, DeclineMessage)
	o.emitDone(ctx, sink, nil, nil, 0, nil)
}

func (o *Orchestrator) emitDone(ctx context.Context, sink agent.EventSink, citations []models.Citation, commands []models.Command, totalTokens int, entries []models.AgentMetricEntry) {
	sink.Emit(ctx, models.Event{
		Type:             models.EventMessageDone,
		Citations:        citations,
		DoneCommands:     commands,
		TotalTokensUsed:  totalTokens,
		AgentMetricsList: entries,
	})
}
