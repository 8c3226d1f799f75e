package models

import "log/slog"

// Tier is the fixed set of service tiers that determines concurrency
// limits (spec §3, §5 TIER_LIMITS).
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// OrchestratorContext is the per-turn immutable snapshot plus mutable
// profile/history references described in spec §3.
type OrchestratorContext struct {
	ChatID    string
	SessionID string
	UserID    string // optional; empty means anonymous

	Tier Tier

	MessageHistory []Message

	SystemProfile *SystemProfile
	UserConfig    *UserConfig

	// APIKey overrides default LLM credentials for this turn when set
	// (spec §3, §6.6).
	APIKey string

	Logger *slog.Logger
}

// Urgency and Complexity are TaskContext/classifier enums (spec §4.2, §4.6).
type Urgency string

const (
	UrgencyFast     Urgency = "fast"
	UrgencyBalanced Urgency = "balanced"
	UrgencyThorough Urgency = "thorough"
)

type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
	ComplexityDecline  Complexity = "decline"
)

// Intent is the classifier's intent enum (spec §4.6).
type Intent string

const (
	IntentInfo            Intent = "info"
	IntentAction           Intent = "action"
	IntentRepair           Intent = "repair"
	IntentSystemDiscovery  Intent = "system_discovery"
)

// Classification is the Query Classifier's output (spec §4.6).
type Classification struct {
	Intent     Intent
	Complexity Complexity
}

// ResearchStrategy bounds the Research agent's tool-calling depth (spec §4.5).
type ResearchStrategy string

const (
	StrategyQuick    ResearchStrategy = "quick"
	StrategyAdaptive ResearchStrategy = "adaptive"
	StrategyDeep     ResearchStrategy = "deep"
)

// TaskContext is the Model Selector's input (spec §4.2).
type TaskContext struct {
	Query                 string
	RequiresTools         bool
	ToolCount             int
	RequiresCoding        bool
	RequiresDeepReasoning bool
	RequiresLongContext   bool
	EstimatedContextSize  int
	Urgency               Urgency
	Complexity            Complexity
}

// EstimatedLatency is the Model Selector's output latency bucket.
type EstimatedLatency string

const (
	LatencyFast   EstimatedLatency = "fast"
	LatencyMedium EstimatedLatency = "medium"
	LatencySlow   EstimatedLatency = "slow"
)

// ModelSelection is the Model Selector's output (spec §4.2).
type ModelSelection struct {
	SelectedModel    string
	Confidence       float64
	Reasoning        string
	FallbackChain    []string
	EstimatedLatency EstimatedLatency
}

// ModelParams is the per-model default sampling params (spec §4.2
// getOptimalParams).
type ModelParams struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}
