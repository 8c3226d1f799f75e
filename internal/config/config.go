// Package config loads Orito's nested YAML configuration (spec §6.6, §10.3),
// following the teacher's per-concern-struct shape and os.ExpandEnv secret
// substitution convention.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	LLM           LLMConfig           `yaml:"llm"`
	Tiers         TiersConfig         `yaml:"tiers"`
	AgentDefaults AgentDefaultsConfig `yaml:"agent_defaults"`
	Orchestrator  OrchestratorConfig  `yaml:"orchestrator"`
	Search        SearchConfig        `yaml:"search"`
	Cache         CacheConfig         `yaml:"cache"`
	AgentDefs     AgentDefsConfig     `yaml:"agent_defs"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// LLMConfig carries default credentials, per-model params, and the
// fallback chain order (spec §6.1, §6.6).
type LLMConfig struct {
	Provider       string                 `yaml:"provider"`
	APIKey         string                 `yaml:"api_key"`
	BaseURL        string                 `yaml:"base_url"`
	DefaultModel   string                 `yaml:"default_model"`
	FallbackChain  []string               `yaml:"fallback_chain"`
	ModelParams    map[string]ModelParams `yaml:"model_params"`
}

// ModelParams is one model's default sampling params (spec §4.2
// getOptimalParams).
type ModelParams struct {
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top_p"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// TiersConfig maps a tier name to its concurrency limit (spec §5
// TIER_LIMITS).
type TiersConfig struct {
	Limits map[string]int `yaml:"limits"`
}

// AgentDefaultsConfig carries the per-agent defaults of spec §6.6.
type AgentDefaultsConfig struct {
	TimeoutMs      int                  `yaml:"timeout_ms"`
	MaxRetries     int                  `yaml:"max_retries"`
	RetryDelayMs   int                  `yaml:"retry_delay_ms"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig carries the breaker defaults of spec §3.
type CircuitBreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold"`
	ResetTimeoutMs   int `yaml:"reset_timeout_ms"`
}

// OrchestratorConfig carries the orchestrator defaults of spec §6.6.
type OrchestratorConfig struct {
	MaxRetries               int    `yaml:"max_retries"`
	RetryDelayMs             int    `yaml:"retry_delay_ms"`
	AgentTimeoutMs           int    `yaml:"agent_timeout_ms"`
	EnableGracefulDegradation bool  `yaml:"enable_graceful_degradation"`
	EnableModelSelection     bool   `yaml:"enable_model_selection"`
	DefaultModel             string `yaml:"default_model"`
}

// SearchConfig names the search provider and an optional backup (spec
// §6.6).
type SearchConfig struct {
	Provider       string `yaml:"provider"`
	BackupProvider string `yaml:"backup_provider"`
}

// CacheConfig is read-only sizing for the out-of-scope cache
// implementations (spec §6.6, Non-goals).
type CacheConfig struct {
	MaxSize        int           `yaml:"max_size"`
	CompletionTTL  time.Duration `yaml:"completion_ttl"`
	SearchTTL      time.Duration `yaml:"search_ttl"`
}

// AgentDefsConfig points the Agent Definition Loader (§4.3) at its source
// directory.
type AgentDefsConfig struct {
	Dir string `yaml:"dir"`
}

// ObservabilityConfig configures the OTLP trace exporter, metrics port,
// and the circuit-breaker stats reporting cadence.
type ObservabilityConfig struct {
	OTLPEndpoint          string `yaml:"otlp_endpoint"`
	MetricsPort           int    `yaml:"metrics_port"`
	CircuitBreakerReportCron string `yaml:"circuit_breaker_report_cron"`
}

// Load reads, expands ${VAR}-style environment references, and parses the
// YAML document at path, then fills in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(expanded))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Tiers.Limits == nil {
		cfg.Tiers.Limits = map[string]int{"free": 2, "pro": 6}
	}
	if cfg.AgentDefaults.TimeoutMs <= 0 {
		cfg.AgentDefaults.TimeoutMs = 120_000
	}
	if cfg.AgentDefaults.MaxRetries <= 0 {
		cfg.AgentDefaults.MaxRetries = 2
	}
	if cfg.AgentDefaults.RetryDelayMs <= 0 {
		cfg.AgentDefaults.RetryDelayMs = 500
	}
	if cfg.AgentDefaults.CircuitBreaker.FailureThreshold <= 0 {
		cfg.AgentDefaults.CircuitBreaker.FailureThreshold = 5
	}
	if cfg.AgentDefaults.CircuitBreaker.ResetTimeoutMs <= 0 {
		cfg.AgentDefaults.CircuitBreaker.ResetTimeoutMs = 60_000
	}
	if cfg.Orchestrator.MaxRetries <= 0 {
		cfg.Orchestrator.MaxRetries = 2
	}
	if cfg.Orchestrator.RetryDelayMs <= 0 {
		cfg.Orchestrator.RetryDelayMs = 500
	}
	if cfg.Orchestrator.AgentTimeoutMs <= 0 {
		cfg.Orchestrator.AgentTimeoutMs = 120_000
	}
	if cfg.Cache.MaxSize <= 0 {
		cfg.Cache.MaxSize = 1000
	}
	if cfg.Cache.SearchTTL <= 0 {
		cfg.Cache.SearchTTL = 5 * time.Minute
	}
	if cfg.AgentDefs.Dir == "" {
		cfg.AgentDefs.Dir = "agents"
	}
	if cfg.Observability.CircuitBreakerReportCron == "" {
		cfg.Observability.CircuitBreakerReportCron = "@every 1m"
	}
}
