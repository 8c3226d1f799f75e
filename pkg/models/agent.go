package models

import (
	"strings"

	"github.com/orito-ai/orito-core/internal/kinderr"
)

// AgentMode describes how autonomously an agent type is allowed to act
// (spec §3 AgentDefinition).
type AgentMode string

const (
	ModeAutonomous   AgentMode = "autonomous"
	ModeCollaborative AgentMode = "collaborative"
	ModeSupervised   AgentMode = "supervised"
)

// ToolPolicy holds the wildcard allow/restrict lists of spec §3/§4.1.
// restricted always overrides allowed, regardless of declaration order.
type ToolPolicy struct {
	Allowed    []string `yaml:"allowed" json:"allowed"`
	Restricted []string `yaml:"restricted" json:"restricted"`
}

// IsAllowed reports whether toolName passes this policy: allowed by at
// least one allowed pattern (exact, "*", or trailing-"*" prefix) and not
// matched by any restricted pattern.
func (p ToolPolicy) IsAllowed(toolName string) bool {
	for _, pattern := range p.Restricted {
		if matchToolPattern(pattern, toolName) {
			return false
		}
	}
	for _, pattern := range p.Allowed {
		if matchToolPattern(pattern, toolName) {
			return true
		}
	}
	return false
}

// matchToolPattern implements the wildcard rule of spec §4.1: "*" matches
// all; a trailing "*" matches by prefix; anything else is an exact match.
func matchToolPattern(pattern, toolName string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(toolName, prefix)
	}
	return pattern == toolName
}

// AgentDefinition is the declarative, cached-per-type definition loaded by
// the Agent Definition Loader (spec §4.3).
type AgentDefinition struct {
	Name         string     `yaml:"name" json:"name"`
	Description  string     `yaml:"description" json:"description"`
	Mode         AgentMode  `yaml:"mode" json:"mode"`
	Color        string     `yaml:"color" json:"color"`
	Tools        ToolPolicy `yaml:"tools" json:"tools"`
	MaxTokens    int        `yaml:"maxTokens" json:"maxTokens"`
	MaxResults   int        `yaml:"maxResults" json:"maxResults"`
	MaxSubAgents int        `yaml:"maxSubAgents" json:"maxSubAgents"`

	// SystemPrompt is the raw template body; rendered with {{key}}
	// substitution (spec §3, §10 invariant).
	SystemPrompt string `yaml:"-" json:"-"`
}

// Validate checks the required fields named in spec §4.3.
func (d *AgentDefinition) Validate() error {
	if d.Name == "" || d.Description == "" || d.Mode == "" || d.Color == "" {
		return kinderr.New(kinderr.KindInvalidDefinition, "name, description, mode, and color are required")
	}
	if d.Mode != ModeAutonomous && d.Mode != ModeCollaborative && d.Mode != ModeSupervised {
		return kinderr.New(kinderr.KindInvalidDefinition, "mode must be autonomous, collaborative, or supervised")
	}
	return nil
}

// AgentStatus is the state-machine status of spec §4.4.
type AgentStatus string

const (
	StatusSpawning   AgentStatus = "spawning"
	StatusThinking   AgentStatus = "thinking"
	StatusValidating AgentStatus = "validating"
	StatusDone       AgentStatus = "done"
	StatusError      AgentStatus = "error"
)

// CanTransition reports whether the state machine of spec §4.4 permits the
// given transition.
func CanTransition(from, to AgentStatus) bool {
	switch from {
	case StatusSpawning:
		return to == StatusThinking || to == StatusError
	case StatusThinking:
		return to == StatusValidating || to == StatusDone || to == StatusError
	case StatusValidating:
		return to == StatusDone || to == StatusError
	case StatusDone, StatusError:
		return false
	default:
		return false
	}
}
