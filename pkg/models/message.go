// Package models holds the wire and in-memory data shapes shared across
// the orchestrator, agent runtime, and the Completer/Store capabilities.
package models

import (
	"encoding/json"
	"time"
)

// Role identifies who authored a message turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one turn in a conversation passed to the Completer.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ToolCall is a single tool invocation extracted from an assistant turn,
// either via the <tool>NAME</tool><params>JSON</params> sentinel or a
// provider's native structured tool-calling response.
type ToolCall struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Args   json.RawMessage `json:"args"`
	Raw    string          `json:"-"` // original assistant content, for re-injection
}

// ToolResult is the outcome of executing a ToolCall.
type ToolResult struct {
	ToolCallID   string `json:"toolCallId"`
	Name         string `json:"name"`
	ResultJSON   string `json:"resultJson,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// IsError reports whether the tool call failed.
func (r ToolResult) IsError() bool { return r.ErrorMessage != "" }

// Citation is a source referenced by the Research agent.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// PrivilegeLevel and Risk classify a command produced by the Planner.
type PrivilegeLevel string

const (
	PrivilegeReadOnly PrivilegeLevel = "read-only"
	PrivilegeUser     PrivilegeLevel = "user"
	PrivilegeRoot     PrivilegeLevel = "root"
)

type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// Command is a single actionable shell command proposed by the Planner and
// (if it survives) checked by the Validator.
type Command struct {
	Command         string         `json:"command"`
	PrivilegeLevel  PrivilegeLevel `json:"privilegeLevel"`
	Risk            Risk           `json:"risk"`
	RiskExplanation string         `json:"riskExplanation"`
	DryRunHint      string         `json:"dryRunHint,omitempty"`
	ExpectedOutput  string         `json:"expectedOutput,omitempty"`
	Citations       []Citation     `json:"citations,omitempty"`
}

// BlockedCommand is a Command the Validator refused to pass through.
type BlockedCommand struct {
	Command Command `json:"command"`
	Reason  string  `json:"reason"`
}

// AgentMetrics tracks per-agent resource usage, recorded by
// startMetrics/endMetrics in the base runtime (spec §4.4).
type AgentMetrics struct {
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime,omitempty"`
	DurationMs    int64     `json:"durationMs,omitempty"`
	TokensUsed    int       `json:"tokensUsed"`
	ToolCallsCount int      `json:"toolCallsCount"`
}
