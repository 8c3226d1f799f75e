package models

import "time"

// EventType tags the wire event union of spec §6.4.
type EventType string

const (
	EventAgentSpawn      EventType = "agent:spawn"
	EventAgentStatus     EventType = "agent:status"
	EventAgentTool       EventType = "agent:tool"
	EventAgentQuestion   EventType = "agent:question"
	EventAgentResult     EventType = "agent:result"
	EventSystemDiscovery EventType = "system:discovery"
	EventMessageChunk    EventType = "message:chunk"
	EventMessageDone     EventType = "message:done"
	EventError           EventType = "error"

	// EventRequestSpawn and EventRequestAnswer are internal,
	// orchestrator-facing signals (spec §4.4, §9 design notes) — not
	// part of the client wire contract of §6.4, but typed the same way
	// so the ordering guarantee of §4.9 ("a sub-agent's agent:spawn
	// event is emitted after its parent's request:spawn") is checkable.
	EventRequestSpawn  EventType = "request:spawn"
	EventRequestAnswer EventType = "request:answer"
)

// ToolEventStatus is the status field of an agent:tool event.
type ToolEventStatus string

const (
	ToolEventRunning ToolEventStatus = "running"
	ToolEventDone    ToolEventStatus = "done"
)

// QuestionOption is one selectable answer to an agent:question event.
type QuestionOption struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// AgentMetricEntry summarizes one agent's token usage for message:done.
type AgentMetricEntry struct {
	AgentID    string `json:"agentId"`
	AgentType  string `json:"agentType"`
	TokensUsed int    `json:"tokensUsed"`
}

// Event is the single typed union emitted by an agent and fanned out by
// the orchestrator to the session consumer (spec §4.9, §6.4). Exactly one
// of the payload-shaped fields below is meaningful per Type; unused fields
// are left zero. This mirrors the teacher's "tagged-union event type"
// design-note guidance (spec §9) rather than an untyped pub/sub bag.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// agent:spawn / agent:status / agent:tool / agent:question / agent:result
	AgentID      string `json:"agentId,omitempty"`
	Name         string `json:"name,omitempty"`
	AgentType    string `json:"agentType,omitempty"`
	Color        string `json:"color,omitempty"`
	Task         string `json:"task,omitempty"`
	ParentAgentID string `json:"parentAgentId,omitempty"`
	Depth        int    `json:"depth,omitempty"`
	Status       string `json:"status,omitempty"`

	// agent:tool
	Tool       string `json:"tool,omitempty"`
	ToolInput  string `json:"input,omitempty"`
	ToolStatus ToolEventStatus `json:"toolStatus,omitempty"`
	ToolOutput string `json:"output,omitempty"`
	TokensUsed int    `json:"tokensUsed,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`

	// agent:question
	QuestionID  string           `json:"questionId,omitempty"`
	Question    string           `json:"question,omitempty"`
	Header      string           `json:"header,omitempty"`
	Purpose     string           `json:"purpose,omitempty"`
	Options     []QuestionOption `json:"options,omitempty"`
	Multiple    bool             `json:"multiple,omitempty"`
	AllowCustom bool             `json:"allowCustom,omitempty"`

	// agent:result
	Summary string `json:"summary,omitempty"`

	// system:discovery
	Commands []string `json:"commands,omitempty"`
	Prompt   string   `json:"prompt,omitempty"`

	// message:chunk
	Content string `json:"content,omitempty"`

	// message:done
	Citations        []Citation         `json:"citations,omitempty"`
	DoneCommands     []Command          `json:"commandsResult,omitempty"`
	TotalTokensUsed  int                `json:"totalTokensUsed,omitempty"`
	AgentMetricsList []AgentMetricEntry `json:"agentMetrics,omitempty"`

	// error
	Message string `json:"message,omitempty"`
}
