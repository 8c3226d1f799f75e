package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/orito-ai/orito-core/internal/llm"
	"github.com/orito-ai/orito-core/pkg/models"
)

// LoopOptions configures one callWithTools invocation (spec §4.4).
type LoopOptions struct {
	ModelID      string
	Temperature  float64
	MaxTokens    int
	MaxToolCalls int // 0 means Runtime's configured default
}

// maxOutputChars bounds the truncated tool output carried in agent:tool
// "done" events (spec §6.4: "output?").
const maxOutputChars = 2000

// CallWithTools drives the completer through the iterative tool-calling
// loop of spec §4.4: at most opts.MaxToolCalls (default 5) rounds of
// "complete, extract one sentinel tool call, execute, re-inject as a
// synthetic message", terminating at the first non-tool reply.
func (r *Runtime) CallWithTools(ctx context.Context, messages []models.Message, opts LoopOptions) (string, error) {
	max := opts.MaxToolCalls
	if max <= 0 {
		max = r.opts.MaxToolCalls
	}

	conversation := append([]models.Message(nil), messages...)
	var lastContent string

	for i := 0; i < max; i++ {
		result, err := llm.CompleteWithRetry(ctx, r.completer, conversation, llm.Options{
			ModelID:     opts.ModelID,
			Temperature: opts.Temperature,
			MaxTokens:   opts.MaxTokens,
		})
		if err != nil {
			return "", err
		}
		if result.Usage != nil {
			r.addTokens(result.Usage.TotalTokens)
		}
		lastContent = result.Content

		call, ok := extractToolCall(result.Content)
		if !ok {
			return result.Content, nil
		}

		toolResult := r.runOneToolCall(ctx, call)

		conversation = append(conversation, models.Message{Role: models.RoleAssistant, Content: result.Content})
		conversation = append(conversation, models.Message{
			Role:    models.RoleUser,
			Content: fmt.Sprintf("Tool result for %s: %s", call.Name, toolResultPayload(toolResult)),
		})
	}

	// Max iterations reached (spec §4.4): final content is whatever the
	// last turn produced, which may be a tool sentinel with no reply.
	return lastContent, nil
}

// runOneToolCall validates, executes, and emits agent:tool events for a
// single extracted invocation (spec §4.4 steps 5-6). Denied or unknown
// tools are reported as a ToolResult error rather than raised, so the
// loop can re-inject the failure and let the LLM recover (spec §4.1
// contract).
func (r *Runtime) runOneToolCall(ctx context.Context, call extractedToolCall) models.ToolResult {
	toolCallID := call.Name + "-" + time.Now().Format("150405.000000000")

	r.emit(ctx, models.Event{
		Type:       models.EventAgentTool,
		Tool:       call.Name,
		ToolInput:  argsToJSON(call.Args),
		ToolStatus: models.ToolEventRunning,
	})

	start := time.Now()
	r.incToolCalls()

	execResult, err := r.registry.Execute(ctx, call.Name, call.Args, r.CanUseTool)
	duration := time.Since(start).Milliseconds()

	var toolResult models.ToolResult
	if err != nil {
		toolResult = models.ToolResult{ToolCallID: toolCallID, Name: call.Name, ErrorMessage: err.Error()}
	} else if execResult.Error != "" {
		toolResult = models.ToolResult{ToolCallID: toolCallID, Name: call.Name, ErrorMessage: execResult.Error}
	} else {
		toolResult = models.ToolResult{ToolCallID: toolCallID, Name: call.Name, ResultJSON: dataToJSON(execResult.Data)}
	}

	output := toolResultPayload(toolResult)
	if len(output) > maxOutputChars {
		output = output[:maxOutputChars]
	}
	r.emit(ctx, models.Event{
		Type:       models.EventAgentTool,
		Tool:       call.Name,
		ToolStatus: models.ToolEventDone,
		ToolOutput: output,
		DurationMs: duration,
	})

	return toolResult
}

func toolResultPayload(r models.ToolResult) string {
	if r.IsError() {
		return fmt.Sprintf(`{"error":%q}`, r.ErrorMessage)
	}
	if r.ResultJSON == "" {
		return "null"
	}
	return r.ResultJSON
}

func argsToJSON(args map[string]any) string {
	b, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func dataToJSON(data any) string {
	b, err := json.Marshal(data)
	if err != nil {
		return "null"
	}
	return string(b)
}
