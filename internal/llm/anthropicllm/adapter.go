// Package anthropicllm adapts the Anthropic SDK to the llm.Completer
// capability (spec §6.1). It is one of two concrete, optional Completer
// implementations; the orchestrator and agent runtime never import this
// package directly.
package anthropicllm

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/orito-ai/orito-core/internal/llm"
	"github.com/orito-ai/orito-core/pkg/models"
)

// Config holds the credentials and defaults for an Adapter.
type Config struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// Adapter implements llm.Completer against the Anthropic Messages API.
type Adapter struct {
	client       anthropic.Client
	defaultModel string
	baseURL      string
}

// New creates an Adapter. APIKey may be overridden per turn via
// OrchestratorContext.APIKey (spec §3) by constructing a fresh Adapter
// with the turn's key rather than mutating a shared client.
func New(cfg Config) *Adapter {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &Adapter{client: anthropic.NewClient(opts...), defaultModel: model, baseURL: cfg.BaseURL}
}

// withAPIKey returns an Adapter identical to a but built against key,
// mirroring New's fresh-client construction rather than mutating a.client.
func (a *Adapter) withAPIKey(key string) *Adapter {
	return New(Config{APIKey: key, BaseURL: a.baseURL, DefaultModel: a.defaultModel})
}

func (a *Adapter) model(opts llm.Options) anthropic.Model {
	if opts.ModelID != "" {
		return anthropic.Model(opts.ModelID)
	}
	return anthropic.Model(a.defaultModel)
}

func toAnthropicMessages(messages []models.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		switch m.Role {
		case models.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(block))
		default:
			// system-role messages are folded into user turns; the
			// Messages API takes system as a top-level parameter, but
			// this spec keeps system instructions inside the rendered
			// prompt template rather than per-call.
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}

// Complete issues a single, non-streaming completion.
func (a *Adapter) Complete(ctx context.Context, messages []models.Message, opts llm.Options) (llm.Result, error) {
	if key, ok := llm.APIKeyFromContext(ctx); ok {
		return a.withAPIKey(key).Complete(llm.WithoutAPIKey(ctx), messages, opts)
	}
	maxTokens := int64(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       a.model(opts),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(opts.Temperature),
		Messages:    toAnthropicMessages(messages),
	})
	if err != nil {
		return llm.Result{}, err
	}
	return convertResponse(resp), nil
}

// Stream issues a streaming completion, invoking onChunk with each text
// delta in generation order (spec §6.1).
func (a *Adapter) Stream(ctx context.Context, messages []models.Message, opts llm.Options, onChunk llm.ChunkFunc) (llm.Result, error) {
	if key, ok := llm.APIKeyFromContext(ctx); ok {
		return a.withAPIKey(key).Stream(llm.WithoutAPIKey(ctx), messages, opts, onChunk)
	}
	maxTokens := int64(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	stream := a.client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:       a.model(opts),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(opts.Temperature),
		Messages:    toAnthropicMessages(messages),
	})

	var acc anthropic.Message
	for stream.Next() {
		event := stream.Current()
		if err := acc.Accumulate(event); err != nil {
			return llm.Result{}, err
		}
		if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			if text := delta.Delta.Text; text != "" && onChunk != nil {
				onChunk(text)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return llm.Result{}, err
	}
	return convertResponse(&acc), nil
}

func convertResponse(resp *anthropic.Message) llm.Result {
	var content string
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			content += text.Text
		}
	}
	return llm.Result{
		Content:   content,
		ModelUsed: string(resp.Model),
		Usage: &llm.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}
}
