// Package openaillm adapts github.com/sashabaranov/go-openai to the
// llm.Completer capability (spec §6.1), the second concrete provider
// beside anthropicllm. The Model Selector (§4.2) picks model ids, not
// providers; nothing in this module chooses between the two adapters.
package openaillm

import (
	"context"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/orito-ai/orito-core/internal/llm"
	"github.com/orito-ai/orito-core/pkg/models"
)

// Config holds the credentials and defaults for an Adapter.
type Config struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// Adapter implements llm.Completer against the OpenAI chat-completions API.
type Adapter struct {
	client       *openai.Client
	defaultModel string
}

// New creates an Adapter. Every call uses cfg.APIKey; a per-call key set
// with llm.WithAPIKey is not applied by this adapter.
func New(cfg Config) *Adapter {
	conf := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}
	model := cfg.DefaultModel
	if model == "" {
		model = openai.GPT4o
	}
	return &Adapter{client: openai.NewClientWithConfig(conf), defaultModel: model}
}

func (a *Adapter) model(opts llm.Options) string {
	if opts.ModelID != "" {
		return opts.ModelID
	}
	return a.defaultModel
}

func toOpenAIMessages(messages []models.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// Complete issues a single, non-streaming completion.
func (a *Adapter) Complete(ctx context.Context, messages []models.Message, opts llm.Options) (llm.Result, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model(opts),
		Messages:    toOpenAIMessages(messages),
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return llm.Result{}, err
	}
	return convertResponse(resp), nil
}

// Stream issues a streaming completion, invoking onChunk with each text
// delta in generation order.
func (a *Adapter) Stream(ctx context.Context, messages []models.Message, opts llm.Options, onChunk llm.ChunkFunc) (llm.Result, error) {
	stream, err := a.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       a.model(opts),
		Messages:    toOpenAIMessages(messages),
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return llm.Result{}, err
	}
	defer stream.Close()

	var content string
	var modelUsed string
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return llm.Result{}, err
		}
		modelUsed = chunk.Model
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		content += delta
		if onChunk != nil {
			onChunk(delta)
		}
	}
	return llm.Result{Content: content, ModelUsed: modelUsed}, nil
}

func convertResponse(resp openai.ChatCompletionResponse) llm.Result {
	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	return llm.Result{
		Content:   content,
		ModelUsed: resp.Model,
		Usage: &llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
}
