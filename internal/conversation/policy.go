package conversation

import (
	"context"

	"github.com/xiaot623/fieldwise/internal/adapter/llm"
	"github.com/xiaot623/fieldwise/internal/domain"
	"github.com/xiaot623/fieldwise/internal/logger"
)

// LLMPolicy is a Policy backed by a chat completion client.
type LLMPolicy struct {
	client llm.LLMClient
	model  string
}

// NewLLMPolicy wraps client. An empty model lets the client pick its default.
func NewLLMPolicy(client llm.LLMClient, model string) *LLMPolicy {
	return &LLMPolicy{client: client, model: model}
}

// Complete sends the history as chat messages and returns the reply text.
func (p *LLMPolicy) Complete(ctx context.Context, history []domain.Turn, opts Options) (string, error) {
	req := &llm.ChatCompletionRequest{
		Model:       p.model,
		Messages:    make([]llm.ChatMessage, 0, len(history)),
		Temperature: llm.Float(opts.Temperature),
		MaxTokens:   llm.Int(opts.MaxTokens),
	}
	for _, t := range history {
		req.Messages = append(req.Messages, llm.ChatMessage{Role: string(t.Role), Content: t.Content})
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if resp.Usage != nil {
		logger.Debug("policy call done",
			"model", resp.Model,
			"prompt_tokens", resp.Usage.PromptTokens,
			"completion_tokens", resp.Usage.CompletionTokens)
	}
	return resp.Content(), nil
}
