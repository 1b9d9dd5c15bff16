package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client talks to any OpenAI-compatible /v1/chat/completions endpoint,
// such as a LiteLLM proxy.
type Client struct {
	client openai.Client
	model  string
}

// NewClient creates a new OpenAI-compatible client. model is used when a
// request leaves Model empty.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	opts := []option.RequestOption{
		option.WithBaseURL(strings.TrimSuffix(baseURL, "/") + "/v1/"),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(0),
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &Client{client: openai.NewClient(opts...), model: model}
}

// CreateChatCompletion sends a chat completion request (non-streaming).
func (c *Client) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	completion, err := c.client.Chat.Completions.New(ctx, chatParams(req, c.model))
	if err != nil {
		return nil, fmt.Errorf("LLM API request failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("LLM API returned no choices")
	}
	return fromCompletion(completion), nil
}

// chatParams builds the SDK request, falling back to model when the request
// names none.
func chatParams(req *ChatCompletionRequest, model string) openai.ChatCompletionNewParams {
	if req.Model != "" {
		model = req.Model
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: toOpenAIMessages(req.Messages),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*req.MaxTokens))
	}
	return params
}

func fromCompletion(completion *openai.ChatCompletion) *ChatCompletionResponse {
	resp := &ChatCompletionResponse{
		ID:      completion.ID,
		Object:  "chat.completion",
		Created: completion.Created,
		Model:   completion.Model,
		Usage: &Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}
	for i, choice := range completion.Choices {
		resp.Choices = append(resp.Choices, Choice{
			Index:        i,
			Message:      &ChatMessage{Role: "assistant", Content: choice.Message.Content},
			FinishReason: choice.FinishReason,
		})
	}
	return resp
}

func toOpenAIMessages(msgs []ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case "system":
			out = append(out, openai.SystemMessage(msg.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}
