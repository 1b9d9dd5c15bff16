package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
)

// AzureClient sends chat completions to an Azure OpenAI deployment.
type AzureClient struct {
	client     openai.Client
	deployment string
}

// NewAzureClient creates a client for the given Azure OpenAI endpoint.
func NewAzureClient(endpoint, apiKey, apiVersion, deployment string, timeout time.Duration) *AzureClient {
	client := openai.NewClient(
		azure.WithEndpoint(endpoint, apiVersion),
		azure.WithAPIKey(apiKey),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(0),
	)
	return &AzureClient{client: client, deployment: deployment}
}

// CreateChatCompletion sends a chat completion request to the deployment.
func (c *AzureClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	completion, err := c.client.Chat.Completions.New(ctx, chatParams(req, c.deployment))
	if err != nil {
		return nil, fmt.Errorf("azure openai request failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("azure openai returned no choices")
	}
	return fromCompletion(completion), nil
}
