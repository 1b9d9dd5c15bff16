package llm

import (
	"github.com/xiaot623/fieldwise/internal/config"
	"github.com/xiaot623/fieldwise/internal/logger"
)

// NewLLMClient creates an LLM client based on the configuration.
// MOCK mode returns a MockClient, a configured Azure endpoint returns an
// AzureClient, and anything else talks to the OpenAI-compatible base URL.
func NewLLMClient(cfg *config.Config) LLMClient {
	switch {
	case cfg.MockMode():
		logger.Info("mock mode detected, using scripted dialogue policy")
		return NewMockClient()
	case cfg.AzureOpenAIEndpoint != "":
		logger.Info("using Azure OpenAI dialogue policy", "deployment", cfg.AzureOpenAIDeployment)
		return NewAzureClient(cfg.AzureOpenAIEndpoint, cfg.AzureOpenAIKey, cfg.AzureOpenAIAPIVersion, cfg.AzureOpenAIDeployment, cfg.LLMTimeout)
	default:
		logger.Info("using OpenAI-compatible dialogue policy", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModel)
		return NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	}
}
