// Package config provides configuration for the fieldwise service.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ModeMock selects the scripted dialogue policy and the mock speech gateways.
const ModeMock = "MOCK"

// Config holds the fieldwise configuration.
type Config struct {
	// Server settings
	HTTPPort      int
	PublicBaseURL string // absolute URL Twilio uses to fetch synthesized audio

	// Database
	DatabaseURL string

	// Mode selection ("", "MOCK")
	Mode string

	// Dialogue policy (OpenAI-compatible endpoint such as LiteLLM)
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	// Azure OpenAI; takes precedence over LLMBaseURL when an endpoint is set
	AzureOpenAIEndpoint   string
	AzureOpenAIKey        string
	AzureOpenAIDeployment string
	AzureOpenAIAPIVersion string

	// Azure Speech
	SpeechKey      string
	SpeechRegion   string
	SpeechVoice    string
	SpeechLanguage string
	AudioDir       string

	// Timeouts
	LLMTimeout    time.Duration
	SpeechTimeout time.Duration

	// WebSocket settings
	WSPingInterval   time.Duration
	WSWriteTimeout   time.Duration
	WSReadTimeout    time.Duration
	WSMaxMessageSize int64

	// Logging
	LogLevel string
	LogFile  string
}

// Load loads configuration from environment variables. A .env file in the
// working directory, when present, seeds variables that are not already set.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPPort:              getEnvInt("HTTP_PORT", 5001),
		PublicBaseURL:         getEnv("PUBLIC_BASE_URL", "http://localhost:5001"),
		DatabaseURL:           getEnv("DATABASE_URL", "file:maintenance_reports.db?_busy_timeout=5000&_journal_mode=WAL"),
		Mode:                  getEnv("FIELDWISE_MODE", ""),
		LLMBaseURL:            getEnv("LLM_BASE_URL", "http://localhost:4000"),
		LLMAPIKey:             getEnv("LLM_API_KEY", ""),
		LLMModel:              getEnv("LLM_MODEL", "gpt-4o-mini"),
		AzureOpenAIEndpoint:   getEnv("AZURE_OPENAI_ENDPOINT", ""),
		AzureOpenAIKey:        getEnv("AZURE_OPENAI_API_KEY", ""),
		AzureOpenAIDeployment: getEnv("AZURE_OPENAI_DEPLOYMENT_NAME", ""),
		AzureOpenAIAPIVersion: getEnv("AZURE_OPENAI_API_VERSION", "2023-12-01-preview"),
		SpeechKey:             getEnv("AZURE_SPEECH_KEY", ""),
		SpeechRegion:          getEnv("AZURE_SPEECH_REGION", ""),
		SpeechVoice:           getEnv("AZURE_SPEECH_VOICE", "en-US-JennyNeural"),
		SpeechLanguage:        getEnv("AZURE_SPEECH_LANGUAGE", "en-US"),
		AudioDir:              getEnv("AUDIO_DIR", "static/audio"),
		LLMTimeout:            time.Duration(getEnvInt("LLM_TIMEOUT_MS", 30000)) * time.Millisecond,
		SpeechTimeout:         time.Duration(getEnvInt("SPEECH_TIMEOUT_MS", 15000)) * time.Millisecond,
		WSPingInterval:        time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		WSWriteTimeout:        time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		WSReadTimeout:         time.Duration(getEnvInt("WS_READ_TIMEOUT_MS", 120000)) * time.Millisecond,
		WSMaxMessageSize:      int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 8<<20)),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFile:               getEnv("LOG_FILE", ""),
	}
}

// MockMode reports whether mock collaborators were requested.
func (c *Config) MockMode() bool {
	return c.Mode == ModeMock
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
