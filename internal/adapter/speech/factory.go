package speech

import (
	"github.com/xiaot623/fieldwise/internal/config"
	"github.com/xiaot623/fieldwise/internal/logger"
)

// NewGateways returns the transcriber and synthesizer selected by cfg.
// Mock mode, or a missing speech key, yields the mock gateways.
func NewGateways(cfg *config.Config) (Transcriber, Synthesizer) {
	if cfg.MockMode() || cfg.SpeechKey == "" {
		logger.Info("using mock speech gateways")
		return &MockTranscriber{}, &MockSynthesizer{Dir: cfg.AudioDir}
	}
	logger.Info("using Azure speech gateways", "region", cfg.SpeechRegion, "voice", cfg.SpeechVoice)
	return NewAzureTranscriber(cfg.SpeechKey, cfg.SpeechRegion, cfg.SpeechLanguage, cfg.SpeechTimeout),
		NewAzureSynthesizer(cfg.SpeechKey, cfg.SpeechRegion, cfg.SpeechVoice, cfg.SpeechLanguage, cfg.AudioDir, cfg.SpeechTimeout)
}
