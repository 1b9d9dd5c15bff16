package speech

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/xiaot623/fieldwise/internal/logger"
)

// AzureSynthesizer uses the Azure Speech text-to-speech REST API and writes
// MP3 files into a directory.
type AzureSynthesizer struct {
	endpoint   string
	key        string
	voice      string
	language   string
	dir        string
	httpClient *http.Client
}

// NewAzureSynthesizer creates a synthesizer for the given region.
func NewAzureSynthesizer(key, region, voice, language, dir string, timeout time.Duration) *AzureSynthesizer {
	endpoint := fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", region)
	return NewAzureSynthesizerWithEndpoint(endpoint, key, voice, language, dir, timeout)
}

// NewAzureSynthesizerWithEndpoint creates a synthesizer posting to endpoint.
func NewAzureSynthesizerWithEndpoint(endpoint, key, voice, language, dir string, timeout time.Duration) *AzureSynthesizer {
	return &AzureSynthesizer{
		endpoint:   endpoint,
		key:        key,
		voice:      voice,
		language:   language,
		dir:        dir,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Synthesize speaks text and stores it as {session}_{turn}.mp3.
func (s *AzureSynthesizer) Synthesize(ctx context.Context, text, sessionID string, turnID int) string {
	name := ArtifactName(sessionID, turnID)
	log := logger.With("session_id", sessionID, "turn_id", turnID)

	audio, err := s.fetch(ctx, text)
	if err != nil {
		log.Warn("speech synthesis failed", "error", err)
		return ""
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		log.Warn("failed to create audio dir", "error", err)
		return ""
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), audio, 0o644); err != nil {
		log.Warn("failed to write audio", "error", err)
		return ""
	}

	log.Debug("speech synthesized", "file", name)
	return name
}

func (s *AzureSynthesizer) fetch(ctx context.Context, text string) ([]byte, error) {
	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(text)); err != nil {
		return nil, err
	}
	ssml := fmt.Sprintf(`<speak version="1.0" xml:lang="%s"><voice name="%s">%s</voice></speak>`, s.language, s.voice, escaped.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader([]byte(ssml)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", s.key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", "audio-24khz-48kbitrate-mono-mp3")
	req.Header.Set("User-Agent", "fieldwise")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speech API error [%d]: %s", resp.StatusCode, string(body))
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("speech API returned no audio")
	}
	return body, nil
}
