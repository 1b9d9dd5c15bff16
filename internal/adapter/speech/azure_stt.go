package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/xiaot623/fieldwise/internal/domain"
	"github.com/xiaot623/fieldwise/internal/logger"
)

// AzureTranscriber uses the Azure Speech short-audio REST API.
type AzureTranscriber struct {
	endpoint   string
	key        string
	language   string
	httpClient *http.Client
}

// NewAzureTranscriber creates a transcriber for the given region.
func NewAzureTranscriber(key, region, language string, timeout time.Duration) *AzureTranscriber {
	endpoint := fmt.Sprintf("https://%s.stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1", region)
	return NewAzureTranscriberWithEndpoint(endpoint, key, language, timeout)
}

// NewAzureTranscriberWithEndpoint creates a transcriber posting to endpoint.
func NewAzureTranscriberWithEndpoint(endpoint, key, language string, timeout time.Duration) *AzureTranscriber {
	return &AzureTranscriber{
		endpoint:   endpoint,
		key:        key,
		language:   language,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type recognitionResult struct {
	RecognitionStatus string `json:"RecognitionStatus"`
	DisplayText       string `json:"DisplayText"`
}

// Transcribe sends WAV audio for recognition.
func (t *AzureTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}

	q := url.Values{}
	q.Set("language", t.language)
	q.Set("format", "simple")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+"?"+q.Encode(), bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", t.key)
	req.Header.Set("Content-Type", "audio/wav")
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", domain.Upstream("transcribe", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.Upstream("transcribe", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || resp.StatusCode >= 500:
		return "", domain.Upstream("transcribe", fmt.Errorf("speech API error [%d]: %s", resp.StatusCode, string(body)))
	case resp.StatusCode != http.StatusOK:
		logger.Warn("speech recognition rejected audio", "status", resp.StatusCode, "body", string(body))
		return "", nil
	}

	var result recognitionResult
	if err := json.Unmarshal(body, &result); err != nil {
		logger.Warn("speech recognition returned unreadable result", "error", err)
		return "", nil
	}

	switch result.RecognitionStatus {
	case "Success":
		logger.Debug("speech recognized", "text", result.DisplayText)
		return result.DisplayText, nil
	default:
		logger.Info("no speech could be recognized", "status", result.RecognitionStatus)
		return "", nil
	}
}
