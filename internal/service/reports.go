package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/xiaot623/fieldwise/internal/domain"
)

// ListReports returns all filed reports, newest first.
func (s *Service) ListReports(ctx context.Context) ([]domain.Report, error) {
	reports, err := s.reports.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

// GetReport returns one filed report.
func (s *Service) GetReport(ctx context.Context, id int64) (*domain.Report, error) {
	return s.reports.Get(ctx, id)
}

// Transcribe converts raw audio to text. An empty result means nothing was
// recognized and the user should be asked to repeat.
func (s *Service) Transcribe(ctx context.Context, audio []byte) (string, error) {
	text, err := s.transcriber.Transcribe(ctx, audio)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// TranscribeDataURL decodes a base64 data URL ("data:audio/wav;base64,...")
// and transcribes the audio.
func (s *Service) TranscribeDataURL(ctx context.Context, dataURL string) (string, error) {
	audio, err := DecodeDataURL(dataURL)
	if err != nil {
		return "", err
	}
	return s.Transcribe(ctx, audio)
}

// DecodeDataURL returns the bytes carried by a base64 data URL.
func DecodeDataURL(dataURL string) ([]byte, error) {
	header, encoded, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("%w: not a base64 data URL", domain.ErrInvalidAudio)
	}
	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAudio, err)
	}
	return audio, nil
}
