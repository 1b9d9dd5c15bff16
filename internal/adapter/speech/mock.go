package speech

import (
	"context"
	"os"
	"path/filepath"
	"sync"
)

// MockTranscriber treats the audio bytes as the UTF-8 transcript.
type MockTranscriber struct {
	Err error
}

// Transcribe returns the audio bytes as text, or Err when set.
func (m *MockTranscriber) Transcribe(_ context.Context, audio []byte) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return string(audio), nil
}

// MockSynthesizer writes the text itself as the artifact, or fails when
// Fail is set. With an empty Dir nothing is written.
type MockSynthesizer struct {
	Dir  string
	Fail bool

	mu    sync.Mutex
	calls []string
}

// Synthesize records the call and returns the artifact name.
func (m *MockSynthesizer) Synthesize(_ context.Context, text, sessionID string, turnID int) string {
	name := ArtifactName(sessionID, turnID)

	m.mu.Lock()
	m.calls = append(m.calls, name)
	m.mu.Unlock()

	if m.Fail {
		return ""
	}
	if m.Dir != "" {
		if err := os.MkdirAll(m.Dir, 0o755); err != nil {
			return ""
		}
		if err := os.WriteFile(filepath.Join(m.Dir, name), []byte(text), 0o644); err != nil {
			return ""
		}
	}
	return name
}

// Calls returns the artifact names requested so far.
func (m *MockSynthesizer) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
