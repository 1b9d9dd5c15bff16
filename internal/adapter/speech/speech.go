// Package speech wraps the hosted speech-to-text and text-to-speech services.
package speech

import (
	"context"
	"fmt"
	"strings"
)

// Transcriber converts one utterance of audio to text.
//
// Transcribe returns "" when no speech was recognized. Only transport or
// auth failures are reported as errors, wrapping domain.ErrUpstreamUnavailable.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Synthesizer converts text to a spoken audio artifact.
//
// Synthesize returns the artifact file name, derived from sessionID and
// turnID, or "" when synthesis failed. It never returns an error so that
// channels can fall back to text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, sessionID string, turnID int) string
}

// ArtifactName returns the audio file name for a session turn.
//
// Letters, digits, '-' and '_' are kept and every other byte becomes "~XX"
// (upper-case hex), so distinct session ids never share a name. The turn
// number follows the last '_'.
func ArtifactName(sessionID string, turnID int) string {
	var b strings.Builder
	for i := 0; i < len(sessionID); i++ {
		c := sessionID[i]
		if isNameByte(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "~%02X", c)
	}
	return fmt.Sprintf("%s_%d.mp3", b.String(), turnID)
}

func isNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_'
}
