// Package service implements the channel-facing operations shared by the
// web chat, websocket and telephony surfaces.
package service

import (
	"github.com/xiaot623/fieldwise/internal/adapter/speech"
	"github.com/xiaot623/fieldwise/internal/conversation"
	"github.com/xiaot623/fieldwise/internal/policy"
	store "github.com/xiaot623/fieldwise/internal/repository"
)

// Messages spoken or shown once a report is filed.
const (
	WebFiledMessage   = "Report saved! How can I help with the next report?"
	VoiceFiledMessage = "Thank you. Your maintenance report has been filed. Goodbye."
	ApologyMessage    = "Sorry, I'm having trouble right now. Could you say that again?"
	RetryAudioMessage = "Could not understand audio. Please try again or type your response."
)

// Service wires the conversation engine to storage, policy and speech.
type Service struct {
	engine      *conversation.Engine
	reports     store.ReportStore
	sessions    *store.SessionRegistry
	filing      *policy.Engine
	transcriber speech.Transcriber
	synthesizer speech.Synthesizer
}

func New(
	engine *conversation.Engine,
	reports store.ReportStore,
	sessions *store.SessionRegistry,
	filing *policy.Engine,
	transcriber speech.Transcriber,
	synthesizer speech.Synthesizer,
) *Service {
	return &Service{
		engine:      engine,
		reports:     reports,
		sessions:    sessions,
		filing:      filing,
		transcriber: transcriber,
		synthesizer: synthesizer,
	}
}
