// Package voice answers Twilio voice webhooks with TwiML.
package voice

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/twilio/twilio-go/twiml"

	"github.com/xiaot623/fieldwise/internal/domain"
	"github.com/xiaot623/fieldwise/internal/logger"
	"github.com/xiaot623/fieldwise/internal/service"
)

const (
	// Path is both the webhook route and the Gather action.
	Path = "/voice"

	sayVoice    = "alice"
	speechModel = "experimental_conversational"
)

// Handler serves the telephony channel.
type Handler struct {
	service *service.Service
	// audioBase is the absolute URL prefix Twilio fetches audio from.
	audioBase string
}

// NewHandler creates a voice handler. publicBaseURL must be reachable by
// Twilio; synthesized audio is served under audioPath below it.
func NewHandler(svc *service.Service, publicBaseURL, audioPath string) *Handler {
	return &Handler{
		service:   svc,
		audioBase: strings.TrimRight(publicBaseURL, "/") + audioPath,
	}
}

// RegisterRoutes registers the webhook route.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET(Path, h.Voice)
	e.POST(Path, h.Voice)
}

// Voice handles one call turn. Twilio sends CallSid and, after a Gather,
// SpeechResult. The first request of a call has no speech and receives the
// greeting.
// POST /voice
func (h *Handler) Voice(c echo.Context) error {
	sessionID := c.FormValue("CallSid")
	if sessionID == "" {
		sessionID = service.DefaultSessionID
	}
	speech := c.FormValue("SpeechResult")

	ctx := c.Request().Context()

	res, err := h.service.Turn(ctx, sessionID, domain.ChannelVoice, speech)
	if err != nil {
		logger.Error("voice turn failed", "call_sid", sessionID, "error", err)
		return h.render(c, []twiml.Element{&twiml.VoiceSay{Message: service.ApologyMessage, Voice: sayVoice}}, true)
	}

	if res.Complete {
		return h.render(c, []twiml.Element{
			&twiml.VoiceSay{Message: res.Reply, Voice: sayVoice},
			&twiml.VoiceHangup{},
		}, false)
	}

	var prompt twiml.Element
	if res.AudioFile != "" {
		prompt = &twiml.VoicePlay{Url: h.audioBase + res.AudioFile}
	} else {
		prompt = &twiml.VoiceSay{Message: res.Reply, Voice: sayVoice}
	}
	return h.render(c, []twiml.Element{prompt}, true)
}

// render writes the verbs as TwiML. With listen set, a speech Gather and a
// Redirect back to the webhook follow, so silence repeats the turn.
func (h *Handler) render(c echo.Context, verbs []twiml.Element, listen bool) error {
	if listen {
		verbs = append(verbs,
			&twiml.VoiceGather{
				Input:         "speech",
				Action:        Path,
				SpeechTimeout: "auto",
				SpeechModel:   speechModel,
			},
			&twiml.VoiceRedirect{Url: Path},
		)
	}

	doc, err := twiml.Voice(verbs)
	if err != nil {
		logger.Error("failed to render twiml", "error", err)
		return c.String(http.StatusInternalServerError, "failed to render response")
	}
	return c.Blob(http.StatusOK, "application/xml", []byte(doc))
}
