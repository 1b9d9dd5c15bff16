package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/fieldwise/internal/domain"
	"github.com/xiaot623/fieldwise/internal/service"
)

// MessageRequest carries one technician utterance, typed or recorded.
// Audio is a base64 data URL and wins over Text when both are set.
type MessageRequest struct {
	Text  string `json:"text"`
	Audio string `json:"audio"`
}

// ChatResponse is the assistant's answer to one turn.
type ChatResponse struct {
	SessionID  string `json:"session_id"`
	Transcript string `json:"transcript,omitempty"`
	Reply      string `json:"reply"`
	AudioURL   string `json:"audio_url,omitempty"`
	Complete   bool   `json:"complete"`
	ReportID   int64  `json:"report_id,omitempty"`
}

func newChatResponse(res *service.TurnResult, transcript string) ChatResponse {
	return ChatResponse{
		SessionID:  res.SessionID,
		Transcript: transcript,
		Reply:      res.Reply,
		AudioURL:   audioURL(res.AudioFile),
		Complete:   res.Complete,
		ReportID:   res.ReportID,
	}
}

// CreateSession opens a web chat session and returns the greeting.
// POST /v1/chat/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	ctx := c.Request().Context()

	res, err := h.service.StartSession(ctx, domain.ChannelWeb, "")
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusCreated, newChatResponse(res, ""))
}

// PostMessage handles one chat turn.
// POST /v1/chat/sessions/:session_id/messages
func (h *Handler) PostMessage(c echo.Context) error {
	sessionID := c.Param("session_id")
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	ctx := c.Request().Context()

	text := strings.TrimSpace(req.Text)
	transcript := ""
	if req.Audio != "" {
		var err error
		transcript, err = h.service.TranscribeDataURL(ctx, req.Audio)
		if err != nil {
			return errorJSON(c, err)
		}
		if transcript == "" {
			return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "could not understand audio"})
		}
		text = transcript
	}
	if text == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "text or audio is required"})
	}

	res, err := h.service.Turn(ctx, sessionID, domain.ChannelWeb, text)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, newChatResponse(res, transcript))
}

// GetMessages returns the visible turns of a live session.
// GET /v1/chat/sessions/:session_id/messages
func (h *Handler) GetMessages(c echo.Context) error {
	sessionID := c.Param("session_id")

	turns, err := h.service.History(sessionID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"messages":   turns,
	})
}
