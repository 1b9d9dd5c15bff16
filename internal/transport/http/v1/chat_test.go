package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/fieldwise/internal/testutil"
)

func newTestHandler(t *testing.T) (*Handler, *testutil.Env) {
	env := testutil.NewEnv(t)
	return NewHandler(env.Service), env
}

func postJSON(t *testing.T, h echo.HandlerFunc, path, sessionID, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if sessionID != "" {
		c.SetParamNames("session_id")
		c.SetParamValues(sessionID)
	}
	require.NoError(t, h(c))
	return rec
}

func decodeChat(t *testing.T, rec *httptest.ResponseRecorder) ChatResponse {
	t.Helper()
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateSession(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := postJSON(t, h.CreateSession, "/v1/chat/sessions", "", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeChat(t, rec)
	assert.NotEmpty(t, resp.SessionID)
	assert.Contains(t, resp.Reply, "Who am I speaking with?")
	assert.Equal(t, AudioPath+resp.SessionID+"_0.mp3", resp.AudioURL)
	assert.False(t, resp.Complete)
}

func TestPostMessageFullConversation(t *testing.T) {
	h, env := newTestHandler(t)

	resp := decodeChat(t, postJSON(t, h.CreateSession, "/v1/chat/sessions", "", ""))
	id := resp.SessionID
	path := "/v1/chat/sessions/" + id + "/messages"

	for _, a := range testutil.Answers {
		body, _ := json.Marshal(MessageRequest{Text: a})
		rec := postJSON(t, h.PostMessage, path, id, string(body))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := postJSON(t, h.PostMessage, path, id, `{"text":"yes please"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeChat(t, rec)
	assert.True(t, resp.Complete)
	assert.NotZero(t, resp.ReportID)
	assert.Equal(t, "Report saved! How can I help with the next report?", resp.Reply)

	reports, err := env.Store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "Pad 12", reports[0].Site())
}

func TestPostMessageAudio(t *testing.T) {
	h, _ := newTestHandler(t)
	resp := decodeChat(t, postJSON(t, h.CreateSession, "/v1/chat/sessions", "", ""))

	// "Dana" as the mock transcript.
	rec := postJSON(t, h.PostMessage, "/", resp.SessionID, `{"audio":"data:audio/wav;base64,RGFuYQ=="}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeChat(t, rec)
	assert.Equal(t, "Dana", got.Transcript)
	assert.Contains(t, got.Reply, "What site")
}

func TestPostMessageEmptyTranscript(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := postJSON(t, h.PostMessage, "/", "web-1", `{"audio":"data:audio/wav;base64,"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "could not understand audio")
}

func TestPostMessageInvalidAudio(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := postJSON(t, h.PostMessage, "/", "web-1", `{"audio":"not-a-data-url"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostMessageValidation(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := postJSON(t, h.PostMessage, "/", "web-1", `{"text":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h.PostMessage, "/", "web-1", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostMessageUpstreamFailure(t *testing.T) {
	h, env := newTestHandler(t)
	env.Client.FailNext(2)

	rec := postJSON(t, h.PostMessage, "/", "web-1", `{"text":"Dana"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetMessages(t *testing.T) {
	h, _ := newTestHandler(t)
	resp := decodeChat(t, postJSON(t, h.CreateSession, "/v1/chat/sessions", "", ""))
	postJSON(t, h.PostMessage, "/", resp.SessionID, `{"text":"Dana"}`)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(resp.SessionID)
	require.NoError(t, h.GetMessages(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Messages, 3)
	assert.Equal(t, "assistant", body.Messages[0].Role)
	assert.Equal(t, "user", body.Messages[1].Role)
	assert.Equal(t, "Dana", body.Messages[1].Content)
}

func TestGetMessagesNotFound(t *testing.T) {
	h, _ := newTestHandler(t)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("session_id")
	c.SetParamValues("missing")
	require.NoError(t, h.GetMessages(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
