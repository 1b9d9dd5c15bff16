// Package ws serves the live chat channel over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/fieldwise/internal/config"
	"github.com/xiaot623/fieldwise/internal/domain"
	"github.com/xiaot623/fieldwise/internal/logger"
	"github.com/xiaot623/fieldwise/internal/service"
)

// Path is the websocket route.
const Path = "/ws"

// turnTimeout bounds one user message: transcription, the policy call with
// its retry, and possibly the summary and filing.
const turnTimeout = 90 * time.Second

// Server handles WebSocket connections.
type Server struct {
	cfg       *config.Config
	hub       *Hub
	service   *service.Service
	audioPath string
	upgrader  websocket.Upgrader
}

// NewServer creates a new WebSocket server. Audio URLs in replies are
// audioPath followed by the artifact name.
func NewServer(cfg *config.Config, h *Hub, svc *service.Service, audioPath string) *Server {
	return &Server{
		cfg:       cfg,
		hub:       h,
		service:   svc,
		audioPath: audioPath,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes registers the websocket route.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET(Path, s.HandleWebSocket)
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("failed to upgrade websocket", "error", err)
		return err
	}

	conn := s.hub.NewConnection(ws)
	s.hub.Register(conn)

	ws.SetReadLimit(s.cfg.WSMaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump reads messages from the connection and handles them in order,
// one turn at a time.
func (s *Server) readPump(conn *Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.WSReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.WSReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket error", "conn_id", conn.ID, "error", err)
			}
			break
		}

		s.handleMessage(conn, message)
		conn.SetReadDeadline(time.Now().Add(s.cfg.WSReadTimeout))
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *Connection) {
	ticker := time.NewTicker(s.cfg.WSPingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WSWriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("failed to write message", "conn_id", conn.ID, "error", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WSWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches incoming messages to appropriate handlers.
func (s *Server) handleMessage(conn *Connection, data []byte) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		s.sendError(conn, ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch base.Type {
	case TypeHello:
		s.handleHello(conn, data)
	case TypeUserMessage:
		s.handleUserMessage(conn, data)
	default:
		s.sendError(conn, ErrorCodeInvalidMessage, "unknown message type: "+base.Type)
	}
}

// handleHello binds the connection to a session and sends the latest
// assistant message. Resumed sessions are not greeted again.
func (s *Server) handleHello(conn *Connection, data []byte) {
	var msg HelloMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, ErrorCodeInvalidMessage, "invalid hello message")
		return
	}

	sessionID := msg.SessionID
	if sessionID == "" {
		sessionID = service.NewSessionID(domain.ChannelWeb)
	}
	s.hub.BindSession(conn, sessionID)

	s.hub.SendJSONToConnection(conn, HelloAckMessage{
		BaseMessage: s.base(TypeHelloAck, sessionID),
	})
	logger.Info("hello handshake completed", "session_id", sessionID, "conn_id", conn.ID)

	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	res, err := s.service.StartSession(ctx, domain.ChannelWeb, sessionID)
	if err != nil {
		s.sendTurnError(conn, err)
		return
	}
	s.hub.SendJSONToConnection(conn, s.assistant(res))
}

// handleUserMessage runs one turn and fans the results out to every
// connection following the session.
func (s *Server) handleUserMessage(conn *Connection, data []byte) {
	var msg UserMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, ErrorCodeInvalidMessage, "invalid user_message message")
		return
	}
	if conn.SessionID == "" {
		s.sendError(conn, ErrorCodeSessionRequired, "must send hello first")
		return
	}
	sessionID := conn.SessionID

	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	text := msg.Text
	if msg.Audio != "" {
		transcript, err := s.service.TranscribeDataURL(ctx, msg.Audio)
		if err != nil {
			s.sendTurnError(conn, err)
			return
		}
		if transcript == "" {
			s.sendError(conn, ErrorCodeEmptyTranscript, service.RetryAudioMessage)
			return
		}
		s.hub.BroadcastJSON(sessionID, TranscriptMessage{
			BaseMessage: s.base(TypeTranscript, sessionID),
			Text:        transcript,
		})
		text = transcript
	}
	if text == "" {
		s.sendError(conn, ErrorCodeInvalidMessage, "text or audio is required")
		return
	}

	res, err := s.service.Turn(ctx, sessionID, domain.ChannelWeb, text)
	if err != nil {
		s.sendTurnError(conn, err)
		return
	}

	s.hub.BroadcastJSON(sessionID, s.assistant(res))
	if res.Complete {
		s.hub.BroadcastJSON(sessionID, ReportFiledMessage{
			BaseMessage: s.base(TypeReportFiled, sessionID),
			ReportID:    res.ReportID,
		})
	}
}

func (s *Server) base(typ, sessionID string) BaseMessage {
	return BaseMessage{Type: typ, Ts: time.Now().UnixMilli(), SessionID: sessionID}
}

func (s *Server) assistant(res *service.TurnResult) AssistantMessage {
	msg := AssistantMessage{
		BaseMessage: s.base(TypeAssistant, res.SessionID),
		Text:        res.Reply,
		Complete:    res.Complete,
	}
	if res.AudioFile != "" {
		msg.AudioURL = s.audioPath + res.AudioFile
	}
	return msg
}

// sendTurnError maps a service error to an error message.
func (s *Server) sendTurnError(conn *Connection, err error) {
	logger.Error("turn failed", "session_id", conn.SessionID, "error", err)
	switch {
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		s.sendError(conn, ErrorCodeUpstream, service.ApologyMessage)
	case errors.Is(err, domain.ErrInvalidAudio):
		s.sendError(conn, ErrorCodeInvalidAudio, err.Error())
	default:
		s.sendError(conn, ErrorCodeInternalError, err.Error())
	}
}

// sendError sends an error message to a connection.
func (s *Server) sendError(conn *Connection, code, message string) {
	s.hub.SendJSONToConnection(conn, ErrorMessage{
		BaseMessage: s.base(TypeError, conn.SessionID),
		Code:        code,
		Message:     message,
	})
}
