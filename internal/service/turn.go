package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/xiaot623/fieldwise/internal/conversation"
	"github.com/xiaot623/fieldwise/internal/domain"
	"github.com/xiaot623/fieldwise/internal/logger"
)

// DefaultSessionID is used when a telephony request carries no call id.
const DefaultSessionID = "default_session"

// TurnResult is the outcome of one conversational turn.
type TurnResult struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	// AudioFile names the synthesized reply, empty when synthesis failed.
	AudioFile string `json:"audio_file,omitempty"`
	Complete  bool   `json:"complete"`
	ReportID  int64  `json:"report_id,omitempty"`
}

// NewSessionID returns a fresh id for a channel without its own ids.
func NewSessionID(channel domain.Channel) string {
	return string(channel) + "-" + uuid.New().String()
}

// StartSession opens a session and returns the assistant's greeting.
// An empty id gets a generated one. A session that has already started is
// not greeted again; its latest assistant message is returned instead.
func (s *Service) StartSession(ctx context.Context, channel domain.Channel, id string) (*TurnResult, error) {
	if id == "" {
		id = NewSessionID(channel)
	}
	sess := s.acquire(id, channel)
	defer sess.Unlock()

	if last, ok := sess.LastAssistant(); ok {
		return &TurnResult{SessionID: id, Reply: conversation.StripMarker(last)}, nil
	}
	return s.turn(ctx, sess, "")
}

// Turn feeds one user utterance into the session and returns the reply.
// Unknown session ids start a new session. userText may be empty, which on
// a fresh session yields the greeting.
//
// When the reply carries the completion marker the session is summarized,
// filed and dropped, and the result holds the farewell for the channel.
func (s *Service) Turn(ctx context.Context, sessionID string, channel domain.Channel, userText string) (*TurnResult, error) {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	sess := s.acquire(sessionID, channel)
	defer sess.Unlock()

	return s.turn(ctx, sess, userText)
}

// turn runs one turn on a locked session.
func (s *Service) turn(ctx context.Context, sess *domain.Session, userText string) (*TurnResult, error) {
	sessionID := sess.ID
	log := logger.With("session_id", sessionID)
	userText = strings.TrimSpace(userText)

	reply, err := s.respond(ctx, sess, userText)
	if err != nil {
		log.Error("policy call failed", "error", err)
		return nil, err
	}

	result := &TurnResult{SessionID: sessionID, Reply: reply}

	if conversation.IsComplete(reply) {
		id, err := s.complete(ctx, sess)
		if err != nil {
			log.Error("failed to file report", "error", err)
			return nil, err
		}
		result.Complete = true
		result.ReportID = id
		result.Reply = filedMessage(sess.Channel)
	}

	// The telephony farewell is spoken by the carrier, not played back.
	if !(result.Complete && sess.Channel == domain.ChannelVoice) {
		result.AudioFile = s.synthesizer.Synthesize(ctx, conversation.StripMarker(result.Reply), sessionID, sess.TurnID)
		sess.TurnID++
		if result.AudioFile == "" {
			log.Warn("continuing without audio")
		}
	}

	if result.Complete {
		s.sessions.Delete(sess)
	}

	log.Debug("turn handled", "complete", result.Complete, "turn_id", sess.TurnID)
	return result, nil
}

// acquire returns the live session for id, locked. A session that was
// completed while the caller waited for its lock is replaced by a new one.
func (s *Service) acquire(id string, channel domain.Channel) *domain.Session {
	for {
		sess, created := s.sessions.GetOrCreate(id, func() *domain.Session {
			return s.engine.NewSession(id, channel)
		})
		if created {
			logger.Info("session started", "session_id", id, "channel", channel)
		}
		sess.Lock()
		if sess.State != domain.SessionStateCompleted {
			return sess
		}
		sess.Unlock()
	}
}

// respond calls the engine once more on ErrUpstreamUnavailable. The retry
// must not duplicate the user turn already appended by the failed call.
func (s *Service) respond(ctx context.Context, sess *domain.Session, userText string) (string, error) {
	reply, err := s.engine.Respond(ctx, sess, userText)
	if err == nil || !errors.Is(err, domain.ErrUpstreamUnavailable) || ctx.Err() != nil {
		return reply, err
	}
	logger.Warn("retrying policy call", "session_id", sess.ID, "error", err)
	return s.engine.Respond(ctx, sess, "")
}

func filedMessage(channel domain.Channel) string {
	if channel == domain.ChannelVoice {
		return VoiceFiledMessage
	}
	return WebFiledMessage
}

// History returns the visible turns of a live session.
func (s *Service) History(sessionID string) ([]domain.Turn, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	sess.Lock()
	defer sess.Unlock()
	return sess.Transcript(), nil
}
