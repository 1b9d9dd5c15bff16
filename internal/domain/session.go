package domain

import (
	"sync"
	"time"
)

// Turn is one message of a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is one continuous conversation with a technician.
//
// Turns is the literal model context: the first entry is the single system
// turn and the order of the rest is significant. A Session is owned by the
// channel layer and must not be used by more than one turn at a time; Lock
// and Unlock serialize callers.
type Session struct {
	ID        string       `json:"session_id"`
	Channel   Channel      `json:"channel"`
	Turns     []Turn       `json:"turns"`
	TurnID    int          `json:"turn_id"`
	State     SessionState `json:"state"`
	ReportID  int64        `json:"report_id,omitempty"`
	CreatedAt time.Time    `json:"created_at"`

	mu sync.Mutex
}

// Lock acquires the session for one in-flight turn.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *Session) Unlock() { s.mu.Unlock() }

// Started reports whether any turn beyond the system turn exists.
func (s *Session) Started() bool {
	return len(s.Turns) > 1
}

// LastAssistant returns the content of the latest assistant turn.
func (s *Session) LastAssistant() (string, bool) {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Role == RoleAssistant {
			return s.Turns[i].Content, true
		}
	}
	return "", false
}

// Transcript returns the user and assistant turns, skipping the system turn
// and the empty bootstrap turn.
func (s *Session) Transcript() []Turn {
	out := make([]Turn, 0, len(s.Turns))
	for _, t := range s.Turns {
		if t.Role == RoleSystem || (t.Role == RoleUser && t.Content == "") {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Filed reports whether the session already produced its report.
func (s *Session) Filed() bool {
	return s.State == SessionStateCompleted && s.ReportID != 0
}
