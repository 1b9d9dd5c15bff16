// Package conversation drives the scripted report-gathering dialogue.
//
// The question sequence is not coded here. It is delegated to a chat model
// (the Policy) constrained by SystemPrompt; the engine only maintains the
// turn history, bootstraps the greeting, and produces the final summary.
package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/xiaot623/fieldwise/internal/domain"
)

// errEmptyReply reports a policy call that produced no text, such as a
// content-filtered completion.
var errEmptyReply = errors.New("empty reply")

// Options bound a single policy invocation.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Policy produces the next assistant message for a turn history.
type Policy interface {
	Complete(ctx context.Context, history []domain.Turn, opts Options) (string, error)
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(ctx context.Context, history []domain.Turn, opts Options) (string, error)

// Complete calls f.
func (f PolicyFunc) Complete(ctx context.Context, history []domain.Turn, opts Options) (string, error) {
	return f(ctx, history, opts)
}

// Engine runs conversations against a Policy. It holds no per-session state.
type Engine struct {
	policy Policy
	now    func() time.Time
}

// NewEngine creates an engine backed by policy.
func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy, now: time.Now}
}

// NewSession creates a session holding only the system turn.
func (e *Engine) NewSession(id string, channel domain.Channel) *domain.Session {
	return &domain.Session{
		ID:        id,
		Channel:   channel,
		Turns:     []domain.Turn{{Role: domain.RoleSystem, Content: SystemPrompt}},
		State:     domain.SessionStateActive,
		CreatedAt: e.now(),
	}
}

// Respond records userText, when non-empty, and returns the policy's next
// assistant message, which is appended to the session. On a fresh session an
// empty user turn is added so the policy opens with its greeting.
//
// Policy failures and empty replies are returned as
// domain.ErrUpstreamUnavailable and are not retried.
func (e *Engine) Respond(ctx context.Context, s *domain.Session, userText string) (string, error) {
	if userText != "" {
		s.Turns = append(s.Turns, domain.Turn{Role: domain.RoleUser, Content: userText})
	}
	if len(s.Turns) == 1 {
		s.Turns = append(s.Turns, domain.Turn{Role: domain.RoleUser, Content: ""})
	}

	reply, err := e.policy.Complete(ctx, s.Turns, Options{
		Temperature: respondTemperature,
		MaxTokens:   respondMaxTokens,
	})
	if err != nil {
		return "", domain.Upstream("respond", err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", domain.Upstream("respond", errEmptyReply)
	}
	s.Turns = append(s.Turns, domain.Turn{Role: domain.RoleAssistant, Content: reply})
	return reply, nil
}

// Summarize asks the policy to compress the conversation into one JSON
// object and returns the raw text. The instruction turn is only sent for
// this call; the session history is left as it was.
func (e *Engine) Summarize(ctx context.Context, s *domain.Session) (string, error) {
	history := make([]domain.Turn, len(s.Turns), len(s.Turns)+1)
	copy(history, s.Turns)
	history = append(history, domain.Turn{Role: domain.RoleUser, Content: SummaryInstruction})

	summary, err := e.policy.Complete(ctx, history, Options{
		Temperature: summarizeTemperature,
		MaxTokens:   summarizeMaxTokens,
	})
	if err != nil {
		return "", domain.Upstream("summarize", err)
	}
	return strings.TrimSpace(summary), nil
}

// IsComplete reports whether an assistant message carries the completion
// marker.
func IsComplete(text string) bool {
	return strings.Contains(text, domain.CompletionMarker)
}

// StripMarker removes the completion marker and its markdown emphasis so the
// message can be shown or spoken.
func StripMarker(text string) string {
	for _, m := range []string{"**" + domain.CompletionMarker + "**", domain.CompletionMarker} {
		text = strings.ReplaceAll(text, m, "")
	}
	return strings.TrimSpace(text)
}

// CleanSummary strips a surrounding markdown code fence from summary text.
func CleanSummary(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	} else {
		text = ""
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
