// Package domain defines the core domain models for fieldwise.
package domain

// Role identifies the author of a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Channel identifies the surface a session was opened from.
type Channel string

const (
	ChannelWeb   Channel = "web"
	ChannelVoice Channel = "voice"
	ChannelCLI   Channel = "cli"
)

// SessionState represents the lifecycle state of a session.
type SessionState string

const (
	SessionStateActive    SessionState = "ACTIVE"
	SessionStateCompleted SessionState = "COMPLETED"
)

// CompletionMarker is the literal token an assistant turn carries once the
// technician has confirmed the report. It never appears earlier.
const CompletionMarker = "CONVERSATION_COMPLETE"
