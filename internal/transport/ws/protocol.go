package ws

// Message types from client to server
const (
	TypeHello       = "hello"
	TypeUserMessage = "user_message"
)

// Message types from server to client
const (
	TypeHelloAck    = "hello_ack"
	TypeTranscript  = "transcript"
	TypeAssistant   = "assistant"
	TypeReportFiled = "report_filed"
	TypeError       = "error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	SessionID string `json:"session_id,omitempty"`
}

// HelloMessage is sent by the client to open or resume a session.
type HelloMessage struct {
	BaseMessage
	ClientMeta map[string]string `json:"client_meta,omitempty"`
}

// HelloAckMessage confirms the session bound to the connection.
type HelloAckMessage struct {
	BaseMessage
}

// UserMessage carries one technician utterance. Audio is a base64 data URL.
type UserMessage struct {
	BaseMessage
	Text  string `json:"text,omitempty"`
	Audio string `json:"audio,omitempty"`
}

// TranscriptMessage echoes what was recognized from audio input.
type TranscriptMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// AssistantMessage is the assistant's reply.
type AssistantMessage struct {
	BaseMessage
	Text     string `json:"text"`
	AudioURL string `json:"audio_url,omitempty"`
	Complete bool   `json:"complete"`
}

// ReportFiledMessage announces a saved report.
type ReportFiledMessage struct {
	BaseMessage
	ReportID int64 `json:"report_id"`
}

// ErrorMessage is sent when a message cannot be handled.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrorCodeInvalidMessage  = "invalid_message"
	ErrorCodeSessionRequired = "session_required"
	ErrorCodeInvalidAudio    = "invalid_audio"
	ErrorCodeEmptyTranscript = "empty_transcript"
	ErrorCodeUpstream        = "upstream_unavailable"
	ErrorCodeInternalError   = "internal_error"
)
