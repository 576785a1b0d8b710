package ws

import "encoding/json"

// Envelope wraps every WS frame.
type Envelope struct {
	Event string          `json:"event"`          // e.g. "chat/send"
	Body  json.RawMessage `json:"body,omitempty"` // arbitrary JSON object
}

const (
	EventJoin        = "chat/join"
	EventSend        = "chat/send"
	EventSendPrivate = "chat/sendPrivate"
	EventTyping      = "chat/typing"
	EventReact       = "chat/react"
	EventSeen        = "chat/seen"

	EventConnected = "chat/connected"
	EventError     = "error"
)

// ──────────────────────────── Request DTOs ─────────────────────────────────

type JoinRequest struct {
	DisplayName string `json:"displayName" validate:"max=64"`
	RoomID      string `json:"roomId"      validate:"max=100"`
}

type SendRequest struct {
	Text     string `json:"text"     validate:"max=5000"`
	MediaURL string `json:"mediaUrl" validate:"omitempty,url"`
}

type SendPrivateRequest struct {
	To       string `json:"to"       validate:"required"`
	Text     string `json:"text"     validate:"max=5000"`
	MediaURL string `json:"mediaUrl" validate:"omitempty,url"`
}

type TypingRequest struct {
	IsTyping bool `json:"isTyping"`
}

type ReactRequest struct {
	MessageID uint64 `json:"messageId"`
	Emoji     string `json:"emoji"     validate:"max=32"`
}

type SeenRequest struct {
	MessageID uint64 `json:"messageId"`
}

// ConnectedBody tells a client its own connection ID, which other clients
// use to address private messages.
type ConnectedBody struct {
	ConnectionID string `json:"connectionId"`
}

// ErrorBody is returned for failures.
type ErrorBody struct {
	Error string `json:"error"`
}
