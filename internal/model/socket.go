package model

import "encoding/json"

// Socket message types. Result messages reuse the mode name as their
// type, so e.g. a grammar reply arrives as {type:"grammar", ...}.
const (
	SocketTypeProcessing = "processing"
	SocketTypeChatDelta  = "chat.delta"
	SocketTypeError      = "error"
)

// SocketRequest is an outbound channel message.
type SocketRequest struct {
	Type       string `json:"type"`
	MessageID  string `json:"messageId"`
	Text       string `json:"text,omitempty"`
	Messages   []Turn `json:"messages,omitempty"`
	Style      string `json:"style,omitempty"`
	CustomTone string `json:"customTone,omitempty"`
	ChatID     string `json:"chatId,omitempty"`
	Language   string `json:"language,omitempty"`
}

// SocketMessage is an inbound channel message. Result stays raw until
// the orchestrator decodes it into the mode-specific shape; Data
// carries framed chunk text for chat.delta messages.
type SocketMessage struct {
	Type      string          `json:"type"`
	MessageID string          `json:"messageId"`
	Result    json.RawMessage `json:"result,omitempty"`
	Data      string          `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
}
