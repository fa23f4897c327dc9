package model

// Mode selects which AI operation a request runs.
type Mode string

const (
	ModeChat       Mode = "chat"
	ModeGrammar    Mode = "grammar"
	ModeParaphrase Mode = "paraphrase"
	ModeHumanize   Mode = "humanize"
	ModeAICheck    Mode = "aicheck"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeChat, ModeGrammar, ModeParaphrase, ModeHumanize, ModeAICheck:
		return true
	}
	return false
}

// Role of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single role-tagged message in a chat conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request describes one operation submitted to the orchestrator.
// Immutable once submitted.
type Request struct {
	Mode       Mode   `json:"mode"`
	Text       string `json:"text,omitempty"`
	Style      string `json:"style,omitempty"`
	CustomTone string `json:"custom_tone,omitempty"`
	Language   string `json:"language,omitempty"`
	Messages   []Turn `json:"messages,omitempty"`
	ChatID     string `json:"chat_id,omitempty"`

	// OnStreamUpdate, when set on a chat request, receives the full
	// accumulated reply after every decoded frame. Not serialized.
	OnStreamUpdate func(text string) `json:"-"`
}

// ProcessRequest is the wire body for POST /api/ai/process.
type ProcessRequest struct {
	Mode       Mode   `json:"mode" binding:"required"`
	Text       string `json:"text,omitempty"`
	Messages   []Turn `json:"messages,omitempty"`
	Style      string `json:"style,omitempty"`
	CustomTone string `json:"custom_tone,omitempty"`
	ChatID     string `json:"chat_id,omitempty"`
	Language   string `json:"language,omitempty"`
	Stream     bool   `json:"stream,omitempty"`
}
