package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"inkwell-client/internal/model"
	"inkwell-client/internal/storage"
	"inkwell-client/pkg/logger"
)

// Handler serves the backend contract the client layer targets:
// POST /api/ai/process (JSON and SSE) and the /ws channel.
type Handler struct {
	store    storage.Store
	provider ChatProvider
}

func NewHandler(store storage.Store, provider ChatProvider) *Handler {
	return &Handler{
		store:    store,
		provider: provider,
	}
}

func (h *Handler) Process(c *gin.Context) {
	var req model.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Mode.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown mode " + string(req.Mode)})
		return
	}

	if req.Mode == model.ModeChat {
		h.processChat(c, req)
		return
	}

	result, err := runMode(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// runMode executes one non-chat transformation.
func runMode(req model.ProcessRequest) (interface{}, error) {
	if req.Text == "" {
		return nil, errors.New("text is required")
	}
	switch req.Mode {
	case model.ModeGrammar:
		return correctGrammar(req.Text), nil
	case model.ModeParaphrase:
		style := req.Style
		if style == "" && req.CustomTone != "" {
			style = req.CustomTone
		}
		return paraphrase(req.Text, style), nil
	case model.ModeHumanize:
		return humanize(req.Text), nil
	case model.ModeAICheck:
		return aiCheck(req.Text), nil
	}
	return nil, errors.New("unsupported mode " + string(req.Mode))
}

func (h *Handler) processChat(c *gin.Context, req model.ProcessRequest) {
	turns := h.chatTurns(req)
	if len(turns) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "messages or text required for chat"})
		return
	}

	ctx := c.Request.Context()

	if !req.Stream {
		reply, err := h.provider.Reply(ctx, turns)
		if err != nil {
			logger.Errorf("chat upstream failed: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		h.recordExchange(req.ChatID, turns, reply)
		c.JSON(http.StatusOK, gin.H{"text": reply})
		return
	}

	sse := NewSSEWriter(c.Writer)
	// Initial control frame; the client decoder discards it.
	_ = sse.WriteData(`{"type":"start"}`)

	reply, err := h.provider.StreamReply(ctx, turns, func(delta string) {
		if err := sse.WriteData(delta); err != nil {
			logger.Warnf("sse write failed: %v", err)
		}
	})
	if err != nil {
		logger.Errorf("chat upstream failed mid-stream: %v", err)
		_ = sse.Close()
		return
	}
	h.recordExchange(req.ChatID, turns, reply)
	_ = sse.Close()
}

// chatTurns prefers the client-sanitized message list; with only text,
// it continues the stored session.
func (h *Handler) chatTurns(req model.ProcessRequest) []model.Turn {
	if len(req.Messages) > 0 {
		return req.Messages
	}
	if req.Text == "" {
		return nil
	}
	var turns []model.Turn
	if req.ChatID != "" {
		stored, err := h.store.GetTurns(req.ChatID)
		if err == nil {
			turns = stored
		}
	}
	return append(turns, model.Turn{Role: model.RoleUser, Content: req.Text})
}

func (h *Handler) recordExchange(chatID string, turns []model.Turn, reply string) {
	if chatID == "" {
		return
	}
	if _, err := h.store.GetSession(chatID); errors.Is(err, storage.ErrSessionNotFound) {
		now := time.Now()
		_ = h.store.CreateSession(&model.Session{
			ID:        chatID,
			Title:     sessionTitle(turns),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	var lastUser model.Turn
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == model.RoleUser {
			lastUser = turns[i]
			break
		}
	}
	if err := h.store.AppendTurns(chatID, lastUser, model.Turn{Role: model.RoleAssistant, Content: reply}); err != nil {
		logger.Warnf("record exchange for %s: %v", chatID, err)
	}
}

func sessionTitle(turns []model.Turn) string {
	for _, t := range turns {
		if t.Role == model.RoleUser {
			if len(t.Content) > 40 {
				return t.Content[:40]
			}
			return t.Content
		}
	}
	return "New chat"
}
