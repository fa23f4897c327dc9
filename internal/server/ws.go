package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"inkwell-client/internal/model"
	"inkwell-client/internal/stream"
	"inkwell-client/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Single-origin dev server; the real deployment sits behind the
	// app's own origin checks.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Socket serves the persistent channel. Requests are handled
// sequentially per connection; replies are typed messages dispatched
// client-side by their type field.
func (h *Handler) Socket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var req model.SocketRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debugf("websocket read ended: %v", err)
			}
			return
		}
		h.handleSocketRequest(conn, req)
	}
}

func (h *Handler) handleSocketRequest(conn *websocket.Conn, req model.SocketRequest) {
	mode := model.Mode(req.Type)
	if !mode.Valid() {
		h.writeSocketError(conn, req.MessageID, "unknown request type "+req.Type)
		return
	}

	_ = conn.WriteJSON(model.SocketMessage{
		Type:      model.SocketTypeProcessing,
		MessageID: req.MessageID,
	})

	if mode == model.ModeChat {
		h.socketChat(conn, req)
		return
	}

	result, err := runMode(model.ProcessRequest{
		Mode:       mode,
		Text:       req.Text,
		Style:      req.Style,
		CustomTone: req.CustomTone,
		Language:   req.Language,
	})
	if err != nil {
		h.writeSocketError(conn, req.MessageID, err.Error())
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		h.writeSocketError(conn, req.MessageID, err.Error())
		return
	}
	_ = conn.WriteJSON(model.SocketMessage{
		Type:      string(mode),
		MessageID: req.MessageID,
		Result:    raw,
	})
}

func (h *Handler) socketChat(conn *websocket.Conn, req model.SocketRequest) {
	turns := h.chatTurns(model.ProcessRequest{
		Mode:     model.ModeChat,
		Text:     req.Text,
		Messages: req.Messages,
		ChatID:   req.ChatID,
	})
	if len(turns) == 0 {
		h.writeSocketError(conn, req.MessageID, "messages or text required for chat")
		return
	}

	writeChunk := func(data string) {
		_ = conn.WriteJSON(model.SocketMessage{
			Type:      model.SocketTypeChatDelta,
			MessageID: req.MessageID,
			Data:      data,
		})
	}

	// Control frame first, then one framed chunk per delta, then the
	// terminator. The frame bytes match the HTTP streaming path so the
	// client runs them through the same decoder.
	writeChunk(encodeFrame(`{"type":"start"}`))

	reply, err := h.provider.StreamReply(context.Background(), turns, func(delta string) {
		writeChunk(encodeFrame(delta))
	})
	if err != nil {
		h.writeSocketError(conn, req.MessageID, err.Error())
		return
	}
	writeChunk(encodeFrame(stream.DoneMarker))

	// Final result message for clients consuming chat without a
	// streaming callback.
	raw, err := json.Marshal(reply)
	if err == nil {
		_ = conn.WriteJSON(model.SocketMessage{
			Type:      string(model.ModeChat),
			MessageID: req.MessageID,
			Result:    raw,
		})
	}
	h.recordExchange(req.ChatID, turns, reply)
}

func (h *Handler) writeSocketError(conn *websocket.Conn, messageID, msg string) {
	_ = conn.WriteJSON(model.SocketMessage{
		Type:      model.SocketTypeError,
		MessageID: messageID,
		Error:     msg,
	})
}

// encodeFrame wraps payload into the wire framing, splitting embedded
// newlines across data lines so the frame boundary stays a blank line.
func encodeFrame(payload string) string {
	var b strings.Builder
	for _, line := range strings.Split(payload, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}
