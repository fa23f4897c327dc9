package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell-client/internal/config"
	"inkwell-client/internal/model"
	"inkwell-client/internal/storage"
	"inkwell-client/internal/stream"
)

func newTestRouter() http.Handler {
	store := storage.NewMemoryStore()
	handler := NewHandler(store, &echoProvider{})
	return NewRouter(&config.Config{}, handler)
}

func postProcess(t *testing.T, router http.Handler, body model.ProcessRequest) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/ai/process", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestProcessGrammarCorrectsTypos(t *testing.T) {
	rec := postProcess(t, newTestRouter(), model.ProcessRequest{
		Mode: model.ModeGrammar,
		Text: "I teh recieve alot of mail.",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var res model.GrammarResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "I the receive a lot of mail.", res.CorrectedText)
	assert.Len(t, res.Errors, 3)
	assert.NotZero(t, res.Metrics.Correctness)
}

func TestProcessParaphraseStyles(t *testing.T) {
	rec := postProcess(t, newTestRouter(), model.ProcessRequest{
		Mode:  model.ModeParaphrase,
		Text:  "The meeting went well.",
		Style: "casual",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var res model.ParaphraseResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, strings.HasPrefix(res.ParaphrasedText, "Basically, "))
}

func TestProcessRejectsUnknownMode(t *testing.T) {
	rec := postProcess(t, newTestRouter(), model.ProcessRequest{Mode: "summarize", Text: "x"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var envelope model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Contains(t, envelope.Message(), "unknown mode")
}

func TestProcessRejectsMissingText(t *testing.T) {
	rec := postProcess(t, newTestRouter(), model.ProcessRequest{Mode: model.ModeAICheck})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessChatPlain(t *testing.T) {
	rec := postProcess(t, newTestRouter(), model.ProcessRequest{
		Mode: model.ModeChat,
		Text: "improve my intro",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Contains(t, res.Text, "improve my intro")
}

func TestProcessChatStreamDecodes(t *testing.T) {
	rec := postProcess(t, newTestRouter(), model.ProcessRequest{
		Mode:   model.ModeChat,
		Text:   "short tip please",
		Stream: true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	dec := stream.NewDecoder()
	_, done := dec.Feed(rec.Body.Bytes())
	assert.True(t, done, "stream must terminate with the done marker")
	assert.Contains(t, dec.Text(), "short tip please")
}

func TestProcessChatRecordsSession(t *testing.T) {
	store := storage.NewMemoryStore()
	handler := NewHandler(store, &echoProvider{})
	router := NewRouter(&config.Config{}, handler)

	rec := postProcess(t, router, model.ProcessRequest{
		Mode:   model.ModeChat,
		Text:   "first question",
		ChatID: "session-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	turns, err := store.GetTurns("session-1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, model.RoleUser, turns[0].Role)
	assert.Equal(t, "first question", turns[0].Content)
	assert.Equal(t, model.RoleAssistant, turns[1].Role)
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestSocketGrammarRoundTrip(t *testing.T) {
	srv := httptest.NewServer(newTestRouter())
	defer srv.Close()

	conn := dialWS(t, srv)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(model.SocketRequest{
		Type:      "grammar",
		MessageID: "m1",
		Text:      "teh cat",
	}))

	var processing model.SocketMessage
	require.NoError(t, conn.ReadJSON(&processing))
	assert.Equal(t, model.SocketTypeProcessing, processing.Type)
	assert.Equal(t, "m1", processing.MessageID)

	var result model.SocketMessage
	require.NoError(t, conn.ReadJSON(&result))
	require.Equal(t, "grammar", result.Type)

	var grammar model.GrammarResult
	require.NoError(t, json.Unmarshal(result.Result, &grammar))
	assert.Equal(t, "the cat", grammar.CorrectedText)
}

func TestSocketChatStreamsFrames(t *testing.T) {
	srv := httptest.NewServer(newTestRouter())
	defer srv.Close()

	conn := dialWS(t, srv)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(model.SocketRequest{
		Type:      "chat",
		MessageID: "m2",
		Text:      "hello",
	}))

	dec := stream.NewDecoder()
	for {
		var msg model.SocketMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == model.SocketTypeProcessing {
			continue
		}
		require.Equal(t, model.SocketTypeChatDelta, msg.Type)
		require.Equal(t, "m2", msg.MessageID)
		if _, done := dec.Feed([]byte(msg.Data)); done {
			break
		}
	}
	assert.Contains(t, dec.Text(), "hello")
}

func TestSocketUnknownTypeGetsError(t *testing.T) {
	srv := httptest.NewServer(newTestRouter())
	defer srv.Close()

	conn := dialWS(t, srv)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(model.SocketRequest{Type: "bogus", MessageID: "m3"}))

	var msg model.SocketMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, model.SocketTypeError, msg.Type)
	assert.Contains(t, msg.Error, "unknown request type")
}
