package server

import (
	"context"
	"errors"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"inkwell-client/internal/config"
	"inkwell-client/internal/model"
	"inkwell-client/pkg/logger"
)

// ChatProvider produces assistant replies for the dev backend's chat
// mode.
type ChatProvider interface {
	Reply(ctx context.Context, turns []model.Turn) (string, error)
	// StreamReply emits deltas through onDelta and returns the full
	// reply.
	StreamReply(ctx context.Context, turns []model.Turn, onDelta func(string)) (string, error)
}

// NewChatProvider picks the OpenAI-compatible provider when an API key
// is configured, otherwise the canned echo provider.
func NewChatProvider(cfg config.UpstreamConfig) ChatProvider {
	if cfg.APIKey != "" {
		logger.Infof("chat upstream: openai-compatible provider, model %s", cfg.Model)
		return newOpenAIProvider(cfg)
	}
	logger.Info("chat upstream: canned echo provider")
	return &echoProvider{}
}

// echoProvider answers deterministically from the last user turn.
type echoProvider struct{}

func (*echoProvider) reply(turns []model.Turn) string {
	last := "your writing"
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == model.RoleUser {
			last = turns[i].Content
			break
		}
	}
	return "Here is a thought about \"" + last + "\": keep sentences short and lead with the point."
}

func (p *echoProvider) Reply(_ context.Context, turns []model.Turn) (string, error) {
	return p.reply(turns), nil
}

func (p *echoProvider) StreamReply(_ context.Context, turns []model.Turn, onDelta func(string)) (string, error) {
	full := p.reply(turns)
	for _, word := range strings.SplitAfter(full, " ") {
		onDelta(word)
	}
	return full, nil
}

type openaiProvider struct {
	client *openai.Client
	cfg    config.UpstreamConfig
}

func newOpenAIProvider(cfg config.UpstreamConfig) *openaiProvider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &openaiProvider{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
	}
}

func (p *openaiProvider) messages(turns []model.Turn) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    string(t.Role),
			Content: t.Content,
		})
	}
	return msgs
}

func (p *openaiProvider) Reply(ctx context.Context, turns []model.Turn) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.cfg.Model,
		Messages:    p.messages(turns),
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in upstream response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *openaiProvider) StreamReply(ctx context.Context, turns []model.Turn, onDelta func(string)) (string, error) {
	streamResp, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       p.cfg.Model,
		Messages:    p.messages(turns),
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		Stream:      true,
	})
	if err != nil {
		return "", err
	}
	defer streamResp.Close()

	var full strings.Builder
	for {
		chunk, err := streamResp.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		onDelta(delta)
	}
	return full.String(), nil
}
