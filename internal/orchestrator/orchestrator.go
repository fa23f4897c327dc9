// Package orchestrator is the entry point of the AI request layer. It
// normalizes chat conversations, coalesces duplicate in-flight
// requests, serves a session-lifetime response cache, and routes each
// operation over the persistent channel or the synchronous HTTP path.
package orchestrator

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"inkwell-client/internal/model"
	"inkwell-client/internal/normalize"
	"inkwell-client/internal/socket"
	"inkwell-client/internal/stream"
	"inkwell-client/pkg/logger"
)

// HTTPClient is the synchronous request/response transport.
type HTTPClient interface {
	Process(ctx context.Context, req model.ProcessRequest) (json.RawMessage, error)
	ProcessStream(ctx context.Context, req model.ProcessRequest, onSnapshot func(string)) (string, error)
}

// Channel is the persistent bidirectional transport. Nil disables the
// channel path entirely.
type Channel interface {
	Send(msg model.SocketRequest) bool
	OnMessage(msgType string, fn socket.Handler) func()
}

const defaultGrammarKeyTolerance = 10

// Options tune an Orchestrator. Zero values fall back to defaults.
type Options struct {
	SystemPrompt        string
	HistoryWindow       int
	GrammarKeyTolerance int
}

// Orchestrator coordinates all AI requests of one application session.
// The cache and in-flight table live and die with the instance.
type Orchestrator struct {
	http      HTTPClient
	channel   Channel
	sanitize  normalize.Options
	tolerance int

	group singleflight.Group
	cache *resultCache
}

func New(httpClient HTTPClient, channel Channel, opts Options) *Orchestrator {
	tolerance := opts.GrammarKeyTolerance
	if tolerance <= 0 {
		tolerance = defaultGrammarKeyTolerance
	}
	return &Orchestrator{
		http:    httpClient,
		channel: channel,
		sanitize: normalize.Options{
			SystemPrompt: opts.SystemPrompt,
			Window:       opts.HistoryWindow,
		},
		tolerance: tolerance,
		cache:     newResultCache(),
	}
}

// Submit runs one request. Concurrent submissions with equal
// fingerprints share a single network operation and observe the same
// result or the same error. Results are cached for the session;
// failures are not.
func (o *Orchestrator) Submit(ctx context.Context, req model.Request) (interface{}, error) {
	if !req.Mode.Valid() {
		return nil, errors.Wrapf(model.ErrInvalidRequest, "unknown mode %q", req.Mode)
	}

	if req.Mode == model.ModeChat {
		turns := req.Messages
		if strings.TrimSpace(req.Text) != "" {
			turns = append(append([]model.Turn(nil), turns...), model.Turn{Role: model.RoleUser, Content: req.Text})
		}
		req.Messages = normalize.Sanitize(turns, o.sanitize)
	}

	fp := Fingerprint(req)

	if v, ok := o.cache.get(fp); ok {
		return v, nil
	}

	// Grammar serves a similar-length correction immediately and
	// refreshes the entry in the background; the stale caller is not
	// retroactively updated.
	if req.Mode == model.ModeGrammar {
		if stale, ok := o.cache.findApproximate(model.ModeGrammar, fp, o.tolerance); ok {
			logger.Debugf("grammar stale hit for %s, revalidating", fp)
			go o.revalidate(fp, req)
			return stale, nil
		}
	}

	return o.run(ctx, fp, req)
}

// run issues the network operation under the in-flight table: one
// operation per fingerprint, later submissions join it. The cache is
// written inside the shared call so every sharer observes the value
// already stored.
func (o *Orchestrator) run(ctx context.Context, fp string, req model.Request) (interface{}, error) {
	v, err, _ := o.group.Do(fp, func() (interface{}, error) {
		res, err := o.execute(ctx, req)
		if err != nil {
			return nil, err
		}
		o.cache.set(fp, res)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (o *Orchestrator) revalidate(fp string, req model.Request) {
	if _, ok := o.cache.get(fp); ok {
		// A concurrent refresh already settled this fingerprint.
		return
	}
	// The stale caller already returned; the refresh outlives its ctx.
	if _, err := o.run(context.Background(), fp, req); err != nil {
		logger.Warnf("background grammar refresh failed: %v", err)
	}
}

func (o *Orchestrator) execute(ctx context.Context, req model.Request) (interface{}, error) {
	streaming := req.Mode == model.ModeChat && req.OnStreamUpdate != nil

	if o.channel != nil {
		if res, sent, err := o.overChannel(ctx, req, streaming); sent {
			return res, err
		}
		// Send reported failure and kicked a reconnect; fall through
		// to the synchronous path right away.
	}

	if streaming {
		return o.http.ProcessStream(ctx, wireRequest(req), req.OnStreamUpdate)
	}
	raw, err := o.http.Process(ctx, wireRequest(req))
	if err != nil {
		return nil, err
	}
	return decodeResult(req.Mode, raw)
}

// overChannel attempts the exchange over the persistent channel. The
// second return value reports whether the message was actually sent;
// false means the caller should use the HTTP fallback.
func (o *Orchestrator) overChannel(ctx context.Context, req model.Request, streaming bool) (interface{}, bool, error) {
	messageID := uuid.New().String()

	type settled struct {
		value interface{}
		err   error
	}
	outcome := make(chan settled, 1)
	settle := func(v interface{}, err error) {
		select {
		case outcome <- settled{value: v, err: err}:
		default:
		}
	}

	var unregister []func()
	defer func() {
		for _, u := range unregister {
			u()
		}
	}()
	on := func(msgType string, fn socket.Handler) {
		unregister = append(unregister, o.channel.OnMessage(msgType, fn))
	}

	on(model.SocketTypeProcessing, func(msg model.SocketMessage) {
		if msg.MessageID == messageID {
			logger.Debugf("request %s accepted by backend", messageID)
		}
	})
	on(model.SocketTypeError, func(msg model.SocketMessage) {
		if msg.MessageID != messageID {
			return
		}
		settle(nil, &model.APIError{Mode: req.Mode, Message: msg.Error})
	})

	if streaming {
		dec := stream.NewDecoder()
		on(model.SocketTypeChatDelta, func(msg model.SocketMessage) {
			if msg.MessageID != messageID {
				return
			}
			snapshots, done := dec.Feed([]byte(msg.Data))
			for _, snap := range snapshots {
				req.OnStreamUpdate(snap)
			}
			if done {
				settle(dec.Text(), nil)
			}
		})
		on(string(model.ModeChat), func(msg model.SocketMessage) {
			if msg.MessageID != messageID {
				return
			}
			if text := dec.Text(); text != "" {
				settle(text, nil)
				return
			}
			v, err := decodeResult(model.ModeChat, msg.Result)
			settle(v, err)
		})
	} else {
		on(string(req.Mode), func(msg model.SocketMessage) {
			if msg.MessageID != messageID {
				return
			}
			v, err := decodeResult(req.Mode, msg.Result)
			settle(v, err)
		})
	}

	if !o.channel.Send(socketRequest(req, messageID)) {
		return nil, false, nil
	}

	select {
	case s := <-outcome:
		return s.value, true, s.err
	case <-ctx.Done():
		return nil, true, errors.Wrap(ctx.Err(), "await channel reply")
	}
}

func wireRequest(req model.Request) model.ProcessRequest {
	return model.ProcessRequest{
		Mode:       req.Mode,
		Text:       req.Text,
		Messages:   req.Messages,
		Style:      req.Style,
		CustomTone: req.CustomTone,
		ChatID:     req.ChatID,
		Language:   req.Language,
	}
}

func socketRequest(req model.Request, messageID string) model.SocketRequest {
	return model.SocketRequest{
		Type:       string(req.Mode),
		MessageID:  messageID,
		Text:       req.Text,
		Messages:   req.Messages,
		Style:      req.Style,
		CustomTone: req.CustomTone,
		ChatID:     req.ChatID,
		Language:   req.Language,
	}
}
