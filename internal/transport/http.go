// Package transport implements the one-shot request/response path to
// the backend and its streaming variant, both against
// POST /api/ai/process.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"inkwell-client/internal/model"
	"inkwell-client/internal/stream"
	"inkwell-client/pkg/logger"
)

const processPath = "/api/ai/process"

// Client talks to the single backend origin.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: false,
				},
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Process performs the synchronous exchange and returns the raw JSON
// body for mode-specific decoding.
func (c *Client) Process(ctx context.Context, req model.ProcessRequest) (json.RawMessage, error) {
	req.Stream = false
	resp, err := c.post(ctx, req, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, req.Mode); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(model.ErrNetwork, "read response body: %v", err)
	}
	return json.RawMessage(body), nil
}

// ProcessStream performs the exchange as a byte stream, feeding every
// chunk through a stream.Decoder and invoking onSnapshot with each
// accumulated snapshot. It returns the final accumulated text.
func (c *Client) ProcessStream(ctx context.Context, req model.ProcessRequest, onSnapshot func(string)) (string, error) {
	req.Stream = true
	resp, err := c.post(ctx, req, "text/event-stream")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, req.Mode); err != nil {
		return "", err
	}

	dec := stream.NewDecoder()
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			snapshots, done := dec.Feed(buf[:n])
			if onSnapshot != nil {
				for _, snap := range snapshots {
					onSnapshot(snap)
				}
			}
			if done {
				break
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			// Keep whatever already streamed out of the result, but a
			// torn body is still a failed exchange.
			return "", errors.Wrapf(model.ErrNetwork, "read stream: %v", err)
		}
	}
	return dec.Text(), nil
}

func (c *Client) post(ctx context.Context, req model.ProcessRequest, accept string) (*http.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+processPath, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if accept != "" {
		httpReq.Header.Set("Accept", accept)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		logger.Warnf("backend request failed (%s): %v", req.Mode, err)
		return nil, errors.Wrapf(model.ErrNetwork, "%s %s: %v", http.MethodPost, processPath, err)
	}
	return resp, nil
}

// checkStatus decodes the {error|message} envelope carried by non-2xx
// responses. The body is consumed on error.
func checkStatus(resp *http.Response, mode model.Mode) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	var envelope model.ErrorResponse
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if len(body) > 0 {
		_ = json.Unmarshal(body, &envelope)
	}
	return &model.APIError{
		Status:  resp.StatusCode,
		Mode:    mode,
		Message: envelope.Message(),
	}
}
