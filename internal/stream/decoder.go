// Package stream incrementally decodes the framed text-event format
// used by the streaming chat paths: frames are "data: <content>" lines
// terminated by a blank line, with "data: [DONE]" closing the stream.
package stream

import (
	"encoding/json"
	"strings"
)

// DoneMarker closes a framed stream.
const DoneMarker = "[DONE]"

const dataPrefix = "data:"

// Decoder accumulates streamed text across Feed calls. Chunk
// boundaries may fall anywhere, including mid-line; partial input is
// carried over until the next call. Decoding never fails: malformed
// frames degrade to literal text.
type Decoder struct {
	carry   strings.Builder // partial line across chunks
	pending []string        // payload lines of the frame being built
	acc     strings.Builder // accumulated text
	started bool            // first frame already consumed
	done    bool
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed consumes the next raw chunk and returns one full-text snapshot
// per completed frame, plus whether the stream has terminated. After
// termination further input is ignored.
func (d *Decoder) Feed(chunk []byte) ([]string, bool) {
	if d.done {
		return nil, true
	}

	var snapshots []string
	for _, b := range chunk {
		if b != '\n' {
			d.carry.WriteByte(b)
			continue
		}
		line := strings.TrimSuffix(d.carry.String(), "\r")
		d.carry.Reset()

		if line == "" {
			if snap, ok := d.closeFrame(); ok {
				snapshots = append(snapshots, snap)
			}
			if d.done {
				return snapshots, true
			}
			continue
		}
		d.pending = append(d.pending, payloadOf(line))
	}
	return snapshots, false
}

// Text returns the accumulated text so far.
func (d *Decoder) Text() string {
	return d.acc.String()
}

// Reset clears all state so the decoder can consume a new stream.
func (d *Decoder) Reset() {
	d.carry.Reset()
	d.pending = nil
	d.acc.Reset()
	d.started = false
	d.done = false
}

// payloadOf strips the frame marker. Lines without a marker are kept
// as-is rather than dropped, degrading to literal text.
func payloadOf(line string) string {
	if !strings.HasPrefix(line, dataPrefix) {
		return line
	}
	return strings.TrimPrefix(strings.TrimPrefix(line, dataPrefix), " ")
}

func (d *Decoder) closeFrame() (string, bool) {
	if len(d.pending) == 0 {
		return "", false
	}
	payload := strings.Join(d.pending, "\n")
	d.pending = nil

	if payload == DoneMarker {
		d.done = true
		return "", false
	}

	first := !d.started
	d.started = true
	if first && isControlFrame(payload) {
		return "", false
	}

	d.acc.WriteString(payload)
	return d.acc.String(), true
}

// isControlFrame reports whether the first frame is an initial control
// object carrying no text, e.g. {"type":"start"} or {}.
func isControlFrame(payload string) bool {
	trimmed := strings.TrimSpace(payload)
	if !strings.HasPrefix(trimmed, "{") {
		return false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return false
	}
	for _, key := range []string{"content", "text", "delta"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return false
		}
	}
	return true
}
