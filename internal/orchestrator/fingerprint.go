package orchestrator

import (
	"fmt"

	"inkwell-client/internal/model"
)

const (
	textKeyLen = 100
	chatKeyLen = 50
)

// Fingerprint derives the cache/coalescing identity of a request.
// Two requests the application considers "the same" must map to the
// same key: for non-chat modes that is the mode, style options and a
// text prefix; for chat it is the conversation id plus the last turn.
func Fingerprint(req model.Request) string {
	if req.Mode == model.ModeChat {
		var last model.Turn
		if n := len(req.Messages); n > 0 {
			last = req.Messages[n-1]
		}
		return fmt.Sprintf("%s|%s|%s|%s", req.Mode, req.ChatID, last.Role, prefix(last.Content, chatKeyLen))
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s", req.Mode, req.Style, req.CustomTone, req.Language, prefix(req.Text, textKeyLen))
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
