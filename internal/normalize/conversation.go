// Package normalize turns arbitrary role-tagged message lists into
// conversations the upstream chat API accepts: one optional leading
// system turn, strict user/assistant alternation, ending on a user
// turn, bounded history window.
package normalize

import (
	"strings"

	"inkwell-client/internal/model"
)

const (
	DefaultSystemPrompt = "You are a helpful writing assistant. Help the user improve their writing."
	DefaultGreeting     = "Hello, can you help me with my writing?"
	ContinuePrompt      = "Please continue."

	// mergeSeparator joins consecutive same-role turns.
	mergeSeparator = "\n\n"
)

// Options tune sanitization. Zero values fall back to defaults.
type Options struct {
	SystemPrompt string
	// Window is the max number of non-system turns kept (K).
	Window int
}

const DefaultWindow = 10

func (o Options) systemPrompt() string {
	if strings.TrimSpace(o.SystemPrompt) != "" {
		return o.SystemPrompt
	}
	return DefaultSystemPrompt
}

func (o Options) window() int {
	if o.Window > 0 {
		return o.Window
	}
	return DefaultWindow
}

// Sanitize normalizes turns into a protocol-valid conversation. It is
// pure and total: any input, including empty or single-role lists,
// yields a valid conversation, synthesizing turns where needed.
func Sanitize(turns []model.Turn, opts Options) []model.Turn {
	system := model.Turn{Role: model.RoleSystem, Content: opts.systemPrompt()}
	rest := turns
	if len(rest) > 0 && rest[0].Role == model.RoleSystem && strings.TrimSpace(rest[0].Content) != "" {
		system = rest[0]
		rest = rest[1:]
	}

	// Fold: drop empty turns, merge same-role runs, drop stray
	// system turns past position 0.
	folded := make([]model.Turn, 0, len(rest))
	for _, t := range rest {
		if t.Role == model.RoleSystem {
			continue
		}
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		if t.Role != model.RoleUser && t.Role != model.RoleAssistant {
			t.Role = model.RoleUser
		}
		if n := len(folded); n > 0 && folded[n-1].Role == t.Role {
			folded[n-1].Content += mergeSeparator + t.Content
			continue
		}
		folded = append(folded, t)
	}

	if len(folded) == 0 {
		folded = append(folded, model.Turn{Role: model.RoleUser, Content: DefaultGreeting})
	}

	if folded[0].Role != model.RoleUser {
		folded = append([]model.Turn{{Role: model.RoleUser, Content: DefaultGreeting}}, folded...)
	}

	// Ending on an assistant turn: appending a continuation keeps the
	// assistant content, dropping it would not.
	if folded[len(folded)-1].Role != model.RoleUser {
		folded = append(folded, model.Turn{Role: model.RoleUser, Content: ContinuePrompt})
	}

	k := opts.window()
	if len(folded) > k {
		folded = folded[len(folded)-k:]
		// A window of even length starts on assistant; drop it so the
		// conversation still opens with a user turn inside the bound.
		if folded[0].Role == model.RoleAssistant {
			folded = folded[1:]
		}
	}

	out := make([]model.Turn, 0, len(folded)+1)
	out = append(out, system)
	out = append(out, folded...)
	return out
}
