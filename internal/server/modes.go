package server

import (
	"fmt"
	"strings"

	"inkwell-client/internal/model"
)

// Canned, deterministic transformations for every non-chat mode. The
// dev backend is a stand-in for the real AI services: good enough to
// exercise the client layer end to end, not good writing advice.

var typoFixes = map[string]string{
	"teh":        "the",
	"recieve":    "receive",
	"definately": "definitely",
	"seperate":   "separate",
	"occured":    "occurred",
	"wich":       "which",
	"alot":       "a lot",
}

var fillerPhrases = []string{
	"It is important to note that ",
	"In conclusion, ",
	"Furthermore, ",
	"Moreover, ",
	"It should be noted that ",
}

func correctGrammar(text string) *model.GrammarResult {
	words := strings.Fields(text)
	var errs []model.GrammarError
	for i, w := range words {
		key := strings.ToLower(strings.Trim(w, ".,!?;:"))
		fix, ok := typoFixes[key]
		if !ok {
			continue
		}
		corrected := strings.Replace(w, key, fix, 1)
		errs = append(errs, model.GrammarError{
			Original:   w,
			Corrected:  corrected,
			ErrorType:  "spelling",
			Suggestion: fmt.Sprintf("Replace %q with %q", key, fix),
		})
		words[i] = corrected
	}

	corrected := strings.Join(words, " ")
	if corrected == "" {
		corrected = text
	}

	correctness := 95 - 5*len(errs)
	if correctness < 40 {
		correctness = 40
	}
	suggestions := []string{}
	if len(errs) > 0 {
		suggestions = append(suggestions, "Proofread for common misspellings before submitting.")
	}
	if len(words) > 40 {
		suggestions = append(suggestions, "Consider splitting long passages into shorter sentences.")
	}

	return &model.GrammarResult{
		CorrectedText: corrected,
		Errors:        errs,
		Suggestions:   suggestions,
		Metrics: model.Metrics{
			Correctness: correctness,
			Clarity:     80,
			Engagement:  75,
			Delivery:    78,
		},
	}
}

func paraphrase(text, style string) *model.ParaphraseResult {
	out := strings.TrimSpace(text)
	switch style {
	case "formal":
		out = "One might say that " + lowerFirst(out)
	case "casual":
		out = "Basically, " + lowerFirst(out)
	default:
		out = "In other words, " + lowerFirst(out)
	}
	return &model.ParaphraseResult{
		ParaphrasedText: out,
		Metrics: model.Metrics{
			Correctness: 90,
			Clarity:     85,
			Engagement:  80,
			Delivery:    82,
		},
	}
}

func humanize(text string) *model.HumanizeResult {
	out := text
	for _, phrase := range fillerPhrases {
		out = strings.ReplaceAll(out, phrase, "")
	}
	out = strings.TrimSpace(out)
	if out == "" {
		out = text
	}
	return &model.HumanizeResult{HumanizedText: out}
}

func aiCheck(text string) *model.AICheckResult {
	var hits []model.Highlight
	for _, phrase := range fillerPhrases {
		if idx := strings.Index(text, phrase); idx >= 0 {
			hits = append(hits, model.Highlight{
				Text:   strings.TrimSpace(phrase),
				Score:  0.9,
				Reason: "stock transition phrase",
			})
		}
	}

	pct := 12.0 + 15.0*float64(len(hits))
	if pct > 95 {
		pct = 95
	}
	return &model.AICheckResult{
		AIPercentage: pct,
		Metrics: model.Metrics{
			Correctness: 88,
			Clarity:     84,
			Engagement:  70,
			Delivery:    76,
		},
		Highlights: hits,
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
