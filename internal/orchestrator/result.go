package orchestrator

import (
	"encoding/json"

	"inkwell-client/internal/model"
)

// decodeResult parses a raw JSON body into the mode-specific result
// shape, validating that the required field survived the trip.
func decodeResult(mode model.Mode, raw json.RawMessage) (interface{}, error) {
	switch mode {
	case model.ModeGrammar:
		var res model.GrammarResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, invalidBody(mode, err)
		}
		if res.CorrectedText == "" {
			return nil, missingField(mode, "correctedText")
		}
		return &res, nil

	case model.ModeParaphrase:
		var res model.ParaphraseResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, invalidBody(mode, err)
		}
		if res.ParaphrasedText == "" {
			return nil, missingField(mode, "paraphrasedText")
		}
		return &res, nil

	case model.ModeHumanize:
		var res model.HumanizeResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, invalidBody(mode, err)
		}
		if res.HumanizedText == "" {
			return nil, missingField(mode, "humanizedText")
		}
		return &res, nil

	case model.ModeAICheck:
		var res model.AICheckResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, invalidBody(mode, err)
		}
		return &res, nil

	case model.ModeChat:
		// Chat settles to plain accumulated text. Accept either a bare
		// JSON string or a {text} object.
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, nil
		}
		var res model.ChatResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, invalidBody(mode, err)
		}
		return res.Text, nil
	}
	return nil, &model.APIError{Mode: mode, Message: "unknown mode"}
}

func invalidBody(mode model.Mode, err error) error {
	return &model.APIError{Mode: mode, Message: "invalid response body: " + err.Error()}
}

func missingField(mode model.Mode, field string) error {
	return &model.APIError{Mode: mode, Message: "response missing required field " + field}
}
