package model

// Metrics are the four writing-quality scores returned by grammar,
// paraphrase and aicheck modes.
type Metrics struct {
	Correctness int `json:"correctness"`
	Clarity     int `json:"clarity"`
	Engagement  int `json:"engagement"`
	Delivery    int `json:"delivery"`
}

type GrammarError struct {
	Original   string `json:"original"`
	Corrected  string `json:"corrected"`
	ErrorType  string `json:"error_type"`
	Suggestion string `json:"suggestion,omitempty"`
}

type GrammarResult struct {
	CorrectedText string         `json:"correctedText"`
	Errors        []GrammarError `json:"errors"`
	Suggestions   []string       `json:"suggestions"`
	Metrics       Metrics        `json:"metrics"`
}

type ParaphraseResult struct {
	ParaphrasedText string  `json:"paraphrasedText"`
	Metrics         Metrics `json:"metrics"`
}

type HumanizeResult struct {
	HumanizedText string `json:"humanizedText"`
}

type Highlight struct {
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
}

type AICheckResult struct {
	AIPercentage float64     `json:"aiPercentage"`
	Metrics      Metrics     `json:"metrics"`
	Highlights   []Highlight `json:"highlights"`
}

// ChatResult is the settled value of a chat request: the full
// accumulated assistant reply.
type ChatResult struct {
	Text string `json:"text"`
}

// ErrorResponse is the non-2xx wire envelope. Backends emit either
// field; Message() folds them.
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Msg     string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func (e *ErrorResponse) Message() string {
	if e.Error != "" {
		return e.Error
	}
	if e.Msg != "" {
		return e.Msg
	}
	return "upstream error"
}
