package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Endpoint describes one chat-completions-shaped generation provider.
type Endpoint struct {
	Name     string // "primary" or "fallback"
	URL      string
	APIKey   string
	Model    string
	JSONMode bool // provider supports constrained JSON output
}

// Configured reports whether the endpoint carries everything needed to call it.
func (e Endpoint) Configured() bool {
	return e.URL != "" && e.APIKey != "" && e.Model != ""
}

// Input is everything a single generate call needs. Days supplies the exact
// day-name keys the response must contain, in forecast order.
type Input struct {
	SystemPrompt string
	Context      string
	Days         []string
	Location     string
	Source       string
	Model        string // optional override of the endpoint's default model
}

// DayText pairs a forecast day name with its generated short text.
type DayText struct {
	Day  string
	Text string
}

// OrderedForecasts is a day→text mapping that preserves forecast-day order
// through JSON round trips, which plain Go maps cannot.
type OrderedForecasts []DayText

// Days returns the day names in order.
func (o OrderedForecasts) Days() []string {
	days := make([]string, 0, len(o))
	for _, d := range o {
		days = append(days, d.Day)
	}
	return days
}

// Get returns the text for a day name.
func (o OrderedForecasts) Get(day string) (string, bool) {
	for _, d := range o {
		if d.Day == day {
			return d.Text, true
		}
	}
	return "", false
}

// MarshalJSON emits a JSON object with keys in forecast-day order.
func (o OrderedForecasts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(d.Day)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(d.Text)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON restores entries in the order the JSON object declares them.
func (o *OrderedForecasts) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("daily_forecasts must be a JSON object")
	}

	var out OrderedForecasts
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("daily_forecasts has a non-string key")
		}
		var val string
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("daily_forecasts value for %q is not a string", key)
		}
		out = append(out, DayText{Day: key, Text: val})
	}

	*o = out
	return nil
}

// Result is the schema-validated generation output. Immutable.
type Result struct {
	Description    string           `json:"description"`
	DailyForecasts OrderedForecasts `json:"daily_forecasts"`
}

// GenerationError reports that every configured generation attempt failed.
// It carries the last attempt's raw response and endpoint for diagnosis.
type GenerationError struct {
	Provider    string
	Model       string
	RawResponse string
	Err         error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (provider %s, model %s): %v", e.Provider, e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
