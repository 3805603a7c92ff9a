package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrSchema tags validation failures so callers can distinguish a malformed
// generation from a transport problem.
var ErrSchema = errors.New("generation output failed schema validation")

var thinkBlocks = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Validate checks a raw generation payload against the expected shape: a
// bounded description string plus a daily_forecasts object containing every
// expected day name with non-empty text. Extra keys are dropped, a missing
// expected key fails validation. Pure function; no side effects.
func Validate(payload []byte, days []string, maxWords int) (*Result, error) {
	var raw struct {
		Description    string          `json:"description"`
		DailyForecasts json.RawMessage `json:"daily_forecasts"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: not a JSON object: %v", ErrSchema, err)
	}

	desc := strings.TrimSpace(raw.Description)
	if desc == "" {
		return nil, fmt.Errorf("%w: description is missing or empty", ErrSchema)
	}
	if n := len(strings.Fields(desc)); maxWords > 0 && n > maxWords {
		return nil, fmt.Errorf("%w: description has %d words, limit is %d", ErrSchema, n, maxWords)
	}

	if len(raw.DailyForecasts) == 0 {
		return nil, fmt.Errorf("%w: daily_forecasts is missing", ErrSchema)
	}
	var entries map[string]string
	if err := json.Unmarshal(raw.DailyForecasts, &entries); err != nil {
		return nil, fmt.Errorf("%w: daily_forecasts values must be strings: %v", ErrSchema, err)
	}

	ordered := make(OrderedForecasts, 0, len(days))
	for _, day := range days {
		text, ok := entries[day]
		if !ok {
			return nil, fmt.Errorf("%w: daily_forecasts is missing %q", ErrSchema, day)
		}
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: daily_forecasts entry for %q is empty", ErrSchema, day)
		}
		ordered = append(ordered, DayText{Day: day, Text: text})
	}

	return &Result{Description: desc, DailyForecasts: ordered}, nil
}

// extractJSON strips the wrappers some providers put around JSON content:
// reasoning blocks, code fences and the occasional "temperature:" prefix.
func extractJSON(content string) string {
	content = strings.TrimSpace(thinkBlocks.ReplaceAllString(content, ""))

	if idx := strings.Index(content, "temperature:"); idx == 0 {
		content = strings.TrimSpace(content[len("temperature:"):])
	}

	if strings.HasPrefix(content, "```json") {
		content = content[len("```json"):]
	} else if strings.HasPrefix(content, "```") {
		content = content[len("```"):]
	}
	if strings.HasSuffix(strings.TrimSpace(content), "```") {
		content = strings.TrimSpace(content)
		content = content[:len(content)-3]
	}

	return strings.TrimSpace(content)
}
