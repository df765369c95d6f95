package scoring

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseScore extracts a {score, reason} result from raw oracle output.
// It accepts direct JSON, JSON wrapped in markdown code fences, and JSON
// embedded in surrounding prose (first "{" to last "}"). The score must be a
// whole number in 1..10; anything else is invalid.
func ParseScore(raw string) (score int, reason string, ok bool) {
	text := stripCodeFences(strings.TrimSpace(raw))

	data, ok := decodeObject(text)
	if !ok {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start == -1 || end <= start {
			return 0, "", false
		}
		data, ok = decodeObject(text[start : end+1])
		if !ok {
			return 0, "", false
		}
	}

	score, ok = coerceScore(data["score"])
	if !ok {
		return 0, "", false
	}

	if r, exists := data["reason"]; exists && r != nil {
		reason = fmt.Sprintf("%v", r)
	}
	return score, reason, true
}

func decodeObject(text string) (map[string]any, bool) {
	var data map[string]any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, false
	}
	return data, true
}

// coerceScore accepts JSON numbers (whole-valued only) and numeric strings.
func coerceScore(v any) (int, bool) {
	var score int
	switch n := v.(type) {
	case float64:
		score = int(n)
		if float64(score) != n {
			return 0, false
		}
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		score = parsed
	default:
		return 0, false
	}

	if score < 1 || score > 10 {
		return 0, false
	}
	return score, true
}

func stripCodeFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
