package formatting

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// fencedJSON matches a markdown code fence, optionally tagged json, and
// captures the fenced body.
var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// Parse decodes a model response into T. The response is tried as raw JSON
// first; if that fails, a JSON body inside a markdown code fence is extracted
// and decoded instead.
func Parse[T any](raw string) (T, error) {
	var result T

	trimmed := strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(trimmed), &result); err == nil {
		return result, nil
	}

	match := fencedJSON.FindStringSubmatch(trimmed)
	if match == nil {
		return result, fmt.Errorf("response is not valid JSON and contains no fenced JSON block")
	}

	if err := json.Unmarshal([]byte(match[1]), &result); err != nil {
		return result, fmt.Errorf("failed to parse fenced JSON block: %w", err)
	}

	return result, nil
}
