package evaluator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/medeval/tcm-dialogue-bench/internal/config"
	"github.com/medeval/tcm-dialogue-bench/internal/models"
)

var jsonFencePattern = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

// ParseEvaluation extracts the rubric-shaped JSON object from a raw expert
// response. Models wrap the object in prose or a markdown fence more often
// than not, so a fenced block is tried first and the outermost brace window
// second. Every configured dimension must be present in the parsed object.
func ParseEvaluation(raw string, dims []config.Dimension) (map[string]models.DimensionScore, error) {
	jsonStr, err := extractJSONObject(raw)
	if err != nil {
		return nil, err
	}

	var scores map[string]models.DimensionScore
	if err := json.Unmarshal([]byte(jsonStr), &scores); err != nil {
		return nil, fmt.Errorf("invalid evaluation JSON: %w", err)
	}

	for _, d := range dims {
		if _, ok := scores[d.Key]; !ok {
			return nil, fmt.Errorf("evaluation missing dimension %q", d.Key)
		}
	}

	return scores, nil
}

func extractJSONObject(raw string) (string, error) {
	if m := jsonFencePattern.FindStringSubmatch(raw); m != nil {
		return m[1], nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || start >= end {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return raw[start : end+1], nil
}
