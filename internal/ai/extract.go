package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// ExtractList decodes a JSON array from free-form model output. Markdown
// fences are unwrapped and surrounding prose is ignored. Anything that does
// not decode yields an empty list.
func ExtractList[T any](text string) []T {
	body := strings.TrimSpace(text)
	if m := fencedBlock.FindStringSubmatch(body); m != nil {
		body = strings.TrimSpace(m[1])
	}

	var out []T
	if err := json.Unmarshal([]byte(body), &out); err == nil {
		if out == nil {
			return []T{}
		}
		return out
	}

	start, end := strings.Index(body, "["), strings.LastIndex(body, "]")
	if start < 0 || end <= start {
		return []T{}
	}
	if err := json.Unmarshal([]byte(body[start:end+1]), &out); err != nil {
		return []T{}
	}
	return out
}
