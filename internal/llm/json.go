package llm

import (
	"fmt"
	"strings"
)

// ExtractJSONObject pulls the outermost JSON object out of a model reply.
// Models wrap JSON in prose or markdown fences often enough that decoding
// the raw reply directly is not reliable.
func ExtractJSONObject(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return s[start : end+1], nil
}
