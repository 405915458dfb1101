// Package ai provides shared helpers around model clients: response
// cleaning and read-through response caching.
package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
)

// ResponseCleaner normalizes model output that should be raw JSON but may
// arrive wrapped in markdown fences or surrounded by prose.
type ResponseCleaner struct{}

// NewResponseCleaner creates a new response cleaner.
func NewResponseCleaner() *ResponseCleaner {
	return &ResponseCleaner{}
}

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// CleanJSONResponse strips markdown, extracts the first balanced JSON
// object, and verifies it parses. It returns ErrSchemaInvalid when no
// usable JSON can be recovered.
func (rc *ResponseCleaner) CleanJSONResponse(response string) (string, error) {
	response = rc.removeMarkdownFences(response)
	response = rc.extractJSONObject(response)

	var probe any
	if err := json.Unmarshal([]byte(response), &probe); err == nil {
		return response, nil
	}
	// One common repair: trailing commas before a closing brace/bracket.
	repaired := trailingComma.ReplaceAllString(response, "$1")
	if err := json.Unmarshal([]byte(repaired), &probe); err != nil {
		return "", fmt.Errorf("%w: response is not valid JSON", domain.ErrSchemaInvalid)
	}
	return repaired, nil
}

// removeMarkdownFences drops ```json / ``` markers around the payload.
func (rc *ResponseCleaner) removeMarkdownFences(response string) string {
	response = strings.TrimSpace(response)
	if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```json")
		response = strings.TrimPrefix(response, "```")
		if i := strings.LastIndex(response, "```"); i >= 0 {
			response = response[:i]
		}
	}
	return strings.TrimSpace(response)
}

// extractJSONObject returns the first balanced {...} block, ignoring any
// prose the model added around it.
func (rc *ResponseCleaner) extractJSONObject(response string) string {
	start := strings.Index(response, "{")
	if start == -1 {
		return response
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		ch := response[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			escaped = inString
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return response[start : i+1]
				}
			}
		}
	}
	return response[start:]
}
