package common

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"
)

// GetAttrs projects a slice of values down to one field each, the way
// internal/rerank.CrossEncoderReranker.Rerank pulls candidate text out of a
// []types.ScoredChunk before handing it to the vendor reranker.
func GetAttrs[A, B any](extract func(A) B, attrs ...A) []B {
	result := make([]B, len(attrs))
	for i, attr := range attrs {
		result[i] = extract(attr)
	}
	return result
}

// ParseLLMJsonResponse parses a JSON response from LLM, handling cases where JSON is wrapped in code blocks.
// This is useful when LLMs return responses like:
// ```json
// {"key": "value"}
// ```
// or regular JSON responses directly.
func ParseLLMJsonResponse(content string, target interface{}) error {
	// First, try to parse directly as JSON
	err := json.Unmarshal([]byte(content), target)
	if err == nil {
		return nil
	}

	// If direct parsing fails, try to extract JSON from code blocks
	re := regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
	matches := re.FindStringSubmatch(content)
	if len(matches) >= 2 {
		// Extract the JSON content within the code block
		jsonContent := strings.TrimSpace(matches[1])
		return json.Unmarshal([]byte(jsonContent), target)
	}

	// If no code block found, return the original error
	return err
}

// CleanInvalidUTF8 strips invalid UTF-8 bytes and NUL characters from s,
// the way document content pulled from arbitrary source files sometimes
// needs scrubbing before it can be indexed or stored.
func CleanInvalidUTF8(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			// invalid byte, skip it
			i++
			continue
		}
		if r == 0 {
			// NUL byte, skip it
			i += size
			continue
		}
		b.WriteRune(r)
		i += size
	}

	return b.String()
}
