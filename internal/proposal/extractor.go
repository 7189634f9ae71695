// Package proposal holds the tolerant pipeline that turns free-form model
// output into a complete proposal document.
package proposal

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParseFailure names why no JSON object could be recovered.
type ParseFailure string

const (
	Malformed ParseFailure = "MALFORMED"
	Truncated ParseFailure = "TRUNCATED"
)

// ExtractionResult is the outcome of ExtractJSON. Value is set only when OK.
type ExtractionResult struct {
	OK     bool
	Value  map[string]interface{}
	Reason ParseFailure
}

var fencePattern = regexp.MustCompile("```[a-zA-Z0-9_-]*")

// ExtractJSON recovers a JSON object from raw model output.
//
// Attempts, in order: the trimmed text as-is, the text with Markdown code
// fences removed, and the span from the first '{' to the last '}'. The span
// is greedy, so two objects separated by prose come back as one unparsable
// span and yield MALFORMED.
func ExtractJSON(raw string) ExtractionResult {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ExtractionResult{Reason: Malformed}
	}

	if obj, ok := parseObject(s); ok {
		return ExtractionResult{OK: true, Value: obj}
	}

	if strings.Contains(s, "```") {
		s = strings.TrimSpace(fencePattern.ReplaceAllString(s, ""))
		if obj, ok := parseObject(s); ok {
			return ExtractionResult{OK: true, Value: obj}
		}
	}

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ExtractionResult{Reason: Malformed}
	}
	end := strings.LastIndexByte(s, '}')
	if end < start {
		return ExtractionResult{Reason: Truncated}
	}
	if obj, ok := parseObject(s[start : end+1]); ok {
		return ExtractionResult{OK: true, Value: obj}
	}

	if unbalanced(s[start:]) {
		return ExtractionResult{Reason: Truncated}
	}
	return ExtractionResult{Reason: Malformed}
}

func parseObject(s string) (map[string]interface{}, bool) {
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	obj, ok := v.(map[string]interface{})
	return obj, ok
}

// unbalanced reports whether s leaves an object or string open at its end.
func unbalanced(s string) bool {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
		}
	}
	return inString || depth > 0
}
