// Package llmutil provides shared utilities for cleaning reasoning-service
// output before it is decoded, plus provider registration for the binaries.
package llmutil

import (
	"errors"
	"strings"
)

// ErrNoJSONObject is returned when a response holds no balanced JSON object.
var ErrNoJSONObject = errors.New("no JSON object found in response")

// StripThinkingTags removes <think>...</think> blocks from model output.
// Some models (e.g. qwen3, deepseek-r1) wrap their reasoning in these tags.
// An unclosed tag drops everything after it.
func StripThinkingTags(s string) string {
	for {
		start := strings.Index(s, "<think>")
		if start == -1 {
			break
		}
		end := strings.Index(s[start:], "</think>")
		if end == -1 {
			s = s[:start]
			break
		}
		s = s[:start] + s[start+end+len("</think>"):]
	}
	return strings.TrimSpace(s)
}

// StripMarkdownFences removes markdown code fences (``` ... ```) from model
// output. It first strips thinking tags, then removes the outermost fence pair
// if present.
func StripMarkdownFences(s string) string {
	s = StripThinkingTags(s)

	lines := strings.Split(s, "\n")

	// Find and remove leading fence.
	start := 0
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			start = i + 1
			break
		}
	}

	// Find and remove trailing fence.
	end := len(lines)
	for i := len(lines) - 1; i >= start; i-- {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
			end = i
			break
		}
	}

	// If no fences found, return original.
	if start == 0 && end == len(lines) {
		return s
	}

	return strings.Join(lines[start:end], "\n")
}

// ExtractJSONObject returns the first balanced {...} object in s after
// thinking tags and fences are removed. Braces inside JSON strings are
// ignored. Prose around the object is discarded.
func ExtractJSONObject(s string) (string, error) {
	s = StripMarkdownFences(s)

	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", ErrNoJSONObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSONObject
}
