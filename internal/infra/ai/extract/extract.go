// Package extract pulls a single JSON object out of free-form model output.
//
// Models often wrap the object in prose or a markdown fence. Structure is
// tolerant of both, but it never guesses: when nothing parses as a JSON
// object the result is nil.
package extract

import (
	"encoding/json"
	"strings"
)

const fence = "```"

// Structure returns the JSON object embedded in text, or nil.
func Structure(text string) map[string]any {
	s := stripFence(strings.TrimSpace(text))
	if s == "" {
		return nil
	}

	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first != -1 && last > first {
		if obj, ok := parseObject(s[first : last+1]); ok {
			return obj
		}
	}

	if obj, ok := parseObject(s); ok {
		return obj
	}
	return nil
}

// stripFence removes one leading fence line (```json, ```, ...) and one
// trailing fence marker.
func stripFence(s string) string {
	if strings.HasPrefix(s, fence) {
		if nl := strings.IndexByte(s, '\n'); nl != -1 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, fence)
		}
	}
	if strings.HasSuffix(s, fence) {
		s = strings.TrimSuffix(s, fence)
	}
	return strings.TrimSpace(s)
}

func parseObject(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}
