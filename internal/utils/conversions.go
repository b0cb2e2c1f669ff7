package utils

import (
	"encoding/json"
	"strings"
)

func ToStringSlice(slice []any) []string {
	stringSlice := make([]string, 0)
	for _, v := range slice {
		if s, ok := v.(string); ok {
			stringSlice = append(stringSlice, s)
		}
	}
	return stringSlice
}

// FirstMessage collapses a JSON string or array of messages to its first
// non-empty message. Nested objects yield a message from any of their keys,
// so callers that care about field order walk the object themselves.
// Returns "" when nothing printable is found.
func FirstMessage(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return firstMessage(v)
}

func firstMessage(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		for _, s := range ToStringSlice(t) {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
		for _, item := range t {
			if m := firstMessage(item); m != "" {
				return m
			}
		}
	case map[string]any:
		for _, item := range t {
			if m := firstMessage(item); m != "" {
				return m
			}
		}
	}
	return ""
}
