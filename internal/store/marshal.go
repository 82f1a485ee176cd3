package store

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// marshalPatterns converts a pattern list to JSON TEXT for storage.
// A nil list is stored as "[]".
func marshalPatterns(patterns []string) (string, error) {
	if patterns == nil {
		patterns = []string{}
	}
	data, err := json.Marshal(patterns)
	if err != nil {
		return "", fmt.Errorf("marshal patterns: %w", err)
	}
	return string(data), nil
}

// unmarshalPatterns parses JSON TEXT into a pattern list.
// Returns an empty (non-nil) slice for empty input.
func unmarshalPatterns(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return []string{}, nil
	}
	var patterns []string
	if err := json.Unmarshal([]byte(data), &patterns); err != nil {
		return nil, fmt.Errorf("unmarshal patterns: %w", err)
	}
	return patterns, nil
}
