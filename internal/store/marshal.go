package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalArgv converts an argument vector to JSON TEXT for storage.
// A nil argv is stored as "[]" so reads never see NULL.
// HTML escaping is disabled so arguments such as "a<b" are stored verbatim.
func marshalArgv(argv []string) (string, error) {
	if argv == nil {
		argv = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(argv); err != nil {
		return "", fmt.Errorf("marshal argv: %w", err)
	}
	// Encoder.Encode appends a newline
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// unmarshalArgv converts JSON TEXT from storage back to an argument vector.
// Returns an empty slice (not nil) for empty input.
func unmarshalArgv(data string) ([]string, error) {
	argv := []string{}
	if data == "" {
		return argv, nil
	}
	if err := json.Unmarshal([]byte(data), &argv); err != nil {
		return nil, fmt.Errorf("unmarshal argv: %w", err)
	}
	if argv == nil {
		argv = []string{}
	}
	return argv, nil
}
