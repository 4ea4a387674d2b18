package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultAction = "default"
	// unknownEvent is used when the sender omits X-GitHub-Event.
	unknownEvent = "unknown"
)

// actionOf returns the string "action" field of a JSON object payload, or
// defaultAction when the payload has none.
func actionOf(body []byte) (string, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", errInvalidJSON, err)
	}

	if obj, ok := payload.(map[string]any); ok {
		if action, ok := obj["action"].(string); ok && action != "" {
			return action, nil
		}
	}
	return defaultAction, nil
}

// safeSegment reports whether s can be used as a single path element below
// the fixture root.
func safeSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, "/\\\x00")
}

// fixturePath builds <root>/<eventType>/<action>.json.
func fixturePath(root, eventType, action string) (string, error) {
	for _, seg := range []string{eventType, action} {
		if !safeSegment(seg) {
			return "", fmt.Errorf("%w: %q", errUnsafeSegment, seg)
		}
	}
	return filepath.Join(root, eventType, action+".json"), nil
}

// writeFixture stores body at path indented with two spaces, replacing any
// previous content. Key order and number literals are kept as received.
func writeFixture(path string, body []byte) (int, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(body), "", "  "); err != nil {
		return 0, fmt.Errorf("%w: %v", errInvalidJSON, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return 0, err
	}
	return buf.Len(), nil
}
