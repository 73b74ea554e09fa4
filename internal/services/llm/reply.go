package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const snippetLimit = 160

// decodeReply unmarshals the JSON object in a model reply. Models often wrap
// the object in a ```json fence or surround it with prose, so when the reply
// is not JSON as a whole the outermost {...} span is tried instead.
func decodeReply(reply string, target any) error {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return errors.New("empty reply")
	}
	err := json.Unmarshal([]byte(reply), target)
	if err == nil {
		return nil
	}
	object, ok := outermostObject(unfence(reply))
	if !ok {
		return fmt.Errorf("no JSON object in reply %q: %w", snippet(reply), err)
	}
	if err := json.Unmarshal([]byte(object), target); err != nil {
		return fmt.Errorf("decode reply object %q: %w", snippet(object), err)
	}
	return nil
}

func unfence(reply string) string {
	body, ok := strings.CutPrefix(reply, "```")
	if !ok {
		return reply
	}
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

func outermostObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// snippet flattens whitespace and truncates s for error messages.
func snippet(s string) string {
	clean := strings.Join(strings.Fields(s), " ")
	if clean == "" {
		return "<empty>"
	}
	if runes := []rune(clean); len(runes) > snippetLimit {
		return string(runes[:snippetLimit]) + "..."
	}
	return clean
}
