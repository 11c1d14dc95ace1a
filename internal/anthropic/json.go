package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// CompleteJSON sends a prompt and returns the response as raw JSON bytes.
// Models occasionally wrap JSON output in markdown fences or lead with prose;
// the payload is trimmed to the outermost JSON value before validation.
func (c *Client) CompleteJSON(ctx context.Context, system, user string, maxTokens int) (json.RawMessage, error) {
	text, err := c.Complete(ctx, system, []Message{{Role: "user", Content: user}}, maxTokens)
	if err != nil {
		return nil, err
	}

	raw := ExtractJSON(text)
	if raw == nil {
		return nil, fmt.Errorf("no JSON value in response: %.120q", text)
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("malformed JSON in response: %.120q", string(raw))
	}
	return raw, nil
}

// ExtractJSON returns the outermost JSON object or array embedded in text,
// or nil if none is present. Markdown code fences are stripped first.
func ExtractJSON(text string) json.RawMessage {
	s := strings.TrimSpace(text)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return nil
	}

	var end int
	if s[start] == '{' {
		end = strings.LastIndex(s, "}")
	} else {
		end = strings.LastIndex(s, "]")
	}
	if end <= start {
		return nil
	}

	return json.RawMessage(s[start : end+1])
}
