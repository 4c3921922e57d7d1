package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fe-devtools/devflow/internal/errors"
)

// Request is one single-turn prompt.
type Request struct {
	System      string  `json:"system"`
	User        string  `json:"user"`
	Temperature float64 `json:"temperature"`
}

// Completer returns the raw text of a model answer.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleteJSON asks c for an answer and decodes it into out, tolerating prose
// or code fences around the JSON object.
func CompleteJSON(ctx context.Context, c Completer, req Request, out interface{}) error {
	content, err := c.Complete(ctx, req)
	if err != nil {
		return err
	}
	return DecodeJSON(content, out)
}

// DecodeJSON parses content as JSON, falling back to the first balanced
// {...} object found in it.
func DecodeJSON(content string, out interface{}) error {
	trimmed := strings.TrimSpace(content)
	if err := json.Unmarshal([]byte(trimmed), out); err == nil {
		return nil
	}

	obj, ok := ExtractJSON(trimmed)
	if !ok {
		return errors.ErrInvalidLLMOutput.WithContext("content", truncate(trimmed, 200))
	}
	if err := json.Unmarshal([]byte(obj), out); err != nil {
		return errors.ErrInvalidLLMOutput.WithError(err).WithContext("content", truncate(trimmed, 200))
	}
	return nil
}

// ExtractJSON returns the first balanced {...} substring of s. Braces inside
// JSON strings are ignored.
func ExtractJSON(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		if end, ok := matchBrace(s, start); ok {
			return s[start : end+1], true
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
