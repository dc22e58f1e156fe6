package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/chat-analyzer/gateway/internal/model"
)

// RequestError is returned for non-2xx responses. Its message is the raw
// response body.
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	if e.Body == "" {
		return "Request failed"
	}
	return e.Body
}

// IsRequestError reports whether err is, or wraps, a *RequestError.
func IsRequestError(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr)
}

// ErrNotJSON is returned when a JSON decode is attempted on a text response.
var ErrNotJSON = errors.New("response is not JSON")

// Body is a successful response.
type Body struct {
	contentType string
	raw         []byte
}

// NewBody builds a Body; used by tests and fakes.
func NewBody(contentType string, raw []byte) *Body {
	return &Body{contentType: contentType, raw: raw}
}

// JSONBody marshals v into a JSON Body.
func JSONBody(v any) *Body {
	raw, _ := json.Marshal(v)
	return &Body{contentType: "application/json", raw: raw}
}

// IsJSON reports whether the response declared a JSON content type.
func (b *Body) IsJSON() bool {
	return b != nil && strings.Contains(b.contentType, "application/json")
}

// Text returns the raw response text.
func (b *Body) Text() string {
	if b == nil {
		return ""
	}
	return string(b.raw)
}

// Decode parses the JSON response into v.
func (b *Body) Decode(v any) error {
	if !b.IsJSON() {
		return ErrNotJSON
	}
	if err := json.Unmarshal(b.raw, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Envelope decodes the {status, content} wrapper. A text body yields an empty
// envelope.
func (b *Body) Envelope() model.Envelope {
	var env model.Envelope
	if !b.IsJSON() {
		return env
	}
	_ = json.Unmarshal(b.raw, &env)
	return env
}

// Content decodes the envelope content into v. A missing content is left as
// the zero value.
func Content(b *Body, v any) error {
	env := b.Envelope()
	if len(env.Content) == 0 || string(env.Content) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Content, v); err != nil {
		return fmt.Errorf("failed to decode content: %w", err)
	}
	return nil
}

// ContentList decodes an array content. Anything that is not an array of T
// yields an empty list.
func ContentList[T any](b *Body) []T {
	env := b.Envelope()
	raw := strings.TrimSpace(string(env.Content))
	if !strings.HasPrefix(raw, "[") {
		return []T{}
	}
	var items []T
	if err := json.Unmarshal(env.Content, &items); err != nil {
		return []T{}
	}
	if items == nil {
		return []T{}
	}
	return items
}

// NestedContent decodes content.content, the shape used for single entities
// created by the backend.
func NestedContent(b *Body) json.RawMessage {
	env := b.Envelope()
	if len(env.Content) == 0 {
		return nil
	}
	var inner struct {
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(env.Content, &inner); err != nil {
		return nil
	}
	if string(inner.Content) == "null" {
		return nil
	}
	return inner.Content
}
