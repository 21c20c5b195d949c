package tools

import (
	"context"
	"encoding/json"
	"net/url"

	gwerrors "tourgate/internal/errors"
)

// Definition describes a tool for both transports. One definition is shared
// verbatim by the chat loop and the protocol server so the two can never
// diverge in name, schema, or behavior.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  ParameterSchema `json:"parameters"`
}

// ParameterSchema defines tool parameters (JSON Schema format).
type ParameterSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property defines a single parameter. Every parameter carries a default, so
// none are listed as required; numeric bounds are inclusive.
type Property struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Default     any       `json:"default,omitempty"`
	Minimum     *float64  `json:"minimum,omitempty"`
	Maximum     *float64  `json:"maximum,omitempty"`
	Items       *Property `json:"items,omitempty"`
	Enum        []any     `json:"enum,omitempty"`
}

// Call is one tool invocation request from either transport.
type Call struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Fetcher is the upstream dependency of every tool handler.
type Fetcher interface {
	FetchJSON(ctx context.Context, path string, query url.Values) (any, error)
}

// Handler executes one tool against the upstream data API using already
// normalized arguments.
type Handler func(ctx context.Context, fetcher Fetcher, args map[string]any) (any, error)

// Tool pairs a definition with its handler in the declarative catalog.
type Tool struct {
	Definition Definition
	Handler    Handler
}

// Result is the uniform outcome of a tool execution. It always serializes to a
// single JSON envelope, success or not, so either transport can forward it as
// opaque content.
type Result struct {
	Tool      string
	CallID    string
	OK        bool
	Payload   any
	ErrorKind gwerrors.ErrorKind
	Detail    string
	Status    int
	Body      string
}

type resultError struct {
	Type    gwerrors.ErrorKind `json:"type"`
	Message string             `json:"message"`
	Status  int                `json:"status,omitempty"`
	Body    string             `json:"body,omitempty"`
}

type resultEnvelope struct {
	Tool    string       `json:"tool"`
	OK      bool         `json:"ok"`
	Payload any          `json:"payload,omitempty"`
	Error   *resultError `json:"error,omitempty"`
}

// MarshalJSON renders the transport envelope.
func (r Result) MarshalJSON() ([]byte, error) {
	env := resultEnvelope{Tool: r.Tool, OK: r.OK}
	if r.OK {
		env.Payload = r.Payload
	} else {
		env.Error = &resultError{
			Type:    r.ErrorKind,
			Message: r.Detail,
			Status:  r.Status,
			Body:    r.Body,
		}
	}
	return json.Marshal(env)
}

// floatPtr is a schema literal helper.
func floatPtr(v float64) *float64 {
	return &v
}
