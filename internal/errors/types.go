package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies a failure for transport-level reporting. Both transports
// serialize the kind verbatim, so the values are part of the wire contract.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindUpstreamHTTP ErrorKind = "upstream_http"
	KindInternal     ErrorKind = "internal"
	KindUnknownTool  ErrorKind = "unknown_tool"
)

// ValidationError reports a caller-supplied argument that failed schema checks.
type ValidationError struct {
	Tool    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid argument %q for %s: %s", e.Field, e.Tool, e.Message)
	}
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Message)
}

// NewValidationError builds a field-scoped validation failure.
func NewValidationError(tool, field, format string, args ...any) *ValidationError {
	return &ValidationError{Tool: tool, Field: field, Message: fmt.Sprintf(format, args...)}
}

// UpstreamHTTPError preserves what the upstream data API told us: the status
// code and a truncated response body. Distinct from a plain network failure so
// callers can surface upstream detail to the model.
type UpstreamHTTPError struct {
	Status int
	Body   string
}

func (e *UpstreamHTTPError) Error() string {
	return fmt.Sprintf("upstream returned HTTP %d: %s", e.Status, e.Body)
}

// MaxUpstreamBodyBytes caps how much of an upstream error body is retained.
const MaxUpstreamBodyBytes = 1000

// NewUpstreamHTTPError captures a non-2xx upstream response, truncating the body.
func NewUpstreamHTTPError(status int, body []byte) *UpstreamHTTPError {
	text := string(body)
	if len(text) > MaxUpstreamBodyBytes {
		text = text[:MaxUpstreamBodyBytes]
	}
	return &UpstreamHTTPError{Status: status, Body: text}
}

// SessionNotFoundError is raised by the protocol transport when a request names
// a session id the server does not hold. Clients must re-initialize.
type SessionNotFoundError struct {
	SessionID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session not found: %s", e.SessionID)
}

// IsValidation reports whether err is a schema validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// AsUpstreamHTTP extracts an upstream HTTP error when present.
func AsUpstreamHTTP(err error) (*UpstreamHTTPError, bool) {
	var ue *UpstreamHTTPError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

// IsSessionNotFound reports whether err is a protocol session miss.
func IsSessionNotFound(err error) bool {
	var se *SessionNotFoundError
	return errors.As(err, &se)
}

// Classify maps an arbitrary execution error onto the wire taxonomy. Timeouts
// and network failures deliberately collapse into KindInternal: "we could not
// reach upstream" carries no detail worth forwarding.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case IsValidation(err):
		return KindValidation
	default:
	}

	if _, ok := AsUpstreamHTTP(err); ok {
		return KindUpstreamHTTP
	}

	return KindInternal
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
