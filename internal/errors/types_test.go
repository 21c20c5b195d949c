package errors

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"validation", NewValidationError("get_tourism_overview", "year", "out of range"), KindValidation},
		{"upstream", NewUpstreamHTTPError(503, []byte("down")), KindUpstreamHTTP},
		{"wrapped upstream", fmt.Errorf("tool failed: %w", NewUpstreamHTTPError(404, nil)), KindUpstreamHTTP},
		{"timeout collapses", context.DeadlineExceeded, KindInternal},
		{"plain", fmt.Errorf("boom"), KindInternal},
	}

	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestUpstreamBodyTruncation(t *testing.T) {
	t.Parallel()

	err := NewUpstreamHTTPError(500, []byte(strings.Repeat("a", MaxUpstreamBodyBytes*3)))
	if len(err.Body) != MaxUpstreamBodyBytes {
		t.Fatalf("expected %d bytes, got %d", MaxUpstreamBodyBytes, len(err.Body))
	}

	short := NewUpstreamHTTPError(404, []byte("not found"))
	if short.Body != "not found" {
		t.Fatalf("short bodies must be kept intact, got %q", short.Body)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	t.Parallel()

	err := NewValidationError("get_core_metrics", "limit", "%v is above the maximum of %v", 99, 50)
	if !strings.Contains(err.Error(), "limit") || !strings.Contains(err.Error(), "get_core_metrics") {
		t.Fatalf("message must name the tool and field: %s", err.Error())
	}
	if !IsValidation(fmt.Errorf("wrapped: %w", err)) {
		t.Fatalf("wrapped validation errors must still classify")
	}
}

func TestIsTimeout(t *testing.T) {
	t.Parallel()

	if !IsTimeout(context.DeadlineExceeded) {
		t.Fatalf("deadline exceeded is a timeout")
	}
	if !IsTimeout(fmt.Errorf("request: %w", context.DeadlineExceeded)) {
		t.Fatalf("wrapped deadline exceeded is a timeout")
	}
	if IsTimeout(fmt.Errorf("boom")) {
		t.Fatalf("plain errors are not timeouts")
	}
}
