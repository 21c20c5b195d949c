package tools

import (
	"context"
	"fmt"

	gwerrors "tourgate/internal/errors"
	"tourgate/internal/logging"
	"tourgate/internal/metrics"
)

// Executor resolves, validates and runs tool calls, converting every failure
// into a uniform Result. Nothing below this boundary is allowed to escape as
// an error or panic into a transport.
type Executor struct {
	registry *Registry
	fetcher  Fetcher
	logger   logging.Logger
}

// NewExecutor wires the shared registry to the upstream fetcher.
func NewExecutor(registry *Registry, fetcher Fetcher, logger logging.Logger) *Executor {
	return &Executor{
		registry: registry,
		fetcher:  fetcher,
		logger:   logging.OrNop(logger),
	}
}

// Registry exposes the catalog backing this executor.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute runs one tool call end to end.
func (e *Executor) Execute(ctx context.Context, call Call) (result Result) {
	result = Result{Tool: call.Name, CallID: call.ID}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Tool %s panicked: %v", call.Name, r)
			result = Result{
				Tool:      call.Name,
				CallID:    call.ID,
				ErrorKind: gwerrors.KindInternal,
				Detail:    fmt.Sprintf("tool execution panicked: %v", r),
			}
		}
		metrics.ObserveToolExecution(call.Name, result.OK)
	}()

	tool, err := e.registry.Get(call.Name)
	if err != nil {
		e.logger.Warn("Unknown tool requested: %s", call.Name)
		result.ErrorKind = gwerrors.KindUnknownTool
		result.Detail = err.Error()
		return result
	}

	args, err := Normalize(tool.Definition, call.Arguments)
	if err != nil {
		e.logger.Warn("Tool %s rejected arguments: %v", call.Name, err)
		result.ErrorKind = gwerrors.KindValidation
		result.Detail = err.Error()
		return result
	}

	payload, err := tool.Handler(ctx, e.fetcher, args)
	if err != nil {
		return e.failed(call, err)
	}

	result.OK = true
	result.Payload = payload
	return result
}

func (e *Executor) failed(call Call, err error) Result {
	result := Result{
		Tool:      call.Name,
		CallID:    call.ID,
		ErrorKind: gwerrors.Classify(err),
		Detail:    err.Error(),
	}
	if upstream, ok := gwerrors.AsUpstreamHTTP(err); ok {
		result.Status = upstream.Status
		result.Body = upstream.Body
		e.logger.Warn("Tool %s upstream failure: HTTP %d", call.Name, upstream.Status)
	} else {
		e.logger.Warn("Tool %s failed: %v", call.Name, err)
	}
	return result
}
