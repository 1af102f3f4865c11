package worker

import (
	"context"

	"github.com/elidra/taskq/message"
)

// Handler processes one job's payload and returns its result.
//
// The provided context is canceled when the worker is shutting down
// or the job's lease extension fails (the lease was lost to a
// scheduler reclaim or another worker). Handlers must be idempotent:
// taskq provides at-least-once delivery, and a job may run more than
// once if a worker crashes or fails to finalize before its visibility
// timeout expires.
//
// A nil error completes the job with the returned Blob as its result.
// A non-nil error enters the failure path (§4.7.1): the job retries
// with backoff, or is routed to the dead-letter queue if it is
// poison or has exhausted maxRetries.
type Handler func(ctx context.Context, payload message.Blob) (message.Blob, error)

// Registry resolves a job's Type to the Handler that processes it.
// Looking up an unregistered type is a synthetic failure (§4.7 step
// 3), not a panic: an operator registering handlers for "emails" but
// not yet "reports" should see FAILED/DEAD jobs, not a crashed worker.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register associates typ with handler. Registering the same type
// twice overwrites the previous handler.
func (r *Registry) Register(typ string, handler Handler) {
	r.handlers[typ] = handler
}

// Resolve returns the handler registered for typ, and false if none
// is registered.
func (r *Registry) Resolve(typ string) (Handler, bool) {
	h, ok := r.handlers[typ]
	return h, ok
}
