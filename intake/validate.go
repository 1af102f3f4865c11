package intake

import (
	"fmt"

	"github.com/elidra/taskq/job"
)

// FieldError reports a single out-of-range or malformed field on an
// Input, surfaced by the HTTP API as a 400 with field detail.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func fieldErr(field, format string, args ...any) *FieldError {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// validate enforces the field ranges of §3: queue and type length,
// a recognized priority, a structured (non-empty) payload, and
// visibility timeout bounds when the caller overrides the default.
func validate(in Input) error {
	if l := len(in.Queue); l < job.MinQueueLen || l > job.MaxQueueLen {
		return fieldErr("queue", "length %d outside [%d, %d]", l, job.MinQueueLen, job.MaxQueueLen)
	}
	if l := len(in.Type); l < job.MinTypeLen || l > job.MaxTypeLen {
		return fieldErr("type", "length %d outside [%d, %d]", l, job.MinTypeLen, job.MaxTypeLen)
	}
	if !in.Priority.Valid() {
		return fieldErr("priority", "must be one of HIGH, MEDIUM, LOW, got %q", in.Priority)
	}
	if in.Payload.IsZero() {
		return fieldErr("payload", "must be a non-empty structured value")
	}
	if in.VisibilityTimeout != nil {
		vt := *in.VisibilityTimeout
		if vt < job.MinVisibilityTimeout || vt > job.MaxVisibilityTimeout {
			return fieldErr("visibilityTimeout", "%s outside [%s, %s]", vt, job.MinVisibilityTimeout, job.MaxVisibilityTimeout)
		}
	}
	if in.IdempotencyKey != nil && *in.IdempotencyKey == "" {
		return fieldErr("idempotencyKey", "must not be empty when present")
	}
	return nil
}
