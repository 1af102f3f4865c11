// Package dlq holds the policy decision made on every job failure
// (§4.5): given the current attempt count and the coordination
// store's poison-pill window, should this job retry or die? The
// mechanics of actually moving a job — writing DEAD to the durable
// store, pushing it onto dlq(Q) — live in package worker, which is
// the only caller that has both a store.Store and a
// coordination.Coordinator in hand; this package is pure policy so it
// can be tested without either.
package dlq

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/elidra/taskq/coordination"
)

// DefaultWindow and DefaultThreshold implement §4.5's defaults: three
// failures inside sixty seconds is poison regardless of maxRetries.
const (
	DefaultWindow    = 60 * time.Second
	DefaultThreshold = 3
)

// Policy holds the poison-pill window and threshold. The zero value
// is not usable; construct with NewPolicy.
type Policy struct {
	detector  coordination.PoisonDetector
	window    time.Duration
	threshold int
}

// NewPolicy constructs a Policy. A non-positive window or threshold
// falls back to DefaultWindow/DefaultThreshold.
func NewPolicy(detector coordination.PoisonDetector, window time.Duration, threshold int) *Policy {
	if window <= 0 {
		window = DefaultWindow
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Policy{detector: detector, window: window, threshold: threshold}
}

// Decision is the outcome of evaluating a failure against the poison
// window and the job's own retry budget.
type Decision struct {
	// Dead is true if the job should be routed to the dead-letter
	// queue instead of retried, either because it is poison or
	// because attempts has exceeded maxRetries (the final attempt is
	// maxRetries+1, per §3's attempts invariant).
	Dead bool

	// Poison is true specifically when Dead was triggered by the
	// poison-pill window rather than attempts exhaustion; callers use
	// it to pick the history message and error text.
	Poison bool
}

// Evaluate records this failure in the poison-pill window and decides
// whether the job should die regardless of remaining retries.
func (p *Policy) Evaluate(ctx context.Context, id uuid.UUID, attempts, maxRetries uint32, now time.Time) (Decision, error) {
	poison, err := p.detector.TrackFailure(ctx, id, now, p.window, p.threshold)
	if err != nil {
		return Decision{}, err
	}
	if poison {
		return Decision{Dead: true, Poison: true}, nil
	}
	if attempts > maxRetries {
		return Decision{Dead: true}, nil
	}
	return Decision{}, nil
}
