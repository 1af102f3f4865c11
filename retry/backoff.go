// Package retry computes the exponential backoff delay applied
// between a FAILED job's attempts (§4.4). It holds no state and talks
// to neither store; callers pass the result to
// coordination.DelayedQueue.ScheduleRetry.
package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// DefaultBase is applied when a Backoff is constructed with a
// non-positive Base.
const DefaultBase = time.Second

// Backoff computes delay_ms = base*2^attempt + uniform[0, base), the
// formula from §4.4. The additive, bounded jitter term exists purely
// to de-synchronize retry storms across jobs that failed at the same
// instant; it never reduces the delay below base*2^attempt.
type Backoff struct {
	// Base is the backoff unit; attempt 1 waits base*2 plus jitter,
	// attempt 2 waits base*4 plus jitter, and so on.
	Base time.Duration
}

// Next returns the delay to apply before retrying attempt.
func (b Backoff) Next(attempt uint32) time.Duration {
	base := b.Base
	if base <= 0 {
		base = DefaultBase
	}
	exp := float64(base) * math.Pow(2, float64(attempt))
	jitter := rand.Float64() * float64(base)
	return time.Duration(exp + jitter)
}
