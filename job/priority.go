package job

import "fmt"

// Priority classifies a job into one of three dispatch classes. Priority
// never changes after a job is created; requeues and retries carry the
// job's original priority forward.
type Priority uint8

const (
	// Unspecified is the zero value and is never a valid priority on a
	// persisted job; it exists so filtering contexts can distinguish
	// "no filter" from a concrete class.
	Unspecified Priority = iota

	// High is dispatched ahead of Medium and Low regardless of
	// enqueue time.
	High

	// Medium is dispatched after High and ahead of Low. A submitted
	// job must name its priority; none is filled in by default.
	Medium

	// Low is only dispatched once the High and Medium waiting indexes
	// for a queue are empty.
	Low
)

// Weight returns the scheduling score bias for the priority, per the
// score function: score = weight(priority) + enqueueMillis. The gap
// between weights (1e13) exceeds any plausible enqueue-time range, so
// a lower priority's score is always lexicographically after a higher
// priority's, regardless of how long the higher-priority job waited.
func (p Priority) Weight() float64 {
	switch p {
	case High:
		return 0
	case Medium:
		return 1e13
	case Low:
		return 2e13
	default:
		return 2e13
	}
}

func priorityToString(p Priority) string {
	switch p {
	case High:
		return "HIGH"
	case Medium:
		return "MEDIUM"
	case Low:
		return "LOW"
	default:
		return "UNSPECIFIED"
	}
}

func priorityFromString(s string) (Priority, error) {
	switch s {
	case "HIGH":
		return High, nil
	case "MEDIUM":
		return Medium, nil
	case "LOW":
		return Low, nil
	case "UNSPECIFIED", "":
		return Unspecified, nil
	default:
		return 0, fmt.Errorf("job: unknown priority %q", s)
	}
}

// ParsePriority converts a canonical priority name into a Priority.
func ParsePriority(s string) (Priority, error) {
	return priorityFromString(s)
}

// String returns the canonical upper-case name of the priority.
func (p Priority) String() string {
	return priorityToString(p)
}

// MarshalText implements encoding.TextMarshaler.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(priorityToString(p)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := priorityFromString(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Valid reports whether p is one of High, Medium or Low. Unspecified
// is not a valid priority for a submitted job.
func (p Priority) Valid() bool {
	return p == High || p == Medium || p == Low
}
