package job

import "fmt"

// Status represents the current lifecycle state of a Job.
//
// The state machine is:
//
//	PENDING    -> PROCESSING
//	PROCESSING -> COMPLETED       [terminal]
//	PROCESSING -> FAILED          (attempts <= maxRetries, not poison)
//	PROCESSING -> DEAD            (attempts > maxRetries, or poison)  [terminal]
//	FAILED     -> PENDING         (scheduler promotion after backoff)
//	SCHEDULED  -> PENDING         (scheduler promotion at scheduledAt)
//	SCHEDULED  -> CANCELLED       [terminal]
//	PENDING    -> CANCELLED       [terminal]
//	{FAILED, DEAD, CANCELLED} -> PENDING   (explicit retry)
//
// Unknown is reserved as the zero value for filtering contexts ("no
// status filter").
type Status uint8

const (
	Unknown Status = iota
	Pending
	Scheduled
	Processing
	Completed
	Failed
	Dead
	Cancelled
)

// Terminal reports whether only an explicit retry moves a job out of
// s: COMPLETED, CANCELLED and DEAD are terminal in that sense.
func (s Status) Terminal() bool {
	return s == Completed || s == Cancelled || s == Dead
}

// Retryable reports whether Intake.retry accepts a job currently in s.
func (s Status) Retryable() bool {
	return s == Failed || s == Dead || s == Cancelled
}

func statusToString(s Status) string {
	switch s {
	case Pending:
		return "PENDING"
	case Scheduled:
		return "SCHEDULED"
	case Processing:
		return "PROCESSING"
	case Completed:
		return "COMPLETED"
	case Failed:
		return "FAILED"
	case Dead:
		return "DEAD"
	case Cancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

func statusFromString(s string) (Status, error) {
	switch s {
	case "PENDING":
		return Pending, nil
	case "SCHEDULED":
		return Scheduled, nil
	case "PROCESSING":
		return Processing, nil
	case "COMPLETED":
		return Completed, nil
	case "FAILED":
		return Failed, nil
	case "DEAD":
		return Dead, nil
	case "CANCELLED":
		return Cancelled, nil
	case "UNKNOWN", "":
		return Unknown, nil
	default:
		return 0, fmt.Errorf("job: unknown status %q", s)
	}
}

// ParseStatus converts a canonical status name into a Status.
func ParseStatus(s string) (Status, error) {
	return statusFromString(s)
}

// String returns the canonical upper-case name of the status.
func (s Status) String() string {
	return statusToString(s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(statusToString(s)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := statusFromString(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
