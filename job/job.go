package job

import (
	"time"

	"github.com/google/uuid"

	"github.com/elidra/taskq/message"
)

// Limits on job fields, enforced by Intake validation (see spec.md §8
// and the taskq/intake package).
const (
	MinQueueLen = 1
	MaxQueueLen = 100

	MinTypeLen = 1
	MaxTypeLen = 200

	MinVisibilityTimeout = 5 * time.Second
	MaxVisibilityTimeout = time.Hour
)

// DefaultVisibilityTimeout is applied by Intake when a submitted job
// does not specify one.
const DefaultVisibilityTimeout = 30 * time.Second

// Job is the canonical entity tracked by the Durable Store (C1). It is
// the single source of truth for a task's lifecycle; the Coordination
// Store only ever holds hints (job ids) derived from it.
//
// Job values returned by Observer/Store methods are snapshots:
// mutating a returned *Job in place never changes durable state. All
// transitions are performed through Store, Intake, Worker or Scheduler
// methods.
type Job struct {
	Id    uuid.UUID
	Queue string
	Type  string

	Priority Priority
	Status   Status

	Payload message.Blob
	Result  message.Blob
	Error   string

	Attempts          uint32
	MaxRetries        uint32
	VisibilityTimeout time.Duration

	IdempotencyKey *string

	ScheduledAt *time.Time

	LockedBy *string
	LockedAt *time.Time

	CreatedAt   time.Time
	CompletedAt *time.Time
}

// New constructs a Job in PENDING state from caller-supplied fields,
// with MaxRetries 3 and DefaultVisibilityTimeout. It does not touch
// storage; Intake.Create switches it to SCHEDULED for a future
// scheduledAt, then persists and places the result.
func New(queue, typ string, priority Priority, payload message.Blob) *Job {
	now := time.Now()
	return &Job{
		Id:                uuid.New(),
		Queue:             queue,
		Type:              typ,
		Priority:          priority,
		Status:            Pending,
		Payload:           payload,
		MaxRetries:        3,
		VisibilityTimeout: DefaultVisibilityTimeout,
		CreatedAt:         now,
	}
}

// Locked reports whether the job currently carries a worker lease,
// independent of Status (a job reclaimed by the scheduler but not yet
// re-read will briefly disagree; callers should prefer Status).
func (j *Job) Locked() bool {
	return j.LockedBy != nil && j.LockedAt != nil
}
