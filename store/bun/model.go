package bun

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/elidra/taskq/job"
	"github.com/elidra/taskq/message"
)

type jobModel struct {
	bun.BaseModel `bun:"table:jobs"`

	Id       uuid.UUID   `bun:"id,pk,type:uuid"`
	Queue    string      `bun:"queue,notnull"`
	Type     string      `bun:"type,notnull"`
	Priority job.Priority `bun:"priority,notnull,default:0"`
	Status   job.Status  `bun:"status,notnull,default:0"`

	Payload message.Blob `bun:"payload,type:blob"`
	Result  message.Blob `bun:"result,type:blob"`
	Error   string       `bun:"error,nullzero"`

	Attempts   uint32 `bun:"attempts,notnull,default:0"`
	MaxRetries uint32 `bun:"max_retries,notnull,default:0"`

	VisibilityTimeoutMs int64 `bun:"visibility_timeout_ms,notnull"`

	IdempotencyKey *string `bun:"idempotency_key,nullzero,unique"`

	ScheduledAt *time.Time `bun:"scheduled_at,nullzero"`
	LockedBy    *string    `bun:"locked_by,nullzero"`
	LockedAt    *time.Time `bun:"locked_at,nullzero"`

	CreatedAt   time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	CompletedAt *time.Time `bun:"completed_at,nullzero"`
}

func (jm *jobModel) toJob() *job.Job {
	return &job.Job{
		Id:                jm.Id,
		Queue:             jm.Queue,
		Type:              jm.Type,
		Priority:          jm.Priority,
		Status:            jm.Status,
		Payload:           jm.Payload,
		Result:            jm.Result,
		Error:             jm.Error,
		Attempts:          jm.Attempts,
		MaxRetries:        jm.MaxRetries,
		VisibilityTimeout: time.Duration(jm.VisibilityTimeoutMs) * time.Millisecond,
		IdempotencyKey:    jm.IdempotencyKey,
		ScheduledAt:       jm.ScheduledAt,
		LockedBy:          jm.LockedBy,
		LockedAt:          jm.LockedAt,
		CreatedAt:         jm.CreatedAt,
		CompletedAt:       jm.CompletedAt,
	}
}

func fromJob(j *job.Job) *jobModel {
	return &jobModel{
		Id:                  j.Id,
		Queue:               j.Queue,
		Type:                j.Type,
		Priority:            j.Priority,
		Status:              j.Status,
		Payload:             j.Payload,
		Result:              j.Result,
		Error:               j.Error,
		Attempts:            j.Attempts,
		MaxRetries:          j.MaxRetries,
		VisibilityTimeoutMs: j.VisibilityTimeout.Milliseconds(),
		IdempotencyKey:      j.IdempotencyKey,
		ScheduledAt:         j.ScheduledAt,
		LockedBy:            j.LockedBy,
		LockedAt:            j.LockedAt,
		CreatedAt:           j.CreatedAt,
		CompletedAt:         j.CompletedAt,
	}
}

type historyModel struct {
	bun.BaseModel `bun:"table:job_history,alias:jh"`

	Id        int64     `bun:"id,pk,autoincrement"`
	JobId     uuid.UUID `bun:"job_id,notnull,type:uuid"`
	Status    job.Status `bun:"status,notnull"`
	Message   string    `bun:"message,nullzero"`
	WorkerId  *string   `bun:"worker_id,nullzero"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (hm *historyModel) toHistory() *job.History {
	return &job.History{
		JobId:     hm.JobId,
		Status:    hm.Status,
		Message:   hm.Message,
		WorkerId:  hm.WorkerId,
		CreatedAt: hm.CreatedAt,
	}
}

func fromHistory(h *job.History) *historyModel {
	return &historyModel{
		JobId:     h.JobId,
		Status:    h.Status,
		Message:   h.Message,
		WorkerId:  h.WorkerId,
		CreatedAt: h.CreatedAt,
	}
}

type heartbeatModel struct {
	bun.BaseModel `bun:"table:worker_heartbeats,alias:wh"`

	WorkerId      string    `bun:"worker_id,pk"`
	Hostname      string    `bun:"hostname,notnull"`
	Queues        string    `bun:"queues,notnull"`
	Concurrency   int       `bun:"concurrency,notnull"`
	ActiveJobs    int       `bun:"active_jobs,notnull"`
	StartedAt     time.Time `bun:"started_at,notnull"`
	LastHeartbeat time.Time `bun:"last_heartbeat,notnull"`
}
