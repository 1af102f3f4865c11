package job

import (
	"time"

	"github.com/google/uuid"
)

// History is an append-only log entry recording one status transition
// (or notable event) for a job. Rows are never updated or deleted by
// normal operation; they exist purely for audit and the GET
// /jobs/{id} history view.
type History struct {
	JobId     uuid.UUID
	Status    Status
	Message   string
	WorkerId  *string
	CreatedAt time.Time
}

// NewHistory builds a History entry stamped with the current time.
func NewHistory(jobID uuid.UUID, status Status, message string, workerID *string) *History {
	return &History{
		JobId:     jobID,
		Status:    status,
		Message:   message,
		WorkerId:  workerID,
		CreatedAt: time.Now(),
	}
}
