package bun

import (
	"context"

	"github.com/elidra/taskq/job"
)

// PutHeartbeat upserts the liveness row for hb.WorkerId.
func (s *Store) PutHeartbeat(ctx context.Context, hb *job.Heartbeat) error {
	model := &heartbeatModel{
		WorkerId:      hb.WorkerId,
		Hostname:      hb.Hostname,
		Queues:        joinQueues(hb.Queues),
		Concurrency:   hb.Concurrency,
		ActiveJobs:    hb.ActiveJobs,
		StartedAt:     hb.StartedAt,
		LastHeartbeat: hb.LastHeartbeat,
	}
	_, err := s.db.NewInsert().
		Model(model).
		On("CONFLICT (worker_id) DO UPDATE").
		Set("hostname = EXCLUDED.hostname").
		Set("queues = EXCLUDED.queues").
		Set("concurrency = EXCLUDED.concurrency").
		Set("active_jobs = EXCLUDED.active_jobs").
		Set("last_heartbeat = EXCLUDED.last_heartbeat").
		Exec(ctx)
	return err
}

// ListHeartbeats returns all published worker heartbeats.
func (s *Store) ListHeartbeats(ctx context.Context) ([]*job.Heartbeat, error) {
	var rows []*heartbeatModel
	if err := s.db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, err
	}
	ret := make([]*job.Heartbeat, len(rows))
	for i, r := range rows {
		ret[i] = &job.Heartbeat{
			WorkerId:      r.WorkerId,
			Hostname:      r.Hostname,
			Queues:        splitQueues(r.Queues),
			Concurrency:   r.Concurrency,
			ActiveJobs:    r.ActiveJobs,
			StartedAt:     r.StartedAt,
			LastHeartbeat: r.LastHeartbeat,
		}
	}
	return ret, nil
}
