package scheduler_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/elidra/taskq/coordination"
	"github.com/elidra/taskq/job"
	"github.com/elidra/taskq/scheduler"
)

type fakeStore struct {
	mu       sync.Mutex
	jobs     map[uuid.UUID]*job.Job
	orphaned map[string][]*job.Job
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: map[uuid.UUID]*job.Job{}, orphaned: map[string][]*job.Job{}}
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) (*job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, errNotFound
	}
	cp := *j
	return &cp, nil
}

var errNotFound = &notFoundErr{}

type notFoundErr struct{}

func (*notFoundErr) Error() string { return "not found" }

func (f *fakeStore) PromoteIfEligible(_ context.Context, id uuid.UUID) (*job.Job, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok || (j.Status != job.Scheduled && j.Status != job.Failed) {
		return nil, false, nil
	}
	j.Status = job.Pending
	j.ScheduledAt = nil
	return j, true, nil
}

func (f *fakeStore) ReclaimExpiredLease(_ context.Context, id uuid.UUID, observed time.Time) (*job.Job, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok || j.Status != job.Processing || j.LockedAt == nil || !j.LockedAt.Equal(observed) {
		return nil, false, nil
	}
	j.Status = job.Pending
	j.LockedBy = nil
	j.LockedAt = nil
	return j, true, nil
}

func (f *fakeStore) ListOrphanedPending(_ context.Context, queue string) ([]*job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orphaned[queue], nil
}

type fakeCoordinator struct {
	mu       sync.Mutex
	waiting  map[string][]uuid.UUID
	promoted []uuid.UUID
	enqueued []uuid.UUID
	acked    []uuid.UUID
	processingSet map[string][]uuid.UUID
}

func newFakeCoordinator() *fakeCoordinator {
	return &fakeCoordinator{
		waiting:       map[string][]uuid.UUID{},
		processingSet: map[string][]uuid.UUID{},
	}
}

func (f *fakeCoordinator) Enqueue(_ context.Context, queue string, id uuid.UUID, _ job.Priority) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, id)
	f.waiting[queue] = append(f.waiting[queue], id)
	return nil
}
func (f *fakeCoordinator) Dequeue(context.Context, string, time.Duration) (uuid.UUID, error) {
	return uuid.Nil, coordination.ErrEmpty
}
func (f *fakeCoordinator) Ack(_ context.Context, queue string, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, id)
	return nil
}
func (f *fakeCoordinator) RemoveWaiting(context.Context, string, uuid.UUID) error { return nil }
func (f *fakeCoordinator) Processing(_ context.Context, queue string) ([]uuid.UUID, error) {
	return f.processingSet[queue], nil
}
func (f *fakeCoordinator) Waiting(_ context.Context, queue string) ([]uuid.UUID, error) {
	return f.waiting[queue], nil
}
func (f *fakeCoordinator) ScheduleRetry(context.Context, string, uuid.UUID, time.Duration) error {
	return nil
}
func (f *fakeCoordinator) ScheduleAt(context.Context, string, uuid.UUID, time.Time) error {
	return nil
}
func (f *fakeCoordinator) PromoteDue(_ context.Context, queue string, _ time.Time) ([]uuid.UUID, error) {
	return f.promoted, nil
}
func (f *fakeCoordinator) RemoveDelayed(context.Context, string, uuid.UUID) error { return nil }
func (f *fakeCoordinator) MoveToDLQ(context.Context, string, uuid.UUID, string) error { return nil }
func (f *fakeCoordinator) ListDLQ(context.Context, string, int) ([]uuid.UUID, error) { return nil, nil }
func (f *fakeCoordinator) RemoveDLQ(context.Context, string, uuid.UUID) error         { return nil }
func (f *fakeCoordinator) TrackFailure(context.Context, uuid.UUID, time.Time, time.Duration, int) (bool, error) {
	return false, nil
}
func (f *fakeCoordinator) ClearFailures(context.Context, uuid.UUID) error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTickPromotesDueDelayed(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	co := newFakeCoordinator()

	id := uuid.New()
	st.jobs[id] = &job.Job{Id: id, Status: job.Scheduled, Priority: job.Medium}
	co.promoted = []uuid.UUID{id}

	s := scheduler.New(st, co, scheduler.Config{Queues: []string{"emails"}}, testLogger())
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := s.Stop(time.Second); err != nil {
		t.Fatal(err)
	}

	if st.jobs[id].Status != job.Pending {
		t.Fatalf("status = %v, want PENDING", st.jobs[id].Status)
	}
	found := false
	for _, e := range co.enqueued {
		if e == id {
			found = true
		}
	}
	if !found {
		t.Fatal("expected job to be re-enqueued into waiting(Q)")
	}
}

func TestTickReclaimsExpiredLease(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	co := newFakeCoordinator()

	id := uuid.New()
	stale := time.Now().Add(-time.Hour)
	worker := "worker-1"
	st.jobs[id] = &job.Job{
		Id: id, Status: job.Processing, Priority: job.Medium,
		VisibilityTimeout: 30 * time.Second, LockedAt: &stale, LockedBy: &worker,
	}
	co.processingSet["emails"] = []uuid.UUID{id}

	s := scheduler.New(st, co, scheduler.Config{Queues: []string{"emails"}}, testLogger())
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := s.Stop(time.Second); err != nil {
		t.Fatal(err)
	}

	if st.jobs[id].Status != job.Pending {
		t.Fatalf("status = %v, want PENDING", st.jobs[id].Status)
	}
}

func TestTickSweepsOrphanedPending(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	co := newFakeCoordinator()

	j := &job.Job{Id: uuid.New(), Status: job.Pending, Priority: job.High}
	st.orphaned["emails"] = []*job.Job{j}

	s := scheduler.New(st, co, scheduler.Config{Queues: []string{"emails"}}, testLogger())
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := s.Stop(time.Second); err != nil {
		t.Fatal(err)
	}

	found := false
	for _, e := range co.enqueued {
		if e == j.Id {
			found = true
		}
	}
	if !found {
		t.Fatal("expected orphaned pending job to be requeued")
	}
}
