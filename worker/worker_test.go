package worker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/elidra/taskq/coordination"
	"github.com/elidra/taskq/dlq"
	"github.com/elidra/taskq/job"
	"github.com/elidra/taskq/message"
	"github.com/elidra/taskq/retry"
	"github.com/elidra/taskq/store"
	"github.com/elidra/taskq/worker"
)

type fakeStore struct {
	mu         sync.Mutex
	jobs       map[uuid.UUID]*job.Job
	extendErr  error
	heartbeats []*job.Heartbeat
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: map[uuid.UUID]*job.Job{}}
}

func (f *fakeStore) put(j *job.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *j
	f.jobs[j.Id] = &cp
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) (*job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (f *fakeStore) Claim(_ context.Context, id uuid.UUID, workerID string, lease time.Duration) (*job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok || (j.Status != job.Pending && j.Status != job.Failed) {
		return nil, store.ErrConflict
	}
	j.Status = job.Processing
	j.Attempts++
	j.VisibilityTimeout = lease
	locked := time.Now()
	j.LockedAt = &locked
	j.LockedBy = &workerID
	cp := *j
	return &cp, nil
}

func (f *fakeStore) ExtendLock(_ context.Context, id uuid.UUID, workerID string, lease time.Duration) error {
	if f.extendErr != nil {
		return f.extendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok || j.Status != job.Processing {
		return store.ErrLockLost
	}
	locked := time.Now()
	j.LockedAt = &locked
	j.VisibilityTimeout = lease
	return nil
}

func (f *fakeStore) Complete(_ context.Context, id uuid.UUID, _ string, result message.Blob) (*job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	j.Status = job.Completed
	j.Result = result
	j.LockedBy = nil
	j.LockedAt = nil
	cp := *j
	return &cp, nil
}

func (f *fakeStore) Fail(_ context.Context, id uuid.UUID, _ string, errMsg string) (*job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	j.Status = job.Failed
	j.Error = errMsg
	j.LockedBy = nil
	j.LockedAt = nil
	cp := *j
	return &cp, nil
}

func (f *fakeStore) Kill(_ context.Context, id uuid.UUID, errMsg string) (*job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	j.Status = job.Dead
	j.Error = errMsg
	j.LockedBy = nil
	j.LockedAt = nil
	cp := *j
	return &cp, nil
}

func (f *fakeStore) PutHeartbeat(_ context.Context, hb *job.Heartbeat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeats = append(f.heartbeats, hb)
	return nil
}

func (f *fakeStore) ListHeartbeats(context.Context) ([]*job.Heartbeat, error) { return nil, nil }

type fakeCoordinator struct {
	mu        sync.Mutex
	queued    []uuid.UUID
	acked     []uuid.UUID
	dlq       []uuid.UUID
	retries   []uuid.UUID
	cleared   []uuid.UUID
	dequeueCh chan uuid.UUID
}

func newFakeCoordinator() *fakeCoordinator {
	return &fakeCoordinator{dequeueCh: make(chan uuid.UUID, 8)}
}

func (f *fakeCoordinator) Enqueue(context.Context, string, uuid.UUID, job.Priority) error { return nil }

func (f *fakeCoordinator) Dequeue(ctx context.Context, _ string, _ time.Duration) (uuid.UUID, error) {
	select {
	case id := <-f.dequeueCh:
		return id, nil
	default:
		return uuid.Nil, coordination.ErrEmpty
	}
}

func (f *fakeCoordinator) Ack(_ context.Context, _ string, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, id)
	return nil
}

func (f *fakeCoordinator) RemoveWaiting(context.Context, string, uuid.UUID) error { return nil }
func (f *fakeCoordinator) Processing(context.Context, string) ([]uuid.UUID, error) { return nil, nil }
func (f *fakeCoordinator) Waiting(context.Context, string) ([]uuid.UUID, error)    { return nil, nil }

func (f *fakeCoordinator) ScheduleRetry(_ context.Context, _ string, id uuid.UUID, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retries = append(f.retries, id)
	return nil
}
func (f *fakeCoordinator) ScheduleAt(context.Context, string, uuid.UUID, time.Time) error { return nil }
func (f *fakeCoordinator) PromoteDue(context.Context, string, time.Time) ([]uuid.UUID, error) {
	return nil, nil
}
func (f *fakeCoordinator) RemoveDelayed(context.Context, string, uuid.UUID) error { return nil }

func (f *fakeCoordinator) MoveToDLQ(_ context.Context, _ string, id uuid.UUID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dlq = append(f.dlq, id)
	return nil
}
func (f *fakeCoordinator) ListDLQ(context.Context, string, int) ([]uuid.UUID, error) { return nil, nil }
func (f *fakeCoordinator) RemoveDLQ(context.Context, string, uuid.UUID) error         { return nil }

func (f *fakeCoordinator) TrackFailure(context.Context, uuid.UUID, time.Time, time.Duration, int) (bool, error) {
	return false, nil
}
func (f *fakeCoordinator) ClearFailures(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, id)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWorker(st *fakeStore, co *fakeCoordinator, registry *worker.Registry) *worker.Worker {
	policy := dlq.NewPolicy(co, time.Minute, 3)
	cfg := worker.Config{
		WorkerId:     "w1",
		Queues:       []string{"emails"},
		Concurrency:  1,
		PollInterval: 5 * time.Millisecond,
		Backoff:      retry.Backoff{Base: time.Millisecond},
	}
	return worker.New(st, co, policy, registry, cfg, testLogger())
}

func TestWorkerCompletesSuccessfulJob(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	co := newFakeCoordinator()
	registry := worker.NewRegistry()

	payload, _ := message.New(map[string]any{"to": "a@b.com"})
	j := job.New("emails", "send_welcome", job.Medium, payload)
	st.put(j)

	done := make(chan struct{})
	registry.Register("send_welcome", func(_ context.Context, p message.Blob) (message.Blob, error) {
		defer close(done)
		return message.New(map[string]any{"sent": true})
	})

	w := newTestWorker(st, co, registry)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	co.dequeueCh <- j.Id

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler never invoked")
	}
	time.Sleep(20 * time.Millisecond)
	if err := w.Stop(time.Second); err != nil {
		t.Fatal(err)
	}

	got, err := st.Get(ctx, j.Id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != job.Completed {
		t.Fatalf("status = %v, want COMPLETED", got.Status)
	}
}

func TestWorkerRetriesOnFailure(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	co := newFakeCoordinator()
	registry := worker.NewRegistry()

	j := job.New("emails", "send_welcome", job.Medium, nil)
	j.MaxRetries = 5
	st.put(j)

	done := make(chan struct{})
	registry.Register("send_welcome", func(context.Context, message.Blob) (message.Blob, error) {
		defer close(done)
		return nil, errors.New("smtp timeout")
	})

	w := newTestWorker(st, co, registry)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	co.dequeueCh <- j.Id

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler never invoked")
	}
	time.Sleep(20 * time.Millisecond)
	if err := w.Stop(time.Second); err != nil {
		t.Fatal(err)
	}

	got, err := st.Get(ctx, j.Id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != job.Failed {
		t.Fatalf("status = %v, want FAILED", got.Status)
	}
	if len(co.retries) != 1 || co.retries[0] != j.Id {
		t.Fatalf("retries = %v, want [%v]", co.retries, j.Id)
	}
}

func TestWorkerKillsAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	co := newFakeCoordinator()
	registry := worker.NewRegistry()

	j := job.New("emails", "send_welcome", job.Medium, nil)
	j.MaxRetries = 1
	j.Attempts = 1
	st.put(j)

	done := make(chan struct{})
	registry.Register("send_welcome", func(context.Context, message.Blob) (message.Blob, error) {
		defer close(done)
		return nil, errors.New("permanent error")
	})

	w := newTestWorker(st, co, registry)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	co.dequeueCh <- j.Id

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler never invoked")
	}
	time.Sleep(20 * time.Millisecond)
	if err := w.Stop(time.Second); err != nil {
		t.Fatal(err)
	}

	got, err := st.Get(ctx, j.Id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != job.Dead {
		t.Fatalf("status = %v, want DEAD", got.Status)
	}
	if len(co.dlq) != 1 || co.dlq[0] != j.Id {
		t.Fatalf("dlq = %v, want [%v]", co.dlq, j.Id)
	}
}

func TestWorkerSyntheticFailureOnUnregisteredType(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	co := newFakeCoordinator()
	registry := worker.NewRegistry()

	j := job.New("emails", "unknown_type", job.Medium, nil)
	j.MaxRetries = 5
	st.put(j)

	w := newTestWorker(st, co, registry)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	co.dequeueCh <- j.Id

	time.Sleep(50 * time.Millisecond)
	if err := w.Stop(time.Second); err != nil {
		t.Fatal(err)
	}

	got, err := st.Get(ctx, j.Id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != job.Failed {
		t.Fatalf("status = %v, want FAILED", got.Status)
	}
}
