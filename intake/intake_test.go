package intake_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/elidra/taskq/job"
	"github.com/elidra/taskq/message"
	"github.com/elidra/taskq/store"

	"github.com/elidra/taskq/intake"
)

type fakeStore struct {
	mu          sync.Mutex
	jobs        map[uuid.UUID]*job.Job
	byIdemKey   map[string]uuid.UUID
	history     []*job.History
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: map[uuid.UUID]*job.Job{}, byIdemKey: map[string]uuid.UUID{}}
}

func (f *fakeStore) Create(_ context.Context, j *job.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if j.IdempotencyKey != nil {
		if _, ok := f.byIdemKey[*j.IdempotencyKey]; ok {
			return store.ErrIdempotencyConflict
		}
		f.byIdemKey[*j.IdempotencyKey] = j.Id
	}
	f.jobs[j.Id] = j
	return nil
}

func (f *fakeStore) FindByIdempotencyKey(_ context.Context, key string) (*job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byIdemKey[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return f.jobs[id], nil
}

func (f *fakeStore) Cancel(_ context.Context, id uuid.UUID) (*job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok || (j.Status != job.Pending && j.Status != job.Scheduled) {
		return nil, store.ErrConflict
	}
	j.Status = job.Cancelled
	return j, nil
}

func (f *fakeStore) Retry(_ context.Context, id uuid.UUID) (*job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok || !j.Status.Retryable() {
		return nil, store.ErrConflict
	}
	j.Status = job.Pending
	j.Attempts = 0
	j.Error = ""
	return j, nil
}

func (f *fakeStore) CompleteExternal(_ context.Context, id uuid.UUID, _ string, result message.Blob) (*job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok || j.Status != job.Processing {
		return nil, store.ErrConflict
	}
	j.Status = job.Completed
	j.Result = result
	return j, nil
}

func (f *fakeStore) AppendHistory(_ context.Context, h *job.History) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, h)
	return nil
}

type fakeCoordinator struct {
	mu       sync.Mutex
	enqueued []uuid.UUID
	scheduled []uuid.UUID
	removedWaiting []uuid.UUID
	removedDelayed []uuid.UUID
	acked    []uuid.UUID
	removedDLQ []uuid.UUID
	clearedFailures []uuid.UUID
}

func (f *fakeCoordinator) Enqueue(_ context.Context, _ string, id uuid.UUID, _ job.Priority) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, id)
	return nil
}
func (f *fakeCoordinator) Dequeue(context.Context, string, time.Duration) (uuid.UUID, error) {
	return uuid.Nil, nil
}
func (f *fakeCoordinator) Ack(_ context.Context, _ string, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, id)
	return nil
}
func (f *fakeCoordinator) RemoveWaiting(_ context.Context, _ string, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removedWaiting = append(f.removedWaiting, id)
	return nil
}
func (f *fakeCoordinator) Processing(context.Context, string) ([]uuid.UUID, error) { return nil, nil }
func (f *fakeCoordinator) Waiting(context.Context, string) ([]uuid.UUID, error)    { return nil, nil }
func (f *fakeCoordinator) ScheduleRetry(context.Context, string, uuid.UUID, time.Duration) error {
	return nil
}
func (f *fakeCoordinator) ScheduleAt(_ context.Context, _ string, id uuid.UUID, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, id)
	return nil
}
func (f *fakeCoordinator) PromoteDue(context.Context, string, time.Time) ([]uuid.UUID, error) {
	return nil, nil
}
func (f *fakeCoordinator) RemoveDelayed(_ context.Context, _ string, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removedDelayed = append(f.removedDelayed, id)
	return nil
}
func (f *fakeCoordinator) MoveToDLQ(context.Context, string, uuid.UUID, string) error { return nil }
func (f *fakeCoordinator) ListDLQ(context.Context, string, int) ([]uuid.UUID, error) { return nil, nil }
func (f *fakeCoordinator) RemoveDLQ(_ context.Context, _ string, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removedDLQ = append(f.removedDLQ, id)
	return nil
}
func (f *fakeCoordinator) TrackFailure(context.Context, uuid.UUID, time.Time, time.Duration, int) (bool, error) {
	return false, nil
}
func (f *fakeCoordinator) ClearFailures(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearedFailures = append(f.clearedFailures, id)
	return nil
}

func validInput() intake.Input {
	payload, _ := message.New(map[string]any{"to": "a@b.com"})
	return intake.Input{
		Queue:    "emails",
		Type:     "send_welcome",
		Priority: job.Medium,
		Payload:  payload,
	}
}

func TestCreateEnqueuesPendingJob(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	co := &fakeCoordinator{}
	in := intake.New(st, co)

	res, err := in.Create(ctx, validInput())
	if err != nil {
		t.Fatal(err)
	}
	if res.Idempotent {
		t.Fatal("expected a fresh create, not an idempotency hit")
	}
	if res.Job.Status != job.Pending {
		t.Fatalf("status = %v, want PENDING", res.Job.Status)
	}
	if len(co.enqueued) != 1 || co.enqueued[0] != res.Job.Id {
		t.Fatalf("enqueued = %v, want [%v]", co.enqueued, res.Job.Id)
	}
	if len(st.history) != 1 {
		t.Fatalf("history entries = %d, want 1", len(st.history))
	}
}

func TestCreateFutureScheduledAtSchedulesInsteadOfEnqueue(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	co := &fakeCoordinator{}
	in := intake.New(st, co)

	input := validInput()
	future := time.Now().Add(time.Hour)
	input.ScheduledAt = &future

	res, err := in.Create(ctx, input)
	if err != nil {
		t.Fatal(err)
	}
	if res.Job.Status != job.Scheduled {
		t.Fatalf("status = %v, want SCHEDULED", res.Job.Status)
	}
	if len(co.scheduled) != 1 || co.scheduled[0] != res.Job.Id {
		t.Fatalf("scheduled = %v, want [%v]", co.scheduled, res.Job.Id)
	}
	if len(co.enqueued) != 0 {
		t.Fatalf("enqueued = %v, want none", co.enqueued)
	}
}

func TestCreateIdempotencyKeyHitReturnsExisting(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	co := &fakeCoordinator{}
	in := intake.New(st, co)

	key := "order-123"
	input := validInput()
	input.IdempotencyKey = &key

	first, err := in.Create(ctx, input)
	if err != nil {
		t.Fatal(err)
	}

	second, err := in.Create(ctx, input)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Idempotent {
		t.Fatal("expected second create to be an idempotency hit")
	}
	if second.Job.Id != first.Job.Id {
		t.Fatalf("id = %v, want %v", second.Job.Id, first.Job.Id)
	}
	if len(co.enqueued) != 1 {
		t.Fatalf("enqueued = %v, want exactly one enqueue", co.enqueued)
	}
}

func TestCreateRejectsInvalidQueue(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	co := &fakeCoordinator{}
	in := intake.New(st, co)

	input := validInput()
	input.Queue = ""
	if _, err := in.Create(ctx, input); err == nil {
		t.Fatal("expected validation error for empty queue")
	}
}

func TestRetryClearsPoisonWindowAndRemovesFromDLQ(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	co := &fakeCoordinator{}
	in := intake.New(st, co)

	payload, _ := message.New(map[string]any{"n": 1})
	j := job.New("emails", "send_welcome", job.Medium, payload)
	j.Status = job.Dead
	st.jobs[j.Id] = j

	got, err := in.Retry(ctx, j.Id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != job.Pending {
		t.Fatalf("status = %v, want PENDING", got.Status)
	}
	if len(co.clearedFailures) != 1 || co.clearedFailures[0] != j.Id {
		t.Fatalf("clearedFailures = %v, want [%v]", co.clearedFailures, j.Id)
	}
	if len(co.removedDLQ) != 1 || co.removedDLQ[0] != j.Id {
		t.Fatalf("removedDLQ = %v, want [%v]", co.removedDLQ, j.Id)
	}
}

func TestCancelRemovesFromWaitingAndDelayed(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	co := &fakeCoordinator{}
	in := intake.New(st, co)

	payload, _ := message.New(map[string]any{"n": 1})
	j := job.New("emails", "send_welcome", job.Medium, payload)
	st.jobs[j.Id] = j

	got, err := in.Cancel(ctx, j.Id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != job.Cancelled {
		t.Fatalf("status = %v, want CANCELLED", got.Status)
	}
	if len(co.removedWaiting) != 1 || len(co.removedDelayed) != 1 {
		t.Fatalf("removedWaiting=%v removedDelayed=%v, want one each", co.removedWaiting, co.removedDelayed)
	}
}

func TestCompleteAcksProcessingEntry(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	co := &fakeCoordinator{}
	in := intake.New(st, co)

	payload, _ := message.New(map[string]any{"n": 1})
	j := job.New("emails", "send_welcome", job.Medium, payload)
	j.Status = job.Processing
	st.jobs[j.Id] = j

	result, _ := message.New(map[string]any{"ok": true})
	got, err := in.Complete(ctx, j.Id, "hand-off-service", result)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != job.Completed {
		t.Fatalf("status = %v, want COMPLETED", got.Status)
	}
	if len(co.acked) != 1 || co.acked[0] != j.Id {
		t.Fatalf("acked = %v, want [%v]", co.acked, j.Id)
	}
}
