package internal

import (
	"context"
	"time"
)

type TimerHandler func(context.Context)

// RunNow executes h once, synchronously, in the caller's goroutine.
// TimerTask.do applies it before its own ticker loop starts so a
// freshly started task doesn't wait a full interval for its first
// run; callers that drive their own recurring trigger instead of a
// TimerTask — Scheduler's robfig/cron job, for instance — call it
// directly so the same "run now, don't wait for the first tick"
// behavior holds everywhere a periodic component starts up.
func RunNow(ctx context.Context, h TimerHandler) {
	h(ctx)
}

type TimerTask struct {
	cancel context.CancelFunc
	done   DoneChan
}

func (t *TimerTask) do(ctx context.Context, h TimerHandler, timeout time.Duration) {
	defer close(t.done)
	ticker := time.NewTicker(timeout)
	defer ticker.Stop()
	RunNow(ctx, h)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h(ctx)
		}
	}
}

func (t *TimerTask) Start(ctx context.Context, h TimerHandler, timeout time.Duration) {
	t.done = make(DoneChan)
	ctx, t.cancel = context.WithCancel(ctx)
	go t.do(ctx, h, timeout)
}

func (t *TimerTask) Stop() DoneChan {
	t.cancel()
	return t.done
}
