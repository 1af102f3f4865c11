package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/google/uuid"

	"github.com/elidra/taskq/coordination"
	"github.com/elidra/taskq/job"
)

// Enqueue index-adds id into waiting(Q). Re-enqueuing an id already
// present updates its score to the current time, the desired behavior
// for a requeue after a scheduler reclaim.
func (c *Coordinator) Enqueue(ctx context.Context, queue string, id uuid.UUID, priority job.Priority) error {
	k := c.keys(queue)
	score := priority.Weight() + nowMillis(time.Now())
	return c.client.ZAdd(ctx, k.waiting, goredis.Z{
		Score:  score,
		Member: id.String(),
	}).Err()
}

// dequeueScript atomically pops the lowest-score member from waiting
// and adds it to processing, returning the member (or an empty string
// if waiting was empty). Running the pop and the claim as one script
// is what makes the coordination layer's "at-most-one worker per job"
// guarantee (§4.3) hold even under concurrent callers.
var dequeueScript = goredis.NewScript(`
local member = redis.call("ZPOPMIN", KEYS[1])
if #member == 0 then
	return ""
end
redis.call("SADD", KEYS[2], member[1])
return member[1]
`)

const dequeuePollInterval = 200 * time.Millisecond

// Dequeue polls dequeueScript until it returns a candidate or timeout
// elapses. Polling, rather than a blocking primitive like BZPOPMIN, is
// what lets the pop-from-waiting and add-to-processing steps run as a
// single atomic script instead of two separate round trips.
func (c *Coordinator) Dequeue(ctx context.Context, queue string, timeout time.Duration) (uuid.UUID, error) {
	k := c.keys(queue)
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(dequeuePollInterval)
	defer ticker.Stop()
	for {
		member, err := dequeueScript.Run(ctx, c.client, []string{k.waiting, k.processing}).Text()
		if err != nil && err != goredis.Nil {
			return uuid.Nil, err
		}
		if member != "" {
			return uuid.Parse(member)
		}
		if !time.Now().Before(deadline) {
			return uuid.Nil, coordination.ErrEmpty
		}
		select {
		case <-ctx.Done():
			return uuid.Nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Ack removes id from processing(Q).
func (c *Coordinator) Ack(ctx context.Context, queue string, id uuid.UUID) error {
	k := c.keys(queue)
	return c.client.SRem(ctx, k.processing, id.String()).Err()
}

// RemoveWaiting removes id from waiting(Q).
func (c *Coordinator) RemoveWaiting(ctx context.Context, queue string, id uuid.UUID) error {
	k := c.keys(queue)
	return c.client.ZRem(ctx, k.waiting, id.String()).Err()
}

// Processing returns every id currently in processing(Q).
func (c *Coordinator) Processing(ctx context.Context, queue string) ([]uuid.UUID, error) {
	k := c.keys(queue)
	members, err := c.client.SMembers(ctx, k.processing).Result()
	if err != nil {
		return nil, err
	}
	return parseMembers(members), nil
}

// Waiting returns every id currently in waiting(Q).
func (c *Coordinator) Waiting(ctx context.Context, queue string) ([]uuid.UUID, error) {
	k := c.keys(queue)
	members, err := c.client.ZRange(ctx, k.waiting, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return parseMembers(members), nil
}

func parseMembers(members []string) []uuid.UUID {
	ret := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		ret = append(ret, id)
	}
	return ret
}
