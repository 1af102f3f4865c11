package redis

import (
	"context"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/google/uuid"
)

// ScheduleRetry index-adds id into delayed(Q) with score now+delay.
func (c *Coordinator) ScheduleRetry(ctx context.Context, queue string, id uuid.UUID, delay time.Duration) error {
	return c.scheduleAt(ctx, queue, id, time.Now().Add(delay))
}

// ScheduleAt index-adds id into delayed(Q) with score at.
func (c *Coordinator) ScheduleAt(ctx context.Context, queue string, id uuid.UUID, at time.Time) error {
	return c.scheduleAt(ctx, queue, id, at)
}

func (c *Coordinator) scheduleAt(ctx context.Context, queue string, id uuid.UUID, at time.Time) error {
	k := c.keys(queue)
	return c.client.ZAdd(ctx, k.delayed, goredis.Z{
		Score:  nowMillis(at),
		Member: id.String(),
	}).Err()
}

// promoteDueScript atomically reads every member with score <= now
// and removes it from delayed(Q), so two schedulers racing the same
// tick never both promote the same id.
var promoteDueScript = goredis.NewScript(`
local members = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
if #members > 0 then
	redis.call("ZREM", KEYS[1], unpack(members))
end
return members
`)

// PromoteDue pops every id from delayed(Q) with score <= now.
func (c *Coordinator) PromoteDue(ctx context.Context, queue string, now time.Time) ([]uuid.UUID, error) {
	k := c.keys(queue)
	members, err := promoteDueScript.Run(ctx, c.client, []string{k.delayed}, strconv.FormatInt(now.UnixMilli(), 10)).StringSlice()
	if err != nil {
		return nil, err
	}
	ret := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		ret = append(ret, id)
	}
	return ret, nil
}

// RemoveDelayed removes id from delayed(Q), used on cancel of a
// SCHEDULED job (§9 item 3).
func (c *Coordinator) RemoveDelayed(ctx context.Context, queue string, id uuid.UUID) error {
	k := c.keys(queue)
	return c.client.ZRem(ctx, k.delayed, id.String()).Err()
}
