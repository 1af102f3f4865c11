package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"

	"github.com/google/uuid"
)

// moveToDLQScript atomically removes id from processing(Q) and
// appends it to dlq(Q), matching the "remove from processing, push to
// dead letter" pipelines in the corpus's Redis queue examples, but as
// a single script instead of a pipeline: a pipeline still leaves a
// window where a concurrent Processing() scan from the scheduler can
// observe the id in neither set.
var moveToDLQScript = goredis.NewScript(`
redis.call("SREM", KEYS[1], ARGV[1])
redis.call("RPUSH", KEYS[2], ARGV[1])
return 1
`)

// MoveToDLQ removes id from processing(Q) and appends it to dlq(Q).
// reason is accepted for interface symmetry with the durable store's
// own DEAD write, which is where it is actually persisted; the
// coordination-layer DLQ list only needs the id.
func (c *Coordinator) MoveToDLQ(ctx context.Context, queue string, id uuid.UUID, reason string) error {
	k := c.keys(queue)
	return moveToDLQScript.Run(ctx, c.client, []string{k.processing, k.dlq}, id.String()).Err()
}

// RemoveDLQ removes id from dlq(Q) if present, a no-op otherwise.
// Used by Intake.Retry so a job retried straight out of the dead
// letter queue doesn't linger in dlq(Q) alongside its freshly
// re-enqueued waiting(Q) entry.
func (c *Coordinator) RemoveDLQ(ctx context.Context, queue string, id uuid.UUID) error {
	k := c.keys(queue)
	return c.client.LRem(ctx, k.dlq, 0, id.String()).Err()
}

// ListDLQ returns up to limit ids parked in dlq(Q), oldest first.
func (c *Coordinator) ListDLQ(ctx context.Context, queue string, limit int) ([]uuid.UUID, error) {
	k := c.keys(queue)
	if limit <= 0 {
		limit = 50
	}
	members, err := c.client.LRange(ctx, k.dlq, 0, int64(limit)-1).Result()
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
