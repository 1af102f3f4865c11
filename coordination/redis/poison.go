package redis

import (
	"context"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/google/uuid"
)

// trackFailureScript implements §4.5's sliding window in one round
// trip: add this failure, trim everything older than the window,
// count what remains, and refresh the key's TTL so an idle job's
// poison history eventually disappears on its own.
var trackFailureScript = goredis.NewScript(`
redis.call("ZADD", KEYS[1], ARGV[1], ARGV[1])
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[2])
local count = redis.call("ZCARD", KEYS[1])
redis.call("EXPIRE", KEYS[1], ARGV[3])
return count
`)

// TrackFailure records now into poison(jobId), trims entries older
// than window, and reports whether the remaining count has reached
// threshold.
func (c *Coordinator) TrackFailure(ctx context.Context, id uuid.UUID, now time.Time, window time.Duration, threshold int) (bool, error) {
	k := c.keys("")
	key := k.poison(id)
	nowMs := now.UnixMilli()
	cutoff := nowMs - window.Milliseconds()
	ttlSeconds := window.Milliseconds()/1000 + 10
	count, err := trackFailureScript.Run(ctx, c.client, []string{key},
		strconv.FormatInt(nowMs, 10),
		strconv.FormatInt(cutoff, 10),
		strconv.FormatInt(ttlSeconds, 10),
	).Int64()
	if err != nil {
		return false, err
	}
	return int(count) >= threshold, nil
}

// ClearFailures deletes poison(jobId), used when a job is manually
// retried so the fresh attempt sequence doesn't inherit a stale
// failure count.
func (c *Coordinator) ClearFailures(ctx context.Context, id uuid.UUID) error {
	k := c.keys("")
	return c.client.Del(ctx, k.poison(id)).Err()
}
