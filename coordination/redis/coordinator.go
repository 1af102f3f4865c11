// Package redis implements coordination.Coordinator on top of
// github.com/redis/go-redis/v9, grounded on the RedisQueue in the
// corpus's bananas task-queue example: pre-computed per-queue key
// strings, single commands where one suffices, and Lua scripts (via
// go-redis's Script helper) for the handful of operations — dequeue's
// pop-and-claim, promote-due, DLQ routing, the poison-pill sliding
// window — that
// must be atomic across more than one Redis command.
package redis

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// Coordinator is the redis-backed implementation of
// coordination.Coordinator.
type Coordinator struct {
	client *redis.Client
	prefix string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithKeyPrefix overrides the default "taskq:" key prefix, useful for
// running multiple logical queues against one Redis instance.
func WithKeyPrefix(prefix string) Option {
	return func(c *Coordinator) { c.prefix = prefix }
}

// New wraps an already-connected *redis.Client.
func New(client *redis.Client, opts ...Option) *Coordinator {
	c := &Coordinator{client: client, prefix: "taskq:"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) keys(queue string) keys {
	return newKeys(c.prefix, queue)
}

func nowMillis(t time.Time) float64 {
	return float64(t.UnixMilli())
}
