// Package redis implements the Coordination Store (C2-C5) described
// in package coordination on top of github.com/redis/go-redis/v9.
//
// # Key layout
//
// Each queue gets its own waiting (sorted set), processing (set),
// delayed (sorted set) and dlq (list) key; poison-pill
// counters live one sorted set per job id. Keys are prefixed (default
// "taskq:") so multiple logical deployments can share a Redis
// instance.
//
// # Atomicity
//
// Operations that must be atomic across more than one Redis command —
// dequeue's pop-and-claim, promoting due-delayed ids, moving a job to
// the dead-letter list, and the poison-pill sliding window — are
// implemented as Lua scripts via redis.NewScript, evaluated with
// EVALSHA/EVAL by the client. Everything else is a single command.
//
// # Testing
//
// Tests in this package run against github.com/alicebob/miniredis/v2,
// an in-process Redis protocol server, so they exercise the real
// go-redis client and the real Lua scripts without a network
// dependency.
package redis
