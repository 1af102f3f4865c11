// Package config loads and validates taskq's process configuration
// from the environment via github.com/kelseyhightower/envconfig, the
// pattern used by this corpus's worker/gateway services. A single
// Config struct is shared by cmd/apiserver and cmd/worker; each entry
// point only reads the fields relevant to it.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/elidra/taskq/job"
)

// Config is populated from environment variables prefixed TASKQ_,
// e.g. TASKQ_DATABASE_URL, TASKQ_QUEUES.
type Config struct {
	// DatabaseURL is the Durable Store (C1) connection string.
	DatabaseURL string `envconfig:"database_url" required:"true"`

	// RedisAddr is the Coordination Store (C2) address.
	RedisAddr string `envconfig:"redis_addr" required:"true"`

	// WorkerID identifies this process in job leases and heartbeats.
	// Defaults to the hostname at process start if unset.
	WorkerID string `envconfig:"worker_id"`

	// Queues is the comma-separated list of queue names this process's
	// Worker and Scheduler serve.
	Queues []string `envconfig:"queues" required:"true"`

	// Concurrency is the number of lanes a Worker process runs.
	Concurrency int `envconfig:"concurrency" default:"4"`

	// DefaultMaxRetries is loaded from the environment but neither
	// entry point reads it: a job submitted without an explicit
	// maxRetries gets the 3 that job.New sets.
	DefaultMaxRetries uint32 `envconfig:"default_max_retries" default:"3"`

	// BaseRetryDelay is the backoff unit of §4.4.
	BaseRetryDelay time.Duration `envconfig:"base_retry_delay" default:"1s"`

	// DefaultVisibilityTimeout is the lease cmd/worker passes to
	// Claim; the worker extends a running job's lease every half of
	// it. Intake does not read it: a job submitted without an explicit
	// visibilityTimeout stores job.DefaultVisibilityTimeout, and the
	// Scheduler's reclaim check uses the stored value.
	DefaultVisibilityTimeout time.Duration `envconfig:"default_visibility_timeout" default:"30s"`

	// PoisonWindow and PoisonThreshold implement §4.5's sliding-window
	// poison-pill detection.
	PoisonWindow    time.Duration `envconfig:"poison_window" default:"60s"`
	PoisonThreshold int           `envconfig:"poison_threshold" default:"3"`

	// SchedulerInterval is the Scheduler's tick period (§4.6).
	SchedulerInterval time.Duration `envconfig:"scheduler_interval" default:"1s"`

	// HTTPAddr is the listen address for cmd/apiserver.
	HTTPAddr string `envconfig:"http_addr" default:":8080"`

	// LogLevel is one of DEBUG, INFO, WARN, ERROR.
	LogLevel string `envconfig:"log_level" default:"INFO"`
}

// Load reads Config from the environment under the TASKQ_ prefix and
// validates it.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process("taskq", &c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &c, nil
}

// Validate checks field ranges analogous to the Job field constraints
// of spec.md §3.
func (c *Config) Validate() error {
	if len(c.Queues) == 0 {
		return fmt.Errorf("queues must not be empty")
	}
	for _, q := range c.Queues {
		if l := len(strings.TrimSpace(q)); l < job.MinQueueLen || l > job.MaxQueueLen {
			return fmt.Errorf("queue %q length outside [%d, %d]", q, job.MinQueueLen, job.MaxQueueLen)
		}
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.DefaultVisibilityTimeout < job.MinVisibilityTimeout || c.DefaultVisibilityTimeout > job.MaxVisibilityTimeout {
		return fmt.Errorf("defaultVisibilityTimeout %s outside [%s, %s]", c.DefaultVisibilityTimeout, job.MinVisibilityTimeout, job.MaxVisibilityTimeout)
	}
	if c.BaseRetryDelay <= 0 {
		return fmt.Errorf("baseRetryDelay must be positive, got %s", c.BaseRetryDelay)
	}
	if c.PoisonWindow <= 0 {
		return fmt.Errorf("poisonWindow must be positive, got %s", c.PoisonWindow)
	}
	if c.PoisonThreshold <= 0 {
		return fmt.Errorf("poisonThreshold must be positive, got %d", c.PoisonThreshold)
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("logLevel must be one of DEBUG, INFO, WARN, ERROR, got %q", c.LogLevel)
	}
	return nil
}

// SlogLevel converts LogLevel into a slog.Level for handler
// construction in cmd/apiserver and cmd/worker.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
