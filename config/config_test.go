package config_test

import (
	"testing"
	"time"

	"github.com/elidra/taskq/config"
)

func validConfig() config.Config {
	return config.Config{
		DatabaseURL:              "postgres://localhost/taskq",
		RedisAddr:                "localhost:6379",
		Queues:                   []string{"emails"},
		Concurrency:              4,
		DefaultVisibilityTimeout: 30 * time.Second,
		BaseRetryDelay:           time.Second,
		PoisonWindow:             60 * time.Second,
		PoisonThreshold:          3,
		LogLevel:                 "INFO",
	}
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestValidateRejectsEmptyQueues(t *testing.T) {
	c := validConfig()
	c.Queues = nil
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for empty queues")
	}
}

func TestValidateRejectsVisibilityTimeoutOutOfRange(t *testing.T) {
	c := validConfig()
	c.DefaultVisibilityTimeout = time.Millisecond
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for too-short visibility timeout")
	}
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	c := validConfig()
	c.LogLevel = "TRACE"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

func TestSlogLevelMapsLogLevel(t *testing.T) {
	c := validConfig()
	c.LogLevel = "DEBUG"
	if c.SlogLevel().String() != "DEBUG" {
		t.Fatalf("SlogLevel() = %v, want DEBUG", c.SlogLevel())
	}
}
