package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/elidra/taskq/config"
	redisCoord "github.com/elidra/taskq/coordination/redis"
	"github.com/elidra/taskq/dlq"
	"github.com/elidra/taskq/job"
	"github.com/elidra/taskq/retention"
	"github.com/elidra/taskq/retry"
	"github.com/elidra/taskq/scheduler"
	bunstore "github.com/elidra/taskq/store/bun"
	"github.com/elidra/taskq/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DatabaseURL)))
	defer sqldb.Close()
	db := bun.NewDB(sqldb, pgdialect.New())
	if err := bunstore.InitDB(ctx, db); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	st := bunstore.New(db)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	coord := redisCoord.New(rdb)

	workerID := cfg.WorkerID
	if workerID == "" {
		workerID, _ = os.Hostname()
	}
	hostname, _ := os.Hostname()

	registry := worker.NewRegistry()
	// Deployments register their job handlers here before Start, e.g.
	// registry.Register("send_welcome_email", sendWelcomeEmail).

	policy := dlq.NewPolicy(coord, cfg.PoisonWindow, cfg.PoisonThreshold)
	backoff := retry.Backoff{Base: cfg.BaseRetryDelay}

	w := worker.New(st, coord, policy, registry, worker.Config{
		WorkerId:          workerID,
		Hostname:          hostname,
		Queues:            cfg.Queues,
		Concurrency:       cfg.Concurrency,
		VisibilityTimeout: cfg.DefaultVisibilityTimeout,
		Backoff:           backoff,
	}, log)

	sched := scheduler.New(st, coord, scheduler.Config{
		Queues:   cfg.Queues,
		Interval: cfg.SchedulerInterval,
	}, log)

	ret := retention.New(st, []retention.Policy{
		{Status: job.Unknown, Interval: 24 * time.Hour, MaxAge: 7 * 24 * time.Hour},
	}, log)

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := ret.Start(ctx); err != nil {
		return fmt.Errorf("start retention: %w", err)
	}

	log.Info("worker process started", "workerId", workerID, "queues", cfg.Queues, "concurrency", cfg.Concurrency)

	<-ctx.Done()
	log.Info("shutting down")

	if err := w.Stop(worker.DefaultDrainTimeout); err != nil {
		log.Warn("worker stop", "error", err)
	}
	if err := sched.Stop(scheduler.DefaultDrainTimeout); err != nil {
		log.Warn("scheduler stop", "error", err)
	}
	if err := ret.Stop(retention.DefaultDrainTimeout); err != nil {
		log.Warn("retention stop", "error", err)
	}
	return nil
}
