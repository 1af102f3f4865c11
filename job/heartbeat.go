package job

import "time"

// Heartbeat is the liveness record a Worker process publishes to the
// Durable Store on a fixed interval. It is read-only from the
// perspective of the queue engine; nothing in C1-C8 branches on it.
// It exists so operators (and, eventually, a leader-election scheme
// for the Scheduler) can see which worker processes are alive, what
// queues they serve and how busy they are.
type Heartbeat struct {
	WorkerId      string
	Hostname      string
	Queues        []string
	Concurrency   int
	ActiveJobs    int
	StartedAt     time.Time
	LastHeartbeat time.Time
}
