// Package job defines the canonical data model shared by every layer
// of taskq: the Job entity, its Status and Priority enums, its append
// -only History log, and the WorkerHeartbeat record.
//
// Job values are snapshots. Mutating a *Job returned from a Store or
// Observer method never changes durable state; transitions happen
// through Store, Intake, Worker or Scheduler methods, which return
// fresh snapshots reflecting the new state.
package job
