// Package analytics accumulates session activity counters and serves the
// latest snapshot to the emission path. Snapshots are best-effort: the
// emitter tolerates an absent snapshot and continues. Counters are synced
// to the store on a fixed interval so a restart resumes the session totals.
package analytics
