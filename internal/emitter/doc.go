// Package emitter drives the per-subscriber fan-out loop. A single
// background goroutine polls on a fixed cadence, drains the shared event
// buffer at most once per emission interval, and walks the connected
// subscribers sequentially, filtering the drained batch per subscriber
// before dispatch. Overlapping ticks are dropped, never queued.
package emitter
