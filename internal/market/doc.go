// Package market defines the event model shared by ingestion, filtering and
// emission: a single tagged Event type fixed at the ingestion boundary, the
// six-category Batch, and the drain Buffer the emitter consumes.
//
// The Buffer is deliberately destructive: Drain(true) atomically returns and
// clears the pending batch, so at most one consumer ever observes a given
// event. WaitForAppend lets tools and tests block until new events arrive.
package market
