// Package filter implements the stateless two-stage per-subscriber event
// pipeline: membership filtering against a resolved symbol set, then optional
// criteria filtering (min-count threshold and/or a CEL expression).
//
// Both stages are stable: within a category the relative order of surviving
// events exactly matches the input, and nothing is deduplicated. Membership
// filtering fails open (see KeepEventsWithoutSymbol).
package filter
