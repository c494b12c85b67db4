// Package interest holds the per-subscriber caches read on the emission path
// and written on the request path: the interest-selection cache and the
// filter-criteria cache.
//
// Both caches follow the same contract: lazy load on first access, explicit
// Update after a confirmed store write, explicit Invalidate on settings
// changes. Loads never surface errors to the emitter; failures degrade to
// documented defaults and are counted separately so operators can tell
// "nothing configured" from "store unreachable".
package interest
