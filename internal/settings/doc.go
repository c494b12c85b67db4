// Package settings persists per-subscriber configuration: interest
// selections (category → interest groups), optional filter criteria, and the
// interest-group membership lists the resolver reads.
//
// Records are small JSON values in pebble. Absence is a distinct, non-error
// outcome throughout: callers that need "no selection on file" vs "store
// failed" get both signals.
package settings
