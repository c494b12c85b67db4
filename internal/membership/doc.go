// Package membership resolves named interest groups (e.g. "TECH10") to
// concrete symbol sets. Unknown groups resolve to an empty set and are
// warn-logged once per name; resolution never errors toward the emitter.
package membership
