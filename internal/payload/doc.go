// Package payload builds the wire-form emission document sent to a
// subscriber: the six filtered event lists grouped by tracker, plus the
// latest activity snapshot. Formatting never fails; non-finite numbers
// are encoded as JSON null.
package payload
