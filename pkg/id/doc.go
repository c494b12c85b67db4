// Package id provides 128-bit, lexicographically sortable identifiers used
// for subscriber connections.
//
// # Format
//
// An ID is 16 bytes big-endian: [8 bytes ms_timestamp][8 bytes sequence].
// Byte-wise comparison preserves chronological order, and IDs generated
// within the same millisecond remain strictly increasing by sequence.
//
// # Monotonicity
//
// The Generator pins to the last seen millisecond if the clock regresses and
// increments the sequence instead, so IDs never go backwards per process.
package id
