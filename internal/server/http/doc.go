// Package httpserver exposes the HTTP surface of a SurgeCast node: the
// SSE subscribe stream, interest/filter settings endpoints, group
// membership management, event ingestion and diagnostics.
package httpserver
