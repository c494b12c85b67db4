// Package client contains Cobra CLI commands for SurgeCast: watching the
// SSE emission stream and managing interest selections, filter criteria,
// groups and the upstream symbol subscription over the HTTP API.
package client
