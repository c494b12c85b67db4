// Package registry tracks connected subscribers and dispatches emission
// payloads to their transport sinks. Each subscriber owns a buffered
// async writer so one slow transport cannot stall the emission cycle.
package registry
