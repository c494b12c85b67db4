// Package runtime wires storage, config, caches and the emission loop
// into a single-node SurgeCast instance. It exposes Open/Close, a basic
// health check, and accessors for the components the transport layer
// serves.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Config: cfg})
//	defer rt.Close()
//	go rt.Scheduler().Run(ctx)
package runtime
