// Package log provides SurgeCast's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by Go's
// standard library slog via a custom handler that preserves the
// formatter/outputs pipeline, so output stays consistent across the codebase
// while the slog ecosystem remains reachable.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("emitter"))
//	l.Info("cycle complete", log.Int("subs_n", 12), log.Int64("dur_ms", 3))
//
// # Levels
//
// Levels parse from strings via ParseLevel ("debug", "info", "warn",
// "error", "fatal"), which is how SURGECAST_LOG_LEVEL is consumed.
package log
