package log

import (
	"fmt"
	stdlog "log"
	"strings"
)

// Config is the process-level logging configuration, typically sourced from
// environment variables or flags.
type Config struct {
	// Level is one of debug, info, warn, error, fatal.
	Level string
	// Format is "text" or "json".
	Format string
}

// ApplyConfig builds a logger from a Config. Empty fields fall back to
// info/text.
func ApplyConfig(cfg *Config) (Logger, error) {
	level := InfoLevel
	if cfg != nil && cfg.Level != "" {
		l, err := ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		level = l
	}
	var formatter Formatter = &TextFormatter{}
	if cfg != nil && cfg.Format != "" {
		switch strings.ToLower(cfg.Format) {
		case "text":
			formatter = &TextFormatter{}
		case "json":
			formatter = &JSONFormatter{}
		default:
			return nil, fmt.Errorf("unknown log format: %q", cfg.Format)
		}
	}
	return NewLogger(WithLevel(level), WithFormatter(formatter)), nil
}

// RedirectStdLog routes the standard library's global logger (used by some
// dependencies) through logger at info level.
func RedirectStdLog(logger Logger) {
	stdlog.SetFlags(0)
	stdlog.SetOutput(stdlogWriter{logger: logger})
}

type stdlogWriter struct {
	logger Logger
}

func (w stdlogWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	if msg != "" {
		w.logger.Info(msg)
	}
	return len(p), nil
}
