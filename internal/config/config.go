package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// EmitIntervalMs is the minimum time between emission cycles.
	EmitIntervalMs int `json:"emitIntervalMs" yaml:"emitIntervalMs"`
	// PollCadenceMs is how often the scheduler checks whether a cycle is due.
	PollCadenceMs int `json:"pollCadenceMs" yaml:"pollCadenceMs"`
	// MaxUpstreamSymbols caps the ingestion-side subscription list.
	MaxUpstreamSymbols int `json:"maxUpstreamSymbols" yaml:"maxUpstreamSymbols"`
	// DefaultMinCount is the minimum-count threshold applied when a
	// subscriber enables criteria filtering without an explicit value.
	DefaultMinCount int `json:"defaultMinCount" yaml:"defaultMinCount"`
	// DefaultInterestGroup is the sentinel group substituted for missing or
	// invalid interest selections.
	DefaultInterestGroup string `json:"defaultInterestGroup" yaml:"defaultInterestGroup"`
	// LoadTimeoutMs bounds settings-store reads performed on the emission path.
	LoadTimeoutMs int `json:"loadTimeoutMs" yaml:"loadTimeoutMs"`
	// AnalyticsSyncMs is the cadence of the best-effort analytics persistence.
	AnalyticsSyncMs int `json:"analyticsSyncMs" yaml:"analyticsSyncMs"`
	// SendBufLen is the buffered payload queue length per subscriber sink.
	SendBufLen int `json:"sendBufLen" yaml:"sendBufLen"`
	// HTTPAddr is the listen address of the HTTP/SSE server.
	HTTPAddr string `json:"httpAddr" yaml:"httpAddr"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		EmitIntervalMs:       1000,
		PollCadenceMs:        250,
		MaxUpstreamSymbols:   5000,
		DefaultMinCount:      2,
		DefaultInterestGroup: "all",
		LoadTimeoutMs:        2000,
		AnalyticsSyncMs:      30000,
		SendBufLen:           1024,
		HTTPAddr:             ":8490",
	}
}

// EmitInterval returns the emission interval as a duration.
func (c Config) EmitInterval() time.Duration {
	return time.Duration(c.EmitIntervalMs) * time.Millisecond
}

// PollCadence returns the scheduler poll cadence as a duration.
func (c Config) PollCadence() time.Duration {
	return time.Duration(c.PollCadenceMs) * time.Millisecond
}

// LoadTimeout returns the settings-load bound as a duration.
func (c Config) LoadTimeout() time.Duration {
	return time.Duration(c.LoadTimeoutMs) * time.Millisecond
}

// AnalyticsSync returns the analytics persistence cadence as a duration.
func (c Config) AnalyticsSync() time.Duration {
	return time.Duration(c.AnalyticsSyncMs) * time.Millisecond
}

// Load reads configuration from a JSON or YAML file (by extension). If path
// is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}
