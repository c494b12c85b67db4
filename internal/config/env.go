package config

import (
	"os"
	"strconv"
)

// FromEnv overlays SURGECAST_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	overlayInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				*dst = n
			}
		}
	}
	overlayInt("SURGECAST_EMIT_INTERVAL_MS", &cfg.EmitIntervalMs)
	overlayInt("SURGECAST_POLL_CADENCE_MS", &cfg.PollCadenceMs)
	overlayInt("SURGECAST_MAX_UPSTREAM_SYMBOLS", &cfg.MaxUpstreamSymbols)
	overlayInt("SURGECAST_DEFAULT_MIN_COUNT", &cfg.DefaultMinCount)
	overlayInt("SURGECAST_LOAD_TIMEOUT_MS", &cfg.LoadTimeoutMs)
	overlayInt("SURGECAST_ANALYTICS_SYNC_MS", &cfg.AnalyticsSyncMs)
	overlayInt("SURGECAST_SEND_BUF", &cfg.SendBufLen)
	if v := os.Getenv("SURGECAST_DEFAULT_INTEREST_GROUP"); v != "" {
		cfg.DefaultInterestGroup = v
	}
	if v := os.Getenv("SURGECAST_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
}
