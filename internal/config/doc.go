// Package config provides loading and environment overlay for SurgeCast
// runtime configuration. It exposes a Default() baseline, a JSON/YAML file
// loader, and a SURGECAST_* env overlay.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/surgecast.yaml"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
package config
