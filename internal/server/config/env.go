package config

import "github.com/caarlos0/env/v11"

// parseEnv overlays AUTHKEEPER_* environment variables onto config.
// Unset variables leave the current values untouched. Malformed values
// (e.g. a TTL that is not a Go duration) panic, like the other layers.
func parseEnv(config *Config) {
	if err := env.Parse(config); err != nil {
		panic(err)
	}
}
