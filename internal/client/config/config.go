// Package config holds the runtime settings of the authkeeper CLI.
package config

import "time"

// Config holds runtime settings for the CLI.
//
// Fields:
//   - ServerURL: base URL of the authkeeper HTTP API.
//   - DBPath: SQLite file that keeps the current session between runs.
//   - RequestTimeout: upper bound for a single API call.
type Config struct {
	ServerURL      string
	DBPath         string
	RequestTimeout time.Duration
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DBPath = "authkeeper.db"
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig applies defaults, then overlays values from JSON (if present)
// and command-line flags. Later sources take precedence.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
