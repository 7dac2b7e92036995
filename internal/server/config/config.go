// Package config handles configuration for the server, layering defaults,
// an optional JSON file, environment variables and command-line flags.
package config

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config holds runtime settings for the authkeeper server.
//
// Storage is chosen from what is set: DatabaseDSN selects PostgreSQL (pgx),
// otherwise an in-memory store is used. RedisAddr moves password reset
// tokens to Redis. Google OAuth is enabled once client ID, secret and
// redirect URI are all present; SMTP delivery once SMTPHost is set.
type Config struct {
	EndpointAddrHTTP string `env:"AUTHKEEPER_HTTP_ADDR"`
	DatabaseDSN      string `env:"AUTHKEEPER_DATABASE_DSN"`
	RedisAddr        string `env:"AUTHKEEPER_REDIS_ADDR"`
	SecretKey        string `env:"AUTHKEEPER_SECRET_KEY"`
	LogLevel         string `env:"AUTHKEEPER_LOG_LEVEL"`

	AccessTokenValidityDuration  time.Duration `env:"AUTHKEEPER_ACCESS_TTL"`
	RefreshTokenValidityDuration time.Duration `env:"AUTHKEEPER_REFRESH_TTL"`
	ResetTokenValidityDuration   time.Duration `env:"AUTHKEEPER_RESET_TTL"`

	BcryptCost    int    `env:"AUTHKEEPER_BCRYPT_COST"`
	SecureCookies bool   `env:"AUTHKEEPER_SECURE_COOKIES"`
	ResetURL      string `env:"AUTHKEEPER_RESET_URL"`

	GoogleClientID     string `env:"AUTHKEEPER_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"AUTHKEEPER_GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string `env:"AUTHKEEPER_GOOGLE_REDIRECT_URI"`

	SMTPHost     string `env:"AUTHKEEPER_SMTP_HOST"`
	SMTPPort     int    `env:"AUTHKEEPER_SMTP_PORT"`
	SMTPUser     string `env:"AUTHKEEPER_SMTP_USER"`
	SMTPPassword string `env:"AUTHKEEPER_SMTP_PASSWORD"`
	SMTPFrom     string `env:"AUTHKEEPER_SMTP_FROM"`
}

// LoadDefaults populates Config with development defaults.
// NOTE: SecretKey must be overridden in production.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.DatabaseDSN = ""
	c.RedisAddr = ""
	c.SecretKey = "secretKey"
	c.LogLevel = "info"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenValidityDuration = 30 * 24 * time.Hour
	c.ResetTokenValidityDuration = 30 * time.Minute
	c.BcryptCost = bcrypt.DefaultCost
	c.SecureCookies = false
	c.ResetURL = "http://localhost:3000/reset-password"
	c.SMTPPort = 587
}

// GoogleOAuthEnabled reports whether all Google client settings are present.
func (c *Config) GoogleOAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURI != ""
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
