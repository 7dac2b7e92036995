package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	base := func() *Config {
		c := &Config{}
		c.LoadDefaults()
		c.AccessTokenValidityDuration = 90 * time.Second
		return c
	}

	tests := []struct {
		expected    func() *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-d", "db", "-k", "redis:6379", "-s", "secret",
			"-t", "1", "-r", "3", "-w", "5", "-l", "debug",
		}, expected: func() *Config {
			c := base()
			c.EndpointAddrHTTP = "127.0.0.1:9090"
			c.DatabaseDSN = "db"
			c.RedisAddr = "redis:6379"
			c.SecretKey = "secret"
			c.LogLevel = "debug"
			c.AccessTokenValidityDuration = 1 * time.Minute
			c.RefreshTokenValidityDuration = 3 * time.Minute
			c.ResetTokenValidityDuration = 5 * time.Minute
			return c
		}},
		{name: "no flags keeps sub-minute durations", args: []string{"cmd", "-unrelated", "x"},
			expected: base},
		{name: "bad int panics", args: []string{"cmd", "-t", "soon"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := base()

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}

			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected(), config))
		})
	}
}
