package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ris_live/pkg"
)

// runArgs parses the command line and returns the config the action would receive
func runArgs(t *testing.T, args ...string) (*pkg.Config, error) {
	t.Helper()
	var got *pkg.Config
	app := newApp(func(c *pkg.Config) error {
		got = c
		return nil
	})
	err := app.Run(append([]string{"ris-live-reader"}, args...))
	return got, err
}

// TestDefaults verifies the configuration used without flags
func TestDefaults(t *testing.T) {
	config, err := runArgs(t)
	require.NoError(t, err)

	assert.Equal(t, pkg.DefaultStreamURL, config.Stream.URL)
	assert.Equal(t, pkg.DefaultClient, config.Stream.Client)
	assert.Equal(t, pkg.DefaultHost, config.Stream.Subscription.Host)
	assert.Equal(t, pkg.FormatText, config.Output.Format)
	assert.False(t, config.BGP.Enabled)
}

// TestFlags tests that command line options land in the configuration
func TestFlags(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		check       func(t *testing.T, c *pkg.Config)
		expectError bool
	}{
		{
			name: "Subscription filters",
			args: []string{"--host", "all", "--msg-type", "UPDATE", "--peer", "10.0.0.1", "--prefix", "10.0.0.0/8", "--more-specific", "--path", "3356"},
			check: func(t *testing.T, c *pkg.Config) {
				s := c.Stream.Subscription
				assert.Equal(t, "all", s.Host)
				assert.Equal(t, "UPDATE", s.Type)
				assert.Equal(t, "10.0.0.1", s.Peer)
				assert.Equal(t, "10.0.0.0/8", s.Prefix)
				assert.Equal(t, "3356", s.Path)
				assert.True(t, s.MoreSpecific)
				assert.False(t, s.LessSpecific)
			},
		},
		{
			name: "Pretty wins over json",
			args: []string{"--json", "--pretty"},
			check: func(t *testing.T, c *pkg.Config) {
				assert.Equal(t, pkg.FormatPretty, c.Output.Format)
			},
		},
		{
			name: "Update type",
			args: []string{"--update-type", "withdrawals", "--raw"},
			check: func(t *testing.T, c *pkg.Config) {
				assert.Equal(t, "withdrawals", c.Stream.UpdateType)
				assert.True(t, c.Stream.Raw)
			},
		},
		{
			name:        "Invalid update type",
			args:        []string{"--update-type", "x"},
			expectError: true,
		},
		{
			name:        "Invalid peer",
			args:        []string{"--peer", "rrc21"},
			expectError: true,
		},
		{
			name:        "Invalid message type",
			args:        []string{"--msg-type", "BOGUS"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := runArgs(t, tt.args...)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, config)
		})
	}
}

// TestConfigFileWithOverrides loads a file and lets flags override it
func TestConfigFileWithOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
stream:
  client: dashboard
  subscription:
    host: rrc00
    type: UPDATE
output:
  format: json
bgp:
  enabled: true
  local:
    routerId: 192.168.1.213
    asn: 65001
`), 0o600))

	config, err := runArgs(t, "--config", path, "--host", "rrc01")
	require.NoError(t, err)
	assert.Equal(t, "dashboard", config.Stream.Client)
	assert.Equal(t, "rrc01", config.Stream.Subscription.Host)
	assert.Equal(t, "UPDATE", config.Stream.Subscription.Type)
	assert.Equal(t, pkg.FormatJSON, config.Output.Format)
	assert.True(t, config.BGP.Enabled)
	assert.Equal(t, int32(179), config.BGP.Local.ListenPort)

	_, err = runArgs(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
