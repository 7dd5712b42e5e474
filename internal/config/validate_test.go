package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymon/relaymon/internal/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *Config) {},
		},
		{
			name: "daemon name only",
			mutate: func(cfg *Config) {
				cfg.Daemon.Name = "relayd"
			},
		},
		{
			name: "future version",
			mutate: func(cfg *Config) {
				cfg.Version = CurrentConfigVersion + 1
			},
			wantErr: "from the future",
		},
		{
			name: "negative pid",
			mutate: func(cfg *Config) {
				cfg.Daemon.PID = -5
			},
			wantErr: "aren't negative",
		},
		{
			name: "max interval below min",
			mutate: func(cfg *Config) {
				cfg.Tracker.MinInterval = 2 * time.Second
				cfg.Tracker.MaxInterval = time.Second
			},
			wantErr: "below min_interval",
		},
		{
			name: "unknown resolver",
			mutate: func(cfg *Config) {
				cfg.Tracker.Resolvers = []string{"proc", "dtrace"}
			},
			wantErr: "isn't a resolver",
		},
		{
			name: "ssh resolver without remote host",
			mutate: func(cfg *Config) {
				cfg.Tracker.Resolvers = []string{"ssh"}
			},
			wantErr: "nothing to connect to",
		},
		{
			name: "ssh resolver with remote host",
			mutate: func(cfg *Config) {
				cfg.Tracker.Resolvers = []string{"ssh"}
				cfg.Remote.Host = "relay-box"
			},
		},
		{
			name: "negative sample window",
			mutate: func(cfg *Config) {
				cfg.Tracker.SampleWindow = -time.Minute
			},
			wantErr: "can't be negative",
		},
		{
			name: "remote port not a number",
			mutate: func(cfg *Config) {
				cfg.Remote.Host = "relay-box"
				cfg.Remote.Port = "ssh"
			},
			wantErr: "isn't a valid port",
		},
		{
			name: "remote port out of range",
			mutate: func(cfg *Config) {
				cfg.Remote.Host = "relay-box"
				cfg.Remote.Port = "70000"
			},
			wantErr: "isn't a valid port",
		},
		{
			name: "remote settings without host",
			mutate: func(cfg *Config) {
				cfg.Remote.User = "monitor"
			},
			wantErr: "remote.host is empty",
		},
		{
			name: "bad color mode",
			mutate: func(cfg *Config) {
				cfg.UI.Color = "sometimes"
			},
			wantErr: "isn't valid",
		},
		{
			name: "refresh too fast",
			mutate: func(cfg *Config) {
				cfg.UI.Refresh = 10 * time.Millisecond
			},
			wantErr: "too fast",
		},
		{
			name: "negative refresh",
			mutate: func(cfg *Config) {
				cfg.UI.Refresh = -time.Second
			},
			wantErr: "negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
