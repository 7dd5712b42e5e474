package config

import (
	"time"

	"github.com/relaymon/relaymon/internal/tracker"
)

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete .relaymon.yaml configuration file.
type Config struct {
	Version int           `yaml:"version" mapstructure:"version"`
	Daemon  DaemonConfig  `yaml:"daemon" mapstructure:"daemon"`
	Tracker TrackerConfig `yaml:"tracker" mapstructure:"tracker"`
	Remote  RemoteConfig  `yaml:"remote" mapstructure:"remote"`
	UI      UIConfig      `yaml:"ui" mapstructure:"ui"`
}

// DaemonConfig says which process to monitor. The first set field wins:
// an explicit pid beats pid_file beats name.
type DaemonConfig struct {
	// Name of the daemon process, matched exactly against running processes.
	Name string `yaml:"name" mapstructure:"name"`

	// PIDFile is a file holding the daemon's pid, the usual /var/run layout.
	// Supports ~ and ${HOME}/${USER} expansion.
	PIDFile string `yaml:"pid_file" mapstructure:"pid_file"`

	// PID pins the monitored process directly. 0 means unset.
	PID int `yaml:"pid" mapstructure:"pid"`
}

// TrackerConfig tunes the sampler. Zero fields fall back to the tracker's
// own defaults, so a config file only needs the knobs it changes.
type TrackerConfig struct {
	// Resolvers overrides the platform resolver order, e.g. [proc, lsof].
	Resolvers []string `yaml:"resolvers" mapstructure:"resolvers"`

	// MinInterval is the starting poll interval and its floor.
	MinInterval time.Duration `yaml:"min_interval" mapstructure:"min_interval"`

	// MaxInterval caps adaptive interval growth.
	MaxInterval time.Duration `yaml:"max_interval" mapstructure:"max_interval"`

	// RetryLimit is consecutive failures tolerated before switching resolvers.
	RetryLimit int `yaml:"retry_limit" mapstructure:"retry_limit"`

	// SampleWindow is how much history the dashboard keeps.
	SampleWindow time.Duration `yaml:"sample_window" mapstructure:"sample_window"`

	// ConnectionCache is how long a connection listing stays fresh.
	ConnectionCache time.Duration `yaml:"connection_cache" mapstructure:"connection_cache"`

	// QueryTimeout bounds each individual process query.
	QueryTimeout time.Duration `yaml:"query_timeout" mapstructure:"query_timeout"`

	// DegradedRetest is how often to re-probe after all resolvers failed.
	DegradedRetest time.Duration `yaml:"degraded_retest" mapstructure:"degraded_retest"`
}

// Policy converts the file-level tracker settings into the tracker's
// polling policy.
func (t TrackerConfig) Policy() tracker.Config {
	return tracker.Config{
		ResolverOrder:   t.Resolvers,
		MinInterval:     t.MinInterval,
		MaxInterval:     t.MaxInterval,
		RetryLimit:      t.RetryLimit,
		SampleWindow:    t.SampleWindow,
		ConnectionCache: t.ConnectionCache,
		QueryTimeout:    t.QueryTimeout,
		DegradedRetest:  t.DegradedRetest,
	}
}

// RemoteConfig points relaymon at a relay daemon on another machine.
// Monitoring goes over SSH when Host is set.
type RemoteConfig struct {
	// Host is a hostname, user@host, host:port, or ~/.ssh/config alias.
	// Empty means monitor locally.
	Host string `yaml:"host" mapstructure:"host"`

	// User overrides the SSH user from ssh_config.
	User string `yaml:"user" mapstructure:"user"`

	// Port overrides the SSH port from ssh_config.
	Port string `yaml:"port" mapstructure:"port"`

	// IdentityFile overrides the key from ssh_config.
	// Supports ~ and ${HOME}/${USER} expansion.
	IdentityFile string `yaml:"identity_file" mapstructure:"identity_file"`

	// StrictHostKey verifies the server against known_hosts.
	StrictHostKey bool `yaml:"strict_host_key" mapstructure:"strict_host_key"`
}

// UIConfig controls the dashboard.
type UIConfig struct {
	// Refresh is how often the dashboard redraws.
	Refresh time.Duration `yaml:"refresh" mapstructure:"refresh"`

	// Color mode: "auto", "always", or "never".
	// "auto" disables color when output is piped.
	Color string `yaml:"color" mapstructure:"color"`
}

// DefaultConfig returns a Config with sensible defaults. The tracker
// section mirrors the tracker's own defaults so a written config file
// shows the real values rather than zeros.
func DefaultConfig() *Config {
	policy := tracker.DefaultConfig()
	return &Config{
		Version: CurrentConfigVersion,
		Tracker: TrackerConfig{
			MinInterval:     policy.MinInterval,
			MaxInterval:     policy.MaxInterval,
			RetryLimit:      policy.RetryLimit,
			SampleWindow:    policy.SampleWindow,
			ConnectionCache: policy.ConnectionCache,
			QueryTimeout:    policy.QueryTimeout,
			DegradedRetest:  policy.DegradedRetest,
		},
		Remote: RemoteConfig{
			StrictHostKey: true,
		},
		UI: UIConfig{
			Refresh: time.Second,
			Color:   "auto",
		},
	}
}
