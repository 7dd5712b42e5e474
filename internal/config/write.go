package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relaymon/relaymon/internal/errors"
)

const fileHeader = `# relaymon configuration
# Run 'relaymon' for the dashboard, 'relaymon doctor' to check this setup
# See: https://github.com/relaymon/relaymon for documentation

`

// Marshal renders cfg as YAML with durations in human-readable form,
// "30s" rather than a nanosecond count.
func Marshal(cfg *Config) ([]byte, error) {
	out := fileConfig{
		Version: cfg.Version,
		Daemon: fileDaemon{
			Name:    cfg.Daemon.Name,
			PIDFile: cfg.Daemon.PIDFile,
			PID:     cfg.Daemon.PID,
		},
		Tracker: fileTracker{
			Resolvers:       cfg.Tracker.Resolvers,
			MinInterval:     formatDuration(cfg.Tracker.MinInterval),
			MaxInterval:     formatDuration(cfg.Tracker.MaxInterval),
			RetryLimit:      cfg.Tracker.RetryLimit,
			SampleWindow:    formatDuration(cfg.Tracker.SampleWindow),
			ConnectionCache: formatDuration(cfg.Tracker.ConnectionCache),
			QueryTimeout:    formatDuration(cfg.Tracker.QueryTimeout),
			DegradedRetest:  formatDuration(cfg.Tracker.DegradedRetest),
		},
		UI: fileUI{
			Refresh: formatDuration(cfg.UI.Refresh),
			Color:   cfg.UI.Color,
		},
	}

	// Keep local configs free of an empty remote section
	if cfg.Remote.Host != "" {
		out.Remote = &fileRemote{
			Host:          cfg.Remote.Host,
			User:          cfg.Remote.User,
			Port:          cfg.Remote.Port,
			IdentityFile:  cfg.Remote.IdentityFile,
			StrictHostKey: cfg.Remote.StrictHostKey,
		}
	}

	return yaml.Marshal(out)
}

// Write renders cfg with a header comment and writes it to path.
func Write(cfg *Config, path string) error {
	data, err := Marshal(cfg)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to generate config",
			"This shouldn't happen - please report this bug")
	}

	content := fileHeader + string(data)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to write config file: %s", path),
			"Check directory permissions")
	}

	return nil
}

// File-facing mirror of Config. Durations become strings here so the
// written YAML reads the way people write it.
type fileConfig struct {
	Version int         `yaml:"version"`
	Daemon  fileDaemon  `yaml:"daemon"`
	Tracker fileTracker `yaml:"tracker"`
	Remote  *fileRemote `yaml:"remote,omitempty"`
	UI      fileUI      `yaml:"ui"`
}

type fileDaemon struct {
	Name    string `yaml:"name,omitempty"`
	PIDFile string `yaml:"pid_file,omitempty"`
	PID     int    `yaml:"pid,omitempty"`
}

type fileTracker struct {
	Resolvers       []string `yaml:"resolvers,omitempty"`
	MinInterval     string   `yaml:"min_interval,omitempty"`
	MaxInterval     string   `yaml:"max_interval,omitempty"`
	RetryLimit      int      `yaml:"retry_limit,omitempty"`
	SampleWindow    string   `yaml:"sample_window,omitempty"`
	ConnectionCache string   `yaml:"connection_cache,omitempty"`
	QueryTimeout    string   `yaml:"query_timeout,omitempty"`
	DegradedRetest  string   `yaml:"degraded_retest,omitempty"`
}

type fileRemote struct {
	Host          string `yaml:"host"`
	User          string `yaml:"user,omitempty"`
	Port          string `yaml:"port,omitempty"`
	IdentityFile  string `yaml:"identity_file,omitempty"`
	StrictHostKey bool   `yaml:"strict_host_key"`
}

type fileUI struct {
	Refresh string `yaml:"refresh,omitempty"`
	Color   string `yaml:"color,omitempty"`
}

// formatDuration renders a duration the way people write them in YAML,
// trimming the zero tails Go's String() leaves ("10m0s" -> "10m").
func formatDuration(d time.Duration) string {
	if d == 0 {
		return ""
	}
	s := d.String()
	if strings.HasSuffix(s, "m0s") {
		s = s[:len(s)-2]
	}
	if strings.HasSuffix(s, "h0m") {
		s = s[:len(s)-2]
	}
	return s
}
