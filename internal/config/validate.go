package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/relaymon/relaymon/internal/errors"
	"github.com/relaymon/relaymon/internal/tracker"
)

// knownResolvers are the resolver names a config may reference.
var knownResolvers = map[string]bool{
	tracker.ResolverProc:   true,
	tracker.ResolverNative: true,
	tracker.ResolverPS:     true,
	tracker.ResolverLsof:   true,
	tracker.ResolverSSH:    true,
}

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	// Check version
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but relaymon only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Grab the latest relaymon: https://github.com/relaymon/relaymon/releases")
	}

	if cfg.Daemon.PID < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("daemon.pid can't be %d - process ids aren't negative", cfg.Daemon.PID),
			"Set daemon.pid to a real pid, or leave it at 0 and use daemon.name or daemon.pid_file.")
	}

	// The tracker validates its own polling policy
	if err := cfg.Tracker.Policy().Validate(); err != nil {
		return err
	}

	if err := validateTracker(cfg.Tracker, cfg.Remote); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'tracker' section in your .relaymon.yaml.")
	}

	if err := validateRemote(cfg.Remote); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'remote' section in your .relaymon.yaml.")
	}

	if err := validateUI(cfg.UI); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'ui' section in your .relaymon.yaml.")
	}

	return nil
}

// validateTracker checks the parts of the tracker section that the polling
// policy itself doesn't cover.
func validateTracker(t TrackerConfig, remote RemoteConfig) error {
	for _, name := range t.Resolvers {
		if !knownResolvers[name] {
			return fmt.Errorf("tracker.resolvers has '%s' but that isn't a resolver - pick from: %s", name, strings.Join(resolverNames(), ", "))
		}
		if name == tracker.ResolverSSH && remote.Host == "" {
			return fmt.Errorf("tracker.resolvers lists 'ssh' but remote.host isn't set - there's nothing to connect to")
		}
	}

	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"sample_window", t.SampleWindow},
		{"connection_cache", t.ConnectionCache},
		{"query_timeout", t.QueryTimeout},
		{"degraded_retest", t.DegradedRetest},
	} {
		if d.value < 0 {
			return fmt.Errorf("tracker.%s can't be negative - that doesn't make sense", d.name)
		}
	}

	return nil
}

// validateRemote checks remote connection settings.
func validateRemote(r RemoteConfig) error {
	if r.Port != "" {
		port, err := strconv.Atoi(r.Port)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("remote.port '%s' isn't a valid port - use a number from 1 to 65535", r.Port)
		}
	}

	if r.Host == "" && (r.User != "" || r.Port != "" || r.IdentityFile != "") {
		return fmt.Errorf("remote settings are present but remote.host is empty - set the host or drop the section")
	}

	return nil
}

// validateUI checks dashboard configuration.
func validateUI(ui UIConfig) error {
	validColors := map[string]bool{"auto": true, "always": true, "never": true, "": true}
	if !validColors[ui.Color] {
		return fmt.Errorf("ui.color '%s' isn't valid - use 'auto', 'always', or 'never'", ui.Color)
	}

	if ui.Refresh < 0 {
		return fmt.Errorf("ui.refresh can't be negative - that doesn't make sense")
	}
	if ui.Refresh > 0 && ui.Refresh < 100*time.Millisecond {
		return fmt.Errorf("ui.refresh %v is too fast - anything under 100ms just burns CPU", ui.Refresh)
	}

	return nil
}

// resolverNames returns the known resolver names in their usual order.
func resolverNames() []string {
	return []string{
		tracker.ResolverProc,
		tracker.ResolverNative,
		tracker.ResolverPS,
		tracker.ResolverLsof,
		tracker.ResolverSSH,
	}
}
