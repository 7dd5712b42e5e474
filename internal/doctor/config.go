package doctor

import (
	"fmt"

	"github.com/relaymon/relaymon/internal/config"
)

// ConfigFileCheck verifies that a config file exists.
type ConfigFileCheck struct {
	ConfigPath string // Explicit path, or empty to search
}

func (c *ConfigFileCheck) Name() string     { return "config_file" }
func (c *ConfigFileCheck) Category() string { return "CONFIG" }

func (c *ConfigFileCheck) Run() CheckResult {
	path, err := config.Find(c.ConfigPath)
	if err != nil {
		msg, suggestion := errorDetail(err)
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    msg,
			Suggestion: suggestion,
		}
	}

	if path == "" {
		// Running without a config is legal (targets can come from flags),
		// so a missing file is a warning rather than a failure.
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "No config file found",
			Suggestion: "Run 'relaymon init' to create one, or pass --pid, --pid-file, or --name",
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Config file: %s", path),
	}
}

// ConfigSchemaCheck verifies that the config file parses and validates.
type ConfigSchemaCheck struct {
	ConfigPath string
}

func (c *ConfigSchemaCheck) Name() string     { return "config_schema" }
func (c *ConfigSchemaCheck) Category() string { return "CONFIG" }

func (c *ConfigSchemaCheck) Run() CheckResult {
	path, err := config.Find(c.ConfigPath)
	if err != nil || path == "" {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusSkip,
			Message: "No config file to validate",
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		msg, suggestion := errorDetail(err)
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    msg,
			Suggestion: suggestion,
		}
	}

	if err := config.Validate(cfg); err != nil {
		msg, suggestion := errorDetail(err)
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    msg,
			Suggestion: suggestion,
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Config is valid (%s)", daemonLabel(cfg)),
	}
}

// daemonLabel describes which daemon a config points at.
func daemonLabel(cfg *config.Config) string {
	switch {
	case cfg.Daemon.Name != "":
		return fmt.Sprintf("daemon %q", cfg.Daemon.Name)
	case cfg.Daemon.PIDFile != "":
		return fmt.Sprintf("pid file %s", cfg.Daemon.PIDFile)
	case cfg.Daemon.PID > 0:
		return fmt.Sprintf("pid %d", cfg.Daemon.PID)
	default:
		return "no daemon target"
	}
}
