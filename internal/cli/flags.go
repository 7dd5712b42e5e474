package cli

import (
	"github.com/spf13/cobra"

	"github.com/relaymon/relaymon/internal/config"
)

// TargetFlags collects the flags that override the configured daemon
// target. Setting any of pid, pid-file, or name replaces the whole daemon
// section, so a flag target never mixes with a configured one.
type TargetFlags struct {
	PID     int
	PIDFile string
	Name    string
	Host    string
}

var targetFlags TargetFlags

func init() {
	addTargetFlags(rootCmd)
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().IntVar(&targetFlags.PID, "pid", 0, "monitor this pid")
	cmd.PersistentFlags().StringVar(&targetFlags.PIDFile, "pid-file", "", "read the daemon pid from this file")
	cmd.PersistentFlags().StringVar(&targetFlags.Name, "name", "", "monitor the process with this name")
	cmd.PersistentFlags().StringVar(&targetFlags.Host, "host", "", "monitor over SSH on this host (hostname, user@host, or ssh_config alias)")
}

// ApplyTo overlays the flag values onto cfg.
func (f TargetFlags) ApplyTo(cfg *config.Config) {
	if f.PID != 0 || f.PIDFile != "" || f.Name != "" {
		cfg.Daemon = config.DaemonConfig{
			PID:     f.PID,
			PIDFile: f.PIDFile,
			Name:    f.Name,
		}
	}
	if f.Host != "" {
		cfg.Remote.Host = f.Host
	}
}
