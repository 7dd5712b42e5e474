package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/relaymon/relaymon/internal/config"
	"github.com/relaymon/relaymon/internal/errors"
	"github.com/relaymon/relaymon/internal/logger"
	"github.com/relaymon/relaymon/internal/procinfo"
	"github.com/relaymon/relaymon/internal/tracker"
	"github.com/relaymon/relaymon/internal/ui"
	"github.com/relaymon/relaymon/pkg/sshexec"
)

// sshDialTimeout bounds the initial connection to a remote host.
const sshDialTimeout = 10 * time.Second

var (
	cfgFile string
	noColor bool
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "relaymon",
	Short: "Watch a relay daemon's resources and connections",
	Long: `relaymon watches a relay daemon's CPU, memory, descriptors, and open
connections in a live terminal dashboard.

The daemon is located by name, pid file, or pid, configured in
.relaymon.yaml or passed as flags. With remote.host set (or --host),
the same monitoring runs over SSH against a daemon on another machine.

Run with no arguments to open the dashboard. One-shot views are
available as subcommands (status, connections).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			os.Setenv("RELAYMON_DEBUG", "1")
		}
		if noColor {
			ui.DisableColors()
		}
	},
	RunE: runDashboard,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches .relaymon.yaml, then ~/.config/relaymon/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command and exits nonzero on error. Structured
// errors already carry their own formatting, so they print as-is.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective config: discovered file (or defaults
// when none exists), target flag overrides on top, then validation.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, err
	}

	targetFlags.ApplyTo(cfg)

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	applyColorMode(cfg)
	return cfg, nil
}

// applyColorMode resolves color precedence: the --no-color flag wins, then
// the config's ui.color, then terminal auto-detection.
func applyColorMode(cfg *config.Config) {
	if noColor {
		ui.DisableColors()
		return
	}
	switch cfg.UI.Color {
	case "always":
		ui.ForceColors()
	case "never":
		ui.DisableColors()
	}
}

// session is the shared bring-up for commands that query the daemon: the
// resolved pid, a tracker wired for local or remote monitoring, and the
// SSH client when remote.
type session struct {
	cfg     *config.Config
	tracker *tracker.Tracker
	ports   *tracker.PortUsage
	target  string
	pid     int
	client  *sshexec.Client
}

// newSession loads config, resolves the daemon target to a pid, and builds
// a tracker for it. The tracker is not started; callers own that and must
// Close the session when done.
func newSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	target := daemonTarget(cfg)
	if target == (procinfo.Target{}) {
		return nil, errors.New(errors.ErrConfig,
			"No daemon target configured",
			"Set daemon.name, daemon.pid_file, or daemon.pid in .relaymon.yaml, or pass --pid, --pid-file, or --name")
	}

	s := &session{cfg: cfg, target: describeTarget(cfg)}
	log := logger.NewEnvLogger("[tracker]")

	if cfg.Remote.Host != "" {
		sshexec.StrictHostKeyChecking = cfg.Remote.StrictHostKey
		sshexec.WarningHandler = ui.PrintWarning

		client, err := sshexec.DialWith(cfg.Remote.Host, sshDialTimeout, sshexec.Params{
			User:         cfg.Remote.User,
			Port:         cfg.Remote.Port,
			IdentityFile: cfg.Remote.IdentityFile,
		})
		if err != nil {
			return nil, err
		}
		s.client = client

		pid, err := procinfo.FindRemote(client, target)
		if err != nil {
			client.Close() //nolint:errcheck // Session never opened; nothing to salvage
			return nil, err
		}
		s.pid = pid
		s.tracker = tracker.New(cfg.Tracker.Policy(),
			tracker.WithLogger(log),
			tracker.WithResolvers(tracker.NewSSHResolver(client)))
		return s, nil
	}

	pid, err := procinfo.Find(context.Background(), target)
	if err != nil {
		return nil, err
	}
	s.pid = pid
	s.tracker = tracker.New(cfg.Tracker.Policy(), tracker.WithLogger(log))
	s.ports = tracker.NewPortUsage(log)
	return s, nil
}

// start launches the tracker against the resolved pid.
func (s *session) start(ctx context.Context) error {
	return s.tracker.Start(ctx, s.pid)
}

// Close stops the tracker and tears down the SSH connection if one exists.
func (s *session) Close() {
	if s.tracker != nil {
		s.tracker.Stop()
	}
	if s.client != nil {
		s.client.Close() //nolint:errcheck // Teardown, error not actionable
	}
}

// daemonTarget maps the config's daemon section to a process target.
func daemonTarget(cfg *config.Config) procinfo.Target {
	return procinfo.Target{
		PID:     cfg.Daemon.PID,
		PIDFile: cfg.Daemon.PIDFile,
		Name:    cfg.Daemon.Name,
	}
}

// describeTarget renders the daemon target for headers and messages,
// prefixed with the host when monitoring remotely.
func describeTarget(cfg *config.Config) string {
	var label string
	switch {
	case cfg.Daemon.Name != "":
		label = cfg.Daemon.Name
	case cfg.Daemon.PIDFile != "":
		label = cfg.Daemon.PIDFile
	case cfg.Daemon.PID > 0:
		label = fmt.Sprintf("pid %d", cfg.Daemon.PID)
	default:
		label = "daemon"
	}

	if cfg.Remote.Host != "" {
		return cfg.Remote.Host + ":" + label
	}
	return label
}
