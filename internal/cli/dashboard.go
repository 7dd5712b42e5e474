package cli

import (
	"context"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/relaymon/relaymon/internal/dashboard"
	"github.com/relaymon/relaymon/internal/errors"
	"github.com/relaymon/relaymon/internal/procinfo"
)

// minRefresh floors the dashboard refresh rate. Samples arrive at most
// once a second, so faster repaints only burn CPU.
const minRefresh = 500 * time.Millisecond

var refreshFlag time.Duration

func init() {
	rootCmd.Flags().DurationVar(&refreshFlag, "refresh", 0, "dashboard refresh rate (default from config, 1s)")
}

// runDashboard opens the live dashboard. Without a terminal it degrades to
// the one-shot status report so piped output stays readable.
func runDashboard(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return runStatus(cmd, args)
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.start(ctx); err != nil {
		return err
	}

	model := dashboard.New(dashboard.Config{
		Tracker:      s.tracker,
		Ports:        s.ports,
		Target:       s.target,
		PID:          s.pid,
		Version:      GetVersion(),
		Refresh:      dashboardRefresh(s.cfg.UI.Refresh),
		ProcessStart: daemonStartTime(ctx, s),
	})

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return errors.Wrap(err, "Dashboard exited with an error")
	}
	return nil
}

// dashboardRefresh picks the effective refresh rate: flag over config,
// floored at minRefresh. Zero lets the dashboard use its own default.
func dashboardRefresh(configured time.Duration) time.Duration {
	refresh := configured
	if refreshFlag > 0 {
		refresh = refreshFlag
	}
	if refresh > 0 && refresh < minRefresh {
		refresh = minRefresh
	}
	return refresh
}

// daemonStartTime fetches the daemon's start time for the uptime display.
// Unknown is fine; the dashboard falls back to session-relative uptime.
func daemonStartTime(ctx context.Context, s *session) time.Time {
	if s.client != nil {
		// No remote start-time probe; remote sessions show watch time.
		return time.Time{}
	}
	start, err := procinfo.StartTime(ctx, s.pid)
	if err != nil {
		return time.Time{}
	}
	return start
}
