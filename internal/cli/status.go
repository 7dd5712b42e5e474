package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/relaymon/relaymon/internal/dashboard"
	"github.com/relaymon/relaymon/internal/procinfo"
	"github.com/relaymon/relaymon/internal/tracker"
	"github.com/relaymon/relaymon/internal/ui"
)

// sampleWait bounds how long the one-shot commands wait for the tracker's
// first samples. Two samples are needed for a CPU rate; with the default
// 1s poll interval that is roughly a second of waiting.
const sampleWait = 3 * time.Second

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a one-shot snapshot of the daemon",
	Long: `Status starts the tracker, waits briefly for samples, and prints a
single snapshot: state, CPU, memory, descriptors, and connection count.
Useful from scripts and cron; the dashboard is the live view.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.start(ctx); err != nil {
		return err
	}

	waitForSamples(s.tracker, 2, sampleWait)

	report := buildReport(ctx, s)
	fmt.Print(formatStatus(report))
	return nil
}

// waitForSamples blocks until the tracker history holds want samples or
// the timeout passes.
func waitForSamples(t *tracker.Tracker, want int, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(t.History(timeout)) >= want {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// statusReport is everything formatStatus needs, gathered up front so the
// formatting itself stays a pure function.
type statusReport struct {
	Target     string
	PID        int
	Status     tracker.Status
	Sample     tracker.ResourceSample
	HasSample  bool
	CPUPercent float64
	HasCPU     bool
	ConnCount  int
	HasConns   bool
	Uptime     time.Duration
	HasUptime  bool
}

func buildReport(ctx context.Context, s *session) statusReport {
	report := statusReport{
		Target: s.target,
		PID:    s.pid,
		Status: s.tracker.Status(),
	}

	report.Sample, report.HasSample = s.tracker.LatestSample()

	history := s.tracker.History(time.Minute)
	if len(history) >= 2 {
		report.CPUPercent, report.HasCPU = cpuRate(history[len(history)-2], history[len(history)-1])
	}

	connCtx, cancel := context.WithTimeout(ctx, sampleWait)
	defer cancel()
	if conns, err := s.tracker.Connections(connCtx); err == nil {
		report.ConnCount = len(conns)
		report.HasConns = true
	}

	if s.client == nil {
		if start, err := procinfo.StartTime(ctx, s.pid); err == nil {
			report.Uptime = time.Since(start)
			report.HasUptime = true
		}
	}

	return report
}

// cpuRate derives percent-of-one-core from two cumulative samples.
func cpuRate(prev, cur tracker.ResourceSample) (float64, bool) {
	wall := cur.Timestamp.Sub(prev.Timestamp)
	busy := (cur.CPUUser + cur.CPUSystem) - (prev.CPUUser + prev.CPUSystem)
	if wall <= 0 || busy < 0 {
		return 0, false
	}
	return busy.Seconds() / wall.Seconds() * 100, true
}

func formatStatus(r statusReport) string {
	var b strings.Builder

	title := lipgloss.NewStyle().Bold(true).Render(r.Target)
	fmt.Fprintf(&b, "%s (pid %d)\n", title, r.PID)

	glyph, style := dashboard.StateGlyph(r.Status.State)
	state := style.Render(glyph + " " + r.Status.State.String())
	if r.Status.Resolver != "" {
		state += ui.MutedStyle().Render(fmt.Sprintf(" via %s", r.Status.Resolver))
	}
	writeRow(&b, "state", state)

	switch {
	case r.HasCPU:
		writeRow(&b, "cpu", ui.FormatPercent(r.CPUPercent))
	case r.HasSample:
		writeRow(&b, "cpu", ui.FormatUptime(r.Sample.CPUUser+r.Sample.CPUSystem)+" total")
	default:
		writeRow(&b, "cpu", "no sample yet")
	}

	if r.HasSample {
		writeRow(&b, "memory", ui.FormatBytes(r.Sample.MemoryResident))
		writeRow(&b, "fds", fdSummary(r.Sample))
	}

	if r.HasConns {
		writeRow(&b, "conns", fmt.Sprintf("%d open", r.ConnCount))
	} else {
		writeRow(&b, "conns", "unavailable")
	}

	if r.HasUptime {
		writeRow(&b, "uptime", ui.FormatUptime(r.Uptime))
	}

	if r.Status.State == tracker.StateDegraded {
		b.WriteString(ui.ErrorStyle().Render("  resource queries degraded, values may be stale") + "\n")
	}
	if r.Status.ConnectionsDegraded {
		b.WriteString(ui.WarningStyle().Render("  connection queries degraded") + "\n")
	}

	return b.String()
}

func writeRow(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "  %s%s\n", ui.PadRight(ui.MutedStyle().Render(label), 10), value)
}

func fdSummary(sample tracker.ResourceSample) string {
	if sample.FDsLimit == 0 {
		return fmt.Sprintf("%d open", sample.FDsUsed)
	}
	return fmt.Sprintf("%d / %d", sample.FDsUsed, sample.FDsLimit)
}
