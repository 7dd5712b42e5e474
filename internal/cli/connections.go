package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/relaymon/relaymon/internal/tracker"
	"github.com/relaymon/relaymon/internal/ui"
)

// connListTimeout bounds the one-shot connection query, which may shell
// out to lsof or cross an SSH hop.
const connListTimeout = 10 * time.Second

var connectionsCmd = &cobra.Command{
	Use:     "connections",
	Aliases: []string{"conns"},
	Short:   "List the daemon's open network connections",
	Args:    cobra.NoArgs,
	RunE:    runConnections,
}

func init() {
	rootCmd.AddCommand(connectionsCmd)
}

func runConnections(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.start(ctx); err != nil {
		return err
	}

	connCtx, cancel := context.WithTimeout(ctx, connListTimeout)
	defer cancel()

	conns, err := s.tracker.Connections(connCtx)
	if err != nil {
		return err
	}

	fmt.Printf("%s (pid %d)\n\n", s.target, s.pid)
	fmt.Print(renderConnectionList(conns))
	return nil
}

func renderConnectionList(conns []tracker.Connection) string {
	if len(conns) == 0 {
		return "no open connections\n"
	}

	sort.Slice(conns, func(i, j int) bool {
		a, b := conns[i], conns[j]
		if a.Protocol != b.Protocol {
			return a.Protocol < b.Protocol
		}
		if a.LocalPort != b.LocalPort {
			return a.LocalPort < b.LocalPort
		}
		if a.RemoteAddr != b.RemoteAddr {
			return a.RemoteAddr < b.RemoteAddr
		}
		return a.RemotePort < b.RemotePort
	})

	columns := []ui.TableColumn{
		{Title: "PROTO", Width: 6},
		{Title: "LOCAL", Width: 24},
		{Title: "REMOTE", Width: 24},
	}
	rows := make([][]string, len(conns))
	for i, c := range conns {
		rows[i] = []string{
			c.Protocol,
			ui.FormatEndpoint(c.LocalAddr, c.LocalPort),
			ui.FormatEndpoint(c.RemoteAddr, c.RemotePort),
		}
	}

	return ui.RenderSimpleTable(columns, rows) + "\n"
}
