package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/relaymon/relaymon/internal/procfs"
)

// procResolver reads the process table directly from procfs. It is the
// cheapest and most permission-friendly mechanism where /proc exists:
// resource fields come from stat/statm/limits, connections from matching
// the process's socket inodes against the /proc/net tables.
type procResolver struct {
	fs procfs.FS
}

// NewProcResolver returns the procfs-backed resolver. Tests point fs at a
// fixture tree; production uses procfs.DefaultFS.
func NewProcResolver(fs procfs.FS) Resolver {
	return &procResolver{fs: fs}
}

func (p *procResolver) Name() string { return ResolverProc }

func (p *procResolver) Capabilities() Capability { return CapResources | CapConnections }

// Available requires the process's stat file to be readable.
func (p *procResolver) Available(pid int) error {
	if _, err := p.fs.Stat(pid); err != nil {
		return fmt.Errorf("%w: %v", ErrResolverUnavailable, err)
	}
	return nil
}

func (p *procResolver) QueryResources(ctx context.Context, pid int) (ResourceSample, error) {
	if err := ctx.Err(); err != nil {
		return ResourceSample{}, err
	}

	st, err := p.fs.Stat(pid)
	if err != nil {
		return ResourceSample{}, err
	}
	rss, err := p.fs.RSS(pid)
	if err != nil {
		return ResourceSample{}, err
	}
	fds, err := p.fs.FDCount(pid)
	if err != nil {
		return ResourceSample{}, err
	}
	limit, err := p.fs.FDLimit(pid)
	if err != nil {
		return ResourceSample{}, err
	}

	return ResourceSample{
		Timestamp:      time.Now(),
		CPUUser:        procfs.JiffiesToDuration(st.UTime),
		CPUSystem:      procfs.JiffiesToDuration(st.STime),
		MemoryResident: rss,
		FDsUsed:        fds,
		FDsLimit:       limit,
	}, nil
}

func (p *procResolver) QueryConnections(ctx context.Context, pid int) ([]Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := p.fs.Connections(pid)
	if err != nil {
		return nil, err
	}
	return sockEntriesToConnections(entries), nil
}

func sockEntriesToConnections(entries []procfs.SockEntry) []Connection {
	conns := make([]Connection, 0, len(entries))
	for _, e := range entries {
		conns = append(conns, Connection{
			LocalAddr:  e.LocalAddr,
			LocalPort:  e.LocalPort,
			RemoteAddr: e.RemoteAddr,
			RemotePort: e.RemotePort,
			Protocol:   e.Protocol,
		})
	}
	return conns
}
