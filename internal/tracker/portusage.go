package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/relaymon/relaymon/internal/logger"
)

var (
	// ErrUnresolvedResult is returned while no finished scan covers the
	// requested port yet, or after lookups were aborted.
	ErrUnresolvedResult = errors.New("port usage not yet resolved")

	// ErrUnknownApplication is returned when a finished scan found no
	// process using the requested port.
	ErrUnknownApplication = errors.New("no application found for port")
)

const (
	// portScanFailureLimit mirrors the sampler retry limit: after this many
	// consecutive failed scans, port lookups are abandoned for good.
	portScanFailureLimit = 3

	portScanTTL     = 20 * time.Second
	portScanTimeout = 5 * time.Second
)

// PortApp identifies the process using a local port.
type PortApp struct {
	PID  int32
	Name string
}

// portScanFunc produces the system-wide port-to-process table.
type portScanFunc func(ctx context.Context) (map[uint16]PortApp, error)

// PortUsage maps local ports to the applications holding them, so the
// connections panel can label the near end of inbound connections. Scans
// cover every process on the host and can be slow, so Fetch never blocks:
// it returns the cached table when fresh, otherwise kicks off a background
// scan and reports ErrUnresolvedResult until it lands.
type PortUsage struct {
	scan portScanFunc
	ttl  time.Duration
	log  logger.Logger

	mu         sync.Mutex
	apps       map[uint16]PortApp
	resolvedAt time.Time
	inFlight   bool
	failures   int
	aborted    bool
}

// NewPortUsage returns a lookup backed by a system-wide gopsutil scan.
func NewPortUsage(log logger.Logger) *PortUsage {
	return newPortUsage(scanPorts, portScanTTL, log)
}

func newPortUsage(scan portScanFunc, ttl time.Duration, log logger.Logger) *PortUsage {
	if log == nil {
		log = logger.Noop()
	}
	return &PortUsage{scan: scan, ttl: ttl, log: log}
}

// Fetch reports the application using the given local port. While a scan is
// in flight (or lookups were aborted) it fails with ErrUnresolvedResult;
// once a scan has landed, ports nothing uses fail with ErrUnknownApplication.
func (p *PortUsage) Fetch(port uint16) (PortApp, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.aborted {
		return PortApp{}, ErrUnresolvedResult
	}

	fresh := p.apps != nil && time.Since(p.resolvedAt) < p.ttl
	if !fresh && !p.inFlight {
		p.inFlight = true
		go p.refresh()
	}

	if p.apps == nil {
		return PortApp{}, ErrUnresolvedResult
	}
	app, ok := p.apps[port]
	if !ok {
		return PortApp{}, ErrUnknownApplication
	}
	return app, nil
}

// Aborted reports whether lookups were abandoned after repeated scan
// failures.
func (p *PortUsage) Aborted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.aborted
}

func (p *PortUsage) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), portScanTimeout)
	defer cancel()

	apps, err := p.scan(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight = false

	if err != nil {
		p.failures++
		p.log.Debug("port usage scan failed (%d/%d): %v", p.failures, portScanFailureLimit, err)
		if p.failures >= portScanFailureLimit {
			p.aborted = true
			p.log.Warn("failed %d attempts to determine the processes using active ports, giving up", p.failures)
		}
		return
	}

	p.failures = 0
	p.apps = apps
	p.resolvedAt = time.Now()
}

// scanPorts builds the port table from a system-wide connection listing.
// Ports owned by processes we cannot resolve a name for still map to their
// pid; connections without a pid (other users' sockets on a hardened host)
// are skipped.
func scanPorts(ctx context.Context) (map[uint16]PortApp, error) {
	conns, err := net.ConnectionsWithContext(ctx, "inet")
	if err != nil {
		return nil, err
	}

	names := make(map[int32]string)
	apps := make(map[uint16]PortApp, len(conns))
	for _, c := range conns {
		if c.Pid == 0 || c.Laddr.Port == 0 {
			continue
		}
		name, seen := names[c.Pid]
		if !seen {
			if proc, err := process.NewProcessWithContext(ctx, c.Pid); err == nil {
				name, _ = proc.NameWithContext(ctx)
			}
			names[c.Pid] = name
		}
		apps[uint16(c.Laddr.Port)] = PortApp{PID: c.Pid, Name: name}
	}
	return apps, nil
}
