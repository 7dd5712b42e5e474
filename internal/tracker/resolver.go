package tracker

import (
	"context"
	"strings"
	"time"
)

// Capability describes which query kinds a resolver supports.
type Capability uint8

const (
	// CapResources marks support for CPU/memory/descriptor queries.
	CapResources Capability = 1 << iota

	// CapConnections marks support for connection enumeration.
	CapConnections
)

// Has reports whether c includes all capabilities in other.
func (c Capability) Has(other Capability) bool {
	return c&other == other
}

func (c Capability) String() string {
	var parts []string
	if c.Has(CapResources) {
		parts = append(parts, "resources")
	}
	if c.Has(CapConnections) {
		parts = append(parts, "connections")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// ResourceSample is one point-in-time measurement of the monitored process.
// CPU counters are cumulative since process start; consumers derive rates by
// taking deltas between samples. Immutable once produced.
type ResourceSample struct {
	Timestamp      time.Time
	CPUUser        time.Duration // cumulative user CPU time
	CPUSystem      time.Duration // cumulative system CPU time
	MemoryResident uint64        // resident set size, bytes
	FDsUsed        int
	FDsLimit       uint64 // 0 means unlimited
}

// Connection is one open network connection of the monitored process.
// Value type; equal connections compare equal, so consumers can diff
// successive sets (the tracker itself never diffs).
type Connection struct {
	LocalAddr  string
	LocalPort  uint16
	RemoteAddr string
	RemotePort uint16
	Protocol   string // "tcp", "tcp6", "udp", "udp6"
}

// Resolver is one platform-specific strategy for querying a process.
//
// Available is the static availability predicate, checked at selection time
// and distinct from runtime query failure. Queries must be side-effect-free
// beyond the OS lookup itself and must respect ctx cancellation; the caller
// additionally bounds every call with its own timeout.
//
// A resolver that does not carry a capability returns ErrResolverUnavailable
// from the corresponding query.
type Resolver interface {
	Name() string
	Capabilities() Capability
	Available(pid int) error
	QueryResources(ctx context.Context, pid int) (ResourceSample, error)
	QueryConnections(ctx context.Context, pid int) ([]Connection, error)
}
