package tracker

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// nativeResolver queries through gopsutil, which carries its own per-OS
// implementations. It is the cross-platform fallback: less direct than the
// procfs scan on Linux, but the first choice where /proc does not exist.
//
// Descriptor counts and limits are best-effort here; not every platform
// implements them, and a missing count should not cost an otherwise good
// sample. Absent values stay zero.
type nativeResolver struct{}

// NewNativeResolver returns the gopsutil-backed resolver.
func NewNativeResolver() Resolver {
	return &nativeResolver{}
}

func (n *nativeResolver) Name() string { return ResolverNative }

func (n *nativeResolver) Capabilities() Capability { return CapResources | CapConnections }

// Available requires the PID to be visible to the native process table.
func (n *nativeResolver) Available(pid int) error {
	exists, err := process.PidExists(int32(pid))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResolverUnavailable, err)
	}
	if !exists {
		return fmt.Errorf("%w: pid %d not found", ErrResolverUnavailable, pid)
	}
	return nil
}

func (n *nativeResolver) QueryResources(ctx context.Context, pid int) (ResourceSample, error) {
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return ResourceSample{}, err
	}

	times, err := p.TimesWithContext(ctx)
	if err != nil {
		return ResourceSample{}, err
	}
	mem, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return ResourceSample{}, err
	}

	sample := ResourceSample{
		Timestamp:      time.Now(),
		CPUUser:        time.Duration(times.User * float64(time.Second)),
		CPUSystem:      time.Duration(times.System * float64(time.Second)),
		MemoryResident: mem.RSS,
	}

	if fds, err := p.NumFDsWithContext(ctx); err == nil {
		sample.FDsUsed = int(fds)
	}
	if limits, err := p.RlimitUsageWithContext(ctx, false); err == nil {
		for _, limit := range limits {
			if limit.Resource == process.RLIMIT_NOFILE {
				sample.FDsLimit = limit.Soft
				break
			}
		}
	}
	return sample, nil
}

func (n *nativeResolver) QueryConnections(ctx context.Context, pid int) ([]Connection, error) {
	stats, err := net.ConnectionsPidWithContext(ctx, "inet", int32(pid))
	if err != nil {
		return nil, err
	}

	conns := make([]Connection, 0, len(stats))
	for _, st := range stats {
		if st.Status == "LISTEN" || st.Raddr.Port == 0 {
			continue
		}
		conns = append(conns, Connection{
			LocalAddr:  st.Laddr.IP,
			LocalPort:  uint16(st.Laddr.Port),
			RemoteAddr: st.Raddr.IP,
			RemotePort: uint16(st.Raddr.Port),
			Protocol:   protocolOf(st.Family, st.Type),
		})
	}
	return conns, nil
}

// protocolOf maps a socket family/type pair onto the protocol names used
// throughout the tracker.
func protocolOf(family, sockType uint32) string {
	v6 := family == syscall.AF_INET6
	if sockType == syscall.SOCK_DGRAM {
		if v6 {
			return "udp6"
		}
		return "udp"
	}
	if v6 {
		return "tcp6"
	}
	return "tcp"
}
