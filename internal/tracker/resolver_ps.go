package tracker

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// psResolver shells out to ps for CPU and memory figures. It is the
// resources fallback for hosts where neither procfs nor the native calls
// work for the monitored process. Descriptor counts are not reported
// through ps; both fd fields stay zero.
type psResolver struct {
	run commandRunner
}

// commandRunner executes a command and returns its combined stdout.
// Swappable so tests can feed canned output.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// NewPSResolver returns the ps-backed resources resolver.
func NewPSResolver() Resolver {
	return &psResolver{run: execRunner}
}

func (p *psResolver) Name() string { return ResolverPS }

func (p *psResolver) Capabilities() Capability { return CapResources }

// Available requires the ps binary on PATH.
func (p *psResolver) Available(pid int) error {
	if _, err := exec.LookPath("ps"); err != nil {
		return fmt.Errorf("%w: %v", ErrResolverUnavailable, err)
	}
	return nil
}

func (p *psResolver) QueryResources(ctx context.Context, pid int) (ResourceSample, error) {
	out, err := p.run(ctx, "ps", "-p", strconv.Itoa(pid), "-o", "utime=,stime=,rss=")
	if err != nil {
		return ResourceSample{}, err
	}

	sample, err := parsePSResources(string(out))
	if err != nil {
		return ResourceSample{}, err
	}
	sample.Timestamp = time.Now()
	return sample, nil
}

func (p *psResolver) QueryConnections(ctx context.Context, pid int) ([]Connection, error) {
	return nil, fmt.Errorf("%w: ps does not enumerate connections", ErrResolverUnavailable)
}

// parsePSResources parses `ps -o utime=,stime=,rss=` output: two cumulative
// CPU time columns and an RSS in kilobytes.
func parsePSResources(out string) (ResourceSample, error) {
	fields := strings.Fields(out)
	if len(fields) < 3 {
		return ResourceSample{}, fmt.Errorf("unexpected ps output %q", strings.TrimSpace(out))
	}

	user, err := parsePSTime(fields[0])
	if err != nil {
		return ResourceSample{}, fmt.Errorf("bad utime %q: %w", fields[0], err)
	}
	system, err := parsePSTime(fields[1])
	if err != nil {
		return ResourceSample{}, fmt.Errorf("bad stime %q: %w", fields[1], err)
	}
	rssKB, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return ResourceSample{}, fmt.Errorf("bad rss %q: %w", fields[2], err)
	}

	return ResourceSample{
		CPUUser:        user,
		CPUSystem:      system,
		MemoryResident: rssKB * 1024,
	}, nil
}

// parsePSTime parses ps cumulative CPU time: [[dd-]hh:]mm:ss, with an
// optional fractional second (BSD ps prints centiseconds).
func parsePSTime(s string) (time.Duration, error) {
	var days uint64
	if dash := strings.Index(s, "-"); dash >= 0 {
		d, err := strconv.ParseUint(s[:dash], 10, 32)
		if err != nil {
			return 0, err
		}
		days = d
		s = s[dash+1:]
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("unexpected time format %q", s)
	}

	seconds, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.ParseUint(parts[len(parts)-2], 10, 32)
	if err != nil {
		return 0, err
	}
	var hours uint64
	if len(parts) == 3 {
		if hours, err = strconv.ParseUint(parts[0], 10, 32); err != nil {
			return 0, err
		}
	}

	total := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
	return total, nil
}
