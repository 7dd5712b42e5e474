package tracker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// lsofResolver shells out to lsof for the connection table. It is the
// connections fallback on hosts without a readable procfs, and the remote
// half of the ssh resolver reuses its parser.
type lsofResolver struct {
	run commandRunner
}

// NewLsofResolver returns the lsof-backed connections resolver.
func NewLsofResolver() Resolver {
	return &lsofResolver{run: execRunner}
}

func (l *lsofResolver) Name() string { return ResolverLsof }

func (l *lsofResolver) Capabilities() Capability { return CapConnections }

// Available requires the lsof binary on PATH.
func (l *lsofResolver) Available(pid int) error {
	if _, err := exec.LookPath("lsof"); err != nil {
		return fmt.Errorf("%w: %v", ErrResolverUnavailable, err)
	}
	return nil
}

func (l *lsofResolver) QueryResources(ctx context.Context, pid int) (ResourceSample, error) {
	return ResourceSample{}, fmt.Errorf("%w: lsof does not report resource usage", ErrResolverUnavailable)
}

func (l *lsofResolver) QueryConnections(ctx context.Context, pid int) ([]Connection, error) {
	out, err := l.run(ctx, "lsof", "-nP", "-i", "-a", "-p", strconv.Itoa(pid))
	if err != nil {
		// lsof exits 1 when the process has no open network files. Only
		// treat that as an empty table, not as a query failure.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && len(strings.TrimSpace(string(out))) == 0 {
			return nil, nil
		}
		return nil, err
	}
	return parseLsofConnections(string(out))
}

// parseLsofConnections parses `lsof -nP -i` output. Listeners have no
// "->" in the NAME column and are skipped; TCP rows are kept only when
// established, UDP rows carry no state and are always kept.
func parseLsofConnections(out string) ([]Connection, error) {
	var conns []Connection

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "COMMAND") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 9 {
			return nil, fmt.Errorf("unexpected lsof line %q", line)
		}

		name := fields[8]
		arrow := strings.Index(name, "->")
		if arrow < 0 {
			continue
		}
		if len(fields) > 9 && fields[9] != "(ESTABLISHED)" {
			continue
		}

		localAddr, localPort, err := parseLsofAddr(name[:arrow])
		if err != nil {
			return nil, fmt.Errorf("bad local endpoint in %q: %w", line, err)
		}
		remoteAddr, remotePort, err := parseLsofAddr(name[arrow+2:])
		if err != nil {
			return nil, fmt.Errorf("bad remote endpoint in %q: %w", line, err)
		}

		proto := strings.ToLower(fields[7])
		if fields[4] == "IPv6" {
			proto += "6"
		}

		conns = append(conns, Connection{
			LocalAddr:  localAddr,
			LocalPort:  localPort,
			RemoteAddr: remoteAddr,
			RemotePort: remotePort,
			Protocol:   proto,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return conns, nil
}

// parseLsofAddr splits "1.2.3.4:443" or "[::1]:443" into host and port.
func parseLsofAddr(s string) (string, uint16, error) {
	colon := strings.LastIndex(s, ":")
	if colon < 0 {
		return "", 0, fmt.Errorf("no port in %q", s)
	}

	host := strings.Trim(s[:colon], "[]")
	port, err := strconv.ParseUint(s[colon+1:], 10, 16)
	if err != nil {
		return "", 0, err
	}
	return host, uint16(port), nil
}
