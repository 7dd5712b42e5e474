package tracker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/relaymon/relaymon/internal/procfs"
)

// remoteRunner runs one command on the monitored host and reports its
// output and exit code. *sshexec.Client satisfies it.
type remoteRunner interface {
	Exec(cmd string) (stdout, stderr []byte, exitCode int, err error)
}

// sshResolver queries a remote host's procfs and lsof over an existing SSH
// connection. Each resources query is a single batched remote command so one
// round trip covers stat, statm, descriptor count, limits and the host's
// tick and page constants.
type sshResolver struct {
	runner remoteRunner
}

// sshSectionSep separates the outputs inside the batched resources command.
const sshSectionSep = "\n--//--\n"

// NewSSHResolver returns a resolver that reads the process through the
// given remote connection.
func NewSSHResolver(runner remoteRunner) Resolver {
	return &sshResolver{runner: runner}
}

func (s *sshResolver) Name() string { return ResolverSSH }

func (s *sshResolver) Capabilities() Capability { return CapResources | CapConnections }

// Available probes for the process directory on the remote host. A transport
// failure or a missing /proc/<pid> both disqualify the resolver.
func (s *sshResolver) Available(pid int) error {
	_, stderr, code, err := s.runner.Exec(fmt.Sprintf("test -d /proc/%d", pid))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResolverUnavailable, err)
	}
	if code != 0 {
		return fmt.Errorf("%w: no /proc/%d on remote host%s", ErrResolverUnavailable, pid, stderrSuffix(stderr))
	}
	return nil
}

func (s *sshResolver) QueryResources(ctx context.Context, pid int) (ResourceSample, error) {
	if err := ctx.Err(); err != nil {
		return ResourceSample{}, err
	}

	sep := strings.TrimSpace(sshSectionSep)
	cmd := fmt.Sprintf(
		"cat /proc/%d/stat && echo %s && cat /proc/%d/statm && echo %s && ls /proc/%d/fd | wc -l && echo %s && cat /proc/%d/limits && echo %s && getconf CLK_TCK && echo %s && getconf PAGESIZE",
		pid, sep, pid, sep, pid, sep, pid, sep, sep)

	stdout, stderr, code, err := s.runner.Exec(cmd)
	if err != nil {
		return ResourceSample{}, err
	}
	if code != 0 {
		return ResourceSample{}, remoteError("resources query", code, stderr)
	}

	sample, err := parseRemoteResources(string(stdout))
	if err != nil {
		return ResourceSample{}, err
	}
	sample.Timestamp = time.Now()
	return sample, nil
}

func (s *sshResolver) QueryConnections(ctx context.Context, pid int) ([]Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stdout, stderr, code, err := s.runner.Exec(fmt.Sprintf("lsof -nP -i -a -p %d", pid))
	if err != nil {
		return nil, err
	}
	// Remote lsof exits 1 with no output when the process holds no
	// network files.
	if code == 1 && len(strings.TrimSpace(string(stdout))) == 0 && len(strings.TrimSpace(string(stderr))) == 0 {
		return nil, nil
	}
	if code != 0 {
		return nil, remoteError("connections query", code, stderr)
	}
	return parseLsofConnections(string(stdout))
}

// parseRemoteResources assembles a sample from the batched command output,
// converting tick and page counts with the remote host's own constants.
func parseRemoteResources(out string) (ResourceSample, error) {
	sections := strings.Split(out, sshSectionSep)
	if len(sections) != 6 {
		return ResourceSample{}, fmt.Errorf("expected 6 output sections, got %d", len(sections))
	}

	st, err := procfs.ParseStat(sections[0])
	if err != nil {
		return ResourceSample{}, err
	}
	pages, err := procfs.ParseStatmPages(sections[1])
	if err != nil {
		return ResourceSample{}, err
	}
	fds, err := strconv.Atoi(strings.TrimSpace(sections[2]))
	if err != nil {
		return ResourceSample{}, fmt.Errorf("bad fd count %q: %w", strings.TrimSpace(sections[2]), err)
	}
	limit, err := procfs.ParseFDLimit(sections[3])
	if err != nil {
		return ResourceSample{}, err
	}
	hz, err := strconv.Atoi(strings.TrimSpace(sections[4]))
	if err != nil {
		return ResourceSample{}, fmt.Errorf("bad CLK_TCK %q: %w", strings.TrimSpace(sections[4]), err)
	}
	pageSize, err := strconv.ParseUint(strings.TrimSpace(sections[5]), 10, 64)
	if err != nil {
		return ResourceSample{}, fmt.Errorf("bad PAGESIZE %q: %w", strings.TrimSpace(sections[5]), err)
	}

	return ResourceSample{
		CPUUser:        procfs.TicksToDuration(st.UTime, hz),
		CPUSystem:      procfs.TicksToDuration(st.STime, hz),
		MemoryResident: pages * pageSize,
		FDsUsed:        fds,
		FDsLimit:       limit,
	}, nil
}

// remoteError classifies a nonzero remote exit, surfacing permission
// problems so the caller can report them distinctly.
func remoteError(what string, code int, stderr []byte) error {
	msg := strings.TrimSpace(string(stderr))
	if strings.Contains(msg, "Permission denied") {
		return fmt.Errorf("%w: remote %s: %s", ErrPermissionDenied, what, msg)
	}
	if msg == "" {
		return fmt.Errorf("remote %s exited %d", what, code)
	}
	return fmt.Errorf("remote %s exited %d: %s", what, code, msg)
}

func stderrSuffix(stderr []byte) string {
	msg := strings.TrimSpace(string(stderr))
	if msg == "" {
		return ""
	}
	return ": " + msg
}
