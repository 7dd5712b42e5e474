// Package procinfo locates the relay daemon process to monitor.
//
// The daemon can be named three ways, tried in order of specificity: an
// explicit PID, a pidfile, or a process name scanned from the process table.
package procinfo

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/relaymon/relaymon/internal/errors"
)

// Target describes how to locate the monitored daemon. Zero-valued fields
// are skipped; the first populated locator wins.
type Target struct {
	PID     int
	PIDFile string
	Name    string
}

// Find resolves the target to a live PID. The resolved process is verified
// to exist; a stale pidfile or a dead explicit PID is an error rather than a
// silent zero.
func Find(ctx context.Context, target Target) (int, error) {
	switch {
	case target.PID > 0:
		return verify(ctx, target.PID, fmt.Sprintf("pid %d", target.PID))
	case target.PIDFile != "":
		pid, err := readPIDFile(target.PIDFile)
		if err != nil {
			return 0, err
		}
		return verify(ctx, pid, fmt.Sprintf("pidfile %s", target.PIDFile))
	case target.Name != "":
		return FindByName(ctx, target.Name)
	default:
		return 0, errors.New(errors.ErrProcess,
			"no process to monitor was named",
			"Set daemon.name, daemon.pid_file, or pass --pid")
	}
}

// FindByName scans the process table for a process with the given name.
// Exactly one match is required: none is a lookup failure, several means the
// caller must disambiguate with a PID or pidfile.
func FindByName(ctx context.Context, name string) (int, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrProcess,
			"Failed to scan the process table",
			"Pass --pid or set daemon.pid_file to skip the name lookup")
	}

	var matches []int32
	for _, p := range procs {
		pname, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if pname == name {
			matches = append(matches, p.Pid)
		}
	}

	switch len(matches) {
	case 0:
		return 0, errors.New(errors.ErrProcess,
			fmt.Sprintf("no process named %q is running", name),
			"Check the daemon is up, or monitor it by --pid or daemon.pid_file")
	case 1:
		return int(matches[0]), nil
	default:
		pids := make([]string, len(matches))
		for i, pid := range matches {
			pids[i] = strconv.Itoa(int(pid))
		}
		return 0, errors.New(errors.ErrProcess,
			fmt.Sprintf("%d processes named %q are running (pids %s)", len(matches), name, strings.Join(pids, ", ")),
			"Pick one with --pid or daemon.pid_file")
	}
}

// readPIDFile parses a pidfile: a single decimal PID, surrounding
// whitespace tolerated.
func readPIDFile(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrProcess,
			fmt.Sprintf("Failed to read pidfile %s", path),
			"Check daemon.pid_file points at the daemon's pidfile")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || pid <= 0 {
		return 0, errors.New(errors.ErrProcess,
			fmt.Sprintf("pidfile %s does not contain a pid (%q)", path, strings.TrimSpace(string(b))),
			"The file should hold a single process id")
	}
	return pid, nil
}

// StartTime reports when the process started. Callers treat an error as
// "unknown" and fall back to session-relative uptime.
func StartTime(ctx context.Context, pid int) (time.Time, error) {
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return time.Time{}, err
	}
	ms, err := p.CreateTimeWithContext(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

// verify confirms the PID refers to a live process.
func verify(ctx context.Context, pid int, source string) (int, error) {
	alive, err := process.PidExistsWithContext(ctx, int32(pid))
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrProcess,
			fmt.Sprintf("Failed to check process from %s", source),
			"Verify the process table is readable")
	}
	if !alive {
		return 0, errors.New(errors.ErrProcess,
			fmt.Sprintf("process from %s is not running", source),
			"Start the daemon, or update the stale pid")
	}
	return pid, nil
}
