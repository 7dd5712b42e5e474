package procinfo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/relaymon/relaymon/internal/errors"
)

// Runner runs one command on a remote host and reports its output and exit
// code. *sshexec.Client satisfies it.
type Runner interface {
	Exec(cmd string) (stdout, stderr []byte, exitCode int, err error)
}

// FindRemote resolves the target to a live PID on a remote host, with the
// same locator precedence as Find. Pidfiles are read with cat, name scans
// use pgrep, and liveness is probed through /proc.
func FindRemote(runner Runner, target Target) (int, error) {
	switch {
	case target.PID > 0:
		return verifyRemote(runner, target.PID, fmt.Sprintf("pid %d", target.PID))
	case target.PIDFile != "":
		pid, err := readRemotePIDFile(runner, target.PIDFile)
		if err != nil {
			return 0, err
		}
		return verifyRemote(runner, pid, fmt.Sprintf("pidfile %s", target.PIDFile))
	case target.Name != "":
		return findRemoteByName(runner, target.Name)
	default:
		return 0, errors.New(errors.ErrProcess,
			"no process to monitor was named",
			"Set daemon.name, daemon.pid_file, or pass --pid")
	}
}

// findRemoteByName runs pgrep on the remote host. The exactly-one-match rule
// from FindByName applies.
func findRemoteByName(runner Runner, name string) (int, error) {
	out, stderr, code, err := runner.Exec("pgrep -x " + shellQuote(name))
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to run pgrep on the remote host",
			"Check the SSH connection is healthy")
	}
	// pgrep exits 1 when nothing matched
	if code == 1 {
		return 0, errors.New(errors.ErrProcess,
			fmt.Sprintf("no process named %q is running on the remote host", name),
			"Check the daemon is up, or monitor it by --pid or daemon.pid_file")
	}
	if code != 0 {
		return 0, errors.New(errors.ErrProcess,
			fmt.Sprintf("pgrep failed on the remote host%s", remoteDetail(stderr)),
			"Check pgrep is installed on the remote host")
	}

	var pids []int
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil || pid <= 0 {
			return 0, errors.New(errors.ErrProcess,
				fmt.Sprintf("unexpected pgrep output %q from the remote host", line),
				"Check pgrep on the remote host behaves like procps pgrep")
		}
		pids = append(pids, pid)
	}

	switch len(pids) {
	case 0:
		return 0, errors.New(errors.ErrProcess,
			fmt.Sprintf("no process named %q is running on the remote host", name),
			"Check the daemon is up, or monitor it by --pid or daemon.pid_file")
	case 1:
		return pids[0], nil
	default:
		strs := make([]string, len(pids))
		for i, pid := range pids {
			strs[i] = strconv.Itoa(pid)
		}
		return 0, errors.New(errors.ErrProcess,
			fmt.Sprintf("%d processes named %q are running on the remote host (pids %s)", len(pids), name, strings.Join(strs, ", ")),
			"Pick one with --pid or daemon.pid_file")
	}
}

// readRemotePIDFile reads and parses a pidfile on the remote host.
func readRemotePIDFile(runner Runner, path string) (int, error) {
	out, stderr, code, err := runner.Exec("cat " + shellQuote(path))
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Failed to read remote pidfile %s", path),
			"Check the SSH connection is healthy")
	}
	if code != 0 {
		return 0, errors.New(errors.ErrProcess,
			fmt.Sprintf("Failed to read remote pidfile %s%s", path, remoteDetail(stderr)),
			"Check daemon.pid_file points at the daemon's pidfile on the remote host")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil || pid <= 0 {
		return 0, errors.New(errors.ErrProcess,
			fmt.Sprintf("remote pidfile %s does not contain a pid (%q)", path, strings.TrimSpace(string(out))),
			"The file should hold a single process id")
	}
	return pid, nil
}

// verifyRemote confirms the PID is live on the remote host via /proc, the
// same probe the ssh resolver uses for availability.
func verifyRemote(runner Runner, pid int, source string) (int, error) {
	_, stderr, code, err := runner.Exec(fmt.Sprintf("test -d /proc/%d", pid))
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Failed to check process from %s on the remote host", source),
			"Check the SSH connection is healthy")
	}
	if code != 0 {
		return 0, errors.New(errors.ErrProcess,
			fmt.Sprintf("process from %s is not running on the remote host%s", source, remoteDetail(stderr)),
			"Start the daemon, or update the stale pid")
	}
	return pid, nil
}

// shellQuote single-quotes s for the remote shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// remoteDetail formats captured stderr for inclusion in an error message.
func remoteDetail(stderr []byte) string {
	s := strings.TrimSpace(string(stderr))
	if s == "" {
		return ""
	}
	return ": " + s
}
