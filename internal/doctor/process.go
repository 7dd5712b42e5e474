package doctor

import (
	"context"
	"fmt"

	"github.com/relaymon/relaymon/internal/procinfo"
)

// ProcessCheck verifies that the configured daemon target resolves to a
// live process. After a passing Run, PID reports the resolved pid so later
// stages (resolver probes) can reuse it.
type ProcessCheck struct {
	Target procinfo.Target
	Runner procinfo.Runner // nil resolves locally

	pid int
}

func (c *ProcessCheck) Name() string     { return "daemon_process" }
func (c *ProcessCheck) Category() string { return "PROCESS" }

// PID returns the pid resolved by Run, or 0 if resolution failed.
func (c *ProcessCheck) PID() int { return c.pid }

func (c *ProcessCheck) Run() CheckResult {
	if c.Target == (procinfo.Target{}) {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "No daemon target configured",
			Suggestion: "Set daemon.name, daemon.pid_file, or daemon.pid in .relaymon.yaml, or pass --pid, --pid-file, or --name",
		}
	}

	var (
		pid int
		err error
	)
	if c.Runner != nil {
		pid, err = procinfo.FindRemote(c.Runner, c.Target)
	} else {
		pid, err = procinfo.Find(context.Background(), c.Target)
	}
	if err != nil {
		msg, suggestion := errorDetail(err)
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    msg,
			Suggestion: suggestion,
		}
	}

	c.pid = pid
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: processMessage(c.Target, pid),
	}
}

func processMessage(target procinfo.Target, pid int) string {
	switch {
	case target.Name != "":
		return fmt.Sprintf("Daemon %q resolved to pid %d", target.Name, pid)
	case target.PIDFile != "":
		return fmt.Sprintf("Pid file %s resolved to pid %d", target.PIDFile, pid)
	default:
		return fmt.Sprintf("Pid %d is running", pid)
	}
}
