package doctor

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/relaymon/relaymon/internal/procinfo"
)

// scriptRunner answers remote commands from a canned table.
type scriptRunner struct {
	responses map[string]scriptResult
}

type scriptResult struct {
	stdout string
	code   int
	err    error
}

func (r *scriptRunner) Exec(cmd string) ([]byte, []byte, int, error) {
	res, ok := r.responses[cmd]
	if !ok {
		return nil, nil, 127, nil
	}
	return []byte(res.stdout), nil, res.code, res.err
}

func TestProcessCheck_NoTarget(t *testing.T) {
	check := &ProcessCheck{}

	result := check.Run()

	if result.Status != StatusWarn {
		t.Fatalf("expected warn, got %s", result.Status)
	}
	if check.PID() != 0 {
		t.Errorf("expected no pid, got %d", check.PID())
	}
}

func TestProcessCheck_LocalPID(t *testing.T) {
	check := &ProcessCheck{Target: procinfo.Target{PID: os.Getpid()}}

	result := check.Run()

	if result.Status != StatusPass {
		t.Fatalf("expected pass, got %s: %s", result.Status, result.Message)
	}
	if check.PID() != os.Getpid() {
		t.Errorf("expected pid %d, got %d", os.Getpid(), check.PID())
	}
}

func TestProcessCheck_RemotePID(t *testing.T) {
	runner := &scriptRunner{responses: map[string]scriptResult{
		"test -d /proc/42": {code: 0},
	}}
	check := &ProcessCheck{Target: procinfo.Target{PID: 42}, Runner: runner}

	result := check.Run()

	if result.Status != StatusPass {
		t.Fatalf("expected pass, got %s: %s", result.Status, result.Message)
	}
	if check.PID() != 42 {
		t.Errorf("expected pid 42, got %d", check.PID())
	}
}

func TestProcessCheck_RemoteNameNotRunning(t *testing.T) {
	runner := &scriptRunner{responses: map[string]scriptResult{
		"pgrep -x 'relayd'": {code: 1},
	}}
	check := &ProcessCheck{Target: procinfo.Target{Name: "relayd"}, Runner: runner}

	result := check.Run()

	if result.Status != StatusFail {
		t.Fatalf("expected fail, got %s: %s", result.Status, result.Message)
	}
	if !strings.Contains(result.Message, "relayd") {
		t.Errorf("message should name the daemon, got %q", result.Message)
	}
	if check.PID() != 0 {
		t.Errorf("expected no pid, got %d", check.PID())
	}
}

func TestProcessMessage(t *testing.T) {
	tests := []struct {
		target procinfo.Target
		want   string
	}{
		{procinfo.Target{Name: "relayd"}, `Daemon "relayd" resolved to pid 7`},
		{procinfo.Target{PIDFile: "/run/relayd.pid"}, "Pid file /run/relayd.pid resolved to pid 7"},
		{procinfo.Target{PID: 7}, "Pid 7 is running"},
	}

	for i, tc := range tests {
		t.Run(fmt.Sprintf("case%d", i), func(t *testing.T) {
			if got := processMessage(tc.target, 7); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
