package doctor

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/relaymon/relaymon/pkg/sshexec"
)

// SSHKeyCheck verifies an SSH key exists.
type SSHKeyCheck struct{}

func (c *SSHKeyCheck) Name() string     { return "ssh_key" }
func (c *SSHKeyCheck) Category() string { return "SSH" }

func (c *SSHKeyCheck) Run() CheckResult {
	home, err := os.UserHomeDir()
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "Cannot determine home directory",
			Suggestion: "Check HOME environment variable",
		}
	}

	// Check common key locations in order of preference
	keyPaths := []string{
		filepath.Join(home, ".ssh", "id_ed25519"),
		filepath.Join(home, ".ssh", "id_rsa"),
		filepath.Join(home, ".ssh", "id_ecdsa"),
	}

	for _, keyPath := range keyPaths {
		pubKeyPath := keyPath + ".pub"
		if _, err := os.Stat(pubKeyPath); err == nil {
			keyName := filepath.Base(pubKeyPath)
			return CheckResult{
				Name:    c.Name(),
				Status:  StatusPass,
				Message: fmt.Sprintf("SSH key found: ~/.ssh/%s", keyName),
			}
		}
	}

	return CheckResult{
		Name:       c.Name(),
		Status:     StatusWarn,
		Message:    "No SSH key found in ~/.ssh",
		Suggestion: "Generate one with: ssh-keygen -t ed25519",
	}
}

// SSHAgentCheck verifies the SSH agent is running with keys loaded.
type SSHAgentCheck struct{}

func (c *SSHAgentCheck) Name() string     { return "ssh_agent" }
func (c *SSHAgentCheck) Category() string { return "SSH" }

func (c *SSHAgentCheck) Run() CheckResult {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		// The identity file fallback still works without an agent.
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent not running",
			Suggestion: "Start it with: eval $(ssh-agent) && ssh-add",
		}
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent socket not accessible",
			Suggestion: "Restart it with: eval $(ssh-agent) && ssh-add",
		}
	}
	conn.Close() //nolint:errcheck // Best-effort close, error not actionable

	cmd := exec.Command("ssh-add", "-l")
	output, err := cmd.Output()
	if err != nil {
		// Exit code 1 means no keys loaded
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return CheckResult{
				Name:       c.Name(),
				Status:     StatusWarn,
				Message:    "SSH agent running but no keys loaded",
				Suggestion: "Add a key with: ssh-add",
			}
		}
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "Cannot query SSH agent",
			Suggestion: "Check the agent with: ssh-add -l",
		}
	}

	keyCount := 0
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		if strings.TrimSpace(line) != "" {
			keyCount++
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("SSH agent running with %d key%s loaded", keyCount, pluralize(keyCount)),
	}
}

// SSHConnectivityCheck dials the remote host. After a passing Run, Client
// returns the open connection for later stages to reuse.
type SSHConnectivityCheck struct {
	Host    string
	Params  sshexec.Params
	Timeout time.Duration // 0 means 10s

	client *sshexec.Client
}

func (c *SSHConnectivityCheck) Name() string     { return "ssh_connect" }
func (c *SSHConnectivityCheck) Category() string { return "SSH" }

// Client returns the connection opened by Run, or nil if the dial failed.
// The caller owns closing it.
func (c *SSHConnectivityCheck) Client() *sshexec.Client { return c.client }

func (c *SSHConnectivityCheck) Run() CheckResult {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	client, err := sshexec.DialWith(c.Host, timeout, c.Params)
	if err != nil {
		msg, suggestion := errorDetail(err)
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    msg,
			Suggestion: suggestion,
		}
	}

	c.client = client
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Connected to %s (%s)", client.Host, client.Address),
	}
}

// RemoteProcCheck verifies the remote host exposes a readable /proc, which
// the ssh resolver scrapes for every query.
type RemoteProcCheck struct {
	Runner interface {
		Exec(cmd string) (stdout, stderr []byte, exitCode int, err error)
	}
}

func (c *RemoteProcCheck) Name() string     { return "remote_proc" }
func (c *RemoteProcCheck) Category() string { return "REMOTE" }

func (c *RemoteProcCheck) Run() CheckResult {
	if c.Runner == nil {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusSkip,
			Message: "Remote /proc not probed, no SSH connection",
		}
	}

	_, _, exitCode, err := c.Runner.Exec("test -r /proc/uptime")
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Cannot probe /proc on the remote host: %v", err),
			Suggestion: "Check the SSH connection",
		}
	}

	if exitCode != 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "/proc is not readable on the remote host",
			Suggestion: "Remote monitoring needs a Linux host with /proc mounted",
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "/proc is readable on the remote host",
	}
}
