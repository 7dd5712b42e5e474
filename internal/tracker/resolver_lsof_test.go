package tracker

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lsofOutput = `COMMAND  PID USER   FD   TYPE DEVICE SIZE/OFF NODE NAME
relayd  1234  tor    5u  IPv4  54321      0t0  TCP 127.0.0.1:9051 (LISTEN)
relayd  1234  tor    6u  IPv4  54322      0t0  TCP 192.168.1.10:41500->1.91.189.91:443 (ESTABLISHED)
relayd  1234  tor    7u  IPv6  54323      0t0  TCP [::1]:8080->[::1]:35554 (ESTABLISHED)
relayd  1234  tor    8u  IPv4  54324      0t0  UDP 192.168.1.10:53433->9.9.9.9:53
relayd  1234  tor    9u  IPv4  54325      0t0  TCP 10.0.0.5:41502->8.8.8.8:443 (CLOSE_WAIT)
`

func TestParseLsofConnections(t *testing.T) {
	conns, err := parseLsofConnections(lsofOutput)
	require.NoError(t, err)

	// Listener and half-closed rows are dropped; established TCP and
	// stateless UDP survive.
	require.Len(t, conns, 3)

	assert.Equal(t, Connection{
		LocalAddr: "192.168.1.10", LocalPort: 41500,
		RemoteAddr: "1.91.189.91", RemotePort: 443,
		Protocol: "tcp",
	}, conns[0])
	assert.Equal(t, Connection{
		LocalAddr: "::1", LocalPort: 8080,
		RemoteAddr: "::1", RemotePort: 35554,
		Protocol: "tcp6",
	}, conns[1])
	assert.Equal(t, Connection{
		LocalAddr: "192.168.1.10", LocalPort: 53433,
		RemoteAddr: "9.9.9.9", RemotePort: 53,
		Protocol: "udp",
	}, conns[2])
}

func TestParseLsofConnectionsEmpty(t *testing.T) {
	conns, err := parseLsofConnections("")
	require.NoError(t, err)
	assert.Empty(t, conns)

	conns, err = parseLsofConnections("COMMAND  PID USER   FD   TYPE DEVICE SIZE/OFF NODE NAME\n")
	require.NoError(t, err)
	assert.Empty(t, conns)
}

func TestParseLsofConnectionsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"short row", "relayd 1234 tor 6u IPv4\n"},
		{"bad local port", "relayd 1234 tor 6u IPv4 54322 0t0 TCP 1.2.3.4:x->5.6.7.8:443 (ESTABLISHED)\n"},
		{"bad remote endpoint", "relayd 1234 tor 6u IPv4 54322 0t0 TCP 1.2.3.4:443->noport (ESTABLISHED)\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseLsofConnections(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestParseLsofAddr(t *testing.T) {
	tests := []struct {
		input    string
		wantHost string
		wantPort uint16
	}{
		{"1.2.3.4:443", "1.2.3.4", 443},
		{"[::1]:9001", "::1", 9001},
		{"[2001:db8::5]:443", "2001:db8::5", 443},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			host, port, err := parseLsofAddr(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPort, port)
		})
	}

	for _, input := range []string{"noport", "1.2.3.4:x", "1.2.3.4:70000"} {
		t.Run(input, func(t *testing.T) {
			_, _, err := parseLsofAddr(input)
			assert.Error(t, err)
		})
	}
}

func TestLsofResolverQueryConnections(t *testing.T) {
	var gotArgs []string
	r := &lsofResolver{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte(lsofOutput), nil
	}}

	conns, err := r.QueryConnections(context.Background(), 1234)
	require.NoError(t, err)
	assert.Equal(t, []string{"lsof", "-nP", "-i", "-a", "-p", "1234"}, gotArgs)
	assert.Len(t, conns, 3)
}

func TestLsofResolverTreatsExitOneAsEmpty(t *testing.T) {
	// lsof signals "no matching files" with exit 1 and no output. Use a
	// real exit error since exec does not allow fabricating one.
	_, realErr := exec.Command("sh", "-c", "exit 1").Output()
	var exitErr *exec.ExitError
	require.ErrorAs(t, realErr, &exitErr)
	require.Equal(t, 1, exitErr.ExitCode())

	r := &lsofResolver{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, realErr
	}}

	conns, err := r.QueryConnections(context.Background(), 1234)
	require.NoError(t, err)
	assert.Empty(t, conns)
}

func TestLsofResolverCommandFailure(t *testing.T) {
	wantErr := errors.New("lsof missing")
	r := &lsofResolver{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, wantErr
	}}

	_, err := r.QueryConnections(context.Background(), 1234)
	assert.ErrorIs(t, err, wantErr)
}

func TestLsofResolverShape(t *testing.T) {
	r := NewLsofResolver()
	assert.Equal(t, ResolverLsof, r.Name())
	assert.Equal(t, CapConnections, r.Capabilities())

	_, err := r.QueryResources(context.Background(), 1)
	assert.ErrorIs(t, err, ErrResolverUnavailable)
}
