package sshexec

import (
	"bytes"
	stderrors "errors"
	"fmt"

	"golang.org/x/crypto/ssh"

	"github.com/relaymon/relaymon/internal/errors"
)

// Exec runs a command on the remote host and captures its output. A non-zero
// exit status is not an error: it comes back in exitCode with err nil, so
// callers can tell "command said no" from "transport broke".
func (c *Client) Exec(cmd string) (stdout, stderr []byte, exitCode int, err error) {
	session, err := c.NewSession()
	if err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't open a session on '%s'", c.Host),
			"The connection may have dropped. Try reconnecting.")
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	if err := session.Run(cmd); err != nil {
		var exitErr *ssh.ExitError
		if stderrors.As(err, &exitErr) {
			return stdoutBuf.Bytes(), stderrBuf.Bytes(), exitErr.ExitStatus(), nil
		}
		return stdoutBuf.Bytes(), stderrBuf.Bytes(), -1, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Command failed on '%s': %s", c.Host, cmd),
			"Check the connection is still up: ssh "+c.Host)
	}

	return stdoutBuf.Bytes(), stderrBuf.Bytes(), 0, nil
}
