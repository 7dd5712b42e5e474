// Package sshexec dials a remote relay host and runs the query commands the
// ssh resolver needs. Connection settings resolve from ~/.ssh/config with
// explicit config overrides on top, auth comes from the agent or key files,
// and host keys are checked against known_hosts unless disabled.
package sshexec

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/kevinburke/ssh_config"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/relaymon/relaymon/internal/errors"
)

// Client is an established SSH connection to the relay host.
type Client struct {
	*ssh.Client
	Host    string // host or alias as configured
	Address string // resolved host:port
}

// Params are explicit connection settings from the remote config section.
// Non-empty fields win over ~/.ssh/config and the defaults.
type Params struct {
	User         string
	Port         string
	IdentityFile string
}

// StrictHostKeyChecking controls host key verification. When false the
// server key is accepted blindly; only for throwaway automation.
var StrictHostKeyChecking = true

// WarningHandler receives non-fatal connection warnings. Defaults to
// log.Printf when nil; the CLI points it at the logger.
var WarningHandler func(message string)

var matchWarningOnce sync.Once

func warn(message string) {
	if WarningHandler != nil {
		WarningHandler(message)
		return
	}
	log.Printf("Warning: %s", message)
}

// Dial connects to the host, which may be an ssh_config alias, a hostname,
// user@hostname, or hostname:port.
func Dial(host string, timeout time.Duration) (*Client, error) {
	return DialWith(host, timeout, Params{})
}

// DialWith connects like Dial with explicit setting overrides applied after
// ssh_config resolution.
func DialWith(host string, timeout time.Duration, params Params) (*Client, error) {
	settings := resolveSettings(host)
	settings.apply(params)

	config, err := clientConfig(settings)
	if err != nil {
		var appErr *errors.Error
		if stderrors.As(err, &appErr) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't set up SSH for '%s'", host),
			"Check your keys are loaded: ssh-add -l")
	}

	address := settings.address()
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach '%s' at %s", host, address),
			suggestionForDialError(err))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()

		var hostKeyErr *HostKeyMismatchError
		if stderrors.As(err, &hostKeyErr) {
			return nil, errors.New(errors.ErrSSH, hostKeyErr.Error(), hostKeyErr.Suggestion())
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", host),
			suggestionForHandshakeError(err, settings.encryptedKeys))
	}

	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Host:    host,
		Address: address,
	}, nil
}

// Close shuts the connection down.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// settings holds the resolved connection parameters for one host.
type settings struct {
	hostname      string
	port          string
	user          string
	identityFile  string
	encryptedKeys []string // key files found but passphrase protected
}

func (s *settings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

func (s *settings) apply(p Params) {
	if p.User != "" {
		s.user = p.User
	}
	if p.Port != "" {
		s.port = p.Port
	}
	if p.IdentityFile != "" {
		s.identityFile = expandPath(p.IdentityFile)
	}
}

// resolveSettings parses the host string and fills in whatever ~/.ssh/config
// knows about it. A missing or unreadable ssh config just leaves the
// defaults standing.
func resolveSettings(host string) *settings {
	s := &settings{
		port: "22",
		user: currentUser(),
	}

	if at := strings.Index(host, "@"); at != -1 {
		s.user = host[:at]
		host = host[at+1:]
	}

	if colon := strings.LastIndex(host, ":"); colon != -1 {
		if port := host[colon+1:]; port != "" && allDigits(port) {
			s.port = port
			host = host[:colon]
		}
	}
	s.hostname = host

	path := filepath.Join(homeDir(), ".ssh", "config")
	content, matchLine, err := configBeforeMatch(path)
	if err != nil {
		return s
	}
	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return s
	}

	found := false
	if hostname, _ := cfg.Get(host, "HostName"); hostname != "" {
		s.hostname = hostname
		found = true
	}
	if port, _ := cfg.Get(host, "Port"); port != "" {
		s.port = port
		found = true
	}
	if user, _ := cfg.Get(host, "User"); user != "" {
		s.user = user
		found = true
	}
	if identity, _ := cfg.Get(host, "IdentityFile"); identity != "" {
		s.identityFile = expandPath(identity)
		found = true
	}

	// The ssh_config library cannot parse Match, so entries after the
	// first Match block are invisible to us.
	if matchLine > 0 && !found {
		matchWarningOnce.Do(func() {
			warn(fmt.Sprintf(
				"Host '%s' not found in SSH config before the Match block at line %d. "+
					"Move its entry above line %d or set remote.* explicitly.",
				host, matchLine, matchLine))
		})
	}
	return s
}

// clientConfig assembles auth methods and the host key policy. Encrypted
// keys that could not be used are collected on settings for the error
// suggestions.
func clientConfig(s *settings) (*ssh.ClientConfig, error) {
	var authMethods []ssh.AuthMethod

	tryKeyFile := func(keyPath string) {
		auth, err := keyFileAuth(keyPath)
		if err != nil {
			var encErr *EncryptedKeyError
			if stderrors.As(err, &encErr) {
				s.encryptedKeys = append(s.encryptedKeys, keyPath)
			}
			return
		}
		authMethods = append(authMethods, auth)
	}

	if agentAuth := sshAgentAuth(); agentAuth != nil {
		authMethods = append(authMethods, agentAuth)
	}
	if s.identityFile != "" {
		tryKeyFile(s.identityFile)
	}
	for _, keyPath := range []string{
		filepath.Join(homeDir(), ".ssh", "id_ed25519"),
		filepath.Join(homeDir(), ".ssh", "id_rsa"),
		filepath.Join(homeDir(), ".ssh", "id_ecdsa"),
	} {
		if keyPath != s.identityFile {
			tryKeyFile(keyPath)
		}
	}

	if len(authMethods) == 0 {
		msg := "No SSH auth methods available"
		suggestion := "Check your keys are loaded: ssh-add -l"
		if len(s.encryptedKeys) > 0 {
			msg = fmt.Sprintf("Found SSH key(s) but they're encrypted: %s", strings.Join(s.encryptedKeys, ", "))
			suggestion = addKeysSuggestion(s.encryptedKeys)
		}
		return nil, errors.New(errors.ErrSSH, msg, suggestion)
	}

	var hostKeyCallback ssh.HostKeyCallback
	if StrictHostKeyChecking {
		var err error
		hostKeyCallback, err = hostKeyChecker(filepath.Join(homeDir(), ".ssh", "known_hosts"))
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts: %w", err)
		}
	} else {
		hostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // explicitly disabled by the user
	}

	return &ssh.ClientConfig{
		User:            s.user,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         10 * time.Second,
	}, nil
}

var (
	agentConn     net.Conn
	agentClient   agent.ExtendedAgent
	agentConnOnce sync.Once
)

// sshAgentAuth returns agent-backed auth, or nil when no agent is reachable
// or it holds no keys. The agent connection is shared process-wide.
func sshAgentAuth() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	agentConnOnce.Do(func() {
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return
		}
		agentConn = conn
		agentClient = agent.NewClient(conn)
	})

	if agentClient == nil {
		return nil
	}
	signers, err := agentClient.Signers()
	if err != nil || len(signers) == 0 {
		return nil
	}
	return ssh.PublicKeysCallback(agentClient.Signers)
}

// CloseAgent releases the shared agent connection on shutdown.
func CloseAgent() {
	if agentConn != nil {
		agentConn.Close()
	}
}

// keyFileAuth loads a private key file. Keys needing a passphrase come back
// as EncryptedKeyError so callers can suggest ssh-add.
func keyFileAuth(keyPath string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		if strings.Contains(err.Error(), "encrypted") ||
			strings.Contains(err.Error(), "passphrase") ||
			isEncryptedPEM(key) {
			return nil, &EncryptedKeyError{Path: keyPath}
		}
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func suggestionForDialError(err error) string {
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "connection refused"):
		return "Is SSH running on that box? Try: ssh <host>"
	case strings.Contains(errStr, "no route to host"), strings.Contains(errStr, "network is unreachable"):
		return "Can't route to the host. Check your network connection."
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "i/o timeout"):
		return "Connection timed out. Host might be offline or blocked by a firewall."
	default:
		return "Make sure the host is reachable: ping <host>"
	}
}

func suggestionForHandshakeError(err error, encryptedKeys []string) string {
	errStr := err.Error()
	if strings.Contains(errStr, "unable to authenticate") || strings.Contains(errStr, "no supported methods") {
		if len(encryptedKeys) > 0 {
			return "Your key(s) are encrypted. " + addKeysSuggestion(encryptedKeys)
		}
		return "Auth failed. Check your keys are loaded: ssh-add -l"
	}
	if strings.Contains(errStr, "host key") {
		return "Host key issue. Try connecting manually first: ssh <host>"
	}
	return "Something went wrong during SSH setup. Try: ssh <host>"
}

func addKeysSuggestion(keys []string) string {
	var sb strings.Builder
	sb.WriteString("Add your key(s) to the agent:\n")
	for _, key := range keys {
		if runtime.GOOS == "darwin" {
			sb.WriteString(fmt.Sprintf("  ssh-add --apple-use-keychain %s\n", key))
		} else {
			sb.WriteString(fmt.Sprintf("  ssh-add %s\n", key))
		}
	}
	sb.WriteString("\nNot sure which key? Check with: ssh -v <host>")
	return sb.String()
}

// EncryptedKeyError marks a key file that needs a passphrase.
type EncryptedKeyError struct {
	Path string
}

func (e *EncryptedKeyError) Error() string {
	return fmt.Sprintf("SSH key at %s is encrypted (passphrase protected)", e.Path)
}

// HostKeyMismatchError carries enough context to explain a known_hosts
// verification failure.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
	Want         []knownhosts.KnownKey
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion returns the fix-it steps for the mismatch.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	var wantTypes []string
	for _, k := range e.Want {
		wantTypes = append(wantTypes, k.Key.Type())
	}
	wantStr := "unknown"
	if len(wantTypes) > 0 {
		wantStr = strings.Join(wantTypes, ", ")
	}

	return fmt.Sprintf(
		"The server's host key doesn't match what's in known_hosts.\n"+
			"  Known types: %s\n"+
			"  Server sent: %s\n\n"+
			"  To update known_hosts with all key types:\n"+
			"    ssh-keyscan -t rsa,ecdsa,ed25519 %s >> %s\n\n"+
			"  Or remove the old entry:\n"+
			"    ssh-keygen -R %s",
		wantStr, e.ReceivedType, host, e.KnownHosts, host)
}

// configBeforeMatch returns the ssh config content up to the first Match
// directive (which the parser cannot handle) and the 1-indexed line the
// Match was found on, 0 when absent.
func configBeforeMatch(configPath string) ([]byte, int, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	var kept []string
	matchLine := 0
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "match ") {
			matchLine = i + 1
			break
		}
		kept = append(kept, line)
	}
	return []byte(strings.Join(kept, "\n")), matchLine, nil
}

func isEncryptedPEM(data []byte) bool {
	return bytes.Contains(data, []byte("ENCRYPTED")) ||
		bytes.Contains(data, []byte("Proc-Type: 4,ENCRYPTED"))
}

// hostKeyChecker wraps the knownhosts callback so mismatches surface as
// HostKeyMismatchError. A missing known_hosts file is created empty.
func hostKeyChecker(knownHostsPath string) (ssh.HostKeyCallback, error) {
	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(knownHostsPath), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create .ssh directory: %w", err)
		}
		if err := os.WriteFile(knownHostsPath, []byte{}, 0o600); err != nil {
			return nil, fmt.Errorf("failed to create known_hosts: %w", err)
		}
	}

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := callback(hostname, remote, key)
		if err != nil {
			var keyErr *knownhosts.KeyError
			if stderrors.As(err, &keyErr) && len(keyErr.Want) > 0 {
				return &HostKeyMismatchError{
					Hostname:     hostname,
					ReceivedType: key.Type(),
					KnownHosts:   knownHostsPath,
					Want:         keyErr.Want,
				}
			}
		}
		return err
	}, nil
}
