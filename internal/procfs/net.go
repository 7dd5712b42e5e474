package procfs

import (
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// TCP socket states from the kernel's tcp_states.h, as they appear in the
// hex state column of /proc/net/tcp.
const (
	tcpEstablished = 0x01
	tcpListen      = 0x0A
)

// SockEntry is one row of a /proc/net socket table.
type SockEntry struct {
	Protocol   string // "tcp", "tcp6", "udp", "udp6"
	LocalAddr  string
	LocalPort  uint16
	RemoteAddr string
	RemotePort uint16
	State      uint8
	Inode      uint64
}

// socketTables lists the per-namespace tables scanned for connections.
var socketTables = []string{"tcp", "tcp6", "udp", "udp6"}

// Connections returns the network connections held by a PID, matched by
// socket inode between the fd table and the /proc/net socket tables.
// Listening and unconnected sockets carry no peer and are skipped.
//
// Reading the fd table of a process owned by another user fails with a
// permission error, which is returned unwrapped for the caller to classify.
func (fs FS) Connections(pid int) ([]SockEntry, error) {
	inodes, err := fs.SocketInodes(pid)
	if err != nil {
		return nil, err
	}

	var conns []SockEntry
	for _, table := range socketTables {
		b, err := os.ReadFile(fs.path("net", table))
		if err != nil {
			// Not every kernel exposes every table (e.g. no udp6
			// without IPv6). Missing tables are not an error.
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}

		entries, err := ParseSockTable(table, string(b))
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if _, held := inodes[entry.Inode]; !held {
				continue
			}
			if entry.State == tcpListen || entry.RemotePort == 0 {
				continue
			}
			conns = append(conns, entry)
		}
	}
	return conns, nil
}

// ParseSockTable parses the contents of a /proc/net socket table
// (tcp, tcp6, udp or udp6). The header line is skipped; rows that fail to
// parse are reported rather than silently dropped, since a malformed table
// means the kernel format assumption no longer holds.
func ParseSockTable(protocol, text string) ([]SockEntry, error) {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 {
		lines = lines[1:] // column header
	}

	var entries []SockEntry
	for _, line := range lines {
		// sl local_address rem_address st tx:rx tr:tm retrnsmt uid timeout inode
		fields := strings.Fields(line)
		if len(fields) < 10 {
			continue
		}

		localAddr, localPort, err := parseSockAddr(fields[1])
		if err != nil {
			return nil, fmt.Errorf("procfs: bad local address %q in %s: %w", fields[1], protocol, err)
		}
		remoteAddr, remotePort, err := parseSockAddr(fields[2])
		if err != nil {
			return nil, fmt.Errorf("procfs: bad remote address %q in %s: %w", fields[2], protocol, err)
		}
		state, err := strconv.ParseUint(fields[3], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("procfs: bad state %q in %s: %w", fields[3], protocol, err)
		}
		inode, err := strconv.ParseUint(fields[9], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("procfs: bad inode %q in %s: %w", fields[9], protocol, err)
		}

		entries = append(entries, SockEntry{
			Protocol:   protocol,
			LocalAddr:  localAddr,
			LocalPort:  localPort,
			RemoteAddr: remoteAddr,
			RemotePort: remotePort,
			State:      uint8(state),
			Inode:      inode,
		})
	}
	return entries, nil
}

// parseSockAddr decodes a "HEXADDR:HEXPORT" column. The kernel writes each
// 32-bit word of the address in host byte order, so bytes are reversed
// within every 4-byte group.
func parseSockAddr(s string) (string, uint16, error) {
	colon := strings.LastIndex(s, ":")
	if colon < 0 {
		return "", 0, fmt.Errorf("missing port separator")
	}

	port, err := strconv.ParseUint(s[colon+1:], 16, 16)
	if err != nil {
		return "", 0, err
	}

	raw, err := hex.DecodeString(s[:colon])
	if err != nil {
		return "", 0, err
	}

	switch len(raw) {
	case net.IPv4len:
		return net.IPv4(raw[3], raw[2], raw[1], raw[0]).String(), uint16(port), nil
	case net.IPv6len:
		ip := make(net.IP, net.IPv6len)
		for i := 0; i < net.IPv6len; i += 4 {
			ip[i], ip[i+1], ip[i+2], ip[i+3] = raw[i+3], raw[i+2], raw[i+1], raw[i]
		}
		return ip.String(), uint16(port), nil
	}
	return "", 0, fmt.Errorf("unexpected address length %d", len(raw))
}
