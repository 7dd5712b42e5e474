// Package procfs reads per-process resource data from a proc filesystem.
//
// All readers hang off an FS rooted at a directory (normally /proc) so tests
// can point at a fixture tree and remote output can be fed through the same
// parsers. The package carries no build tag: on platforms without procfs the
// reads simply fail and the caller falls back to another query mechanism.
package procfs

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNoStat indicates /proc/<pid>/stat was empty or malformed.
	ErrNoStat = errors.New("procfs: no stat data")

	// ErrShortStat indicates /proc/<pid>/stat had fewer fields than expected.
	ErrShortStat = errors.New("procfs: truncated stat data")

	// ErrNoLimit indicates /proc/<pid>/limits had no open-files entry.
	ErrNoLimit = errors.New("procfs: no open files limit")
)

// ClockTicks returns the number of jiffies (clock ticks) per second.
// It first checks the env var CLK_TCK (useful for testing), otherwise
// falls back to 100 (common default).
//
// Note: On real systems, the authoritative way is `sysconf(_SC_CLK_TCK)`,
// but calling that requires cgo. For portability in a pure-Go library,
// this simplified approach is acceptable.
func ClockTicks() int {
	v, _ := strconv.Atoi(os.Getenv("CLK_TCK"))
	if v > 0 {
		return v
	}
	return 100
}

// PageSize returns the system memory page size in bytes.
// Like ClockTicks, it first checks an env override (PAGE_SIZE)
// to ease testing, then falls back to os.Getpagesize().
func PageSize() int {
	if ps := os.Getenv("PAGE_SIZE"); ps != "" {
		if v, _ := strconv.Atoi(ps); v > 0 {
			return v
		}
	}
	return os.Getpagesize()
}

// JiffiesToDuration converts a jiffy counter to wall time using ClockTicks.
func JiffiesToDuration(jiffies uint64) time.Duration {
	return TicksToDuration(jiffies, ClockTicks())
}

// TicksToDuration converts a jiffy counter to wall time at an explicit tick
// rate, for stat content read off another host.
func TicksToDuration(jiffies uint64, hz int) time.Duration {
	if hz <= 0 {
		hz = 100
	}
	return time.Duration(jiffies) * time.Second / time.Duration(hz)
}

// FS is a proc filesystem rooted at a directory.
type FS struct {
	root string
}

// NewFS returns an FS rooted at the given directory.
func NewFS(root string) FS {
	return FS{root: root}
}

// DefaultFS returns an FS rooted at /proc.
func DefaultFS() FS {
	return FS{root: "/proc"}
}

// Root returns the directory the FS reads from.
func (fs FS) Root() string {
	return fs.root
}

func (fs FS) path(parts ...string) string {
	return filepath.Join(append([]string{fs.root}, parts...)...)
}

func (fs FS) pidPath(pid int, parts ...string) string {
	return fs.path(append([]string{strconv.Itoa(pid)}, parts...)...)
}

// Exists reports whether a given PID currently has a proc directory.
func (fs FS) Exists(pid int) bool {
	info, err := os.Stat(fs.pidPath(pid))
	return err == nil && info.IsDir()
}

// ProcStat holds the fields of /proc/<pid>/stat this package cares about.
// CPU counters are raw jiffies (monotonic increasing); convert with
// JiffiesToDuration when wall time is needed.
type ProcStat struct {
	Comm   string
	State  byte
	UTime  uint64 // user CPU jiffies
	STime  uint64 // system CPU jiffies
	StartT uint64 // process start, jiffies after boot
}

// Stat reads and parses /proc/<pid>/stat.
func (fs FS) Stat(pid int) (ProcStat, error) {
	b, err := os.ReadFile(fs.pidPath(pid, "stat"))
	if err != nil {
		return ProcStat{}, err
	}
	return ParseStat(string(b))
}

// ParseStat parses the single-line contents of a stat file.
//
// Field order is fixed, but comm (2nd field) is in parens and may contain
// spaces. Everything before the closing ") " is stripped safely; the numeric
// fields are indexed relative to what follows.
func ParseStat(line string) (ProcStat, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return ProcStat{}, ErrNoStat
	}

	open := strings.Index(line, "(")
	close := strings.LastIndex(line, ") ")
	if open < 0 || close < 0 || close < open {
		return ProcStat{}, ErrNoStat
	}

	st := ProcStat{Comm: line[open+1 : close]}
	fields := strings.Fields(line[close+2:])

	get := func(idx int) (uint64, error) {
		if idx >= len(fields) {
			return 0, ErrShortStat
		}
		return strconv.ParseUint(fields[idx], 10, 64)
	}

	// Indexes relative to fields slice:
	// state (3rd overall)  => fields[0]
	// utime (14th overall) => fields[11]
	// stime (15th overall) => fields[12]
	// starttime (22nd)     => fields[19]
	if len(fields) == 0 {
		return ProcStat{}, ErrShortStat
	}
	st.State = fields[0][0]

	var err error
	if st.UTime, err = get(11); err != nil {
		return ProcStat{}, err
	}
	if st.STime, err = get(12); err != nil {
		return ProcStat{}, err
	}
	st.StartT, _ = get(19)
	return st, nil
}

// RSS returns the Resident Set Size in bytes for a PID, read from statm
// (resident page count × page size).
func (fs FS) RSS(pid int) (uint64, error) {
	b, err := os.ReadFile(fs.pidPath(pid, "statm"))
	if err != nil {
		return 0, err
	}
	return ParseStatmRSS(string(b))
}

// ParseStatmRSS extracts the resident page count from statm contents and
// converts it to bytes using the local page size.
func ParseStatmRSS(text string) (uint64, error) {
	pages, err := ParseStatmPages(text)
	if err != nil {
		return 0, err
	}
	return pages * uint64(PageSize()), nil
}

// ParseStatmPages extracts the raw resident page count from statm contents,
// leaving the page size conversion to the caller.
func ParseStatmPages(text string) (uint64, error) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return 0, ErrShortStat
	}
	return strconv.ParseUint(fields[1], 10, 64)
}

// FDCount returns the number of open file descriptors for a PID by counting
// entries in the fd directory. Reading the directory of another user's
// process requires matching privileges; the raw permission error is returned
// for the caller to classify.
func (fs FS) FDCount(pid int) (int, error) {
	entries, err := os.ReadDir(fs.pidPath(pid, "fd"))
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// FDLimit returns the soft open-files limit for a PID from its limits file.
// A value of 0 means the limit is unlimited.
func (fs FS) FDLimit(pid int) (uint64, error) {
	b, err := os.ReadFile(fs.pidPath(pid, "limits"))
	if err != nil {
		return 0, err
	}
	return ParseFDLimit(string(b))
}

// ParseFDLimit extracts the soft "Max open files" value from limits contents.
// The word "unlimited" maps to 0.
func ParseFDLimit(text string) (uint64, error) {
	for _, line := range strings.Split(text, "\n") {
		if !strings.HasPrefix(line, "Max open files") {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(line, "Max open files"))
		if len(fields) == 0 {
			return 0, ErrNoLimit
		}
		if fields[0] == "unlimited" {
			return 0, nil
		}
		return strconv.ParseUint(fields[0], 10, 64)
	}
	return 0, ErrNoLimit
}

// SocketInodes returns the socket inode numbers held open by a PID, read
// from the fd symlink targets ("socket:[12345]"). Non-socket descriptors
// are skipped; descriptors that vanish mid-scan are skipped too.
func (fs FS) SocketInodes(pid int) (map[uint64]struct{}, error) {
	dir := fs.pidPath(pid, "fd")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	inodes := make(map[uint64]struct{})
	for _, entry := range entries {
		target, err := os.Readlink(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		inode, ok := parseSocketInode(target)
		if !ok {
			continue
		}
		inodes[inode] = struct{}{}
	}
	return inodes, nil
}

func parseSocketInode(target string) (uint64, bool) {
	if !strings.HasPrefix(target, "socket:[") || !strings.HasSuffix(target, "]") {
		return 0, false
	}
	inode, err := strconv.ParseUint(target[len("socket:["):len(target)-1], 10, 64)
	if err != nil {
		return 0, false
	}
	return inode, true
}
