package ui

import (
	"fmt"
	"strings"
	"time"
)

// FormatBytes renders a byte count with 1024-based units (e.g. "1.5 MB").
func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	units := []string{"KB", "MB", "GB", "TB", "PB"}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), units[exp])
}

// FormatPercent renders a percentage with one decimal (e.g. "42.5%").
func FormatPercent(percent float64) string {
	return fmt.Sprintf("%.1f%%", percent)
}

// FormatEndpoint renders an address and port as "addr:port", bracketing
// IPv6 addresses the way netstat does.
func FormatEndpoint(addr string, port uint16) string {
	if strings.Contains(addr, ":") {
		return fmt.Sprintf("[%s]:%d", addr, port)
	}
	return fmt.Sprintf("%s:%d", addr, port)
}

// FormatUptime renders an elapsed time with its two largest units
// (e.g. "3d 4h", "2h 15m", "5m 32s").
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d.Seconds())
	days := secs / 86400
	hours := (secs % 86400) / 3600
	mins := (secs % 3600) / 60
	rem := secs % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	case mins > 0:
		return fmt.Sprintf("%dm %ds", mins, rem)
	default:
		return fmt.Sprintf("%ds", rem)
	}
}
