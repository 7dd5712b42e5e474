package tracker

import (
	"runtime"

	"github.com/relaymon/relaymon/internal/procfs"
)

// Resolver names recognized in configuration.
const (
	ResolverProc   = "proc"
	ResolverNative = "native"
	ResolverPS     = "ps"
	ResolverLsof   = "lsof"
	ResolverSSH    = "ssh"
)

// DefaultResolvers returns the local resolver candidates for the current
// platform, most permission-friendly first. Linux leads with the direct
// procfs scan; everywhere else the gopsutil-backed native resolver comes
// first since there is no /proc to read.
func DefaultResolvers() []Resolver {
	switch runtime.GOOS {
	case "linux":
		return []Resolver{
			NewProcResolver(procfs.DefaultFS()),
			NewNativeResolver(),
			NewPSResolver(),
			NewLsofResolver(),
		}
	default:
		return []Resolver{
			NewNativeResolver(),
			NewPSResolver(),
			NewLsofResolver(),
		}
	}
}

// ResolverNames lists the names of the given resolvers in order.
func ResolverNames(resolvers []Resolver) []string {
	names := make([]string, 0, len(resolvers))
	for _, r := range resolvers {
		names = append(names, r.Name())
	}
	return names
}

// orderResolvers applies a configured order override. An empty override
// keeps the candidate order as-is; otherwise the override names exactly the
// chain to use, and candidates it does not mention are dropped. Unknown
// names are skipped here; configuration validation reports them up front.
func orderResolvers(candidates []Resolver, order []string) []Resolver {
	if len(order) == 0 {
		return candidates
	}

	byName := make(map[string]Resolver, len(candidates))
	for _, r := range candidates {
		byName[r.Name()] = r
	}

	var ordered []Resolver
	for _, name := range order {
		if r, ok := byName[name]; ok {
			ordered = append(ordered, r)
		}
	}
	return ordered
}
