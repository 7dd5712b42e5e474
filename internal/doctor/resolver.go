package doctor

import (
	"fmt"

	"github.com/relaymon/relaymon/internal/tracker"
)

// ResolverCheck probes whether a single resolver can query the daemon.
type ResolverCheck struct {
	Resolver tracker.Resolver
	PID      int // 0 skips the probe
}

func (c *ResolverCheck) Name() string     { return "resolver_" + c.Resolver.Name() }
func (c *ResolverCheck) Category() string { return "RESOLVERS" }

func (c *ResolverCheck) Run() CheckResult {
	name := c.Resolver.Name()

	if c.PID <= 0 {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusSkip,
			Message: fmt.Sprintf("%s resolver not probed, no process to query", name),
		}
	}

	if err := c.Resolver.Available(c.PID); err != nil {
		// A single unavailable resolver is survivable: the tracker falls
		// through to the next one in the chain.
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("%s resolver unavailable: %v", name, err),
			Suggestion: resolverSuggestion(name),
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s resolver available (%s)", name, c.Resolver.Capabilities()),
	}
}

func resolverSuggestion(name string) string {
	switch name {
	case tracker.ResolverProc:
		return "The proc resolver needs a readable /proc, which only Linux provides"
	case tracker.ResolverPS:
		return "Install procps so 'ps' is on the PATH"
	case tracker.ResolverLsof:
		return "Install lsof (apt install lsof / brew install lsof)"
	case tracker.ResolverSSH:
		return "Check the SSH connection and that the remote host has /proc"
	default:
		return ""
	}
}

// CoverageResult summarizes a batch of resolver probe results. The tracker
// only needs one working resolver per capability, so individual misses are
// warnings; zero working resolvers is the actual failure.
func CoverageResult(results []CheckResult) CheckResult {
	probed := 0
	passed := 0
	for _, r := range results {
		if r.Status != StatusSkip {
			probed++
		}
		if r.Status == StatusPass {
			passed++
		}
	}

	switch {
	case probed == 0:
		return CheckResult{
			Name:    "resolver_coverage",
			Status:  StatusSkip,
			Message: "Resolver probes skipped",
		}
	case passed == 0:
		return CheckResult{
			Name:       "resolver_coverage",
			Status:     StatusFail,
			Message:    "No resolver can query the daemon",
			Suggestion: "Resource and connection data will be unavailable until at least one resolver works",
		}
	default:
		return CheckResult{
			Name:    "resolver_coverage",
			Status:  StatusPass,
			Message: fmt.Sprintf("%d of %d resolvers available", passed, probed),
		}
	}
}
