package doctor

import (
	stderrors "errors"
	"fmt"

	"github.com/relaymon/relaymon/internal/errors"
)

// CheckStatus represents the result status of a check.
type CheckStatus int

const (
	StatusPass CheckStatus = iota
	StatusWarn
	StatusFail
	// StatusSkip marks a check that could not run because an earlier stage
	// failed, e.g. resolver probes when no daemon process was found.
	StatusSkip
)

// String returns a human-readable status string.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	case StatusSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// CheckResult contains the outcome of running a check.
type CheckResult struct {
	Name       string
	Status     CheckStatus
	Message    string
	Suggestion string
}

// Check defines the interface for diagnostic checks.
type Check interface {
	// Name returns the check's identifier.
	Name() string

	// Category returns the check's category (e.g., "CONFIG", "SSH", "PROCESS").
	Category() string

	// Run executes the check and returns the result.
	Run() CheckResult
}

// RunAll executes all checks in order and returns the results. Checks run
// sequentially: later stages depend on state resolved by earlier ones (the
// SSH connection, the daemon pid), so there is nothing to parallelize.
func RunAll(checks []Check) []CheckResult {
	results := make([]CheckResult, len(checks))
	for i, check := range checks {
		results[i] = check.Run()
	}
	return results
}

// CountByStatus counts results by status.
func CountByStatus(results []CheckResult) map[CheckStatus]int {
	counts := make(map[CheckStatus]int)
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}

// HasFailures returns true if any result has a fail status.
func HasFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.Status == StatusFail {
			return true
		}
	}
	return false
}

// HasIssues returns true if any result has a fail or warn status.
func HasIssues(results []CheckResult) bool {
	for _, r := range results {
		if r.Status == StatusFail || r.Status == StatusWarn {
			return true
		}
	}
	return false
}

// Summary returns a summary string of the check results.
func Summary(results []CheckResult) string {
	counts := CountByStatus(results)
	warn := counts[StatusWarn]
	fail := counts[StatusFail]

	if fail == 0 && warn == 0 {
		return "Everything looks good"
	}

	total := warn + fail
	return fmt.Sprintf("%d issue%s found", total, pluralize(total))
}

func pluralize(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// errorDetail splits an error into a single-line message and a suggestion
// for table rows. Structured errors render as multi-line blocks, which do
// not fit a check row, so their fields are pulled out instead.
func errorDetail(err error) (string, string) {
	var structured *errors.Error
	if stderrors.As(err, &structured) {
		return structured.Message, structured.Suggestion
	}
	return err.Error(), ""
}
