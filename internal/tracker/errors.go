package tracker

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Resolver error taxonomy. The sampler loop absorbs all of these; consumers
// only ever observe derived state (failure counts, degraded flags, the last
// error summary).
var (
	// ErrResolverUnavailable means the availability predicate failed at
	// selection time. Never retried; triggers an immediate advance.
	ErrResolverUnavailable = errors.New("resolver unavailable")

	// ErrQueryFailed is a transient runtime failure, retried up to the
	// configured limit before the selector advances.
	ErrQueryFailed = errors.New("query failed")

	// ErrPermissionDenied is treated like ErrQueryFailed for retry
	// purposes but surfaced distinctly for diagnostics.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNoResolverAvailable is terminal for a capability: every resolver
	// has been exhausted and the tracker is degraded for that kind.
	ErrNoResolverAvailable = errors.New("no resolver available")
)

// classifyQueryError wraps a raw resolver failure into the taxonomy.
// Permission problems are recognized from the OS error; everything else is a
// transient query failure. Errors already classified pass through unchanged.
func classifyQueryError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrResolverUnavailable) ||
		errors.Is(err, ErrQueryFailed) ||
		errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrNoResolverAvailable) {
		return err
	}
	if errors.Is(err, os.ErrPermission) {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: query timed out", ErrQueryFailed)
	}
	return fmt.Errorf("%w: %v", ErrQueryFailed, err)
}

// retryable reports whether a classified error counts against the
// consecutive-failure limit rather than forcing an immediate advance.
func retryable(err error) bool {
	return errors.Is(err, ErrQueryFailed) || errors.Is(err, ErrPermissionDenied)
}
