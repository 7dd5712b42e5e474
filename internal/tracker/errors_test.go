package tracker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyQueryError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"nil passes through", nil, nil},
		{"generic failure", errors.New("boom"), ErrQueryFailed},
		{"os permission", os.ErrPermission, ErrPermissionDenied},
		{
			"wrapped path permission",
			&fs.PathError{Op: "open", Path: "/proc/1/stat", Err: os.ErrPermission},
			ErrPermissionDenied,
		},
		{"deadline", context.DeadlineExceeded, ErrQueryFailed},
		{"already unavailable", fmt.Errorf("%w: no ps binary", ErrResolverUnavailable), ErrResolverUnavailable},
		{"already failed", fmt.Errorf("%w: flaky", ErrQueryFailed), ErrQueryFailed},
		{"already denied", fmt.Errorf("%w: remote", ErrPermissionDenied), ErrPermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyQueryError(tt.err)
			if tt.expected == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.expected)
		})
	}
}

func TestClassifyQueryErrorPreservesPreclassified(t *testing.T) {
	// A pre-classified error must not be double wrapped.
	orig := fmt.Errorf("%w: flaky read", ErrQueryFailed)
	assert.Equal(t, orig, classifyQueryError(orig))
}

func TestClassifyDeadlineMentionsTimeout(t *testing.T) {
	got := classifyQueryError(context.DeadlineExceeded)
	require.Error(t, got)
	assert.Contains(t, got.Error(), "timed out")
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"query failure", ErrQueryFailed, true},
		{"permission denied", ErrPermissionDenied, true},
		{"wrapped query failure", fmt.Errorf("%w: read error", ErrQueryFailed), true},
		{"resolver unavailable", ErrResolverUnavailable, false},
		{"no resolver left", ErrNoResolverAvailable, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, retryable(tt.err))
		})
	}
}
