package doctor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/relaymon/relaymon/internal/tracker"
)

// stubResolver satisfies tracker.Resolver for probe tests.
type stubResolver struct {
	name         string
	availableErr error
}

func (s *stubResolver) Name() string { return s.name }
func (s *stubResolver) Capabilities() tracker.Capability {
	return tracker.CapResources | tracker.CapConnections
}
func (s *stubResolver) Available(pid int) error { return s.availableErr }
func (s *stubResolver) QueryResources(ctx context.Context, pid int) (tracker.ResourceSample, error) {
	return tracker.ResourceSample{}, nil
}
func (s *stubResolver) QueryConnections(ctx context.Context, pid int) ([]tracker.Connection, error) {
	return nil, nil
}

func TestResolverCheck_SkipsWithoutPID(t *testing.T) {
	check := &ResolverCheck{Resolver: &stubResolver{name: "proc"}}

	result := check.Run()

	if result.Status != StatusSkip {
		t.Fatalf("expected skip, got %s", result.Status)
	}
}

func TestResolverCheck_Available(t *testing.T) {
	check := &ResolverCheck{Resolver: &stubResolver{name: "proc"}, PID: 42}

	result := check.Run()

	if result.Status != StatusPass {
		t.Fatalf("expected pass, got %s: %s", result.Status, result.Message)
	}
	if !strings.Contains(result.Message, "resources+connections") {
		t.Errorf("message should list capabilities, got %q", result.Message)
	}
	if result.Name != "resolver_proc" {
		t.Errorf("got name %q", result.Name)
	}
}

func TestResolverCheck_Unavailable(t *testing.T) {
	check := &ResolverCheck{
		Resolver: &stubResolver{name: "lsof", availableErr: errors.New("lsof not on PATH")},
		PID:      42,
	}

	result := check.Run()

	if result.Status != StatusWarn {
		t.Fatalf("expected warn, got %s", result.Status)
	}
	if !strings.Contains(result.Message, "lsof not on PATH") {
		t.Errorf("message should carry the probe error, got %q", result.Message)
	}
	if !strings.Contains(result.Suggestion, "lsof") {
		t.Errorf("expected an install suggestion, got %q", result.Suggestion)
	}
}

func TestResolverSuggestion_UnknownName(t *testing.T) {
	if got := resolverSuggestion("mystery"); got != "" {
		t.Errorf("expected empty suggestion, got %q", got)
	}
}

func TestCoverageResult(t *testing.T) {
	t.Run("all skipped", func(t *testing.T) {
		result := CoverageResult([]CheckResult{{Status: StatusSkip}, {Status: StatusSkip}})
		if result.Status != StatusSkip {
			t.Fatalf("expected skip, got %s", result.Status)
		}
	})

	t.Run("none available", func(t *testing.T) {
		result := CoverageResult([]CheckResult{{Status: StatusWarn}, {Status: StatusWarn}})
		if result.Status != StatusFail {
			t.Fatalf("expected fail, got %s", result.Status)
		}
	})

	t.Run("some available", func(t *testing.T) {
		result := CoverageResult([]CheckResult{
			{Status: StatusPass},
			{Status: StatusPass},
			{Status: StatusWarn},
			{Status: StatusSkip},
		})
		if result.Status != StatusPass {
			t.Fatalf("expected pass, got %s", result.Status)
		}
		if result.Message != "2 of 3 resolvers available" {
			t.Errorf("got %q", result.Message)
		}
	})
}
