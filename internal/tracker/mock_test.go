package tracker

import (
	"context"
	"sync"
	"time"
)

// mockResolver is a scriptable Resolver for loop and selector tests.
// Error scripts are consumed one entry per call (nil entries succeed), then
// the steady-state error applies. All fields are safe to adjust from the
// test goroutine while the loop runs.
type mockResolver struct {
	name string
	caps Capability

	mu            sync.Mutex
	availableErr  error
	resourceErrs  []error
	resourceErr   error
	connErrs      []error
	connErr       error
	conns         []Connection
	queryDelay    time.Duration
	availCalls    int
	resourceCalls int
	connCalls     int
}

func newMockResolver(name string, caps Capability) *mockResolver {
	return &mockResolver{name: name, caps: caps}
}

func (m *mockResolver) Name() string { return m.name }

func (m *mockResolver) Capabilities() Capability { return m.caps }

func (m *mockResolver) Available(pid int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.availCalls++
	return m.availableErr
}

func (m *mockResolver) QueryResources(ctx context.Context, pid int) (ResourceSample, error) {
	m.mu.Lock()
	m.resourceCalls++
	err := m.resourceErr
	if len(m.resourceErrs) > 0 {
		err = m.resourceErrs[0]
		m.resourceErrs = m.resourceErrs[1:]
	}
	delay := m.queryDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return ResourceSample{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return ResourceSample{}, err
	}
	return ResourceSample{Timestamp: time.Now(), CPUUser: time.Second, MemoryResident: 1 << 20, FDsUsed: 4}, nil
}

func (m *mockResolver) QueryConnections(ctx context.Context, pid int) ([]Connection, error) {
	m.mu.Lock()
	m.connCalls++
	err := m.connErr
	if len(m.connErrs) > 0 {
		err = m.connErrs[0]
		m.connErrs = m.connErrs[1:]
	}
	conns := m.conns
	delay := m.queryDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, err
	}
	return conns, nil
}

func (m *mockResolver) setAvailableErr(err error) {
	m.mu.Lock()
	m.availableErr = err
	m.mu.Unlock()
}

func (m *mockResolver) setResourceErr(err error) {
	m.mu.Lock()
	m.resourceErr = err
	m.mu.Unlock()
}

func (m *mockResolver) scriptResourceErrs(errs ...error) {
	m.mu.Lock()
	m.resourceErrs = append(m.resourceErrs, errs...)
	m.mu.Unlock()
}

func (m *mockResolver) setConnErr(err error) {
	m.mu.Lock()
	m.connErr = err
	m.mu.Unlock()
}

func (m *mockResolver) setConns(conns []Connection) {
	m.mu.Lock()
	m.conns = conns
	m.mu.Unlock()
}

func (m *mockResolver) setQueryDelay(d time.Duration) {
	m.mu.Lock()
	m.queryDelay = d
	m.mu.Unlock()
}

func (m *mockResolver) resourceCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resourceCalls
}

func (m *mockResolver) connCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connCalls
}
