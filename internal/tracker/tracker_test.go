package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerStartStop(t *testing.T) {
	r := newMockResolver("a", CapResources)
	tr := New(testConfig(), WithResolvers(r))

	assert.Equal(t, StateIdle, tr.Status().State)
	_, ok := tr.LatestSample()
	assert.False(t, ok)

	require.NoError(t, tr.Start(context.Background(), 42))

	err := tr.Start(context.Background(), 43)
	require.Error(t, err, "double start must be rejected")
	assert.Contains(t, err.Error(), "already running")

	require.Eventually(t, func() bool {
		_, ok := tr.LatestSample()
		return ok && tr.Status().State == StatePolling
	}, 2*time.Second, 5*time.Millisecond)

	tr.Stop()
	assert.Equal(t, StateStopped, tr.Status().State)

	// No polls after stop.
	calls := r.resourceCallCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, r.resourceCallCount())

	// Idempotent.
	tr.Stop()
}

func TestTrackerRestart(t *testing.T) {
	r := newMockResolver("a", CapResources)
	tr := New(testConfig(), WithResolvers(r))

	require.NoError(t, tr.Start(context.Background(), 42))
	require.Eventually(t, func() bool {
		_, ok := tr.LatestSample()
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	tr.Stop()

	calls := r.resourceCallCount()
	require.NoError(t, tr.Start(context.Background(), 42))
	defer tr.Stop()

	require.Eventually(t, func() bool {
		return r.resourceCallCount() > calls && tr.Status().State == StatePolling
	}, 2*time.Second, 5*time.Millisecond, "polling must resume after a restart")
}

func TestTrackerHistory(t *testing.T) {
	tr := New(testConfig(), WithResolvers(newMockResolver("a", CapResources)))
	require.NoError(t, tr.Start(context.Background(), 42))
	defer tr.Stop()

	require.Eventually(t, func() bool {
		return len(tr.History(time.Minute)) >= 5
	}, 2*time.Second, 5*time.Millisecond)

	history := tr.History(time.Minute)
	for i := 1; i < len(history); i++ {
		assert.True(t, history[i].Timestamp.After(history[i-1].Timestamp),
			"history must be oldest first with strictly increasing timestamps")
	}
	assert.Greater(t, tr.HistorySpan(), time.Duration(0))
}

func TestTrackerPauseResume(t *testing.T) {
	r := newMockResolver("a", CapResources)
	tr := New(testConfig(), WithResolvers(r))
	require.NoError(t, tr.Start(context.Background(), 42))
	defer tr.Stop()

	require.Eventually(t, func() bool {
		_, ok := tr.LatestSample()
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	tr.Pause()
	assert.True(t, tr.Status().Paused)

	// Let any in-flight poll land, then the count must hold still.
	time.Sleep(20 * time.Millisecond)
	calls := r.resourceCallCount()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, calls, r.resourceCallCount(), "no polls while paused")

	tr.Resume()
	assert.False(t, tr.Status().Paused)
	require.Eventually(t, func() bool {
		return r.resourceCallCount() > calls
	}, 2*time.Second, 5*time.Millisecond, "polling must resume promptly")

	// Resume without a pause is harmless.
	tr.Resume()
}

func TestConnectionsRequiresRunning(t *testing.T) {
	tr := New(testConfig(), WithResolvers(newMockResolver("a", CapResources|CapConnections)))

	_, err := tr.Connections(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")

	require.NoError(t, tr.Start(context.Background(), 42))
	tr.Stop()

	_, err = tr.Connections(context.Background())
	require.Error(t, err)
}

func TestConnectionsCachedBetweenCalls(t *testing.T) {
	res := newMockResolver("res", CapResources)
	conn := newMockResolver("conn", CapConnections)
	conn.setConns([]Connection{
		{LocalAddr: "192.168.1.10", LocalPort: 41500, RemoteAddr: "1.91.189.91", RemotePort: 443, Protocol: "tcp"},
		{LocalAddr: "192.168.1.10", LocalPort: 41501, RemoteAddr: "5.9.158.75", RemotePort: 9001, Protocol: "tcp"},
	})

	cfg := testConfig()
	cfg.ConnectionCache = 300 * time.Millisecond

	tr := New(cfg, WithResolvers(res, conn))
	require.NoError(t, tr.Start(context.Background(), 42))
	defer tr.Stop()

	first, err := tr.Connections(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 1, conn.connCallCount())
	assert.Equal(t, "conn", tr.Status().ConnectionResolver)

	// Within the cache window: served without a second query.
	second, err := tr.Connections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, conn.connCallCount())

	// Returned slices are copies: mutating one cannot poison the cache.
	second[0].RemoteAddr = "changed"
	third, err := tr.Connections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.91.189.91", third[0].RemoteAddr)

	// Past the cache window the resolver is consulted again.
	time.Sleep(350 * time.Millisecond)
	_, err = tr.Connections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, conn.connCallCount())
}

func TestConnectionsFailover(t *testing.T) {
	res := newMockResolver("res", CapResources)
	a := newMockResolver("conn-a", CapConnections)
	b := newMockResolver("conn-b", CapConnections)
	a.setConnErr(errFlaky)
	b.setConns([]Connection{{LocalAddr: "::1", LocalPort: 8080, RemoteAddr: "::1", RemotePort: 35554, Protocol: "tcp6"}})

	tr := New(testConfig(), WithResolvers(res, a, b))
	require.NoError(t, tr.Start(context.Background(), 42))
	defer tr.Stop()

	// Three strikes against conn-a, reported to the caller each time.
	for i := 0; i < 3; i++ {
		_, err := tr.Connections(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrQueryFailed)
	}
	assert.Equal(t, 3, a.connCallCount())
	assert.Equal(t, "conn-b", tr.Status().ConnectionResolver, "selector advances after the third strike")

	conns, err := tr.Connections(context.Background())
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, uint16(8080), conns[0].LocalPort)
	assert.Equal(t, 3, a.connCallCount(), "an excluded resolver is never consulted again")
}

func TestConnectionsDegradedAndRecovery(t *testing.T) {
	res := newMockResolver("res", CapResources)
	conn := newMockResolver("conn", CapConnections)
	conn.setConnErr(errFlaky)

	cfg := testConfig()
	cfg.DegradedRetest = 150 * time.Millisecond

	tr := New(cfg, WithResolvers(res, conn))
	require.NoError(t, tr.Start(context.Background(), 42))
	defer tr.Stop()

	for i := 0; i < 3; i++ {
		_, err := tr.Connections(context.Background())
		require.Error(t, err)
	}
	assert.True(t, tr.Status().ConnectionsDegraded)
	assert.Empty(t, tr.Status().ConnectionResolver)

	// While degraded and inside the re-test window: immediate refusal, no
	// query sent.
	calls := conn.connCallCount()
	_, err := tr.Connections(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoResolverAvailable)
	assert.Equal(t, calls, conn.connCallCount())

	// Resource sampling is unaffected by connection degradation.
	assert.Eventually(t, func() bool {
		return tr.Status().State == StatePolling
	}, 2*time.Second, 5*time.Millisecond)

	// After the re-test window, a healthy resolver is found again.
	conn.setConnErr(nil)
	conn.setConns([]Connection{{LocalAddr: "127.0.0.1", LocalPort: 9050, RemoteAddr: "127.0.0.1", RemotePort: 52044, Protocol: "tcp"}})
	time.Sleep(160 * time.Millisecond)

	conns, err := tr.Connections(context.Background())
	require.NoError(t, err)
	assert.Len(t, conns, 1)
	st := tr.Status()
	assert.False(t, st.ConnectionsDegraded)
	assert.Equal(t, "conn", st.ConnectionResolver)
}

func TestResourceDegradationLeavesConnectionsWorking(t *testing.T) {
	res := newMockResolver("res", CapResources)
	conn := newMockResolver("conn", CapConnections)
	res.setResourceErr(errFlaky)
	conn.setConns([]Connection{{LocalAddr: "127.0.0.1", LocalPort: 9001, RemoteAddr: "10.0.0.9", RemotePort: 443, Protocol: "tcp"}})

	tr := New(testConfig(), WithResolvers(res, conn))
	require.NoError(t, tr.Start(context.Background(), 42))
	defer tr.Stop()

	require.Eventually(t, func() bool {
		return tr.Status().State == StateDegraded
	}, 2*time.Second, 5*time.Millisecond)

	conns, err := tr.Connections(context.Background())
	require.NoError(t, err)
	assert.Len(t, conns, 1)
}

func TestSubscribeDeliversInitialSelection(t *testing.T) {
	tr := New(testConfig(), WithResolvers(newMockResolver("a", CapResources)))
	events, unsub := tr.Subscribe()
	defer unsub()

	require.NoError(t, tr.Start(context.Background(), 42))
	defer tr.Stop()

	select {
	case e := <-events:
		assert.Equal(t, EventResolverSwitched, e.Type)
		assert.Equal(t, "a", e.Resolver)
		assert.Empty(t, e.Previous)
		assert.False(t, e.Time.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no initial selection event")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	tr := New(testConfig(), WithResolvers(newMockResolver("a", CapResources)))
	events, unsub := tr.Subscribe()

	unsub()
	unsub() // double cancel is harmless

	for {
		if _, ok := <-events; !ok {
			return
		}
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateIdle, "idle"},
		{StatePolling, "polling"},
		{StateBackoff, "backoff"},
		{StateDegraded, "degraded"},
		{StateStopped, "stopped"},
		{State(42), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.state.String())
	}
}
