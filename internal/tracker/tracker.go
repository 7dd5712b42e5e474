package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/relaymon/relaymon/internal/errors"
	"github.com/relaymon/relaymon/internal/logger"
)

// State is the sampler loop's lifecycle state.
type State int

const (
	// StateIdle means the tracker exists but has not been started.
	StateIdle State = iota

	// StatePolling means samples are being collected on a timer.
	StatePolling

	// StateBackoff means the last query failed and a bounded retry burst
	// is in progress, before a resolver switch is attempted.
	StateBackoff

	// StateDegraded means no resource resolver remains; availability is
	// re-tested on a long interval and history stays readable.
	StateDegraded

	// StateStopped means the loop has exited.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateBackoff:
		return "backoff"
	case StateDegraded:
		return "degraded"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Status is a copy-out snapshot of tracker state. Readers always see a
// consistent snapshot; no field refers back to live tracker internals.
type Status struct {
	State               State
	Paused              bool
	Resolver            string // resource resolver in use, "" when none
	PollInterval        time.Duration
	ConsecutiveFailures int
	LastError           string

	ConnectionResolver  string
	ConnectionsDegraded bool
}

// Tracker owns the background sampler loop and serves its results. UI code
// holds one Tracker per monitored process; all methods are safe for
// concurrent use and none of the read paths block on an in-flight poll.
type Tracker struct {
	cfg       Config
	log       logger.Logger
	store     *Store
	hub       *eventHub
	resolvers []Resolver

	// Loop lifecycle and the status snapshot. The loop goroutine is the
	// only writer of snap while running; everything else reads copies.
	mu       sync.Mutex
	running  bool
	pid      int
	cancel   context.CancelFunc
	done     chan struct{}
	snap     Status
	resumeCh chan struct{}

	// On-demand connection query path. connMu serializes lookups and
	// guards the cache; results are mirrored into snap under mu so Status
	// never waits behind a slow lookup.
	connMu         sync.Mutex
	connSel        *Selector
	connFailures   int
	connCache      []Connection
	connCachedAt   time.Time
	connLastRetest time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger used by the tracker and its selectors.
func WithLogger(log logger.Logger) Option {
	return func(t *Tracker) {
		t.log = log
	}
}

// WithResolvers replaces the platform resolver set. Used by the remote mode
// and by tests injecting fakes; ResolverOrder still applies on top.
func WithResolvers(resolvers ...Resolver) Option {
	return func(t *Tracker) {
		t.resolvers = resolvers
	}
}

// New builds a Tracker from a polling policy. The resolver candidate set
// defaults to the platform's; zero config fields default per DefaultConfig.
func New(cfg Config, opts ...Option) *Tracker {
	t := &Tracker{
		cfg:      cfg.withDefaults(),
		log:      logger.Noop(),
		hub:      newEventHub(),
		resumeCh: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.resolvers == nil {
		t.resolvers = DefaultResolvers()
	}
	t.resolvers = orderResolvers(t.resolvers, t.cfg.ResolverOrder)
	t.store = NewStore(t.cfg.storeCapacity())
	t.connSel = NewSelector(CapConnections, t.resolvers, t.log)
	t.snap = Status{State: StateIdle, PollInterval: t.cfg.MinInterval}
	return t
}

// Start launches the sampler loop for the given PID. Starting an already
// running tracker is an error; stop it first.
func (t *Tracker) Start(ctx context.Context, pid int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return errors.New(errors.ErrTracker,
			fmt.Sprintf("tracker already running for pid %d", t.pid),
			"Stop the tracker before starting it again")
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	t.running = true
	t.pid = pid
	t.cancel = cancel
	t.done = done
	t.snap = Status{State: StateIdle, PollInterval: t.cfg.MinInterval}

	go t.run(runCtx, done)
	return nil
}

// Stop cancels the sampler loop and waits for it to fully exit, so repeated
// start/stop cycles can never stack two loops. Idempotent.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	cancel := t.cancel
	done := t.done
	t.running = false
	t.cancel = nil
	t.mu.Unlock()

	cancel()
	<-done
}

// Pause suspends polling without losing history. An in-flight poll finishes;
// no new polls start until Resume.
func (t *Tracker) Pause() {
	t.mu.Lock()
	t.snap.Paused = true
	t.mu.Unlock()
}

// Resume restarts polling after Pause. The next poll runs immediately.
func (t *Tracker) Resume() {
	t.mu.Lock()
	wasPaused := t.snap.Paused
	t.snap.Paused = false
	t.mu.Unlock()

	if wasPaused {
		select {
		case t.resumeCh <- struct{}{}:
		default:
		}
	}
}

// Status returns a copy-out snapshot of the tracker state.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// LatestSample returns the newest resource sample, if any has been taken.
// Remains valid while degraded: the last pre-degradation sample is served.
func (t *Tracker) LatestSample() (ResourceSample, bool) {
	return t.store.Latest()
}

// History returns the samples covering the given duration, oldest first.
// Partial history is valid; HistorySpan reports what is actually covered.
func (t *Tracker) History(d time.Duration) []ResourceSample {
	return t.store.Window(d)
}

// HistorySpan reports the duration covered by held samples.
func (t *Tracker) HistorySpan() time.Duration {
	return t.store.Span()
}

// Subscribe registers an event channel. The returned cancel func must be
// called when the subscriber is done. Publishing never blocks the loop:
// events are dropped for subscribers that fall behind.
func (t *Tracker) Subscribe() (<-chan Event, func()) {
	return t.hub.subscribe()
}

// publish stamps, logs, and fans out an event.
func (t *Tracker) publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	switch e.Type {
	case EventQueryAborted, EventDegraded:
		t.log.Warn("tracker: %s", e.Message())
	case EventLookupSlow:
		t.log.Debug("tracker: %s", e.Message())
	default:
		t.log.Info("tracker: %s", e.Message())
	}
	t.hub.publish(e)
}

// Connections returns the monitored process's current connection set.
// Pull-based: resolved on demand per consumer request, cached briefly, and
// independent of the resource polling cadence. While connection queries are
// degraded an ErrNoResolverAvailable-wrapped error is returned and resolver
// availability is re-tested at most once per DegradedRetest.
func (t *Tracker) Connections(ctx context.Context) ([]Connection, error) {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil, errors.New(errors.ErrTracker,
			"tracker is not running",
			"Start the tracker before querying connections")
	}
	pid := t.pid
	t.mu.Unlock()

	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.connCache != nil && time.Since(t.connCachedAt) < t.cfg.ConnectionCache {
		return cloneConnections(t.connCache), nil
	}

	r, err := t.currentConnResolver(pid)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	conns, err := t.boundedQueryConnections(ctx, r, pid)
	elapsed := time.Since(started)

	if elapsed >= slowConnLookup {
		t.publish(Event{Type: EventLookupSlow, Capability: CapConnections, Resolver: r.Name(), Elapsed: elapsed})
	}

	if err != nil {
		return nil, t.handleConnFailure(pid, r, classifyQueryError(err))
	}

	t.connFailures = 0
	t.connCache = conns
	t.connCachedAt = time.Now()
	t.setConnStatus(r.Name(), false)
	return cloneConnections(conns), nil
}

// currentConnResolver returns the active connection resolver, performing
// initial selection or a rate-limited degraded re-test as needed.
// Caller holds connMu.
func (t *Tracker) currentConnResolver(pid int) (Resolver, error) {
	if r := t.connSel.Current(); r != nil {
		return r, nil
	}

	degraded := t.Status().ConnectionsDegraded
	if degraded {
		if time.Since(t.connLastRetest) < t.cfg.DegradedRetest {
			return nil, fmt.Errorf("%w for connection queries", ErrNoResolverAvailable)
		}
		t.connLastRetest = time.Now()
		r, err := t.connSel.Rescan(pid)
		if err != nil {
			return nil, err
		}
		t.publish(Event{Type: EventRecovered, Capability: CapConnections, Resolver: r.Name()})
		t.setConnStatus(r.Name(), false)
		return r, nil
	}

	r, err := t.connSel.SelectInitial(pid)
	if err != nil {
		t.setConnStatus("", true)
		t.publish(Event{Type: EventDegraded, Capability: CapConnections, Err: err})
		t.connLastRetest = time.Now()
		return nil, err
	}
	t.publish(Event{Type: EventResolverSwitched, Capability: CapConnections, Resolver: r.Name()})
	t.setConnStatus(r.Name(), false)
	return r, nil
}

// handleConnFailure applies the shared failure policy to the pull-based
// connection path: bounded retries against one resolver, then an abort
// event and an advance, then degraded when nothing remains.
// Caller holds connMu.
func (t *Tracker) handleConnFailure(pid int, r Resolver, err error) error {
	t.connFailures++
	if retryable(err) && t.connFailures < t.cfg.RetryLimit {
		return err
	}

	if retryable(err) {
		t.publish(Event{
			Type:       EventQueryAborted,
			Capability: CapConnections,
			Resolver:   r.Name(),
			Attempts:   t.connFailures,
			Err:        err,
		})
	}
	t.connFailures = 0

	next, serr := t.connSel.Advance(pid)
	if serr != nil {
		t.setConnStatus("", true)
		t.publish(Event{Type: EventDegraded, Capability: CapConnections, Err: err})
		t.connLastRetest = time.Now()
		return serr
	}

	t.publish(Event{
		Type:       EventResolverSwitched,
		Capability: CapConnections,
		Previous:   r.Name(),
		Resolver:   next.Name(),
	})
	t.setConnStatus(next.Name(), false)
	return err
}

// boundedQueryConnections runs a connection query under the configured
// timeout. The result channel is buffered so an overrunning resolver call
// cannot leak a blocked goroutine.
func (t *Tracker) boundedQueryConnections(ctx context.Context, r Resolver, pid int) ([]Connection, error) {
	qctx, cancel := context.WithTimeout(ctx, t.cfg.QueryTimeout)
	defer cancel()

	type result struct {
		conns []Connection
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		conns, err := r.QueryConnections(qctx, pid)
		resultCh <- result{conns: conns, err: err}
	}()

	select {
	case <-qctx.Done():
		return nil, qctx.Err()
	case res := <-resultCh:
		return res.conns, res.err
	}
}

// setConnStatus mirrors connection-path state into the status snapshot.
func (t *Tracker) setConnStatus(resolver string, degraded bool) {
	t.mu.Lock()
	t.snap.ConnectionResolver = resolver
	t.snap.ConnectionsDegraded = degraded
	t.mu.Unlock()
}

func cloneConnections(conns []Connection) []Connection {
	out := make([]Connection, len(conns))
	copy(out, conns)
	return out
}

// eventHub fans events out to subscribers without ever blocking the
// publisher.
type eventHub struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

const eventBuffer = 32

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[int]chan Event)}
}

func (h *eventHub) subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan Event, eventBuffer)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (h *eventHub) publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
			// Subscriber fell behind; dropping beats blocking the loop.
		}
	}
}
