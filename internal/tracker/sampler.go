package tracker

import (
	"context"
	"time"
)

const (
	// latencyFraction of the poll interval past which a poll counts as slow.
	latencyFraction = 0.85

	// slowPollStreak is how many consecutive slow polls trigger interval
	// growth.
	slowPollStreak = 2

	// intervalGrowth multiplies the poll interval after a slow streak.
	intervalGrowth = 1.5

	// slowConnLookup marks an on-demand connection lookup as slow.
	slowConnLookup = 2 * time.Second
)

// run is the sampler loop: the single owner of all mutable loop state. It
// publishes results through the store and the status snapshot and exits only
// when ctx is cancelled.
func (t *Tracker) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer t.updateSnap(func(s *Status) { s.State = StateStopped })

	sel := NewSelector(CapResources, t.resolvers, t.log)

	r, err := sel.SelectInitial(t.pid)
	if err != nil {
		t.enterDegraded(err)
		if r = t.degradedWait(ctx, sel); r == nil {
			return
		}
	} else {
		t.publish(Event{Type: EventResolverSwitched, Capability: CapResources, Resolver: r.Name()})
	}

	interval := t.cfg.MinInterval
	failures := 0
	slowStreak := 0
	t.updateSnap(func(s *Status) {
		s.State = StatePolling
		s.Resolver = r.Name()
		s.PollInterval = interval
		s.ConsecutiveFailures = 0
	})

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if stopped := t.waitWhilePaused(ctx); stopped {
			return
		}

		started := time.Now()
		sample, err := t.boundedQueryResources(ctx, r)
		elapsed := time.Since(started)

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			err = classifyQueryError(err)
			failures++
			t.updateSnap(func(s *Status) {
				s.State = StateBackoff
				s.ConsecutiveFailures = failures
				s.LastError = err.Error()
			})

			if retryable(err) && failures < t.cfg.RetryLimit {
				// Bounded retry against the same resolver, no delay.
				timer.Reset(0)
				continue
			}

			if retryable(err) {
				t.publish(Event{
					Type:       EventQueryAborted,
					Capability: CapResources,
					Resolver:   r.Name(),
					Attempts:   failures,
					Err:        err,
				})
			}

			prev := r.Name()
			next, serr := sel.Advance(t.pid)
			if serr != nil {
				t.enterDegraded(err)
				if next = t.degradedWait(ctx, sel); next == nil {
					return
				}
			} else {
				t.publish(Event{
					Type:       EventResolverSwitched,
					Capability: CapResources,
					Previous:   prev,
					Resolver:   next.Name(),
				})
			}

			// A resolver switch resets the failure counter and the
			// poll interval to their defaults.
			r = next
			failures = 0
			slowStreak = 0
			interval = t.cfg.MinInterval
			t.updateSnap(func(s *Status) {
				s.State = StatePolling
				s.Resolver = r.Name()
				s.PollInterval = interval
				s.ConsecutiveFailures = 0
			})
			timer.Reset(0)
			continue
		}

		failures = 0
		if !t.store.Append(sample) {
			t.log.Debug("sampler: dropped non-monotonic sample at %s", sample.Timestamp)
		}

		// Rate adaptation: sustained slow polls grow the interval, never
		// past the configured maximum and never below the minimum.
		if float64(elapsed) > float64(interval)*latencyFraction {
			slowStreak++
		} else {
			slowStreak = 0
		}
		if slowStreak >= slowPollStreak && interval < t.cfg.MaxInterval {
			interval = growInterval(interval, t.cfg.MaxInterval)
			slowStreak = 0
			t.publish(Event{Type: EventIntervalIncreased, Capability: CapResources, Resolver: r.Name(), Interval: interval})
		}

		t.updateSnap(func(s *Status) {
			s.State = StatePolling
			s.ConsecutiveFailures = 0
			s.PollInterval = interval
			s.LastError = ""
		})
		timer.Reset(interval)
	}
}

// enterDegraded flips the loop into degraded mode: no resource resolver
// remains, history stays readable, availability is re-tested on a long
// interval.
func (t *Tracker) enterDegraded(cause error) {
	t.updateSnap(func(s *Status) {
		s.State = StateDegraded
		s.Resolver = ""
		if cause != nil {
			s.LastError = cause.Error()
		}
	})
	t.publish(Event{Type: EventDegraded, Capability: CapResources, Err: cause})
}

// degradedWait blocks while degraded, re-probing the full resolver set every
// DegradedRetest. Returns the recovered resolver, or nil once ctx is done.
func (t *Tracker) degradedWait(ctx context.Context, sel *Selector) Resolver {
	timer := time.NewTimer(t.cfg.DegradedRetest)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		if r, err := sel.Rescan(t.pid); err == nil {
			t.publish(Event{Type: EventRecovered, Capability: CapResources, Resolver: r.Name()})
			return r
		}
		timer.Reset(t.cfg.DegradedRetest)
	}
}

// waitWhilePaused parks the loop while the paused flag is set. Returns true
// if ctx was cancelled while waiting.
func (t *Tracker) waitWhilePaused(ctx context.Context) bool {
	for {
		t.mu.Lock()
		paused := t.snap.Paused
		t.mu.Unlock()
		if !paused {
			return false
		}

		select {
		case <-ctx.Done():
			return true
		case <-t.resumeCh:
		}
	}
}

// boundedQueryResources runs a resource query under the configured timeout,
// in the same shape as the connection path: buffered result channel, select
// against the deadline.
func (t *Tracker) boundedQueryResources(ctx context.Context, r Resolver) (ResourceSample, error) {
	qctx, cancel := context.WithTimeout(ctx, t.cfg.QueryTimeout)
	defer cancel()

	type result struct {
		sample ResourceSample
		err    error
	}
	resultCh := make(chan result, 1)

	go func() {
		sample, err := r.QueryResources(qctx, t.pid)
		resultCh <- result{sample: sample, err: err}
	}()

	select {
	case <-qctx.Done():
		return ResourceSample{}, qctx.Err()
	case res := <-resultCh:
		return res.sample, res.err
	}
}

func (t *Tracker) updateSnap(mutate func(*Status)) {
	t.mu.Lock()
	mutate(&t.snap)
	t.mu.Unlock()
}

// growInterval applies the growth factor with the max cap.
func growInterval(interval, max time.Duration) time.Duration {
	grown := time.Duration(float64(interval) * intervalGrowth)
	if grown > max {
		return max
	}
	return grown
}
