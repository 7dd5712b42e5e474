package tracker

import (
	"fmt"
	"time"
)

// EventType identifies a notable tracker condition.
type EventType int

const (
	// EventResolverSwitched fires when the selector moves to a new resolver.
	EventResolverSwitched EventType = iota

	// EventQueryAborted fires after the retry limit is exhausted against
	// one resolver (the "three strikes" abort).
	EventQueryAborted

	// EventDegraded fires when no resolver remains for a capability.
	EventDegraded

	// EventRecovered fires when a degraded capability finds a working
	// resolver again.
	EventRecovered

	// EventIntervalIncreased fires when sustained slow polls grow the
	// poll interval.
	EventIntervalIncreased

	// EventLookupSlow fires when an on-demand connection lookup runs long.
	EventLookupSlow
)

// String returns a short name for the event type.
func (t EventType) String() string {
	switch t {
	case EventResolverSwitched:
		return "resolver-switched"
	case EventQueryAborted:
		return "query-aborted"
	case EventDegraded:
		return "degraded"
	case EventRecovered:
		return "recovered"
	case EventIntervalIncreased:
		return "interval-increased"
	case EventLookupSlow:
		return "lookup-slow"
	default:
		return "unknown"
	}
}

// Event is one notable condition published to subscribers. Fields beyond
// Type and Time are populated per type: Resolver/Previous for switches,
// Attempts and Err for aborts, Interval for interval growth, Elapsed for
// slow lookups.
type Event struct {
	Type       EventType
	Time       time.Time
	Capability Capability
	Resolver   string
	Previous   string
	Attempts   int
	Interval   time.Duration
	Elapsed    time.Duration
	Err        error
}

// Message renders the event as the human-readable notice shown in event
// logs and debug output.
func (e Event) Message() string {
	switch e.Type {
	case EventResolverSwitched:
		if e.Previous == "" {
			return fmt.Sprintf("querying %s with the %s resolver", e.Capability, e.Resolver)
		}
		return fmt.Sprintf("unable to query %s with %s, trying %s", e.Capability, e.Previous, e.Resolver)
	case EventQueryAborted:
		return fmt.Sprintf("failed %d attempts to query %s from %s (%v)", e.Attempts, e.Capability, e.Resolver, e.Err)
	case EventDegraded:
		return fmt.Sprintf("unable to use any of the %s resolvers, last-known data retained", e.Capability)
	case EventRecovered:
		return fmt.Sprintf("%s queries recovered using the %s resolver", e.Capability, e.Resolver)
	case EventIntervalIncreased:
		return fmt.Sprintf("poll time increasing to %.1f seconds per call", e.Interval.Seconds())
	case EventLookupSlow:
		return fmt.Sprintf("connection lookup took %.1f seconds", e.Elapsed.Seconds())
	default:
		return e.Type.String()
	}
}
