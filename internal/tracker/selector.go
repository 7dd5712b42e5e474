package tracker

import (
	"fmt"

	"github.com/relaymon/relaymon/internal/logger"
)

// Selector walks an ordered list of resolvers for one capability, most
// permission-friendly first, advancing past resolvers that fail.
//
// Advance permanently excludes a resolver for the Selector's lifetime;
// Rescan clears the exclusions and re-probes everything, for degraded-mode
// recovery after runtime permission changes.
//
// A Selector is not safe for concurrent use; each one is driven by a single
// owner (the sampler loop for resources, the facade's connection path for
// connections).
type Selector struct {
	capability Capability
	candidates []Resolver
	excluded   map[string]bool
	current    Resolver
	log        logger.Logger
}

// NewSelector keeps only the resolvers carrying the given capability, in the
// order supplied.
func NewSelector(capability Capability, resolvers []Resolver, log logger.Logger) *Selector {
	if log == nil {
		log = logger.Noop()
	}
	s := &Selector{
		capability: capability,
		excluded:   make(map[string]bool),
		log:        log,
	}
	for _, r := range resolvers {
		if r.Capabilities().Has(capability) {
			s.candidates = append(s.candidates, r)
		}
	}
	return s
}

// Current returns the active resolver, or nil before the first selection.
func (s *Selector) Current() Resolver {
	return s.current
}

// SelectInitial picks the first candidate whose availability predicate
// holds. Unavailable candidates are skipped, not excluded: a later Advance
// walks the full remaining order again.
func (s *Selector) SelectInitial(pid int) (Resolver, error) {
	return s.pick(pid)
}

// Advance excludes the current resolver from future consideration and picks
// the next available candidate.
func (s *Selector) Advance(pid int) (Resolver, error) {
	if s.current != nil {
		s.excluded[s.current.Name()] = true
	}
	return s.pick(pid)
}

// Rescan clears all exclusions and re-probes every candidate. Used while
// degraded, in case permissions changed at runtime.
func (s *Selector) Rescan(pid int) (Resolver, error) {
	s.excluded = make(map[string]bool)
	return s.pick(pid)
}

func (s *Selector) pick(pid int) (Resolver, error) {
	for _, r := range s.candidates {
		if s.excluded[r.Name()] {
			continue
		}
		if err := r.Available(pid); err != nil {
			s.log.Debug("selector: %s resolver %s unavailable: %v", s.capability, r.Name(), err)
			continue
		}
		s.current = r
		return r, nil
	}
	s.current = nil
	return nil, fmt.Errorf("%w for %s queries", ErrNoResolverAvailable, s.capability)
}

// Remaining lists candidate names not yet excluded, in order.
func (s *Selector) Remaining() []string {
	var names []string
	for _, r := range s.candidates {
		if !s.excluded[r.Name()] {
			names = append(names, r.Name())
		}
	}
	return names
}
