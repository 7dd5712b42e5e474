// Package tracker samples resource usage and network connections of a relay
// daemon process through an ordered chain of query mechanisms.
//
// No single query mechanism works everywhere: procfs only exists on Linux,
// native calls need matching privileges, ps and lsof need the binaries on
// PATH, and a remote daemon is only reachable over SSH. The tracker treats
// each mechanism as a Resolver and walks an ordered list of them, degrading
// gracefully instead of failing when one stops working.
//
// # Key Components
//
//	Resolver  - One query mechanism (proc, native, ps, lsof, ssh) with
//	            declared capabilities for resources and connections
//	Selector  - Ordered fallback over resolvers for one capability;
//	            advancing past a resolver excludes it until a rescan
//	Store     - Fixed-capacity ring of resource samples with strictly
//	            increasing timestamps
//	Tracker   - The facade: owns the sampling loop, the stores, the
//	            connection cache and the event stream
//	PortUsage - System-wide port-to-application table for labeling the
//	            far side of connections
//
// # Sampling Loop
//
// Start launches one goroutine that owns all polling:
//
//  1. Select the first working resources resolver
//  2. Query it with a bounded timeout, append the sample to the store
//  3. Sleep the current poll interval, go to 2
//
// A failed query is retried immediately. After three consecutive failures
// the query is aborted and the selector advances to the next resolver; when
// no resolver remains the tracker enters a degraded state and periodically
// rescans the full chain, since a restart or privilege change can bring a
// resolver back.
//
// The poll interval adapts to query latency: when queries repeatedly take
// most of the interval, the interval grows geometrically up to the
// configured maximum, and a switch to a fresh resolver resets it.
//
// # Connections
//
// Connection lookups are pull-based rather than polled: Connections answers
// from a short-lived cache and queries through its own resolver chain only
// when the cache has expired. Resources and connections fail independently;
// losing lsof does not stop CPU sampling.
//
// # Events
//
// Resolver switches, aborted queries, degradation and interval growth are
// published on the event stream (Subscribe) so the dashboard can surface
// them without polling Status.
package tracker
