// Package usertimings correlates performance.measure, console.time and related
// trace events into nested intervals and point events.
//
// # Lifecycle
//
// A Handler moves through three states:
//
//	Idle ──Reset──▶ Accumulating ──Finalize──▶ Finalized
//	                     ▲                          │
//	                     └──────────Reset───────────┘
//
// NewHandler returns a handler that is already Accumulating. HandleEvent is
// only valid while accumulating, Data only once finalized. Finalize may be
// called more than once; later calls are no-ops.
//
// # Pairing
//
// Async begin and end events are matched by Key (category, scope id, name).
// Each key keeps a stack of open begins, so intervals that share a key nest
// and close innermost first. An end that arrives before its begin waits on a
// second stack until the begin shows up; that is what makes reversed input
// pair the same way forward input does. A candidate is only taken when the
// resulting duration is non-negative.
//
// # Ordering and nesting
//
// Finalize sorts intervals by start time (longer first on ties, then by
// discovery order) and assigns each its closest enclosing interval as parent.
// Points are sorted by timestamp. Leftover begins and ends become
// diagnostics; they never produce intervals.
package usertimings
