// Package engine is the client-resident synchronization and order-lifecycle
// engine.
//
// The engine maintains a local, optimistic mirror of remote order and
// notification state, drives order status transitions through the lifecycle
// state machine, deduplicates and rate-limits customer signals, gates
// geofenced actions, and runs the janitor pass on privileged devices.
//
// ARCHITECTURE
//
// The remote store is the single source of truth. Each subscription delivers
// a full snapshot on every change and the engine replaces the corresponding
// mirror slice wholesale; the only local-only state that survives a refresh
// is the set of optimistic placeholders the write pipeline manages
// explicitly. Consumers observe the mirror through per-collection buses that
// republish every snapshot.
//
// There is no concurrency control against other devices beyond last-write-
// wins at the remote store. The one concurrency mechanism the engine does
// use is idempotency: the (session, type, pending) key guarantees that any
// number of rapid "call staff" taps converge to exactly one live signal.
package engine
