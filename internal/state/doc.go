// Package state holds the session's in-memory catalog, favorites and cart.
//
// # Overview
//
// The sync controller is the only writer. The UI reads cloned snapshots and
// waits on Changed to know when to re-render:
//
//	Controller:                     UI:
//	┌──────────────────┐            ┌──────────────────┐
//	│ mutation / push  │            │ <-store.Changed()│
//	│      ↓           │            │      ↓           │
//	│ store.Update(fn) │───────────→│ store.Snapshot() │
//	└──────────────────┘  (mutex)   └──────────────────┘
//
// # Concurrency Model
//
// Update and the error helpers take the write lock; Snapshot takes the read
// lock. The lock is held only while copying, never during I/O. Changed
// coalesces notifications into a single pending signal, so a slow reader sees
// the latest state rather than every intermediate one.
//
// # Snapshots
//
// Snapshot deep-copies every slice and the principal so the UI can hold on to
// it while the controller keeps mutating. Version increases on every change
// and lets readers skip redundant renders.
//
// The zero Store is ready to use.
package state
