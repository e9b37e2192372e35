package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/shoplist/internal/catalog"
	"github.com/five82/shoplist/internal/identity"
)

// Phase is the sync controller's load state for the current identity.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseSynced
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseSynced:
		return "synced"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Snapshot is the session state visible to the UI.
type Snapshot struct {
	Products  catalog.Products
	Favorites catalog.Favorites
	Cart      catalog.Cart
	ShareCode string

	Identity identity.Effective
	Phase    Phase
	// OwnerMissing is set when a guest's owner has no remote document.
	OwnerMissing bool

	LastSynced          time.Time
	LastError           error
	ConsecutiveFailures int // remote failures since the last successful read or push
	Version             uint64
}

// IsOffline reports whether the last remote read failed.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures > 0
}

// ReadOnly reports whether the catalog may not be edited.
func (s Snapshot) ReadOnly() bool {
	return !s.Identity.Owner()
}

// Store coordinates concurrent access to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	changed  chan struct{}
}

// Update applies fn to the stored snapshot under the write lock and notifies
// readers. fn must not retain the pointer.
func (s *Store) Update(fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.snapshot)
	s.snapshot.Version++
	ch := s.changedLocked()
	s.mu.Unlock()
	notify(ch)
}

// Reset clears data and identity for a new session while keeping Version
// monotonic.
func (s *Store) Reset(id identity.Effective, phase Phase) {
	s.Update(func(snap *Snapshot) {
		*snap = Snapshot{Identity: id, Phase: phase, Version: snap.Version}
	})
}

// RecordError keeps the current data and records err.
func (s *Store) RecordError(err error) {
	if err == nil {
		return
	}
	s.Update(func(snap *Snapshot) {
		snap.LastError = err
		snap.ConsecutiveFailures++
	})
}

// MarkSynced clears the failure state after a successful remote exchange.
func (s *Store) MarkSynced(at time.Time) {
	s.Update(func(snap *Snapshot) {
		snap.LastError = nil
		snap.ConsecutiveFailures = 0
		snap.LastSynced = at
	})
}

// Snapshot returns a deep copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Products = s.snapshot.Products.Clone()
	snap.Favorites = s.snapshot.Favorites.Clone()
	snap.Cart = s.snapshot.Cart.Clone()
	if p := s.snapshot.Identity.Principal; p != nil {
		dup := *p
		snap.Identity.Principal = &dup
	}
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

// Changed returns a channel that receives a value after each change. Signals
// coalesce; receivers should read a fresh Snapshot on every wake-up.
func (s *Store) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changedLocked()
}

func (s *Store) changedLocked() chan struct{} {
	if s.changed == nil {
		s.changed = make(chan struct{}, 1)
	}
	return s.changed
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
