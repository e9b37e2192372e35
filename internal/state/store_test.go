package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/five82/shoplist/internal/catalog"
	"github.com/five82/shoplist/internal/identity"
)

func TestStore_UpdateAndSnapshotClone(t *testing.T) {
	var s Store

	s.Update(func(snap *Snapshot) {
		snap.Products = catalog.SampleProducts()
		snap.Favorites = catalog.Favorites{1, 2}
		snap.Cart = catalog.Cart{{ID: 1, Name: "Apples"}}
		snap.Identity = identity.Effective{OwnerID: "me", Principal: &identity.Principal{UID: "me"}}
	})

	snap := s.Snapshot()
	if len(snap.Products) != 12 || snap.Version != 1 {
		t.Fatalf("snapshot = %d products version %d", len(snap.Products), snap.Version)
	}

	// Returned snapshot should be independent of the stored one.
	snap.Products[0].Name = "changed"
	snap.Favorites[0] = 99
	snap.Cart[0].ID = 99
	snap.Identity.Principal.UID = "other"

	snap2 := s.Snapshot()
	if snap2.Products[0].Name == "changed" || snap2.Favorites[0] != 1 || snap2.Cart[0].ID != 1 {
		t.Fatalf("Snapshot should deep-copy slices: %#v", snap2)
	}
	if snap2.Identity.Principal.UID != "me" {
		t.Fatalf("Snapshot should copy the principal")
	}
}

func TestStore_ErrorKeepsDataAndCountsFailures(t *testing.T) {
	var s Store
	s.Update(func(snap *Snapshot) { snap.Favorites = catalog.Favorites{4} })

	origErr := errors.New("boom")
	s.RecordError(origErr)
	s.RecordError(errors.New("again"))
	s.RecordError(nil)

	snap := s.Snapshot()
	if !reflect.DeepEqual(snap.Favorites, catalog.Favorites{4}) {
		t.Fatalf("data changed on error: %v", snap.Favorites)
	}
	if snap.ConsecutiveFailures != 2 || !snap.IsOffline() {
		t.Fatalf("failures = %d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}
	if snap.LastError == nil || snap.LastError.Error() != "again" {
		t.Fatalf("LastError = %v, want again", snap.LastError)
	}

	at := time.Now()
	s.MarkSynced(at)
	snap = s.Snapshot()
	if snap.IsOffline() || snap.LastError != nil || !snap.LastSynced.Equal(at) {
		t.Fatalf("MarkSynced left %+v", snap)
	}
}

func TestStore_SnapshotClonesError(t *testing.T) {
	var s Store
	origErr := errors.New("boom")
	s.RecordError(origErr)
	snap := s.Snapshot()
	if !errors.Is(snap.LastError, origErr) {
		t.Fatalf("LastError should wrap original")
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
}

func TestStore_ResetKeepsVersionMonotonic(t *testing.T) {
	var s Store
	s.Update(func(snap *Snapshot) { snap.Products = catalog.SampleProducts() })
	s.Update(func(snap *Snapshot) { snap.ShareCode = "ABCD-EFGH" })

	s.Reset(identity.Effective{OwnerID: "g", Guest: true}, PhaseLoading)
	snap := s.Snapshot()
	if snap.Products != nil || snap.ShareCode != "" {
		t.Fatalf("Reset kept data: %+v", snap)
	}
	if snap.Version != 3 || snap.Phase != PhaseLoading || !snap.ReadOnly() {
		t.Fatalf("after reset version=%d phase=%s readOnly=%v", snap.Version, snap.Phase, snap.ReadOnly())
	}
}

func TestStore_ChangedCoalesces(t *testing.T) {
	var s Store
	ch := s.Changed()

	s.Update(func(*Snapshot) {})
	s.Update(func(*Snapshot) {})

	select {
	case <-ch:
	default:
		t.Fatalf("expected change notification")
	}
	select {
	case <-ch:
		t.Fatalf("notifications should coalesce")
	default:
	}
}

func TestPhaseString(t *testing.T) {
	if PhaseSynced.String() != "synced" || Phase(9).String() != "phase(9)" {
		t.Fatalf("unexpected phase strings")
	}
}
