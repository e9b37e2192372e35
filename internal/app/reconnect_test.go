package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/shoplist/internal/identity"
	"github.com/five82/shoplist/internal/localcache"
	"github.com/five82/shoplist/internal/remote"
	"github.com/five82/shoplist/internal/state"
	"github.com/five82/shoplist/internal/syncer"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second},
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 64; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

func TestReconnect_ReloadsOfflineController(t *testing.T) {
	cache, err := localcache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	store := remote.NewMemoryStore()
	ctrl, err := syncer.New(syncer.Options{Cache: cache, Store: store, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("syncer.New: %v", err)
	}
	t.Cleanup(func() {
		ctrl.Close()
		_ = cache.Close()
	})

	ctx := context.Background()
	store.SetReadError(errors.New("unavailable"))
	_ = ctrl.SetIdentity(ctx, identity.Effective{OwnerID: "alice", Principal: &identity.Principal{UID: "alice"}})

	if got := reconnect(ctx, ctrl, 0, zerolog.Nop()); got != 1 {
		t.Fatalf("failures after unreachable reload = %d, want 1", got)
	}
	if got := reconnect(ctx, ctrl, 1, zerolog.Nop()); got != 2 {
		t.Fatalf("failures after second unreachable reload = %d, want 2", got)
	}

	store.SetReadError(nil)
	if got := reconnect(ctx, ctrl, 2, zerolog.Nop()); got != 0 {
		t.Fatalf("failures after successful reload = %d, want 0", got)
	}
	if ctrl.State().Snapshot().IsOffline() {
		t.Fatalf("controller still offline after reload")
	}
}

type fakeReloader struct {
	store *state.Store
	calls atomic.Int32
}

func (f *fakeReloader) State() *state.Store { return f.store }

func (f *fakeReloader) Reload(context.Context) error {
	f.calls.Add(1)
	f.store.MarkSynced(time.Now())
	return nil
}

func TestReconnect_SkipsWhenOnline(t *testing.T) {
	f := &fakeReloader{store: &state.Store{}}
	f.store.Reset(identity.Effective{OwnerID: "alice", Principal: &identity.Principal{UID: "alice"}}, state.PhaseSynced)

	if got := reconnect(context.Background(), f, 3, zerolog.Nop()); got != 0 {
		t.Fatalf("failures = %d, want 0", got)
	}
	if f.calls.Load() != 0 {
		t.Fatalf("Reload called while online")
	}
}

func TestStartReconnector_RecoversAndStops(t *testing.T) {
	f := &fakeReloader{store: &state.Store{}}
	f.store.Reset(identity.Effective{OwnerID: "bob", Guest: true}, state.PhaseSynced)
	f.store.RecordError(errors.New("offline"))

	ctx, cancel := context.WithCancel(context.Background())
	StartReconnector(ctx, f, 5*time.Millisecond, zerolog.Nop())

	deadline := time.Now().Add(2 * time.Second)
	for f.store.Snapshot().IsOffline() {
		if time.Now().After(deadline) {
			t.Fatalf("reconnector never reloaded")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if got := f.calls.Load(); got != 1 {
		t.Fatalf("Reload calls = %d, want 1", got)
	}
}
