package remote

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/five82/shoplist/internal/catalog"
)

// liveRedis connects to SHOPLIST_REDIS_ADDR under a throwaway key prefix.
func liveRedis(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("SHOPLIST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SHOPLIST_REDIS_ADDR not set")
	}
	store, err := NewRedisStore(context.Background(), RedisOptions{
		Addr:   addr,
		Prefix: "shoplist-test:" + uuid.NewString() + ":",
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisStore_LiveMergeWriteAndFeed(t *testing.T) {
	store := liveRedis(t)
	ctx := context.Background()

	if _, err := store.ReadDocument(ctx, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ReadDocument err = %v, want ErrNotFound", err)
	}

	var (
		mu   sync.Mutex
		seen []Document
	)
	sub, err := store.Subscribe(ctx, "alice", func(d Document) {
		mu.Lock()
		seen = append(seen, d)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Cancel()

	if err := store.WriteField(ctx, "alice", FieldProducts, catalog.SampleProducts(), Tag{Writer: "s", Revision: 1}); err != nil {
		t.Fatalf("WriteField products: %v", err)
	}
	if err := store.WriteField(ctx, "alice", FieldFavorites, catalog.Favorites{3, 7}, Tag{Writer: "s", Revision: 2}); err != nil {
		t.Fatalf("WriteField favorites: %v", err)
	}

	doc, err := store.ReadDocument(ctx, "alice")
	if err != nil {
		t.Fatalf("ReadDocument: %v", err)
	}
	if len(doc.Products) != 12 || len(doc.Favorites) != 2 {
		t.Fatalf("merge lost a field: products=%d favorites=%v", len(doc.Products), doc.Favorites)
	}
	if doc.Tag() != (Tag{Writer: "s", Revision: 2}) {
		t.Fatalf("tag = %+v", doc.Tag())
	}

	waitFor(t, "favorites push", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && len(seen[len(seen)-1].Favorites) == 2
	})
	sub.Cancel()
	sub.Cancel()
}

func TestRedisStore_LiveShareCodeRotation(t *testing.T) {
	store := liveRedis(t)
	ctx := context.Background()

	if _, err := store.RotateShareCode(ctx, "alice", "AAAA-BBBB", Tag{Writer: "a", Revision: 1}); err != nil {
		t.Fatalf("RotateShareCode: %v", err)
	}
	if owner, err := store.LookupShareCode(ctx, "AAAA-BBBB"); err != nil || owner != "alice" {
		t.Fatalf("LookupShareCode = %q, %v", owner, err)
	}

	previous, err := store.RotateShareCode(ctx, "alice", "CCCC-DDDD", Tag{Writer: "b", Revision: 4})
	if err != nil || previous != "AAAA-BBBB" {
		t.Fatalf("RotateShareCode = %q, %v", previous, err)
	}
	if _, err := store.LookupShareCode(ctx, "AAAA-BBBB"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old code still resolves: %v", err)
	}
	doc, err := store.ReadDocument(ctx, "alice")
	if err != nil || doc.ShareCode != "CCCC-DDDD" {
		t.Fatalf("ShareCode = %q, %v", doc.ShareCode, err)
	}
	if doc.Tag() != (Tag{Writer: "b", Revision: 4}) {
		t.Fatalf("rotation tag = %+v", doc.Tag())
	}

	revoked, err := store.RevokeShareCode(ctx, "alice", Tag{Writer: "a", Revision: 2})
	if err != nil || revoked != "CCCC-DDDD" {
		t.Fatalf("RevokeShareCode = %q, %v", revoked, err)
	}
	if _, err := store.LookupShareCode(ctx, "CCCC-DDDD"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("revoked code still resolves: %v", err)
	}
}

func TestRedisStore_LiveStampsServerTime(t *testing.T) {
	store := liveRedis(t)
	ctx := context.Background()

	server, err := store.client.Time(ctx).Result()
	if err != nil {
		t.Fatalf("TIME: %v", err)
	}
	if err := store.WriteField(ctx, "alice", FieldCart, catalog.Cart{}, Tag{Writer: "a", Revision: 1}); err != nil {
		t.Fatalf("WriteField: %v", err)
	}
	doc, err := store.ReadDocument(ctx, "alice")
	if err != nil {
		t.Fatalf("ReadDocument: %v", err)
	}
	if doc.UpdatedAt.Before(server) || doc.UpdatedAt.Sub(server) > 5*time.Second {
		t.Fatalf("updatedAt %v not taken from server clock %v", doc.UpdatedAt, server)
	}
}
