package localcache

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/five82/shoplist/internal/catalog"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "nested", "cache.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_EmptyDefaults(t *testing.T) {
	c := openTestCache(t)

	if got := c.Products(); got == nil || len(got) != 0 {
		t.Fatalf("Products = %#v, want empty non-nil", got)
	}
	if got := c.Favorites(); got == nil || len(got) != 0 {
		t.Fatalf("Favorites = %#v, want empty non-nil", got)
	}
	if got := c.Cart(); got == nil || len(got) != 0 {
		t.Fatalf("Cart = %#v, want empty non-nil", got)
	}
	if got := c.GuestOwner(); got != "" {
		t.Fatalf("GuestOwner = %q, want empty", got)
	}
}

func TestCache_SaveReplacesValue(t *testing.T) {
	c := openTestCache(t)

	if err := c.SaveProducts(catalog.SampleProducts()); err != nil {
		t.Fatalf("SaveProducts: %v", err)
	}
	if err := c.SaveProducts(catalog.SampleProducts()[:2]); err != nil {
		t.Fatalf("SaveProducts: %v", err)
	}
	if got := c.Products(); !reflect.DeepEqual(got, catalog.SampleProducts()[:2]) {
		t.Fatalf("Products = %#v, want first two samples", got)
	}

	if err := c.SaveFavorites(catalog.Favorites{3, 7}); err != nil {
		t.Fatalf("SaveFavorites: %v", err)
	}
	if got := c.Favorites(); !reflect.DeepEqual(got, catalog.Favorites{3, 7}) {
		t.Fatalf("Favorites = %v, want [3 7]", got)
	}

	cart := catalog.Cart{catalog.SampleProducts()[0], catalog.SampleProducts()[0]}
	if err := c.SaveCart(cart); err != nil {
		t.Fatalf("SaveCart: %v", err)
	}
	if got := c.Cart(); !reflect.DeepEqual(got, cart) {
		t.Fatalf("Cart = %#v, want %#v", got, cart)
	}
}

func TestCache_MalformedEntriesReadAsEmpty(t *testing.T) {
	c := openTestCache(t)

	for _, key := range []Key{KeyProducts, KeyFavorites, KeyCart} {
		if err := c.put(key, []byte("{not json")); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	if len(c.Products()) != 0 || len(c.Favorites()) != 0 || len(c.Cart()) != 0 {
		t.Fatalf("malformed entries should read as empty")
	}

	if err := c.put(KeyFavorites, []byte(`{"id": 1}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if got := c.Favorites(); len(got) != 0 {
		t.Fatalf("Favorites = %v, want empty for wrong shape", got)
	}

	if err := c.put(KeyProducts, []byte(`null`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if got := c.Products(); got == nil {
		t.Fatalf("Products = nil, want empty slice for null")
	}
}

func TestCache_GuestOwnerMarker(t *testing.T) {
	c := openTestCache(t)

	if err := c.SetGuestOwner("  owner-1 "); err != nil {
		t.Fatalf("SetGuestOwner: %v", err)
	}
	if got := c.GuestOwner(); got != "owner-1" {
		t.Fatalf("GuestOwner = %q, want owner-1", got)
	}
	if err := c.ClearGuestOwner(); err != nil {
		t.Fatalf("ClearGuestOwner: %v", err)
	}
	if got := c.GuestOwner(); got != "" {
		t.Fatalf("GuestOwner = %q after clear, want empty", got)
	}
}

func TestCache_ClearKeepsGuestMarker(t *testing.T) {
	c := openTestCache(t)

	_ = c.SaveProducts(catalog.SampleProducts())
	_ = c.SaveFavorites(catalog.Favorites{1})
	_ = c.SetGuestOwner("owner")

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if len(c.Products()) != 0 || len(c.Favorites()) != 0 {
		t.Fatalf("Clear left data behind")
	}
	if c.GuestOwner() != "owner" {
		t.Fatalf("Clear removed guest marker")
	}
}

func TestCache_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := c.SaveFavorites(catalog.Favorites{9}); err != nil {
		t.Fatalf("SaveFavorites: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	c, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c.Close()
	if got := c.Favorites(); !reflect.DeepEqual(got, catalog.Favorites{9}) {
		t.Fatalf("Favorites after reopen = %v, want [9]", got)
	}
}
