// Package localcache persists the session's products, favorites, cart and the
// guest-session marker in a single bbolt file under named keys.
//
// Values are JSON. A write fully replaces the key. Reads never fail: a missing
// key, a read error or content that does not parse yields the empty value.
package localcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/five82/shoplist/internal/catalog"
)

// Key names a cached value.
type Key string

const (
	KeyProducts   Key = "products"
	KeyFavorites  Key = "favorites"
	KeyCart       Key = "cart"
	KeyGuestOwner Key = "guest-owner-id"
)

const (
	defaultCachePath = "~/.local/share/shoplist/cache.db"
	openTimeout      = time.Second
)

var bucketName = []byte("shoplist")

// Cache is a bbolt-backed key-value store. It is safe for concurrent use.
type Cache struct {
	db *bolt.DB
}

// DefaultPath returns the default cache location.
func DefaultPath() string {
	return defaultCachePath
}

// Open opens (creating if needed) the cache file at path. An empty path uses
// DefaultPath.
func Open(path string) (*Cache, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := bolt.Open(resolved, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init cache bucket: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the file lock.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Products returns the cached catalog, or an empty one.
func (c *Cache) Products() catalog.Products {
	out := catalog.Products{}
	if !c.readJSON(KeyProducts, &out) || out == nil {
		return catalog.Products{}
	}
	return out
}

// Favorites returns the cached favorite ids, or none.
func (c *Cache) Favorites() catalog.Favorites {
	out := catalog.Favorites{}
	if !c.readJSON(KeyFavorites, &out) || out == nil {
		return catalog.Favorites{}
	}
	return out.Dedupe()
}

// Cart returns the cached cart, or an empty one.
func (c *Cache) Cart() catalog.Cart {
	out := catalog.Cart{}
	if !c.readJSON(KeyCart, &out) || out == nil {
		return catalog.Cart{}
	}
	return out
}

// SaveProducts replaces the cached catalog.
func (c *Cache) SaveProducts(products catalog.Products) error {
	if products == nil {
		products = catalog.Products{}
	}
	return c.writeJSON(KeyProducts, products)
}

// SaveFavorites replaces the cached favorites.
func (c *Cache) SaveFavorites(favs catalog.Favorites) error {
	if favs == nil {
		favs = catalog.Favorites{}
	}
	return c.writeJSON(KeyFavorites, favs)
}

// SaveCart replaces the cached cart.
func (c *Cache) SaveCart(cart catalog.Cart) error {
	if cart == nil {
		cart = catalog.Cart{}
	}
	return c.writeJSON(KeyCart, cart)
}

// GuestOwner returns the owner id of the saved guest session, if any.
func (c *Cache) GuestOwner() string {
	raw, ok := c.get(KeyGuestOwner)
	if !ok {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// SetGuestOwner records the owner id a guest session is bound to.
func (c *Cache) SetGuestOwner(ownerID string) error {
	return c.put(KeyGuestOwner, []byte(strings.TrimSpace(ownerID)))
}

// ClearGuestOwner forgets the guest session.
func (c *Cache) ClearGuestOwner() error {
	return c.delete(KeyGuestOwner)
}

// Clear removes products, favorites and cart.
func (c *Cache) Clear() error {
	for _, key := range []Key{KeyProducts, KeyFavorites, KeyCart} {
		if err := c.delete(key); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) readJSON(key Key, dest any) bool {
	raw, ok := c.get(key)
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

func (c *Cache) writeJSON(key Key, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return c.put(key, data)
}

func (c *Cache) get(key Key) ([]byte, bool) {
	if c == nil || c.db == nil {
		return nil, false
	}
	var out []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			// bbolt values are only valid inside the transaction.
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || out == nil {
		return nil, false
	}
	return out, true
}

func (c *Cache) put(key Key, value []byte) error {
	if c == nil || c.db == nil {
		return errors.New("cache is closed")
	}
	err := c.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (c *Cache) delete(key Key) error {
	if c == nil || c.db == nil {
		return errors.New("cache is closed")
	}
	err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultCachePath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
