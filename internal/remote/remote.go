package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/five82/shoplist/internal/catalog"
)

// ErrNotFound reports a missing owner document or share-code mapping.
var ErrNotFound = errors.New("remote document not found")

// Field names a mergeable field of the owner document.
type Field string

const (
	FieldProducts  Field = "products"
	FieldFavorites Field = "favorites"
	FieldCart      Field = "cart"
	FieldShareCode Field = "shareCode"
	FieldUpdatedAt Field = "updatedAt"
	FieldWriter    Field = "writer"
	FieldRevision  Field = "revision"
)

// Tag identifies the session and revision that produced a write. Sessions use
// it to recognise their own writes when the change feed echoes them back.
type Tag struct {
	Writer   string
	Revision int64
}

// Document is the per-owner remote state. A nil slice means the field is
// absent from the stored document; a non-nil empty slice means it is present
// and empty.
type Document struct {
	Products  catalog.Products
	Favorites catalog.Favorites
	Cart      catalog.Cart
	ShareCode string
	UpdatedAt time.Time
	Writer    string
	Revision  int64
}

// HasContent reports whether the document carries a catalog. An owner whose
// document has no products field is seeded with the sample catalog.
func (d Document) HasContent() bool {
	return d.Products != nil
}

// Tag returns the revision tag of the last write applied to the document.
func (d Document) Tag() Tag {
	return Tag{Writer: d.Writer, Revision: d.Revision}
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	d.Products = d.Products.Clone()
	d.Favorites = d.Favorites.Clone()
	d.Cart = d.Cart.Clone()
	return d
}

// ShareCodeRecord is the reverse mapping stored per share code.
type ShareCodeRecord struct {
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is a per-owner document store with a change feed and a share-code
// reverse index.
type Store interface {
	// WriteField merge-writes one field of the owner's document and stamps
	// updatedAt and the revision tag. Other fields are left alone.
	WriteField(ctx context.Context, ownerID string, field Field, value any, tag Tag) error
	// ReadDocument returns the owner's document or ErrNotFound.
	ReadDocument(ctx context.Context, ownerID string) (Document, error)
	// Subscribe calls onChange with the full document on every change,
	// starting with the current state when the document exists.
	Subscribe(ctx context.Context, ownerID string, onChange func(Document)) (Subscription, error)
	// LookupShareCode returns the owner bound to code or ErrNotFound.
	LookupShareCode(ctx context.Context, code string) (string, error)
	// RotateShareCode reads the owner's current shareCode, deletes its
	// mapping, stores newCode's mapping and sets the shareCode field stamped
	// with tag, atomically. It returns the code that was replaced.
	RotateShareCode(ctx context.Context, ownerID, newCode string, tag Tag) (string, error)
	// RevokeShareCode deletes the mapping of the owner's current shareCode and
	// clears the field stamped with tag, atomically. It returns the revoked
	// code, empty when none was active.
	RevokeShareCode(ctx context.Context, ownerID string, tag Tag) (string, error)
	Close() error
}

// Subscription is a live change feed. Cancel may be called any number of
// times, including after the feed has failed.
type Subscription interface {
	Cancel()
}

// feed is the Subscription shared by every backend: a cancel func run once
// plus a done channel closed when the delivery goroutine exits.
type feed struct {
	once   sync.Once
	cancel func()
	done   chan struct{}
}

func newFeed(cancel func()) *feed {
	return &feed{cancel: cancel, done: make(chan struct{})}
}

// Cancel stops delivery and waits for an in-flight callback to return. It
// must not be called from inside the subscription's own callback.
func (f *feed) Cancel() {
	f.once.Do(func() {
		if f.cancel != nil {
			f.cancel()
		}
	})
	<-f.done
}

func (f *feed) finished() {
	close(f.done)
}

// encodeValue checks that value has the Go type expected for field and
// returns an independent copy of it.
func encodeValue(field Field, value any) (any, error) {
	switch field {
	case FieldProducts:
		if v, ok := value.(catalog.Products); ok {
			return nonNilProducts(v), nil
		}
	case FieldFavorites:
		if v, ok := value.(catalog.Favorites); ok {
			if v == nil {
				return catalog.Favorites{}, nil
			}
			return v.Clone(), nil
		}
	case FieldCart:
		if v, ok := value.(catalog.Cart); ok {
			if v == nil {
				return catalog.Cart{}, nil
			}
			return v.Clone(), nil
		}
	case FieldShareCode:
		if v, ok := value.(string); ok {
			return v, nil
		}
	default:
		return nil, fmt.Errorf("field %q is not writable", field)
	}
	return nil, fmt.Errorf("field %q: unexpected value type %T", field, value)
}

func nonNilProducts(p catalog.Products) catalog.Products {
	if p == nil {
		return catalog.Products{}
	}
	return p.Clone()
}
