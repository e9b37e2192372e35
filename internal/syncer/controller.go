// Package syncer keeps the in-memory catalog, favorites and cart consistent
// with the local cache and the owner's remote document.
//
// Every outbound write is tagged with this session's id and a monotonic
// revision. Pushes from the change feed that carry this session's id and a
// revision it has already written are echoes and are dropped; anything else
// is applied to memory and the cache without writing back.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/five82/shoplist/internal/catalog"
	"github.com/five82/shoplist/internal/identity"
	"github.com/five82/shoplist/internal/remote"
	"github.com/five82/shoplist/internal/sharecode"
	"github.com/five82/shoplist/internal/state"
)

var (
	// ErrReadOnly reports a catalog or share-code change attempted by a guest.
	ErrReadOnly = errors.New("read-only: guests cannot change the catalog")
	// ErrNoIdentity reports a mutation with nobody signed in.
	ErrNoIdentity = errors.New("no active identity")
	// ErrNoCartLine reports a cart index out of range.
	ErrNoCartLine = errors.New("no such cart line")
)

const defaultReadTimeout = 10 * time.Second

// LocalCache is the persistence the controller mirrors state into.
type LocalCache interface {
	Products() catalog.Products
	Favorites() catalog.Favorites
	Cart() catalog.Cart
	SaveProducts(catalog.Products) error
	SaveFavorites(catalog.Favorites) error
	SaveCart(catalog.Cart) error
}

// Options configures a Controller.
type Options struct {
	Cache    LocalCache
	Store    remote.Store
	Registry *sharecode.Registry // defaults to a registry over Store
	State    *state.Store        // defaults to a new store
	Logger   zerolog.Logger

	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	// SessionID tags outbound writes. Defaults to a random UUID.
	SessionID string
}

// Controller owns the session's synchronization policy. Its methods are safe
// for concurrent use.
type Controller struct {
	cache       LocalCache
	store       remote.Store
	registry    *sharecode.Registry
	state       *state.Store
	writer      *remote.Writer
	log         zerolog.Logger
	readTimeout time.Duration
	session     string

	mu          sync.Mutex
	identity    identity.Effective
	identityCtx context.Context
	cancelID    context.CancelFunc
	sub         remote.Subscription
	generation  uint64
	revision    int64
	// loaded identifies the document version adopted at load. A push of the
	// same version carries nothing new.
	loaded      docVersion
}

// docVersion identifies one stored version of a document. Versions are
// compared for identity only; clocks of different writers are never ordered.
type docVersion struct {
	tag       remote.Tag
	updatedAt time.Time
}

func versionOf(doc remote.Document) docVersion {
	return docVersion{tag: doc.Tag(), updatedAt: doc.UpdatedAt}
}

func (v docVersion) same(doc remote.Document) bool {
	return !v.updatedAt.IsZero() && v.tag == doc.Tag() && v.updatedAt.Equal(doc.UpdatedAt)
}

// New builds a controller in the Idle phase.
func New(opts Options) (*Controller, error) {
	if opts.Cache == nil {
		return nil, errors.New("syncer: cache is required")
	}
	if opts.Store == nil {
		return nil, errors.New("syncer: remote store is required")
	}
	if opts.Registry == nil {
		opts.Registry = sharecode.NewRegistry(opts.Store)
	}
	if opts.State == nil {
		opts.State = &state.Store{}
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	logger := opts.Logger.With().Str("component", "syncer").Str("session", opts.SessionID).Logger()

	c := &Controller{
		cache:       opts.Cache,
		store:       opts.Store,
		registry:    opts.Registry,
		state:       opts.State,
		writer:      remote.NewWriter(opts.Store, logger, opts.WriteTimeout),
		log:         logger,
		readTimeout: opts.ReadTimeout,
		session:     opts.SessionID,
		identityCtx: context.Background(),
	}
	c.state.Reset(identity.Effective{}, state.PhaseIdle)
	return c, nil
}

// State exposes the in-memory store for rendering.
func (c *Controller) State() *state.Store {
	return c.state
}

// SessionID returns the writer tag stamped on outbound writes.
func (c *Controller) SessionID() string {
	return c.session
}

// Identity returns the identity the controller is currently bound to.
func (c *Controller) Identity() identity.Effective {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// SetIdentity switches the controller to id. The previous subscription is
// cancelled and the previous identity's pending writes are abandoned before
// anything is loaded for id. An empty id returns the controller to Idle.
func (c *Controller) SetIdentity(ctx context.Context, id identity.Effective) error {
	c.mu.Lock()
	oldSub := c.sub
	c.sub = nil
	if c.cancelID != nil {
		c.cancelID()
		c.cancelID = nil
	}
	c.generation++
	gen := c.generation
	c.identity = id
	c.loaded = docVersion{}

	if id.None() {
		c.identityCtx = context.Background()
		c.state.Reset(id, state.PhaseIdle)
		c.mu.Unlock()
		if oldSub != nil {
			oldSub.Cancel()
		}
		c.log.Info().Msg("identity cleared")
		return nil
	}

	idCtx, cancel := context.WithCancel(context.Background())
	c.identityCtx, c.cancelID = idCtx, cancel
	c.state.Reset(id, state.PhaseLoading)
	c.mu.Unlock()

	if oldSub != nil {
		oldSub.Cancel()
	}

	logger := c.log.With().Str("owner", id.OwnerID).Bool("guest", id.Guest).Logger()
	logger.Info().Msg("loading remote document")

	readCtx, cancelRead := context.WithTimeout(ctx, c.readTimeout)
	doc, readErr := c.store.ReadDocument(readCtx, id.OwnerID)
	cancelRead()

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return nil
	}
	c.applyInitialLocked(doc, readErr, logger)
	c.mu.Unlock()

	sub, subErr := c.store.Subscribe(idCtx, id.OwnerID, func(d remote.Document) {
		c.handlePush(gen, d)
	})

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		if sub != nil {
			sub.Cancel()
		}
		return nil
	}
	if subErr != nil {
		logger.Warn().Err(subErr).Msg("subscribe failed; continuing without live updates")
	} else {
		c.sub = sub
	}
	c.state.Update(func(s *state.Snapshot) { s.Phase = state.PhaseSynced })
	c.mu.Unlock()

	if readErr != nil && !errors.Is(readErr, remote.ErrNotFound) {
		return fmt.Errorf("load %s: %w", id.OwnerID, readErr)
	}
	return nil
}

// Reload re-reads the current identity's document after a failed load. Remote
// content replaces memory and the cache. When the owner's document is empty the
// in-memory catalog, favorites and cart are pushed instead, so edits made while
// offline are kept. A missing change feed is re-attached.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	id, gen, idCtx := c.identity, c.generation, c.identityCtx
	hasFeed := c.sub != nil
	c.mu.Unlock()
	if id.None() {
		return ErrNoIdentity
	}

	logger := c.log.With().Str("owner", id.OwnerID).Bool("guest", id.Guest).Logger()

	readCtx, cancelRead := context.WithTimeout(ctx, c.readTimeout)
	doc, readErr := c.store.ReadDocument(readCtx, id.OwnerID)
	cancelRead()

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return nil
	}
	if readErr != nil && !errors.Is(readErr, remote.ErrNotFound) {
		c.state.RecordError(readErr)
		c.mu.Unlock()
		return fmt.Errorf("reload %s: %w", id.OwnerID, readErr)
	}
	if id.Owner() && !doc.HasContent() {
		snap := c.state.Snapshot()
		c.enqueueLocked(remote.FieldProducts, snap.Products)
		c.enqueueLocked(remote.FieldFavorites, snap.Favorites)
		c.enqueueLocked(remote.FieldCart, snap.Cart)
		c.state.MarkSynced(time.Now())
		logger.Info().Int("products", len(snap.Products)).Msg("pushed offline state to empty remote document")
	} else {
		c.applyInitialLocked(doc, readErr, logger)
	}
	c.mu.Unlock()

	if hasFeed {
		return nil
	}
	sub, err := c.store.Subscribe(idCtx, id.OwnerID, func(d remote.Document) {
		c.handlePush(gen, d)
	})
	if err != nil {
		logger.Warn().Err(err).Msg("subscribe failed; continuing without live updates")
		return nil
	}
	c.mu.Lock()
	if gen != c.generation || c.sub != nil {
		c.mu.Unlock()
		sub.Cancel()
		return nil
	}
	c.sub = sub
	c.mu.Unlock()
	return nil
}

func (c *Controller) applyInitialLocked(doc remote.Document, readErr error, logger zerolog.Logger) {
	id := c.identity
	switch {
	case readErr == nil && doc.HasContent():
		favs := doc.Favorites
		if favs == nil {
			favs = catalog.Favorites{}
		}
		cart := doc.Cart
		if cart == nil {
			cart = catalog.Cart{}
		}
		c.state.Update(func(s *state.Snapshot) {
			s.Products = doc.Products.Clone()
			s.Favorites = favs.Clone()
			s.Cart = cart.Clone()
			if id.Owner() {
				s.ShareCode = doc.ShareCode
			}
		})
		c.mirrorLocked(doc.Products, favs, cart)
		c.loaded = versionOf(doc)
		c.state.MarkSynced(time.Now())
		logger.Info().Int("products", len(doc.Products)).Msg("adopted remote document")

	case readErr == nil || errors.Is(readErr, remote.ErrNotFound):
		missing := errors.Is(readErr, remote.ErrNotFound)
		if id.Guest {
			c.state.Update(func(s *state.Snapshot) {
				s.Products = catalog.Products{}
				s.Favorites = catalog.Favorites{}
				s.Cart = catalog.Cart{}
				s.OwnerMissing = missing
			})
			c.state.MarkSynced(time.Now())
			if missing {
				logger.Warn().Msg("share code owner has no document")
			}
			return
		}
		sample := catalog.SampleProducts()
		favs := doc.Favorites
		if favs == nil {
			favs = catalog.Favorites{}
		}
		cart := doc.Cart
		if cart == nil {
			cart = catalog.Cart{}
		}
		c.state.Update(func(s *state.Snapshot) {
			s.Products = sample.Clone()
			s.Favorites = favs.Clone()
			s.Cart = cart.Clone()
			s.ShareCode = doc.ShareCode
		})
		c.mirrorLocked(sample, favs, cart)
		c.enqueueLocked(remote.FieldProducts, sample)
		c.state.MarkSynced(time.Now())
		logger.Info().Msg("seeded sample catalog")

	default:
		logger.Warn().Err(readErr).Msg("remote read failed; using local cache")
		c.state.RecordError(readErr)
		products := c.cache.Products()
		if len(products) == 0 {
			products = catalog.SampleProducts()
			if err := c.cache.SaveProducts(products); err != nil {
				logger.Error().Err(err).Msg("saving sample catalog to cache")
			}
		}
		favs := c.cache.Favorites()
		cart := c.cache.Cart()
		c.state.Update(func(s *state.Snapshot) {
			s.Products = products
			s.Favorites = favs
			s.Cart = cart
		})
	}
}

// handlePush applies a change-feed document. It never writes to the remote
// store.
func (c *Controller) handlePush(gen uint64, doc remote.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	if doc.Writer == c.session && doc.Revision <= c.revision {
		c.log.Debug().Int64("revision", doc.Revision).Msg("ignoring echo of own write")
		return
	}
	if c.loaded.same(doc) {
		return
	}

	owner := c.identity.Owner()
	c.state.Update(func(s *state.Snapshot) {
		if doc.Products != nil {
			s.Products = doc.Products.Clone()
		}
		if doc.Favorites != nil {
			s.Favorites = doc.Favorites.Clone()
		}
		if doc.Cart != nil {
			s.Cart = doc.Cart.Clone()
		}
		if owner {
			s.ShareCode = doc.ShareCode
		}
		s.OwnerMissing = false
	})
	c.mirrorLocked(doc.Products, doc.Favorites, doc.Cart)
	c.state.MarkSynced(time.Now())
	c.log.Debug().
		Str("writer", doc.Writer).
		Int64("revision", doc.Revision).
		Msg("applied remote change")
}

// mirrorLocked saves the non-nil values to the cache.
func (c *Controller) mirrorLocked(products catalog.Products, favs catalog.Favorites, cart catalog.Cart) {
	if products != nil {
		if err := c.cache.SaveProducts(products); err != nil {
			c.log.Error().Err(err).Msg("saving products to cache")
		}
	}
	if favs != nil {
		if err := c.cache.SaveFavorites(favs); err != nil {
			c.log.Error().Err(err).Msg("saving favorites to cache")
		}
	}
	if cart != nil {
		if err := c.cache.SaveCart(cart); err != nil {
			c.log.Error().Err(err).Msg("saving cart to cache")
		}
	}
}

// enqueueLocked schedules a tagged remote write for the current owner. Guests
// never write remotely.
func (c *Controller) enqueueLocked(field remote.Field, value any) {
	if !c.identity.Owner() {
		return
	}
	c.writer.Enqueue(c.identityCtx, c.identity.OwnerID, field, value, c.nextTagLocked())
}

// nextTagLocked stamps the next outbound write of this session.
func (c *Controller) nextTagLocked() remote.Tag {
	c.revision++
	return remote.Tag{Writer: c.session, Revision: c.revision}
}

func (c *Controller) requireIdentityLocked() error {
	if c.identity.None() {
		return ErrNoIdentity
	}
	return nil
}

func (c *Controller) requireOwnerLocked() error {
	if c.identity.None() {
		return ErrNoIdentity
	}
	if c.identity.Guest {
		return ErrReadOnly
	}
	return nil
}

// Wait blocks until queued remote writes have finished.
func (c *Controller) Wait() {
	c.writer.Wait()
}

// Close cancels the subscription and drains pending writes.
func (c *Controller) Close() {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.generation++
	c.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
	c.writer.Close()

	c.mu.Lock()
	if c.cancelID != nil {
		c.cancelID()
		c.cancelID = nil
	}
	c.mu.Unlock()
}
