package syncer

import (
	"context"
	"fmt"
	"strings"

	"github.com/five82/shoplist/internal/catalog"
	"github.com/five82/shoplist/internal/remote"
	"github.com/five82/shoplist/internal/state"
)

// ToggleFavorite flips id's membership in the favorites set.
func (c *Controller) ToggleFavorite(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireIdentityLocked(); err != nil {
		return err
	}

	var favs catalog.Favorites
	var err error
	c.state.Update(func(s *state.Snapshot) {
		if _, ok := s.Products.Find(id); !ok && !s.Favorites.Contains(id) {
			err = fmt.Errorf("favorite %d: %w", id, catalog.ErrUnknownProduct)
			return
		}
		s.Favorites = catalog.ToggleFavorite(s.Favorites, id)
		favs = s.Favorites.Clone()
	})
	if err != nil {
		return err
	}
	c.saveFavoritesLocked(favs)
	return nil
}

// AddToCart appends a snapshot of product id to the cart.
func (c *Controller) AddToCart(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireIdentityLocked(); err != nil {
		return err
	}

	var cart catalog.Cart
	var err error
	c.state.Update(func(s *state.Snapshot) {
		p, ok := s.Products.Find(id)
		if !ok {
			err = fmt.Errorf("add to cart %d: %w", id, catalog.ErrUnknownProduct)
			return
		}
		s.Cart = catalog.AddToCart(s.Cart, p)
		cart = s.Cart.Clone()
	})
	if err != nil {
		return err
	}
	c.saveCartLocked(cart)
	return nil
}

// RemoveFromCart removes the cart line at index.
func (c *Controller) RemoveFromCart(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireIdentityLocked(); err != nil {
		return err
	}

	var cart catalog.Cart
	removed := false
	c.state.Update(func(s *state.Snapshot) {
		s.Cart, removed = catalog.RemoveFromCart(s.Cart, index)
		cart = s.Cart.Clone()
	})
	if !removed {
		return fmt.Errorf("remove cart line %d: %w", index, ErrNoCartLine)
	}
	c.saveCartLocked(cart)
	return nil
}

// ClearCart empties the cart.
func (c *Controller) ClearCart() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireIdentityLocked(); err != nil {
		return err
	}
	c.state.Update(func(s *state.Snapshot) { s.Cart = catalog.Cart{} })
	c.saveCartLocked(catalog.Cart{})
	return nil
}

// AddProduct validates draft, assigns it the next id and appends it.
func (c *Controller) AddProduct(draft catalog.Product) (catalog.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireOwnerLocked(); err != nil {
		return catalog.Product{}, err
	}

	var (
		added    catalog.Product
		products catalog.Products
		err      error
	)
	c.state.Update(func(s *state.Snapshot) {
		var next catalog.Products
		next, added, err = catalog.AddProduct(s.Products, draft)
		if err != nil {
			return
		}
		s.Products = next
		products = next.Clone()
	})
	if err != nil {
		return catalog.Product{}, err
	}
	c.saveProductsLocked(products)
	c.log.Info().Int64("id", added.ID).Str("name", added.Name).Msg("product added")
	return added, nil
}

// EditProduct replaces the product with p.ID.
func (c *Controller) EditProduct(p catalog.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireOwnerLocked(); err != nil {
		return err
	}

	var products catalog.Products
	var err error
	c.state.Update(func(s *state.Snapshot) {
		var next catalog.Products
		next, err = catalog.EditProduct(s.Products, p)
		if err != nil {
			return
		}
		s.Products = next
		products = next.Clone()
	})
	if err != nil {
		return err
	}
	c.saveProductsLocked(products)
	return nil
}

// DeleteProduct removes id from the catalog, favorites and cart in one state
// change.
func (c *Controller) DeleteProduct(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireOwnerLocked(); err != nil {
		return err
	}

	var (
		products catalog.Products
		favs     catalog.Favorites
		cart     catalog.Cart
		err      error
	)
	c.state.Update(func(s *state.Snapshot) {
		products, favs, cart, err = catalog.DeleteProduct(s.Products, s.Favorites, s.Cart, id)
		if err != nil {
			return
		}
		s.Products, s.Favorites, s.Cart = products.Clone(), favs.Clone(), cart.Clone()
	})
	if err != nil {
		return err
	}
	c.saveProductsLocked(products)
	c.saveFavoritesLocked(favs)
	c.saveCartLocked(cart)
	c.log.Info().Int64("id", id).Msg("product deleted")
	return nil
}

// ImportProducts merges a JSON product array into the catalog and returns
// how many products were added. Malformed input leaves the catalog unchanged.
func (c *Controller) ImportProducts(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireOwnerLocked(); err != nil {
		return 0, err
	}

	var (
		products catalog.Products
		added    int
		err      error
	)
	c.state.Update(func(s *state.Snapshot) {
		var merged catalog.Products
		merged, added, err = catalog.Import(s.Products, data)
		if err != nil || added == 0 {
			return
		}
		s.Products = merged
		products = merged.Clone()
	})
	if err != nil {
		return 0, err
	}
	if added > 0 {
		c.saveProductsLocked(products)
	}
	c.log.Info().Int("added", added).Msg("import finished")
	return added, nil
}

// ExportProducts returns the current catalog as pretty-printed JSON.
func (c *Controller) ExportProducts() ([]byte, error) {
	return catalog.Export(c.state.Snapshot().Products)
}

// IssueShareCode creates a new share code for the signed-in owner, replacing
// whatever code the owner's document currently holds.
func (c *Controller) IssueShareCode(ctx context.Context) (string, error) {
	c.mu.Lock()
	if err := c.requireOwnerLocked(); err != nil {
		c.mu.Unlock()
		return "", err
	}
	gen, owner, tag := c.generation, c.identity.OwnerID, c.nextTagLocked()
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()
	code, err := c.registry.Issue(ctx, owner, tag)
	if err != nil {
		c.log.Warn().Err(err).Str("owner", owner).Msg("issuing share code failed")
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.generation {
		c.state.Update(func(s *state.Snapshot) { s.ShareCode = code })
	}
	c.log.Info().Str("owner", owner).Int64("revision", tag.Revision).Msg("share code issued")
	return code, nil
}

// RevokeShareCode deletes the owner's active share code, if any.
func (c *Controller) RevokeShareCode(ctx context.Context) error {
	c.mu.Lock()
	if err := c.requireOwnerLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	gen, owner, tag := c.generation, c.identity.OwnerID, c.nextTagLocked()
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()
	revoked, err := c.registry.Revoke(ctx, owner, tag)
	if err != nil {
		c.log.Warn().Err(err).Str("owner", owner).Msg("revoking share code failed")
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.generation {
		c.state.Update(func(s *state.Snapshot) { s.ShareCode = "" })
	}
	if revoked != "" {
		c.log.Info().Str("owner", owner).Msg("share code revoked")
	}
	return nil
}

// JoinWithCode resolves code to the owner id a guest session should bind to.
// It does not change the controller's identity.
func (c *Controller) JoinWithCode(ctx context.Context, code string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()
	owner, err := c.registry.Resolve(ctx, code)
	if err != nil {
		c.log.Info().Err(err).Msg("share code join failed")
		return "", err
	}
	return strings.TrimSpace(owner), nil
}

func (c *Controller) saveProductsLocked(products catalog.Products) {
	if err := c.cache.SaveProducts(products); err != nil {
		c.log.Error().Err(err).Msg("saving products to cache")
	}
	c.enqueueLocked(remote.FieldProducts, products)
}

func (c *Controller) saveFavoritesLocked(favs catalog.Favorites) {
	if err := c.cache.SaveFavorites(favs); err != nil {
		c.log.Error().Err(err).Msg("saving favorites to cache")
	}
	c.enqueueLocked(remote.FieldFavorites, favs)
}

func (c *Controller) saveCartLocked(cart catalog.Cart) {
	if err := c.cache.SaveCart(cart); err != nil {
		c.log.Error().Err(err).Msg("saving cart to cache")
	}
	c.enqueueLocked(remote.FieldCart, cart)
}
