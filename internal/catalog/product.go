package catalog

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Category groups products on the shelf.
type Category string

const (
	Produce Category = "Produce"
	Pantry  Category = "Pantry"
	Snacks  Category = "Snacks"
	Frozen  Category = "Frozen"
	Dairy   Category = "Dairy"
)

// Categories lists every known category in display order.
var Categories = []Category{Frozen, Pantry, Snacks, Produce, Dairy}

var (
	// ErrInvalidProduct reports a product that fails validation.
	ErrInvalidProduct = errors.New("invalid product")
	// ErrUnknownProduct reports an id that is not in the catalog.
	ErrUnknownProduct = errors.New("unknown product")
)

// ParseCategory matches a category name case-insensitively.
func ParseCategory(value string) (Category, bool) {
	trimmed := strings.TrimSpace(value)
	for _, c := range Categories {
		if strings.EqualFold(string(c), trimmed) {
			return c, true
		}
	}
	return "", false
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Product is a catalog entry. Cart lines hold copies of it.
type Product struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	Category Category `json:"category"`
	ImageURL string   `json:"imageUrl,omitempty"`
}

// Validate checks the fields a user can type in.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidProduct)
	}
	if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) || p.Price < 0 {
		return fmt.Errorf("%w: price %v", ErrInvalidProduct, p.Price)
	}
	if !p.Category.Valid() {
		return fmt.Errorf("%w: category %q", ErrInvalidProduct, p.Category)
	}
	return nil
}

// normalized trims text fields and canonicalizes the category spelling.
func (p Product) normalized() Product {
	p.Name = strings.TrimSpace(p.Name)
	p.ImageURL = strings.TrimSpace(p.ImageURL)
	if c, ok := ParseCategory(string(p.Category)); ok {
		p.Category = c
	}
	return p
}

// Products is the catalog; ids are unique.
type Products []Product

// Find returns the product with the given id.
func (ps Products) Find(id int64) (Product, bool) {
	for _, p := range ps {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// NextID returns one past the highest id in use.
func (ps Products) NextID() int64 {
	var highest int64
	for _, p := range ps {
		if p.ID > highest {
			highest = p.ID
		}
	}
	return highest + 1
}

// Clone returns an independent copy.
func (ps Products) Clone() Products {
	if ps == nil {
		return nil
	}
	dup := make(Products, len(ps))
	copy(dup, ps)
	return dup
}

// AddProduct validates draft, assigns it a fresh id and appends it.
func AddProduct(products Products, draft Product) (Products, Product, error) {
	p := draft.normalized()
	if err := p.Validate(); err != nil {
		return products, Product{}, err
	}
	p.ID = products.NextID()
	out := append(products.Clone(), p)
	return out, p, nil
}

// EditProduct replaces the product sharing p's id.
func EditProduct(products Products, p Product) (Products, error) {
	p = p.normalized()
	if err := p.Validate(); err != nil {
		return products, err
	}
	out := products.Clone()
	for i := range out {
		if out[i].ID == p.ID {
			out[i] = p
			return out, nil
		}
	}
	return products, fmt.Errorf("%w: %d", ErrUnknownProduct, p.ID)
}

// DeleteProduct removes id from the catalog and purges it from favorites and
// every cart line that references it. All three results are returned together
// so callers can swap them in as one update.
func DeleteProduct(products Products, favs Favorites, cart Cart, id int64) (Products, Favorites, Cart, error) {
	if _, ok := products.Find(id); !ok {
		return products, favs, cart, fmt.Errorf("%w: %d", ErrUnknownProduct, id)
	}
	outProducts := make(Products, 0, len(products))
	for _, p := range products {
		if p.ID != id {
			outProducts = append(outProducts, p)
		}
	}
	outCart := make(Cart, 0, len(cart))
	for _, line := range cart {
		if line.ID != id {
			outCart = append(outCart, line)
		}
	}
	return outProducts, RemoveFavorite(favs, id), outCart, nil
}
