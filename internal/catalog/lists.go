package catalog

import (
	"fmt"
	"strings"
)

// Favorites is a set of product ids persisted in insertion order.
type Favorites []int64

// Contains reports whether id is a favorite.
func (f Favorites) Contains(id int64) bool {
	for _, fav := range f {
		if fav == id {
			return true
		}
	}
	return false
}

// Clone returns an independent copy.
func (f Favorites) Clone() Favorites {
	if f == nil {
		return nil
	}
	dup := make(Favorites, len(f))
	copy(dup, f)
	return dup
}

// ToggleFavorite adds id when absent and removes it when present.
func ToggleFavorite(favs Favorites, id int64) Favorites {
	if favs.Contains(id) {
		return RemoveFavorite(favs, id)
	}
	return AddFavorite(favs, id)
}

// AddFavorite appends id unless it is already present.
func AddFavorite(favs Favorites, id int64) Favorites {
	if favs.Contains(id) {
		return favs.Clone()
	}
	return append(favs.Clone(), id)
}

// RemoveFavorite drops every occurrence of id.
func RemoveFavorite(favs Favorites, id int64) Favorites {
	out := make(Favorites, 0, len(favs))
	for _, fav := range favs {
		if fav != id {
			out = append(out, fav)
		}
	}
	return out
}

// Dedupe keeps the first occurrence of each id. Remote and cached favorites
// pass through it so a hand-edited document cannot break set semantics.
func (f Favorites) Dedupe() Favorites {
	out := make(Favorites, 0, len(f))
	for _, id := range f {
		if !out.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

// Cart is an ordered list of product snapshots. The same product may appear
// more than once; lines are addressed by position.
type Cart []Product

// Clone returns an independent copy.
func (c Cart) Clone() Cart {
	if c == nil {
		return nil
	}
	dup := make(Cart, len(c))
	copy(dup, c)
	return dup
}

// AddToCart appends a snapshot of p.
func AddToCart(cart Cart, p Product) Cart {
	return append(cart.Clone(), p)
}

// RemoveFromCart removes exactly the line at index, keeping the order of the
// rest. An out of range index leaves the cart unchanged and returns false.
func RemoveFromCart(cart Cart, index int) (Cart, bool) {
	if index < 0 || index >= len(cart) {
		return cart, false
	}
	out := make(Cart, 0, len(cart)-1)
	out = append(out, cart[:index]...)
	out = append(out, cart[index+1:]...)
	return out, true
}

// InCart reports whether any line references id.
func InCart(cart Cart, id int64) bool {
	for _, line := range cart {
		if line.ID == id {
			return true
		}
	}
	return false
}

// Total sums the line prices.
func (c Cart) Total() float64 {
	var sum float64
	for _, line := range c {
		sum += line.Price
	}
	return sum
}

// CheckoutSummary renders the cart as a plain text receipt.
func (c Cart) CheckoutSummary() string {
	if len(c) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Checkout - Total: $%.2f\n\nItems:\n", c.Total())
	for i, line := range c {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s - $%.2f", line.Name, line.Price)
	}
	return b.String()
}
