package catalog

import (
	"sort"
	"strings"
)

// SortOrder selects how filtered products are ordered.
type SortOrder string

const (
	SortNone     SortOrder = ""
	SortName     SortOrder = "name"
	SortPrice    SortOrder = "price"
	SortCategory SortOrder = "category"
)

// NextSort cycles through the sort orders.
func NextSort(current SortOrder) SortOrder {
	switch current {
	case SortName:
		return SortPrice
	case SortPrice:
		return SortCategory
	case SortCategory:
		return SortNone
	default:
		return SortName
	}
}

// Query narrows the product grid.
type Query struct {
	Search        string
	Category      Category // empty means all
	FavoritesOnly bool
	Favorites     Favorites
	Sort          SortOrder
}

// Filter returns the products matching q. The input slice is not modified.
func Filter(products Products, q Query) Products {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make(Products, 0, len(products))
	for _, p := range products {
		if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if q.FavoritesOnly && !q.Favorites.Contains(p.ID) {
			continue
		}
		out = append(out, p)
	}

	switch q.Sort {
	case SortName:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		})
	case SortPrice:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortCategory:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	}
	return out
}

// NextCategory cycles all → each category → all.
func NextCategory(current Category) Category {
	if current == "" {
		return Categories[0]
	}
	for i, c := range Categories {
		if c == current && i+1 < len(Categories) {
			return Categories[i+1]
		}
	}
	return ""
}
