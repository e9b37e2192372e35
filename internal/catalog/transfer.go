package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidImport reports an import payload that is not a JSON array of products.
var ErrInvalidImport = errors.New("invalid import file")

// Export renders the catalog as a pretty-printed JSON array.
func Export(products Products) ([]byte, error) {
	if products == nil {
		products = Products{}
	}
	data, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal products: %w", err)
	}
	return append(data, '\n'), nil
}

// Import merges the products in data into existing. Entries whose trimmed name
// matches an existing product (or an earlier entry in the same file) ignoring
// case are skipped, as are entries that fail validation. New entries receive
// fresh ids. On error existing is returned untouched.
func Import(existing Products, data []byte) (Products, int, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return existing, 0, fmt.Errorf("%w: expected a JSON array", ErrInvalidImport)
	}
	var incoming []Product
	if err := json.Unmarshal(trimmed, &incoming); err != nil {
		return existing, 0, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, p := range existing {
		seen[nameKey(p.Name)] = struct{}{}
	}

	merged := existing.Clone()
	if merged == nil {
		merged = Products{}
	}
	next := merged.NextID()
	added := 0
	for _, p := range incoming {
		p = p.normalized()
		if err := p.Validate(); err != nil {
			continue
		}
		key := nameKey(p.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		p.ID = next
		next++
		merged = append(merged, p)
		added++
	}
	return merged, added, nil
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
