// Package catalog holds the shopping-list domain: products, favorites, the cart,
// the built-in sample catalog, and JSON import/export.
//
// Every operation here is a pure function over values. Callers own the
// current state and swap in the returned slices; nothing in this package
// performs I/O or keeps state between calls. That keeps the cascade in
// DeleteProduct (catalog, favorites and cart updated together) trivially
// atomic from the caller's point of view.
//
// # Import
//
// Import accepts a JSON array of products. Entries are de-duplicated by name,
// ignoring case and surrounding whitespace, both against the existing catalog
// and against earlier entries in the same file. Invalid entries are skipped
// and the number of products actually added is returned. A payload that is
// not a JSON array fails with ErrInvalidImport and changes nothing.
package catalog
