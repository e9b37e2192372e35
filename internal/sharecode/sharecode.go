// Package sharecode generates human-shareable codes and maintains the
// code-to-owner mapping in the remote store.
package sharecode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/five82/shoplist/internal/remote"
)

// Alphabet omits 0, 1, I and O.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	groupLen = 4
	codeLen  = 2 * groupLen
)

var (
	// ErrNotFound reports a code with no active mapping.
	ErrNotFound = errors.New("share code not found")
	// ErrInvalidCode reports input that is not shaped like a share code.
	ErrInvalidCode = errors.New("invalid share code")
)

// Generate returns a fresh code formatted XXXX-XXXX using crypto/rand.
func Generate() (string, error) {
	return generateFrom(rand.Reader)
}

// generateFrom draws one byte per symbol. 256 is a multiple of the alphabet
// size, so masking keeps the draw uniform.
func generateFrom(r io.Reader) (string, error) {
	buf := make([]byte, codeLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	var b strings.Builder
	b.Grow(codeLen + 1)
	for i, v := range buf {
		if i == groupLen {
			b.WriteByte('-')
		}
		b.WriteByte(Alphabet[int(v)%len(Alphabet)])
	}
	return b.String(), nil
}

// Normalize trims surrounding whitespace and uppercases.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code, already normalized, is XXXX-XXXX over Alphabet.
func Valid(code string) bool {
	if len(code) != codeLen+1 || code[groupLen] != '-' {
		return false
	}
	for i := 0; i < len(code); i++ {
		if i == groupLen {
			continue
		}
		if strings.IndexByte(Alphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}

// Registry issues, revokes and resolves codes against a remote.Store.
type Registry struct {
	store    remote.Store
	generate func() (string, error)
}

// NewRegistry returns a Registry backed by store.
func NewRegistry(store remote.Store) *Registry {
	return &Registry{store: store, generate: Generate}
}

// Issue creates a new code for ownerID. The store deletes whatever code the
// owner currently holds and stores the new one in a single operation, so an
// owner never has two live codes. tag identifies the writing session.
func (r *Registry) Issue(ctx context.Context, ownerID string, tag remote.Tag) (string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", errors.New("issue share code: owner id is empty")
	}
	code, err := r.generate()
	if err != nil {
		return "", fmt.Errorf("issue share code: %w", err)
	}
	if _, err := r.store.RotateShareCode(ctx, ownerID, code, tag); err != nil {
		return "", fmt.Errorf("issue share code: %w", err)
	}
	return code, nil
}

// Revoke deletes the owner's active code, if any, and clears it from the
// owner document. It returns the revoked code.
func (r *Registry) Revoke(ctx context.Context, ownerID string, tag remote.Tag) (string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", errors.New("revoke share code: owner id is empty")
	}
	code, err := r.store.RevokeShareCode(ctx, ownerID, tag)
	if err != nil {
		return "", fmt.Errorf("revoke share code: %w", err)
	}
	return code, nil
}

// Resolve returns the owner bound to code. Malformed input yields
// ErrInvalidCode without a lookup; a missing mapping yields ErrNotFound.
func (r *Registry) Resolve(ctx context.Context, code string) (string, error) {
	code = Normalize(code)
	if !Valid(code) {
		return "", ErrInvalidCode
	}
	owner, err := r.store.LookupShareCode(ctx, code)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("resolve share code: %w", err)
	}
	return owner, nil
}
