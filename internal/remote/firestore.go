package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/five82/shoplist/internal/catalog"
)

const (
	DefaultUsersCollection      = "users"
	DefaultShareCodesCollection = "shareCodes"
)

// FirestoreStore keeps one document per owner in the users collection and a
// reverse mapping per share code in the share-code collection.
type FirestoreStore struct {
	client *firestore.Client
	users  string
	codes  string
	log    zerolog.Logger
}

var _ Store = (*FirestoreStore)(nil)

// NewFirestoreStore wraps client. Empty collection names use the defaults.
func NewFirestoreStore(client *firestore.Client, usersCollection, codesCollection string, logger zerolog.Logger) (*FirestoreStore, error) {
	if client == nil {
		return nil, errors.New("firestore client is nil")
	}
	if strings.TrimSpace(usersCollection) == "" {
		usersCollection = DefaultUsersCollection
	}
	if strings.TrimSpace(codesCollection) == "" {
		codesCollection = DefaultShareCodesCollection
	}
	return &FirestoreStore{
		client: client,
		users:  usersCollection,
		codes:  codesCollection,
		log:    logger.With().Str("component", "firestore").Logger(),
	}, nil
}

func (s *FirestoreStore) userDoc(ownerID string) *firestore.DocumentRef {
	return s.client.Collection(s.users).Doc(ownerID)
}

func (s *FirestoreStore) codeDoc(code string) *firestore.DocumentRef {
	return s.client.Collection(s.codes).Doc(code)
}

func (s *FirestoreStore) WriteField(ctx context.Context, ownerID string, field Field, value any, tag Tag) error {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return errors.New("write field: owner id is empty")
	}
	encoded, err := encodeValue(field, value)
	if err != nil {
		return err
	}
	data := map[string]any{
		string(field):          toFirestoreValue(encoded),
		string(FieldUpdatedAt): firestore.ServerTimestamp,
		string(FieldWriter):    tag.Writer,
		string(FieldRevision):  tag.Revision,
	}
	if _, err := s.userDoc(ownerID).Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("write %s for %s: %w", field, ownerID, err)
	}
	return nil
}

func (s *FirestoreStore) ReadDocument(ctx context.Context, ownerID string) (Document, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return Document{}, errors.New("read document: owner id is empty")
	}
	snap, err := s.userDoc(ownerID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("read document %s: %w", ownerID, err)
	}
	if !snap.Exists() {
		return Document{}, ErrNotFound
	}
	return documentFromData(snap.Data()), nil
}

func (s *FirestoreStore) Subscribe(ctx context.Context, ownerID string, onChange func(Document)) (Subscription, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, errors.New("subscribe: owner id is empty")
	}
	if onChange == nil {
		return nil, fmt.Errorf("subscribe %s: nil callback", ownerID)
	}

	subCtx, cancel := context.WithCancel(ctx)
	it := s.userDoc(ownerID).Snapshots(subCtx)
	f := newFeed(func() {
		cancel()
		it.Stop()
	})

	go func() {
		defer f.finished()
		for {
			snap, err := it.Next()
			if err != nil {
				if subCtx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
					return
				}
				s.log.Warn().Err(err).Str("owner", ownerID).Msg("snapshot listener stopped")
				return
			}
			if !snap.Exists() {
				continue
			}
			onChange(documentFromData(snap.Data()))
		}
	}()
	return f, nil
}

func (s *FirestoreStore) LookupShareCode(ctx context.Context, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", ErrNotFound
	}
	snap, err := s.codeDoc(code).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("lookup share code: %w", err)
	}
	owner := strings.TrimSpace(asString(snap.Data()["ownerId"]))
	if owner == "" {
		return "", ErrNotFound
	}
	return owner, nil
}

func (s *FirestoreStore) RotateShareCode(ctx context.Context, ownerID, newCode string, tag Tag) (string, error) {
	if strings.TrimSpace(ownerID) == "" || strings.TrimSpace(newCode) == "" {
		return "", errors.New("rotate share code: owner id and code are required")
	}
	var previous string
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		current, err := s.currentCode(tx, ownerID)
		if err != nil {
			return err
		}
		previous = current
		if current != "" && current != newCode {
			if err := tx.Delete(s.codeDoc(current)); err != nil {
				return err
			}
		}
		if err := tx.Set(s.codeDoc(newCode), map[string]any{
			"ownerId":   ownerID,
			"createdAt": firestore.ServerTimestamp,
		}); err != nil {
			return err
		}
		return tx.Set(s.userDoc(ownerID), map[string]any{
			string(FieldShareCode): newCode,
			string(FieldUpdatedAt): firestore.ServerTimestamp,
			string(FieldWriter):    tag.Writer,
			string(FieldRevision):  tag.Revision,
		}, firestore.MergeAll)
	})
	if err != nil {
		return "", fmt.Errorf("rotate share code for %s: %w", ownerID, err)
	}
	return previous, nil
}

func (s *FirestoreStore) RevokeShareCode(ctx context.Context, ownerID string, tag Tag) (string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", errors.New("revoke share code: owner id is empty")
	}
	var revoked string
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		current, err := s.currentCode(tx, ownerID)
		if err != nil {
			return err
		}
		revoked = current
		if current != "" {
			if err := tx.Delete(s.codeDoc(current)); err != nil {
				return err
			}
		}
		return tx.Set(s.userDoc(ownerID), map[string]any{
			string(FieldShareCode): nil,
			string(FieldUpdatedAt): firestore.ServerTimestamp,
			string(FieldWriter):    tag.Writer,
			string(FieldRevision):  tag.Revision,
		}, firestore.MergeAll)
	})
	if err != nil {
		return "", fmt.Errorf("revoke share code for %s: %w", ownerID, err)
	}
	return revoked, nil
}

// currentCode reads the owner's shareCode inside tx. A missing document has
// no code.
func (s *FirestoreStore) currentCode(tx *firestore.Transaction, ownerID string) (string, error) {
	snap, err := tx.Get(s.userDoc(ownerID))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", nil
		}
		return "", err
	}
	if !snap.Exists() {
		return "", nil
	}
	return strings.TrimSpace(asString(snap.Data()[string(FieldShareCode)])), nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// toFirestoreValue converts catalog values into plain maps and slices so the
// stored shape does not depend on struct tags.
func toFirestoreValue(v any) any {
	switch val := v.(type) {
	case catalog.Products:
		return productsToData(val)
	case catalog.Cart:
		return productsToData(catalog.Products(val))
	case catalog.Favorites:
		out := make([]any, len(val))
		for i, id := range val {
			out[i] = id
		}
		return out
	default:
		return v
	}
}

func productsToData(products catalog.Products) []any {
	out := make([]any, 0, len(products))
	for _, p := range products {
		m := map[string]any{
			"id":       p.ID,
			"name":     p.Name,
			"price":    p.Price,
			"category": string(p.Category),
		}
		if p.ImageURL != "" {
			m["imageUrl"] = p.ImageURL
		}
		out = append(out, m)
	}
	return out
}

// documentFromData parses a raw document map. Fields of an unexpected shape
// are treated as absent rather than failing the whole read.
func documentFromData(data map[string]any) Document {
	var doc Document
	if raw, ok := data[string(FieldProducts)]; ok {
		doc.Products = productsFromData(raw)
	}
	if raw, ok := data[string(FieldFavorites)]; ok {
		doc.Favorites = favoritesFromData(raw)
	}
	if raw, ok := data[string(FieldCart)]; ok {
		if p := productsFromData(raw); p != nil {
			doc.Cart = catalog.Cart(p)
		}
	}
	doc.ShareCode = strings.TrimSpace(asString(data[string(FieldShareCode)]))
	if t, ok := data[string(FieldUpdatedAt)].(time.Time); ok {
		doc.UpdatedAt = t
	}
	doc.Writer = asString(data[string(FieldWriter)])
	doc.Revision = asInt64(data[string(FieldRevision)])
	return doc
}

func productsFromData(raw any) catalog.Products {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make(catalog.Products, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, catalog.Product{
			ID:       asInt64(m["id"]),
			Name:     asString(m["name"]),
			Price:    asFloat64(m["price"]),
			Category: catalog.Category(asString(m["category"])),
			ImageURL: asString(m["imageUrl"]),
		})
	}
	return out
}

func favoritesFromData(raw any) catalog.Favorites {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make(catalog.Favorites, 0, len(items))
	for _, item := range items {
		out = append(out, asInt64(item))
	}
	return out.Dedupe()
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return ""
	}
}

func asInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float64:
		return int64(x)
	default:
		return 0
	}
}

func asFloat64(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case int:
		return float64(x)
	default:
		return 0
	}
}
