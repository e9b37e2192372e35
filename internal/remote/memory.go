package remote

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/five82/shoplist/internal/catalog"
)

// MemoryStore is an in-process Store. It backs offline sessions and tests;
// failures can be injected with SetReadError and SetWriteError.
type MemoryStore struct {
	mu       sync.Mutex
	docs     map[string]Document
	codes    map[string]ShareCodeRecord
	subs     map[string]map[int]*memorySub
	nextSub  int
	readErr  error
	writeErr error
	writes   []WriteRecord
	now      func() time.Time
}

// WriteRecord captures one WriteField call for inspection in tests.
type WriteRecord struct {
	OwnerID string
	Field   Field
	Value   any
	Tag     Tag
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:  make(map[string]Document),
		codes: make(map[string]ShareCodeRecord),
		subs:  make(map[string]map[int]*memorySub),
		now:   time.Now,
	}
}

// SetReadError makes ReadDocument and LookupShareCode fail with err (nil clears).
func (m *MemoryStore) SetReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// SetWriteError makes writes fail with err (nil clears).
func (m *MemoryStore) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Writes returns the successful WriteField calls in order.
func (m *MemoryStore) Writes() []WriteRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WriteRecord, len(m.writes))
	copy(out, m.writes)
	return out
}

// Put replaces an owner's document and notifies subscribers, as if another
// session had written it.
func (m *MemoryStore) Put(ownerID string, doc Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = m.now()
	}
	m.docs[ownerID] = doc.Clone()
	m.notifyLocked(ownerID)
}

// SubscriberCount reports the live subscriptions for ownerID.
func (m *MemoryStore) SubscriberCount(ownerID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[ownerID])
}

func (m *MemoryStore) WriteField(ctx context.Context, ownerID string, field Field, value any, tag Tag) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encoded, err := encodeValue(field, value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	doc := m.docs[ownerID]
	switch field {
	case FieldProducts:
		doc.Products = encoded.(catalog.Products)
	case FieldFavorites:
		doc.Favorites = encoded.(catalog.Favorites)
	case FieldCart:
		doc.Cart = encoded.(catalog.Cart)
	case FieldShareCode:
		doc.ShareCode = encoded.(string)
	}
	doc.UpdatedAt = m.now()
	doc.Writer = tag.Writer
	doc.Revision = tag.Revision
	m.docs[ownerID] = doc
	m.writes = append(m.writes, WriteRecord{OwnerID: ownerID, Field: field, Value: encoded, Tag: tag})
	m.notifyLocked(ownerID)
	return nil
}

func (m *MemoryStore) ReadDocument(ctx context.Context, ownerID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return Document{}, m.readErr
	}
	doc, ok := m.docs[ownerID]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc.Clone(), nil
}

func (m *MemoryStore) Subscribe(ctx context.Context, ownerID string, onChange func(Document)) (Subscription, error) {
	if onChange == nil {
		return nil, fmt.Errorf("subscribe %s: nil callback", ownerID)
	}
	subCtx, cancel := context.WithCancel(ctx)
	sub := &memorySub{signal: make(chan struct{}, 1)}

	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	if m.subs[ownerID] == nil {
		m.subs[ownerID] = make(map[int]*memorySub)
	}
	m.subs[ownerID][id] = sub
	if doc, ok := m.docs[ownerID]; ok {
		sub.push(doc.Clone())
	}
	m.mu.Unlock()

	f := newFeed(cancel)
	go func() {
		defer f.finished()
		defer m.unsubscribe(ownerID, id)
		sub.run(subCtx, onChange)
	}()
	return f, nil
}

func (m *MemoryStore) unsubscribe(ownerID string, id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs[ownerID], id)
	if len(m.subs[ownerID]) == 0 {
		delete(m.subs, ownerID)
	}
}

func (m *MemoryStore) LookupShareCode(ctx context.Context, code string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return "", m.readErr
	}
	rec, ok := m.codes[strings.TrimSpace(code)]
	if !ok {
		return "", ErrNotFound
	}
	return rec.OwnerID, nil
}

func (m *MemoryStore) RotateShareCode(ctx context.Context, ownerID, newCode string, tag Tag) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return "", m.writeErr
	}
	doc := m.docs[ownerID]
	previous := doc.ShareCode
	m.dropCodeLocked(ownerID, previous)
	now := m.now()
	m.codes[newCode] = ShareCodeRecord{OwnerID: ownerID, CreatedAt: now}
	doc.ShareCode = newCode
	doc.UpdatedAt = now
	doc.Writer = tag.Writer
	doc.Revision = tag.Revision
	m.docs[ownerID] = doc
	m.notifyLocked(ownerID)
	return previous, nil
}

func (m *MemoryStore) RevokeShareCode(ctx context.Context, ownerID string, tag Tag) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return "", m.writeErr
	}
	doc, ok := m.docs[ownerID]
	if !ok {
		return "", nil
	}
	revoked := doc.ShareCode
	m.dropCodeLocked(ownerID, revoked)
	doc.ShareCode = ""
	doc.UpdatedAt = m.now()
	doc.Writer = tag.Writer
	doc.Revision = tag.Revision
	m.docs[ownerID] = doc
	m.notifyLocked(ownerID)
	return revoked, nil
}

// dropCodeLocked deletes code's mapping when it belongs to ownerID.
func (m *MemoryStore) dropCodeLocked(ownerID, code string) {
	if code == "" {
		return
	}
	if rec, ok := m.codes[code]; ok && rec.OwnerID == ownerID {
		delete(m.codes, code)
	}
}

// SetClock replaces the clock used to stamp updatedAt.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Close is a no-op; subscriptions end when cancelled.
func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) notifyLocked(ownerID string) {
	doc := m.docs[ownerID]
	for _, sub := range m.subs[ownerID] {
		sub.push(doc.Clone())
	}
}

// memorySub delivers documents in order on its own goroutine so callbacks
// never run under the store lock.
type memorySub struct {
	mu     sync.Mutex
	queue  []Document
	signal chan struct{}
}

func (s *memorySub) push(doc Document) {
	s.mu.Lock()
	s.queue = append(s.queue, doc)
	s.mu.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *memorySub) run(ctx context.Context, onChange func(Document)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.signal:
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			doc := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			if ctx.Err() != nil {
				return
			}
			onChange(doc)
		}
	}
}
