package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/five82/shoplist/internal/catalog"
)

const defaultRedisPrefix = "shoplist:"

// RedisOptions configures RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix is prepended to every key and channel. Empty uses "shoplist:".
	Prefix string
}

// RedisStore keeps each owner document as a hash whose list fields hold JSON,
// maps share codes to owners with plain string keys, and announces changes on
// a per-owner pub/sub channel.
type RedisStore struct {
	client *redis.Client
	prefix string
	log    zerolog.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, opts RedisOptions, logger zerolog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
	}
	return NewRedisStoreFromClient(client, opts.Prefix, logger), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string, logger zerolog.Logger) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		log:    logger.With().Str("component", "redis").Logger(),
	}
}

func (s *RedisStore) userKey(ownerID string) string {
	return s.prefix + "user:" + ownerID
}

func (s *RedisStore) codeKey(code string) string {
	return s.prefix + "code:" + code
}

func (s *RedisStore) changesChannel(ownerID string) string {
	return s.userKey(ownerID) + ":changes"
}

func (s *RedisStore) WriteField(ctx context.Context, ownerID string, field Field, value any, tag Tag) error {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return errors.New("write field: owner id is empty")
	}
	encoded, err := encodeValue(field, value)
	if err != nil {
		return err
	}
	var stored string
	if code, ok := encoded.(string); ok {
		stored = code
	} else {
		raw, err := json.Marshal(encoded)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", field, err)
		}
		stored = string(raw)
	}

	now, err := serverTime(ctx, s.client)
	if err != nil {
		return fmt.Errorf("write %s for %s: %w", field, ownerID, err)
	}
	key := s.userKey(ownerID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			string(field), stored,
			string(FieldUpdatedAt), now.Format(time.RFC3339Nano),
			string(FieldWriter), tag.Writer,
			string(FieldRevision), strconv.FormatInt(tag.Revision, 10),
		)
		pipe.Publish(ctx, s.changesChannel(ownerID), string(field))
		return nil
	})
	if err != nil {
		return fmt.Errorf("write %s for %s: %w", field, ownerID, err)
	}
	return nil
}

func (s *RedisStore) ReadDocument(ctx context.Context, ownerID string) (Document, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return Document{}, errors.New("read document: owner id is empty")
	}
	fields, err := s.client.HGetAll(ctx, s.userKey(ownerID)).Result()
	if err != nil {
		return Document{}, fmt.Errorf("read document %s: %w", ownerID, err)
	}
	if len(fields) == 0 {
		return Document{}, ErrNotFound
	}
	return documentFromHash(fields), nil
}

func (s *RedisStore) Subscribe(ctx context.Context, ownerID string, onChange func(Document)) (Subscription, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, errors.New("subscribe: owner id is empty")
	}
	if onChange == nil {
		return nil, fmt.Errorf("subscribe %s: nil callback", ownerID)
	}

	subCtx, cancel := context.WithCancel(ctx)
	pubsub := s.client.Subscribe(subCtx, s.changesChannel(ownerID))
	// Wait for the subscription to be confirmed so no change published after
	// Subscribe returns is missed.
	if _, err := pubsub.Receive(subCtx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", ownerID, err)
	}

	f := newFeed(func() {
		cancel()
		_ = pubsub.Close()
	})
	messages := pubsub.Channel()

	go func() {
		defer f.finished()
		s.deliver(subCtx, ownerID, onChange)
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				s.deliver(subCtx, ownerID, onChange)
			}
		}
	}()
	return f, nil
}

func (s *RedisStore) deliver(ctx context.Context, ownerID string, onChange func(Document)) {
	doc, err := s.ReadDocument(ctx, ownerID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && ctx.Err() == nil {
			s.log.Warn().Err(err).Str("owner", ownerID).Msg("reading changed document")
		}
		return
	}
	if ctx.Err() != nil {
		return
	}
	onChange(doc)
}

func (s *RedisStore) LookupShareCode(ctx context.Context, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", ErrNotFound
	}
	raw, err := s.client.Get(ctx, s.codeKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("lookup share code: %w", err)
	}
	var rec ShareCodeRecord
	if err := json.Unmarshal(raw, &rec); err != nil || strings.TrimSpace(rec.OwnerID) == "" {
		return "", ErrNotFound
	}
	return rec.OwnerID, nil
}

func (s *RedisStore) RotateShareCode(ctx context.Context, ownerID, newCode string, tag Tag) (string, error) {
	if strings.TrimSpace(ownerID) == "" || strings.TrimSpace(newCode) == "" {
		return "", errors.New("rotate share code: owner id and code are required")
	}
	key := s.userKey(ownerID)
	var previous string
	err := s.watch(ctx, key, func(tx *redis.Tx) error {
		current, now, err := s.currentCode(ctx, tx, key)
		if err != nil {
			return err
		}
		previous = current
		rec, err := json.Marshal(ShareCodeRecord{OwnerID: ownerID, CreatedAt: now})
		if err != nil {
			return fmt.Errorf("marshal share code: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if current != "" && current != newCode {
				pipe.Del(ctx, s.codeKey(current))
			}
			pipe.Set(ctx, s.codeKey(newCode), rec, 0)
			pipe.HSet(ctx, key,
				string(FieldShareCode), newCode,
				string(FieldUpdatedAt), now.Format(time.RFC3339Nano),
				string(FieldWriter), tag.Writer,
				string(FieldRevision), strconv.FormatInt(tag.Revision, 10),
			)
			pipe.Publish(ctx, s.changesChannel(ownerID), string(FieldShareCode))
			return nil
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("rotate share code for %s: %w", ownerID, err)
	}
	return previous, nil
}

func (s *RedisStore) RevokeShareCode(ctx context.Context, ownerID string, tag Tag) (string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", errors.New("revoke share code: owner id is empty")
	}
	key := s.userKey(ownerID)
	var revoked string
	err := s.watch(ctx, key, func(tx *redis.Tx) error {
		current, now, err := s.currentCode(ctx, tx, key)
		if err != nil {
			return err
		}
		revoked = current
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if current != "" {
				pipe.Del(ctx, s.codeKey(current))
			}
			pipe.HDel(ctx, key, string(FieldShareCode))
			pipe.HSet(ctx, key,
				string(FieldUpdatedAt), now.Format(time.RFC3339Nano),
				string(FieldWriter), tag.Writer,
				string(FieldRevision), strconv.FormatInt(tag.Revision, 10),
			)
			pipe.Publish(ctx, s.changesChannel(ownerID), string(FieldShareCode))
			return nil
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("revoke share code for %s: %w", ownerID, err)
	}
	return revoked, nil
}

const maxWatchRetries = 5

// watch runs fn as an optimistic transaction on key, retrying when another
// client modified key before EXEC.
func (s *RedisStore) watch(ctx context.Context, key string, fn func(*redis.Tx) error) error {
	var err error
	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		err = s.client.Watch(ctx, fn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		s.log.Debug().Str("key", key).Int("attempt", attempt+1).Msg("share code transaction conflicted; retrying")
	}
	return err
}

// currentCode reads the owner's shareCode and the server clock under WATCH.
func (s *RedisStore) currentCode(ctx context.Context, tx *redis.Tx, key string) (string, time.Time, error) {
	current, err := tx.HGet(ctx, key, string(FieldShareCode)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", time.Time{}, err
	}
	now, err := serverTime(ctx, tx)
	if err != nil {
		return "", time.Time{}, err
	}
	return strings.TrimSpace(current), now, nil
}

// serverTime reads the Redis server clock so every client stamps updatedAt
// from the same source.
func serverTime(ctx context.Context, c redis.Cmdable) (time.Time, error) {
	now, err := c.Time(ctx).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("read server time: %w", err)
	}
	return now.UTC(), nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// documentFromHash parses a stored hash. List fields that fail to parse are
// treated as absent.
func documentFromHash(fields map[string]string) Document {
	var doc Document
	if raw, ok := fields[string(FieldProducts)]; ok {
		var p catalog.Products
		if json.Unmarshal([]byte(raw), &p) == nil {
			if p == nil {
				p = catalog.Products{}
			}
			doc.Products = p
		}
	}
	if raw, ok := fields[string(FieldFavorites)]; ok {
		var f catalog.Favorites
		if json.Unmarshal([]byte(raw), &f) == nil {
			doc.Favorites = f.Dedupe()
		}
	}
	if raw, ok := fields[string(FieldCart)]; ok {
		var c catalog.Cart
		if json.Unmarshal([]byte(raw), &c) == nil {
			if c == nil {
				c = catalog.Cart{}
			}
			doc.Cart = c
		}
	}
	doc.ShareCode = strings.TrimSpace(fields[string(FieldShareCode)])
	if t, err := time.Parse(time.RFC3339Nano, fields[string(FieldUpdatedAt)]); err == nil {
		doc.UpdatedAt = t
	}
	doc.Writer = fields[string(FieldWriter)]
	doc.Revision, _ = strconv.ParseInt(fields[string(FieldRevision)], 10, 64)
	return doc
}
