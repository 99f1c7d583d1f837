package profilecache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// memoryStore is the default single-entry store. The Cache's mutex already
// serializes access, so no locking is needed here.
type memoryStore struct {
	entry *Entry
}

// NewMemoryStore returns the in-process entry store.
func NewMemoryStore() EntryStore {
	return &memoryStore{}
}

func (s *memoryStore) Load(_ context.Context) (*Entry, error) {
	return s.entry, nil
}

func (s *memoryStore) Save(_ context.Context, entry *Entry, _ time.Duration) error {
	s.entry = entry
	return nil
}

func (s *memoryStore) Drop(_ context.Context) error {
	s.entry = nil
	return nil
}

// RedisStore keeps the cache entry in redis so several processes serving the
// same user share one cached profile. The entry is stored as JSON with the
// cache TTL as its expiration.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore builds a redis-backed entry store. key namespaces the entry,
// typically per application or per user shard.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = "monetix:profile_cache"
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context) (*Entry, error) {
	raw, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *RedisStore) Save(ctx context.Context, entry *Entry, ttl time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, raw, ttl).Err()
}

func (s *RedisStore) Drop(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
