package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one JSON value per key under
// snapshot:item:<itemID>:category:<categoryID>. A single-key SET is atomic,
// which satisfies the no-partial-write contract without extra machinery.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(key Key) string {
	return fmt.Sprintf("snapshot:item:%d:category:%d", key.ItemID, key.CategoryID)
}

func (s *RedisStore) Put(ctx context.Context, key Key, payload *Payload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.client.Set(ctx, redisKey(key), raw, 0).Err()
}

func (s *RedisStore) Get(ctx context.Context, key Key) (*Payload, error) {
	raw, err := s.client.Get(ctx, redisKey(key)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var payload Payload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return &payload, nil
}

func (s *RedisStore) List(ctx context.Context, itemID uint64) ([]Entry, error) {
	pattern := fmt.Sprintf("snapshot:item:%d:category:*", itemID)

	entries := []Entry{}
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}

		for _, k := range keys {
			idStr := k[strings.LastIndex(k, ":")+1:]
			categoryID, err := strconv.ParseUint(idStr, 10, 64)
			if err != nil {
				continue
			}

			payload, err := s.Get(ctx, Key{ItemID: itemID, CategoryID: categoryID})
			if err != nil {
				continue
			}
			entries = append(entries, Entry{CategoryID: categoryID, Timestamp: payload.Timestamp})
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].CategoryID < entries[j].CategoryID })
	return entries, nil
}

func (s *RedisStore) Delete(ctx context.Context, key Key) (bool, error) {
	n, err := s.client.Del(ctx, redisKey(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
