package metadata

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Sternrassler/trendnow-cache/pkg/cache"
	"github.com/redis/go-redis/v9"
)

// Redis keys for cache metadata. All keys carry the {news:meta} hash tag,
// so under Redis Cluster they map to one slot and the multi-key
// transaction and script below stay valid.
const (
	// RedisKeyRecordPrefix prefixes the hash holding one record
	RedisKeyRecordPrefix = "{news:meta}:url:"

	// RedisKeyParentPrefix prefixes the set of URLs filed under a parent
	RedisKeyParentPrefix = "{news:meta}:parent:"
)

const (
	fieldParentURL = "parent_url"
	fieldCreatedAt = "created_at"
)

// deleteByParentScript removes every record listed in the parent set whose
// parent_url still matches, then the set itself, in one atomic step.
// Record keys are derived inside the script from ARGV[1]; they share the
// hash tag of KEYS[1].
var deleteByParentScript = redis.NewScript(`
local urls = redis.call('SMEMBERS', KEYS[1])
local deleted = 0
for _, url in ipairs(urls) do
	local key = ARGV[1] .. url
	if redis.call('HGET', key, 'parent_url') == ARGV[2] then
		redis.call('DEL', key)
		deleted = deleted + 1
	end
end
redis.call('DEL', KEYS[1])
return deleted
`)

// RedisStore is a cache.MetadataStore backed by Redis.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis metadata store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient}
}

func recordKey(url string) string {
	return RedisKeyRecordPrefix + url
}

func parentKey(parentURL string) string {
	return RedisKeyParentPrefix + parentURL
}

// Get returns the record for url or cache.ErrRecordNotFound.
func (s *RedisStore) Get(ctx context.Context, url string) (*cache.CacheRecord, error) {
	fields, err := s.redis.HGetAll(ctx, recordKey(url)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(fields) == 0 {
		return nil, cache.ErrRecordNotFound
	}

	createdAt, err := strconv.ParseInt(fields[fieldCreatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse created_at for %s: %w", url, err)
	}

	return &cache.CacheRecord{
		URL:       url,
		ParentURL: fields[fieldParentURL],
		CreatedAt: createdAt,
	}, nil
}

// Upsert writes rec and files it under its parent in one transaction.
func (s *RedisStore) Upsert(ctx context.Context, rec cache.CacheRecord) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, recordKey(rec.URL),
			fieldParentURL, rec.ParentURL,
			fieldCreatedAt, rec.CreatedAt,
		)
		pipe.SAdd(ctx, parentKey(rec.ParentURL), rec.URL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store cache record in redis: %w", err)
	}
	return nil
}

// DeleteByParent removes every record filed under parentURL.
func (s *RedisStore) DeleteByParent(ctx context.Context, parentURL string) error {
	err := deleteByParentScript.Run(ctx, s.redis,
		[]string{parentKey(parentURL)},
		RedisKeyRecordPrefix, parentURL,
	).Err()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("delete cache records for %s: %w", parentURL, err)
	}
	return nil
}
