package external

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

// MemberCache is the shared Redis cache for member-verification results. It
// lets multiple engine instances reuse one registry answer.
type MemberCache struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// NewMemberCache connects to Redis and verifies the connection.
func NewMemberCache(config domain.CacheConfig) (*MemberCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := config.DefaultTTL
	if ttl == 0 {
		ttl = time.Hour
	}

	return &MemberCache{
		redis:      client,
		defaultTTL: ttl,
	}, nil
}

func memberKey(shaNumber string) string {
	return "sha-fraud:member:" + shaNumber
}

// Get retrieves a cached member record. A miss or corrupted entry returns
// found=false with no error.
func (c *MemberCache) Get(ctx context.Context, shaNumber string) (*domain.MemberRecord, bool, error) {
	val, err := c.redis.Get(ctx, memberKey(shaNumber)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get member cache: %w", err)
	}

	var record domain.MemberRecord
	if err := json.Unmarshal([]byte(val), &record); err != nil {
		c.redis.Del(ctx, memberKey(shaNumber))
		return nil, false, nil
	}

	return &record, true, nil
}

// Set caches one member record for the default TTL.
func (c *MemberCache) Set(ctx context.Context, record *domain.MemberRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal member record: %w", err)
	}
	return c.redis.Set(ctx, memberKey(record.SHANumber), data, c.defaultTTL).Err()
}

// Close closes the Redis connection.
func (c *MemberCache) Close() error {
	return c.redis.Close()
}
