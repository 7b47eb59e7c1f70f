package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix      = "bulwark:rl:"
	defaultRedisDialTimeout = 5 * time.Second
)

// RedisStore implements Store as a sliding log in a Redis sorted set.
//
// Every hit is a member scored by its timestamp in milliseconds. Increment
// prunes members older than the window, adds the new hit, counts, and
// refreshes the key TTL inside one MULTI/EXEC so concurrent replicas see a
// consistent count. The window length is stored next to the set so Get can
// count without being told the window.
type RedisStore struct {
	client goredis.UniversalClient
	prefix string
	now    func() time.Time
}

// RedisStoreConfig configures the Redis store.
type RedisStoreConfig struct {
	// Prefix is prepended to every key. Default: "bulwark:rl:"
	Prefix string

	// Now overrides the clock used for member scores. Default: time.Now
	Now func() time.Time
}

// NewRedisStore wraps an existing client. The store takes ownership of the
// client and closes it on Close.
func NewRedisStore(client goredis.UniversalClient, cfg RedisStoreConfig) *RedisStore {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultRedisPrefix
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &RedisStore{
		client: client,
		prefix: cfg.Prefix,
		now:    cfg.Now,
	}
}

// NewRedisClientFromURL parses a redis:// URL, connects, and pings.
func NewRedisClientFromURL(ctx context.Context, redisURL string) (*goredis.Client, error) {
	client, err := newRedisClient(redisURL)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// newRedisClient builds a client without connecting. go-redis dials lazily,
// so the client starts working once the server becomes reachable.
func newRedisClient(redisURL string) (*goredis.Client, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = defaultRedisDialTimeout
	}
	return goredis.NewClient(opts), nil
}

// Increment records a hit against key.
func (r *RedisStore) Increment(ctx context.Context, key string, win time.Duration) (Counter, error) {
	if err := validate(key, win); err != nil {
		return Counter{}, err
	}

	setKey, winKey := r.keys(key)
	nowMs := r.now().UnixMilli()
	winMs := win.Milliseconds()
	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()

	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, setKey, "-inf", strconv.FormatInt(nowMs-winMs, 10))
	pipe.ZAdd(ctx, setKey, goredis.Z{Score: float64(nowMs), Member: member})
	card := pipe.ZCard(ctx, setKey)
	oldest := pipe.ZRangeWithScores(ctx, setKey, 0, 0)
	pipe.PExpire(ctx, setKey, win)
	pipe.Set(ctx, winKey, winMs, win)
	if _, err := pipe.Exec(ctx); err != nil {
		return Counter{}, fmt.Errorf("redis increment %q: %w", key, err)
	}

	resetAt := time.UnixMilli(nowMs + winMs)
	if zs := oldest.Val(); len(zs) > 0 {
		resetAt = time.UnixMilli(int64(zs[0].Score) + winMs)
	}

	return Counter{Total: card.Val(), ResetAt: resetAt}, nil
}

// Get returns the current window for key.
func (r *RedisStore) Get(ctx context.Context, key string) (Counter, error) {
	if key == "" {
		return Counter{}, ErrEmptyKey
	}

	setKey, winKey := r.keys(key)
	winMs, err := r.client.Get(ctx, winKey).Int64()
	if errors.Is(err, goredis.Nil) {
		return Counter{}, nil
	}
	if err != nil {
		return Counter{}, fmt.Errorf("redis get %q: %w", key, err)
	}

	nowMs := r.now().UnixMilli()
	minScore := "(" + strconv.FormatInt(nowMs-winMs, 10)

	pipe := r.client.Pipeline()
	count := pipe.ZCount(ctx, setKey, minScore, "+inf")
	oldest := pipe.ZRangeByScoreWithScores(ctx, setKey, &goredis.ZRangeBy{
		Min:   minScore,
		Max:   "+inf",
		Count: 1,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return Counter{}, fmt.Errorf("redis get %q: %w", key, err)
	}

	if count.Val() == 0 {
		return Counter{}, nil
	}
	c := Counter{Total: count.Val()}
	if zs := oldest.Val(); len(zs) > 0 {
		c.ResetAt = time.UnixMilli(int64(zs[0].Score) + winMs)
	}
	return c, nil
}

// Reset removes key.
func (r *RedisStore) Reset(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	setKey, winKey := r.keys(key)
	if err := r.client.Del(ctx, setKey, winKey).Err(); err != nil {
		return fmt.Errorf("redis reset %q: %w", key, err)
	}
	return nil
}

// Ping checks connectivity to Redis.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Mode reports ModeShared.
func (r *RedisStore) Mode() Mode {
	return ModeShared
}

// Close closes the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// keys returns the sorted set key and the window key. Both share a hash tag
// so they land on the same cluster slot.
func (r *RedisStore) keys(key string) (string, string) {
	base := r.prefix + "{" + key + "}"
	return base, base + ":win"
}
