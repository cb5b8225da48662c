// Package cache provides a Redis-backed catalog.PageCache.
//
// Pages are stored as JSON under keys that embed a generation number.
// Invalidate increments the generation, which orphans every existing page at
// once; orphans expire through their TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/logging"
)

// DefaultTTL bounds how long an orphaned page lingers.
const DefaultTTL = 5 * time.Minute

// DefaultPrefix namespaces every key the cache writes.
const DefaultPrefix = "catalog"

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

// RedisCache is a catalog.PageCache over Redis. Redis failures degrade to
// cache misses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(ctx context.Context, cfg Config) (*RedisCache, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address not set")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c := &RedisCache{client: client, ttl: cfg.TTL, prefix: cfg.Prefix}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.prefix == "" {
		c.prefix = DefaultPrefix
	}
	slog.Info("connected to redis", "addr", cfg.Addr, "db", cfg.DB)
	return c, nil
}

// Get implements catalog.PageCache.
func (c *RedisCache) Get(ctx context.Context, key catalog.PageKey) ([]catalog.Product, catalog.Fill, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		logging.FromContext(ctx).Debug("page cache unavailable", "error", err)
		return nil, nil, false
	}
	k := pageKey(c.prefix, gen, key)

	data, err := c.client.Get(ctx, k).Bytes()
	if err == nil {
		var products []catalog.Product
		if err := json.Unmarshal(data, &products); err == nil {
			return products, nil, true
		}
		logging.FromContext(ctx).Warn("discarding corrupt cached page", "key", k)
	} else if !errors.Is(err, redis.Nil) {
		logging.FromContext(ctx).Debug("page cache read failed", "key", k, "error", err)
		return nil, nil, false
	}

	fill := func(ctx context.Context, products []catalog.Product) {
		data, err := json.Marshal(products)
		if err != nil {
			return
		}
		if err := c.client.Set(ctx, k, data, c.ttl).Err(); err != nil {
			logging.FromContext(ctx).Debug("page cache write failed", "key", k, "error", err)
		}
	}
	return nil, fill, false
}

// Invalidate orphans every cached page.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, generationKey(c.prefix)).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(c.prefix)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func generationKey(prefix string) string {
	return prefix + ":gen"
}

// pageKey renders prefix:page:<gen>:<producer>:<skip>:<limit>. Universal is
// "u"; a scoped producer is "p=" plus its query-escaped name, so names
// containing ':' cannot collide.
func pageKey(prefix string, gen int64, key catalog.PageKey) string {
	producer := "u"
	if name, scoped := key.Producer.Name(); scoped {
		producer = "p=" + url.QueryEscape(name)
	}
	return prefix + ":page:" + strconv.FormatInt(gen, 10) + ":" + producer + ":" +
		strconv.Itoa(key.Skip) + ":" + strconv.Itoa(key.Limit)
}
