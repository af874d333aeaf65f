package peercache

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "hfbridge:nick:"

type Config struct {
	Addr string
	TTL  time.Duration
}

// Cache stores resolved peer nicknames in redis. Nicknames change rarely
// and a whois round trip per transaction row is the dominant cost of the
// counterparty views, so a TTL-bounded cache-aside is enough. Negative
// results are never cached; an unreachable peer may come online.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(cfg Config) (*Cache, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, nil
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Cache{client: client, ttl: cfg.TTL}, nil
}

func (c *Cache) Get(ctx context.Context, agentID string) (string, bool) {
	nickname, err := c.client.Get(ctx, keyPrefix+agentID).Result()
	if err != nil || nickname == "" {
		return "", false
	}
	return nickname, true
}

func (c *Cache) Set(ctx context.Context, agentID, nickname string) {
	_ = c.client.Set(ctx, keyPrefix+agentID, nickname, c.ttl).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
