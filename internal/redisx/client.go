package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

func Exists(ctx context.Context, rdb *redis.Client, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// Deduper marks event ids as seen. First reports whether id was not seen before.
type Deduper struct {
	RDB     *redis.Client
	Service string
}

func (d *Deduper) key(id string) string { return fmt.Sprintf(KeyDedup, d.Service, id) }

func (d *Deduper) First(ctx context.Context, id string) (bool, error) {
	return d.RDB.SetNX(ctx, d.key(id), "1", TTLDedup).Result()
}

func (d *Deduper) Seen(ctx context.Context, id string) (bool, error) {
	return Exists(ctx, d.RDB, d.key(id))
}

// Forget clears the mark so a redelivered event is processed again.
func (d *Deduper) Forget(ctx context.Context, id string) error {
	return d.RDB.Del(ctx, d.key(id)).Err()
}

// Cache is a JSON cache-aside store with a key prefix and default TTL.
type Cache struct {
	RDB    *redis.Client
	Prefix string
	TTL    time.Duration
}

func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	b, err := c.RDB.Get(ctx, c.Prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal: %w", err)
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.RDB.Set(ctx, c.Prefix+key, b, c.TTL).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
