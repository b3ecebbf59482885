// internal/common/database/redis.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"drift-workers/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the session cache connection.
type RedisClient struct {
	Client redis.UniversalClient
}

// NewRedis creates a new Redis client
func NewRedis(cfg config.RedisConfig) *RedisClient {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	return &RedisClient{Client: rdb}
}

// NewRedisFromClient wraps an existing client (miniredis or redismock in tests).
func NewRedisFromClient(c redis.UniversalClient) *RedisClient {
	return &RedisClient{Client: c}
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

// SetJSON stores v encoded as JSON under key.
func (c *RedisClient) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.Client.Set(ctx, key, data, ttl).Err()
}

// GetJSON decodes the value at key into v. It returns redis.Nil when the key is absent.
func (c *RedisClient) GetJSON(ctx context.Context, key string, v interface{}) error {
	data, err := c.Client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// HSetJSON writes each value of fields JSON-encoded into the hash at key and
// refreshes its TTL in one pipeline.
func (c *RedisClient) HSetJSON(ctx context.Context, key string, fields map[string]interface{}, ttl time.Duration) error {
	if len(fields) == 0 {
		return nil
	}
	values := make(map[string]interface{}, len(fields))
	for f, v := range fields {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s.%s: %w", key, f, err)
		}
		values[f] = data
	}

	_, err := c.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, values)
		p.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

// Del deletes one or more keys
func (c *RedisClient) Del(ctx context.Context, keys ...string) error {
	return c.Client.Del(ctx, keys...).Err()
}
