package cache

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type RedisReceiptCache struct {
	client *redis.Client
}

func NewRedisReceiptCache(addr string, password string, db int) *RedisReceiptCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisReceiptCache{client: client}
}

func (c *RedisReceiptCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisReceiptCache) Close() error {
	return c.client.Close()
}

func (c *RedisReceiptCache) Get(ctx context.Context, invoiceNo string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, "receipt:"+invoiceNo).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisReceiptCache) Set(ctx context.Context, invoiceNo string, data []byte, ttl time.Duration) error {
	if len(data) == 0 {
		return nil
	}
	return c.client.Set(ctx, "receipt:"+invoiceNo, data, ttl).Err()
}
