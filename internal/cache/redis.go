// Package cache реализует обёртку над Redis. Используется для
// legacy-счётчика бесплатных генераций анонимных и неподписанных
// пользователей; авторитетным гейтом для залогиненных он не является.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/studysnap-backend/internal/config"
)

type Cache struct {
	Db *redis.Client
}

func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.Initserver"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db}, nil
}

func (c *Cache) Get(key string, result any) (bool, error) {
	const op = "cache.Get"
	val, err := c.Db.Get(context.Background(), key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	err = json.Unmarshal([]byte(val), result)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

func (c *Cache) Set(key string, value any, expiration time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Db.Set(context.Background(), key, jsonData, expiration).Err()
}

func (c *Cache) Invalidate(key string) error {
	return c.Db.Del(context.Background(), key).Err()
}

// IncrUsage атомарно увеличивает счётчик бесплатных генераций и
// возвращает новое значение. TTL выставляется только при первом
// инкременте.
func (c *Cache) IncrUsage(key string, expiration time.Duration) (int64, error) {
	const op = "cache.IncrUsage"
	val, err := c.Db.Incr(context.Background(), key).Result()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if val == 1 && expiration > 0 {
		if err := c.Db.Expire(context.Background(), key, expiration).Err(); err != nil {
			return val, fmt.Errorf("%s: %w", op, err)
		}
	}
	return val, nil
}

// GetUsage возвращает текущее значение счётчика, 0 если ключа нет.
func (c *Cache) GetUsage(key string) (int64, error) {
	const op = "cache.GetUsage"
	val, err := c.Db.Get(context.Background(), key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return val, nil
}
