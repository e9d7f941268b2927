package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/marketplace/pkg/config"
	"github.com/go-redis/redis/v8"
)

type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		config: cfg,
	}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

func (r *RedisRepository) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r *RedisRepository) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func (r *RedisRepository) ttl() time.Duration {
	if r.config.CacheTTL > 0 {
		return r.config.CacheTTL
	}
	return 30 * time.Minute
}

// Order views are cached by id after checkout and read through on lookup.
// Any status change must invalidate the entry.

func orderKey(orderID uint) string {
	return fmt.Sprintf("order:%d", orderID)
}

func (r *RedisRepository) CacheOrderView(ctx context.Context, orderID uint, view interface{}) error {
	return r.SetJSON(ctx, orderKey(orderID), view, r.ttl())
}

func (r *RedisRepository) GetOrderView(ctx context.Context, orderID uint, dest interface{}) error {
	return r.GetJSON(ctx, orderKey(orderID), dest)
}

func (r *RedisRepository) InvalidateOrder(ctx context.Context, orderID uint) error {
	return r.Del(ctx, orderKey(orderID))
}

// Cache for user profile lookups.
type UserCache struct {
	ID       uint   `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

func userKey(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

func (r *RedisRepository) CacheUser(ctx context.Context, user *UserCache) error {
	return r.SetJSON(ctx, userKey(user.ID), user, r.ttl())
}

func (r *RedisRepository) GetUserCache(ctx context.Context, userID uint) (*UserCache, error) {
	var user UserCache
	if err := r.GetJSON(ctx, userKey(userID), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *RedisRepository) InvalidateUser(ctx context.Context, userID uint) error {
	return r.Del(ctx, userKey(userID))
}
