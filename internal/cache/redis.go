// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
}

// redisStore is a Redis-backed Store for multi-instance deployments where
// all replicas should share one probe budget against the CDN.
type redisStore struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisStore creates a Redis-backed store and verifies connectivity.
func NewRedisStore(cfg RedisConfig, logger zerolog.Logger) (Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("connected to Redis resolution cache")
	return &redisStore{client: client, logger: logger}, nil
}

func (s *redisStore) Get(ctx context.Context, key string) (Resolution, bool) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return Resolution{}, false
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("redis get failed")
		return Resolution{}, false
	}

	var res Resolution
	if err := json.Unmarshal(val, &res); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("corrupt cache entry, dropping")
		_ = s.client.Del(ctx, key).Err()
		return Resolution{}, false
	}
	return res, true
}

func (s *redisStore) Set(ctx context.Context, key string, res Resolution, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	buf, err := json.Marshal(res)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("marshal cache entry failed")
		return
	}
	if err := s.client.Set(ctx, key, buf, ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("redis set failed")
	}
}

func (s *redisStore) Delete(ctx context.Context, key string) {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("redis del failed")
	}
}

func (s *redisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
