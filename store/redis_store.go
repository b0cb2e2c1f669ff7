package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const redisOpTimeout = 250 * time.Millisecond

// RedisStore keeps values as Redis strings under a key prefix. Redis expires
// the keys itself.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + ":" + name
}

func (s *RedisStore) Set(name, value string, ttlDays int) {
	if s == nil || s.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := s.client.Set(ctx, s.key(name), value, ttl(ttlDays)).Err(); err != nil {
		log.Err(err).Str("key", name).Msg("redis store: set failed")
	}
}

func (s *RedisStore) Get(name string) (string, bool) {
	if s == nil || s.client == nil {
		return "", false
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	value, err := s.client.Get(ctx, s.key(name)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Err(err).Str("key", name).Msg("redis store: get failed")
		}
		return "", false
	}
	return value, value != ""
}

func (s *RedisStore) Delete(name string) {
	if s == nil || s.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := s.client.Del(ctx, s.key(name)).Err(); err != nil {
		log.Err(err).Str("key", name).Msg("redis store: delete failed")
	}
}
