package stepup

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store holds ephemeral challenge state. Consume must be atomic: under
// concurrent verification attempts with the same code, only one caller may
// see the value.
type Store interface {
	Put(ctx context.Context, key string, value string, ttl time.Duration) error
	Consume(ctx context.Context, key string) (string, error)
}

type redisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a challenge store on the shared Redis client.
func NewRedisStore(rdb *redis.Client) Store {
	return &redisStore{rdb: rdb}
}

func (s *redisStore) Put(ctx context.Context, key string, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

// Consume returns the stored value and deletes it in a single round trip.
// A missing key yields "", nil.
func (s *redisStore) Consume(ctx context.Context, key string) (string, error) {
	val, err := s.rdb.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return val, nil
}
