package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "catalog:products"

// RedisStore keeps the catalog document under a single key with no expiry.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.client.Ping(ctx).Err()
	})
}

func (s *RedisStore) Load(ctx context.Context) (Catalog, error) {
	var raw []byte
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		var err error
		raw, err = s.client.Get(ctx, s.key).Bytes()
		return err
	})
	if errors.Is(err, redis.Nil) {
		return Catalog{}, nil
	}
	if err != nil {
		return nil, readErr(fmt.Errorf("redis get %s: %w", s.key, err))
	}

	c, err := decodeCatalog(raw)
	if err != nil {
		return nil, readErr(fmt.Errorf("decode %s: %w", s.key, err))
	}
	return c, nil
}

func (s *RedisStore) Save(ctx context.Context, c Catalog) error {
	raw, err := encodeCatalog(c)
	if err != nil {
		return writeErr(err)
	}

	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.client.Set(ctx, s.key, raw, 0).Err()
	})
	if err != nil {
		return writeErr(fmt.Errorf("redis set %s: %w", s.key, err))
	}
	return nil
}
