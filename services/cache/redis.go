package cachesvc

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/coachdesk/core"
	"github.com/trezcool/coachdesk/core/cache"
)

const scanCount = 100

// RedisStore shares cached values between API instances.
type RedisStore struct {
	client redis.UniversalClient
}

var _ cache.Store = (*RedisStore)(nil)

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisClient connects to the configured redis server.
func NewRedisClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Cache.RedisAddr,
		Password: conf.Cache.RedisPassword,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis get")
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return errors.Wrap(s.client.Set(ctx, key, val, ttl).Err(), "redis set")
}

func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, prefix+"*", scanCount).Result()
		if err != nil {
			return errors.Wrap(err, "redis scan")
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return errors.Wrap(err, "redis del")
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
