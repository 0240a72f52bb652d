package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
)

// Config describes the Redis connection.
type Config struct {
	Address  string `json:"address" toml:"address"`
	Password string `json:"password" toml:"password"`
	DB       int    `json:"db" toml:"db"`
	Prefix   string `json:"prefix" toml:"prefix"`
}

const defaultPrefix = "lightlink:"

// Store implements cache.Store on top of Redis strings. Expiry is delegated
// to Redis key TTLs.
type Store struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, apperrors.New(apperrors.CodeConfiguration, "redis address is empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, apperrors.Wrap(apperrors.CodeStorageFailure, err, "connect redis")
	}
	return NewWithClient(client, cfg.Prefix), nil
}

// NewWithClient wraps an existing client. An empty prefix uses "lightlink:".
func NewWithClient(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix, now: time.Now}
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.CodeStorageFailure, err, "redis get")
	}
	return value, true, nil
}

// Set stores value until expiresAt. Entries already past expiresAt are
// removed instead of written.
func (s *Store) Set(ctx context.Context, key string, value []byte, expiresAt time.Time) error {
	var ttl time.Duration
	if !expiresAt.IsZero() {
		ttl = expiresAt.Sub(s.now())
		if ttl <= 0 {
			if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
				return apperrors.Wrap(apperrors.CodeStorageFailure, err, "redis del")
			}
			return nil
		}
	}
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageFailure, err, "redis set")
	}
	return nil
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}
