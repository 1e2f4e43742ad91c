package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	r "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Client is the subset of the redis client the application uses
type Client interface {
	Del(ctx context.Context, keys ...string) *r.IntCmd
	Get(ctx context.Context, key string) *r.StringCmd
	Ping(ctx context.Context) *r.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *r.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *r.BoolCmd
}

// Config holds connection settings
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewClient connects to redis and pings it once
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	client := r.NewClient(&r.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// IsMiss reports whether err is a cache miss
func IsMiss(err error) bool {
	return errors.Is(err, r.Nil)
}

// WrapInCache returns fn memoized under key for duration. Redis errors fall through to fn.
func WrapInCache(ctx context.Context, c Client, key string, duration time.Duration, fn func() (string, error)) func() (string, error) {
	return func() (string, error) {
		cached, err := c.Get(ctx, key).Result()
		if err == nil {
			return cached, nil
		}
		data, err := fn()
		if err != nil {
			return "", err
		}
		// a failed write only costs the next caller a recompute
		_ = c.Set(ctx, key, data, duration).Err()
		return data, nil
	}
}

// Lock is a best-effort distributed mutex held in a single key
type Lock struct {
	client Client
	key    string
	token  string
}

// TryLock takes key for ttl. ok is false when someone else holds it.
func TryLock(ctx context.Context, c Client, key string, ttl time.Duration) (*Lock, bool, error) {
	token := uuid.NewString()
	ok, err := c.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Lock{client: c, key: key, token: token}, true, nil
}

// Release drops the lock if it is still ours
func (l *Lock) Release(ctx context.Context) error {
	current, err := l.client.Get(ctx, l.key).Result()
	if IsMiss(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	if current != l.token {
		return nil
	}
	return l.client.Del(ctx, l.key).Err()
}

// MarkOnce sets key for ttl and reports whether this call was the first
func MarkOnce(ctx context.Context, c Client, key string, ttl time.Duration) (bool, error) {
	ok, err := c.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark %s: %w", key, err)
	}
	return ok, nil
}
