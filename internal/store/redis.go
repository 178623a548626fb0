package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rickgao/spreadcache/internal/model"
)

// DefaultRedisLockTTL bounds how long a crashed holder can block a key.
// A live holder renews the lock every third of the TTL.
const DefaultRedisLockTTL = 30 * time.Second

// unlockScript deletes the lock only if it still carries our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lock only if it still carries our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisStore keeps each series as one CSV-encoded string value.
type RedisStore struct {
	rdb     *redis.Client
	prefix  string
	lockTTL time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithLockTTL sets the expiry of a lock whose holder stopped renewing it.
func WithLockTTL(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.lockTTL = d
		}
	}
}

// NewRedisStore wraps an existing client. Keys are namespaced by prefix.
func NewRedisStore(rdb *redis.Client, prefix string, opts ...RedisOption) *RedisStore {
	if prefix == "" {
		prefix = "spreadcache"
	}
	s := &RedisStore{
		rdb:     rdb,
		prefix:  prefix,
		lockTTL: DefaultRedisLockTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) seriesKey(key model.Key) string {
	return s.prefix + ":series:" + escapedKey(key, ":")
}

func (s *RedisStore) lockKey(key model.Key) string {
	return s.prefix + ":lock:" + escapedKey(key, ":")
}

// Load fetches and decodes the series for key.
func (s *RedisStore) Load(ctx context.Context, key model.Key) (model.Series, error) {
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("invalid key: %w", err)
	}

	data, err := s.rdb.Get(ctx, s.seriesKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	series, err := DecodeCSV(bytes.NewReader(data), key.Field)
	if err != nil {
		return nil, &CorruptionError{Key: key, Err: err}
	}
	return series, nil
}

// Save overwrites the value for key with a single SET.
func (s *RedisStore) Save(ctx context.Context, key model.Key, series model.Series) error {
	if err := checkSave(key, series); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := EncodeCSV(&buf, key.Field, series); err != nil {
		return fmt.Errorf("encode series: %w", err)
	}

	if err := s.rdb.Set(ctx, s.seriesKey(key), buf.Bytes(), 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Lock acquires a SET NX lock carrying a random token. The lock is renewed
// in the background until unlock is called, and expires after the lock TTL
// if the holder dies without releasing it.
func (s *RedisStore) Lock(ctx context.Context, key model.Key) (func(), error) {
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("invalid key: %w", err)
	}

	lk := s.lockKey(key)
	token := uuid.NewString()

	for {
		ok, err := s.rdb.SetNX(ctx, lk, token, s.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redis setnx: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go s.renew(lk, token, stop, done)

	return func() {
		close(stop)
		<-done

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		unlockScript.Run(ctx, s.rdb, []string{lk}, token)
	}, nil
}

// renew extends the lock every third of the TTL until stop is closed or
// the lock is no longer ours.
func (s *RedisStore) renew(lk, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.lockTTL / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.lockTTL/3)
		n, err := renewScript.Run(ctx, s.rdb, []string{lk}, token, s.lockTTL.Milliseconds()).Int()
		cancel()
		if err == nil && n == 0 {
			return
		}
	}
}
