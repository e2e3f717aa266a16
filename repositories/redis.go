package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"mailbox/codec"
	"mailbox/contract"
	"mailbox/domain"
	"mailbox/errors"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

const (
	redisMessagePrefix = "mailbox:msg:"
	redisCachePrefix   = "mailbox:cache:"
)

var (
	_ contract.IMessageStore = RedisMessageStore{}
	_ contract.ITTLCache     = RedisTTLCache{}
)

type RedisMessageStore struct {
	client  *redis.Client
	log     *slog.Logger
	options TakeOptions
	// onPicked runs between the pick and the removal.
	onPicked func(key string)
}

func NewRedisMessageStore(client *redis.Client, log *slog.Logger, options TakeOptions) RedisMessageStore {
	return RedisMessageStore{client: client, log: log, options: options}
}

// Enqueue stores the message with SETNX so a pending id is never overwritten.
func (s RedisMessageStore) Enqueue(ctx context.Context, message domain.Message) (string, error) {
	message = stamp(message)
	bytes, err := codec.Marshal(message)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	created, err := s.client.SetNX(ctx, redisMessagePrefix+message.ID, bytes, 0).Result()
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	if !created {
		return "", fmt.Errorf("%w: %s", errors.ErrDuplicateMessage, message.ID)
	}
	return message.ID, nil
}

// TakeRandom scans the message keys, picks one uniformly and removes it with GETDEL.
// GETDEL is atomic, so a nil reply means a concurrent caller got the key first.
func (s RedisMessageStore) TakeRandom(ctx context.Context) (*domain.Message, error) {
	for attempt := 1; attempt <= s.options.MaxAttempts; attempt++ {
		key, err := s.pickKey(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
		}
		if key == "" {
			return nil, nil
		}
		if s.onPicked != nil {
			s.onPicked(key)
		}

		value, err := s.client.GetDel(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			s.log.Debug("Message taken by a concurrent caller, retrying", "key", key, "attempt", attempt)
			continue
		case err != nil:
			return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
		}

		var message domain.Message
		if err = codec.Unmarshal(value, &message); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
		}
		return &message, nil
	}
	s.log.Warn("Giving up taking a message under contention", "attempts", s.options.MaxAttempts)
	return nil, nil
}

// Count walks the whole keyspace, SCAN may report a key twice so duplicates are dropped.
func (s RedisMessageStore) Count(ctx context.Context) (int, error) {
	var keys []string
	it := s.scan(ctx)
	for it.Next(ctx) {
		keys = append(keys, it.Val())
	}
	if err := it.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return len(lo.Uniq(keys)), nil
}

// pickKey samples one message key with a reservoir of size one over a full SCAN,
// holding a single key in memory. A key SCAN repeats during a rehash counts twice.
// It returns "" when nothing is pending.
func (s RedisMessageStore) pickKey(ctx context.Context) (string, error) {
	picked, seen := "", 0
	it := s.scan(ctx)
	for it.Next(ctx) {
		seen++
		if rand.IntN(seen) == 0 {
			picked = it.Val()
		}
	}
	return picked, it.Err()
}

func (s RedisMessageStore) scan(ctx context.Context) *redis.ScanIterator {
	return s.client.Scan(ctx, 0, redisMessagePrefix+"*", int64(max(s.options.ScanBatch, 1))).Iterator()
}

type RedisTTLCache struct {
	client *redis.Client
}

func NewRedisTTLCache(client *redis.Client) RedisTTLCache {
	return RedisTTLCache{client: client}
}

func (c RedisTTLCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, redisCachePrefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, errors.ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return value, nil
}

func (c RedisTTLCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, redisCachePrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return nil
}

func (c RedisTTLCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, redisCachePrefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return nil
}
