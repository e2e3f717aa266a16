package repositories

import (
	"context"
	"mailbox/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Badger_TTL_Cache(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	cache := NewBadgerTTLCache(openBadger(t))

	// Given an absent key
	_, err := cache.Get(ctx, "session")
	req.ErrorIs(err, errors.ErrCacheMiss)

	// When setting it
	req.NoError(cache.Set(ctx, "session", []byte("token"), time.Hour))

	// Then it can be read back
	value, err := cache.Get(ctx, "session")
	req.NoError(err)
	req.Equal([]byte("token"), value)

	// Then deleting is idempotent
	req.NoError(cache.Delete(ctx, "session"))
	req.NoError(cache.Delete(ctx, "session"))
	_, err = cache.Get(ctx, "session")
	req.ErrorIs(err, errors.ErrCacheMiss)
}

func Test_Badger_TTL_Cache_Expiry(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	cache := NewBadgerTTLCache(openBadger(t))

	req.NoError(cache.Set(ctx, "short", []byte("lived"), time.Second))
	req.Eventually(func() bool {
		_, err := cache.Get(ctx, "short")
		return errors.Is(err, errors.ErrCacheMiss)
	}, 5*time.Second, 100*time.Millisecond)
}

func Test_Badger_TTL_Cache_Does_Not_Leak_Into_Messages(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := openBadger(t)
	cache := NewBadgerTTLCache(db)
	store := NewBadgerMessageStore(db, nil, DefaultTakeOptions)

	req.NoError(cache.Set(ctx, "ratelimit:1.2.3.4", []byte("1"), time.Minute))
	count, err := store.Count(ctx)
	req.NoError(err)
	req.Zero(count)
}
