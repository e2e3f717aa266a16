package repositories

import (
	"context"
	"log/slog"
	"mailbox/domain"
	"mailbox/errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func openRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return server, client
}

func Test_Redis_Enqueue_Then_Take(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	_, client := openRedis(t)
	store := NewRedisMessageStore(client, slog.Default(), DefaultTakeOptions)

	id, err := store.Enqueue(ctx, domain.NewMessage("a message for redis", ""))
	req.NoError(err)

	taken, err := store.TakeRandom(ctx)
	req.NoError(err)
	req.NotNil(taken)
	req.Equal(id, taken.ID)
	req.Equal("a message for redis", taken.Title)

	taken, err = store.TakeRandom(ctx)
	req.NoError(err)
	req.Nil(taken)
}

func Test_Redis_Value_Removed_Between_Scan_And_Take(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server, client := openRedis(t)
	store := NewRedisMessageStore(client, slog.Default(), DefaultTakeOptions)

	_, err := store.Enqueue(ctx, domain.NewMessage("only one message", ""))
	req.NoError(err)
	// A concurrent caller already consumed it
	for _, key := range server.Keys() {
		server.Del(key)
	}

	taken, err := store.TakeRandom(ctx)
	req.NoError(err)
	req.Nil(taken)
}

func Test_Redis_Refuses_Pending_ID(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	_, client := openRedis(t)
	store := NewRedisMessageStore(client, slog.Default(), DefaultTakeOptions)

	first := domain.NewMessage("first version", "")
	first.ID = "fixed-id"
	_, err := store.Enqueue(ctx, first)
	req.NoError(err)

	second := domain.NewMessage("second version", "")
	second.ID = "fixed-id"
	_, err = store.Enqueue(ctx, second)
	req.ErrorIs(err, errors.ErrDuplicateMessage)

	taken, err := store.TakeRandom(ctx)
	req.NoError(err)
	req.Equal("first version", taken.Content)
}

func Test_Redis_Every_Message_Can_Be_Picked(t *testing.T) {
	_, client := openRedis(t)
	// A batch smaller than the key count forces several SCAN round trips
	store := NewRedisMessageStore(client, slog.Default(), TakeOptions{MaxAttempts: 3, ScanBatch: 1})
	assertUniformPick(t, store)
}

func Test_Redis_Gives_Up_After_Max_Attempts(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server, client := openRedis(t)
	store := NewRedisMessageStore(client, slog.Default(), TakeOptions{MaxAttempts: 3, ScanBatch: 10})
	enqueueMany(t, store, 1)

	// Every picked key is consumed by someone else while a new one arrives
	lost := 0
	store.onPicked = func(key string) {
		lost++
		server.Del(key)
		enqueueMany(t, store, 1)
	}

	taken, err := store.TakeRandom(ctx)
	req.NoError(err)
	req.Nil(taken)
	req.Equal(3, lost)

	count, err := store.Count(ctx)
	req.NoError(err)
	req.Equal(1, count)
}

func Test_Redis_Concurrent_Takes_Never_Duplicate(t *testing.T) {
	_, client := openRedis(t)
	store := NewRedisMessageStore(client, slog.Default(), TakeOptions{MaxAttempts: 1000, ScanBatch: 100})
	enqueueMany(t, store, 25)
	assertConcurrentTakes(t, store, 25, 40)
}

func Test_Redis_Storage_Fault(t *testing.T) {
	req := require.New(t)
	server, client := openRedis(t)
	store := NewRedisMessageStore(client, slog.Default(), DefaultTakeOptions)
	server.Close()

	_, err := store.Enqueue(context.Background(), domain.NewMessage("unreachable", ""))
	req.ErrorIs(err, errors.ErrStorage)

	_, err = store.TakeRandom(context.Background())
	req.ErrorIs(err, errors.ErrStorage)
}

func Test_Redis_TTL_Cache(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server, client := openRedis(t)
	cache := NewRedisTTLCache(client)

	_, err := cache.Get(ctx, "missing")
	req.ErrorIs(err, errors.ErrCacheMiss)

	req.NoError(cache.Set(ctx, "key", []byte("value"), time.Minute))
	value, err := cache.Get(ctx, "key")
	req.NoError(err)
	req.Equal([]byte("value"), value)

	// Then entries vanish once their TTL is over
	server.FastForward(2 * time.Minute)
	_, err = cache.Get(ctx, "key")
	req.ErrorIs(err, errors.ErrCacheMiss)

	req.NoError(cache.Set(ctx, "key", []byte("value"), time.Minute))
	req.NoError(cache.Delete(ctx, "key"))
	req.NoError(cache.Delete(ctx, "key"))
	_, err = cache.Get(ctx, "key")
	req.ErrorIs(err, errors.ErrCacheMiss)
}
