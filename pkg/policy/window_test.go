package policy

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisWindowStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisWindowStore(client), mr
}

func windowStores(t *testing.T) map[string]WindowStore {
	redisStore, _ := newRedisStore(t)
	return map[string]WindowStore{
		"memory": NewMemoryWindowStore(100),
		"redis":  redisStore,
	}
}

func TestWindowStore_AdmitsExactlyMax(t *testing.T) {
	w := Window{Name: "user-rate-limit", Max: 10, Interval: time.Minute}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for name, store := range windowStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < w.Max; i++ {
				res, err := store.Hit(ctx, "k", w, base.Add(time.Duration(i)*time.Second))
				require.NoError(t, err)
				assert.True(t, res.Allowed, "hit %d", i+1)
				assert.Equal(t, w.Max-i-1, res.Remaining)
			}

			res, err := store.Hit(ctx, "k", w, base.Add(15*time.Second))
			require.NoError(t, err)
			assert.False(t, res.Allowed)
			assert.Equal(t, 0, res.Remaining)
			assert.True(t, res.Reset.Equal(base.Add(time.Minute)), "reset at %v", res.Reset)
		})
	}
}

func TestWindowStore_DeniedHitsDoNotConsumeBudget(t *testing.T) {
	w := Window{Name: "burst", Max: 2, Interval: 10 * time.Second}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for name, store := range windowStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < 2; i++ {
				res, err := store.Hit(ctx, "k", w, base)
				require.NoError(t, err)
				require.True(t, res.Allowed)
			}

			// Hammering while over budget must not push the reset out
			for i := 1; i <= 5; i++ {
				res, err := store.Hit(ctx, "k", w, base.Add(time.Duration(i)*time.Second))
				require.NoError(t, err)
				assert.False(t, res.Allowed)
			}

			res, err := store.Hit(ctx, "k", w, base.Add(10*time.Second+time.Millisecond))
			require.NoError(t, err)
			assert.True(t, res.Allowed, "window slides once the first hits age out")
			assert.Equal(t, 1, res.Remaining)
		})
	}
}

func TestWindowStore_KeysAreIndependent(t *testing.T) {
	w := Window{Name: "guest-rate-limit", Max: 1, Interval: time.Minute}
	now := time.Now()

	for name, store := range windowStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			res, err := store.Hit(ctx, "a", w, now)
			require.NoError(t, err)
			assert.True(t, res.Allowed)

			res, err = store.Hit(ctx, "b", w, now)
			require.NoError(t, err)
			assert.True(t, res.Allowed)

			res, err = store.Hit(ctx, "a", w, now)
			require.NoError(t, err)
			assert.False(t, res.Allowed)
		})
	}
}

func TestWindowStore_Concurrent(t *testing.T) {
	w := Window{Name: "admin-rate-limit", Max: 20, Interval: time.Minute}
	now := time.Now()

	for name, store := range windowStores(t) {
		t.Run(name, func(t *testing.T) {
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				allowed int
			)
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					res, err := store.Hit(context.Background(), "k", w, now)
					if err != nil {
						t.Error(err)
						return
					}
					if res.Allowed {
						mu.Lock()
						allowed++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, w.Max, allowed)
		})
	}
}

func TestRedisWindowStore_SetsExpiry(t *testing.T) {
	store, mr := newRedisStore(t)
	w := Window{Name: "burst", Max: 5, Interval: 2 * time.Second}

	_, err := store.Hit(context.Background(), "policy:burst:abc", w, time.Now())
	require.NoError(t, err)

	assert.True(t, mr.Exists("policy:burst:abc"))
	assert.Equal(t, 2*time.Second, mr.TTL("policy:burst:abc"))

	mr.FastForward(3 * time.Second)
	assert.False(t, mr.Exists("policy:burst:abc"))
}

func TestRedisWindowStore_Unavailable(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()

	_, err := store.Hit(context.Background(), "k", Window{Name: "burst", Max: 5, Interval: time.Second}, time.Now())
	assert.Error(t, err)
}

func TestMemoryWindowStore_CancelledContext(t *testing.T) {
	store := NewMemoryWindowStore(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Hit(ctx, "k", Window{Name: "burst", Max: 5, Interval: time.Second}, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryWindowStore_BoundedSize(t *testing.T) {
	store := NewMemoryWindowStore(2)
	w := Window{Name: "burst", Max: 5, Interval: time.Minute}
	now := time.Now()

	for _, key := range []string{"a", "b", "c"} {
		_, err := store.Hit(context.Background(), key, w, now)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, store.Len(w))
}

func TestWindow_Validate(t *testing.T) {
	assert.NoError(t, Window{Name: "burst", Max: 1, Interval: time.Second}.Validate())
	assert.Error(t, Window{Max: 1, Interval: time.Second}.Validate())
	assert.Error(t, Window{Name: "burst", Interval: time.Second}.Validate())
	assert.Error(t, Window{Name: "burst", Max: 1}.Validate())
}
