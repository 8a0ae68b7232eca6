package lock_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/infrastructure/lock"
)

type locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

func newRedisLocker(t *testing.T, ttl time.Duration) (*lock.RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.NewRedisLocker(client, ttl, nil), mr
}

func productKey(id string) string { return "ledger:product:" + id + ":lock" }

// ──────────────────────────────────────────────────────────────────────────────
// Comportamiento común a ambos backends
// ──────────────────────────────────────────────────────────────────────────────

func backends(t *testing.T) map[string]locker {
	redisLocker, _ := newRedisLocker(t, 5*time.Second)
	return map[string]locker{
		"memoria": lock.NewKeyedLocker(),
		"redis":   redisLocker,
	}
}

func TestLock_MismaClaveEsperaHastaTimeout(t *testing.T) {
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			key := productKey("p1")
			unlock, err := l.Lock(context.Background(), key)
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			_, err = l.Lock(ctx, key)
			assert.ErrorIs(t, err, context.DeadlineExceeded, "la segunda toma debe agotar el tiempo")

			unlock()
			unlock2, err := l.Lock(context.Background(), key)
			require.NoError(t, err, "tras liberar, la clave vuelve a estar disponible")
			unlock2()
		})
	}
}

func TestLock_ClavesDistintasNoSeBloquean(t *testing.T) {
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			unlockA, err := l.Lock(context.Background(), productKey("a"))
			require.NoError(t, err)
			defer unlockA()

			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()
			unlockB, err := l.Lock(ctx, productKey("b"))
			require.NoError(t, err, "otro producto no debe esperar al primero")
			unlockB()
		})
	}
}

func TestLock_ExclusionMutua(t *testing.T) {
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var inside, maxInside int32
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					unlock, err := l.Lock(context.Background(), "k")
					if !assert.NoError(t, err) {
						return
					}
					n := atomic.AddInt32(&inside, 1)
					for {
						m := atomic.LoadInt32(&maxInside)
						if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
							break
						}
					}
					time.Sleep(time.Millisecond)
					atomic.AddInt32(&inside, -1)
					unlock()
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), atomic.LoadInt32(&maxInside))
		})
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Específicos de cada backend
// ──────────────────────────────────────────────────────────────────────────────

func TestKeyedLocker_LiberaEntradas(t *testing.T) {
	l := lock.NewKeyedLocker()
	unlock, err := l.Lock(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 1, l.Len())

	unlock()
	unlock() // idempotente
	assert.Equal(t, 0, l.Len(), "sin usuarios la entrada se elimina")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hold, err := l.Lock(context.Background(), "y")
	require.NoError(t, err)
	_, err = l.Lock(ctx, "y")
	assert.ErrorIs(t, err, context.Canceled)
	hold()
	assert.Equal(t, 0, l.Len())
}

func TestRedisLocker_TTLExpiraYNoBorraClaveAjena(t *testing.T) {
	l, mr := newRedisLocker(t, time.Second)
	key := productKey("p9")

	unlockOld, err := l.Lock(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, mr.Exists(key))

	// Simula la muerte del dueño: la clave expira por TTL.
	mr.FastForward(2 * time.Second)
	assert.False(t, mr.Exists(key))

	unlockNew, err := l.Lock(context.Background(), key)
	require.NoError(t, err)

	unlockOld()
	assert.True(t, mr.Exists(key), "el dueño anterior no debe liberar la clave del nuevo")

	unlockNew()
	assert.False(t, mr.Exists(key))
}
