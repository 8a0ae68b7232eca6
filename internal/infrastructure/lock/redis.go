package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// releaseScript borra la clave solo si sigue perteneciendo al token que la tomó.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker exclusión mutua por clave entre procesos (SET NX PX).
// El TTL libera la clave si el proceso dueño muere a mitad de la sección crítica.
type RedisLocker struct {
	client     redis.UniversalClient
	ttl        time.Duration
	retryDelay time.Duration
	maxDelay   time.Duration
	log        *logger.Logger
}

// NewRedisLocker construye el locker distribuido.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration, log *logger.Logger) *RedisLocker {
	if log == nil {
		log = logger.Nop()
	}
	return &RedisLocker{
		log:        log,
		client:     client,
		ttl:        ttl,
		retryDelay: 5 * time.Millisecond,
		maxDelay:   100 * time.Millisecond,
	}
}

// Lock reintenta con backoff hasta obtener la clave o hasta que ctx termine.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	delay := l.retryDelay
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return l.unlocker(key, token), nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		if delay *= 2; delay > l.maxDelay {
			delay = l.maxDelay
		}
	}
}

func (l *RedisLocker) unlocker(key, token string) func() {
	return func() {
		// El contexto del llamador puede estar cancelado; la liberación no depende de él.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			// La clave expira sola por TTL.
			l.log.Warn().Err(err).Str("key", key).Msg("liberar bloqueo redis")
		}
	}
}
