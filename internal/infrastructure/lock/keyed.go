// Package lock implementa las secciones críticas por producto del ledger:
// un bloqueo en proceso (semáforo por clave) y uno distribuido sobre Redis.
package lock

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

type keyedEntry struct {
	sem  *semaphore.Weighted
	refs int
}

// KeyedLocker exclusión mutua por clave dentro del proceso.
// Claves distintas no comparten estado; las entradas se liberan cuando nadie las usa.
type KeyedLocker struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

// NewKeyedLocker construye el locker en memoria.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{entries: make(map[string]*keyedEntry)}
}

// Lock bloquea key hasta obtenerla o hasta que ctx termine (devuelve ctx.Err()).
func (l *KeyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &keyedEntry{sem: semaphore.NewWeighted(1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		l.release(key, e)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			l.release(key, e)
		})
	}, nil
}

func (l *KeyedLocker) release(key string, e *keyedEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

// Len cantidad de claves con bloqueos activos o en espera.
func (l *KeyedLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
