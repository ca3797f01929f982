package util

import "sync"

// KeyedMutex hands out one mutex per key. Locks are never evicted; the
// population is bounded by the number of distinct keys seen in-process.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *KeyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

func (k *KeyedMutex) Lock(key string) {
	k.get(key).Lock()
}

func (k *KeyedMutex) Unlock(key string) {
	k.get(key).Unlock()
}
