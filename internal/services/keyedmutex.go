package services

import "sync"

// KeyedMutex serializes work per key. Rule application locks per field name,
// pulls lock per store, so unrelated work never blocks.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch sync.Mutex
	// refs counts holders and waiters so idle entries can be dropped
	refs int
}

// NewKeyedMutex creates a new keyed mutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *KeyedMutex) get(key string) *keyedLock {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	return l
}

func (k *KeyedMutex) put(key string, l *keyedLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}

// Lock blocks until the key is free
func (k *KeyedMutex) Lock(key string) {
	k.get(key).ch.Lock()
}

// TryLock acquires the key without blocking and reports whether it succeeded
func (k *KeyedMutex) TryLock(key string) bool {
	l := k.get(key)
	if l.ch.TryLock() {
		return true
	}
	k.put(key, l)
	return false
}

// Unlock releases the key
func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	l, ok := k.locks[key]
	k.mu.Unlock()
	if !ok {
		return
	}
	l.ch.Unlock()
	k.put(key, l)
}
