package reconcile

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// lookupCache memoizes ids of shared reference objects (manufacturers, device
// types, roles, VLAN groups) for the lifetime of a run or a review apply.
type lookupCache struct {
	mu  sync.RWMutex
	ids map[string]uint
	sf  singleflight.Group
}

func newLookupCache() *lookupCache {
	return &lookupCache{ids: make(map[string]uint)}
}

// id returns the cached id for key, calling load at most once per key.
// Uses singleflight so concurrent callers share one load.
func (c *lookupCache) id(ctx context.Context, key string, load func(context.Context) (uint, error)) (uint, error) {
	// Fast path
	c.mu.RLock()
	id, ok := c.ids[key]
	c.mu.RUnlock()
	if ok {
		return id, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Double-check after acquiring singleflight lock
		c.mu.RLock()
		id, ok := c.ids[key]
		c.mu.RUnlock()
		if ok {
			return id, nil
		}

		id, err := load(ctx)
		if err != nil {
			return uint(0), err
		}

		c.mu.Lock()
		c.ids[key] = id
		c.mu.Unlock()
		return id, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(uint), nil
}

// keyedMutex serializes work per key. Entries are dropped when no holder remains.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns the matching unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
