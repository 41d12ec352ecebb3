package memorystore

import (
	"context"
	"sync"
	"time"
)

type kvEntry struct {
	payload  []byte
	deadline time.Time // zero means no expiry
}

func (e kvEntry) expired(now time.Time) bool {
	return !e.deadline.IsZero() && now.After(e.deadline)
}

// KV backs core.EphemeralStore for tests and single-process dev runs. It
// holds signup tokens and resend cooldowns; anything multi-process goes
// through the Redis implementation instead.
type KV struct {
	mu      sync.Mutex
	entries map[string]kvEntry
}

func NewKV() *KV {
	return &KV{entries: make(map[string]kvEntry)}
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	if !ok {
		return nil, false, nil
	}
	if e.expired(time.Now()) {
		delete(k.entries, key)
		return nil, false, nil
	}
	return e.payload, true, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = ctx
	k.mu.Lock()
	defer k.mu.Unlock()
	k.sweepLocked()
	e := kvEntry{payload: append([]byte(nil), value...)}
	if ttl > 0 {
		e.deadline = time.Now().Add(ttl)
	}
	k.entries[key] = e
	return nil
}

func (k *KV) Del(ctx context.Context, key string) error {
	_ = ctx
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.entries, key)
	return nil
}

// sweepLocked drops expired entries once the map grows past a dev-sized
// bound, so abandoned cooldown keys do not pile up in long-lived processes.
func (k *KV) sweepLocked() {
	if len(k.entries) < 1024 {
		return
	}
	now := time.Now()
	for key, e := range k.entries {
		if e.expired(now) {
			delete(k.entries, key)
		}
	}
}
