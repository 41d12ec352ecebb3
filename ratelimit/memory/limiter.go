// Package memorylimiter implements a fixed-window in-process rate limiter.
package memorylimiter

import (
	"sync"
	"time"
)

// Limit configures a named bucket: at most Limit events per Window.
type Limit struct {
	Limit  int
	Window time.Duration
}

type window struct {
	start time.Time
	count int
}

// Limiter counts events per key within fixed windows. Unknown buckets fall
// back to the "default" bucket; with no default configured they are allowed.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]Limit
	windows map[string]*window
}

func New(limits map[string]Limit) *Limiter {
	return &Limiter{limits: limits, windows: make(map[string]*window)}
}

func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	lim, ok := l.limits[bucket]
	if !ok {
		lim, ok = l.limits["default"]
		if !ok {
			return true, nil
		}
	}
	if lim.Limit <= 0 || lim.Window <= 0 {
		return true, nil
	}

	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= lim.Window {
		l.windows[key] = &window{start: now, count: 1}
		l.maybeSweep(now)
		return true, nil
	}
	if w.count >= lim.Limit {
		return false, nil
	}
	w.count++
	return true, nil
}

// maybeSweep drops stale windows once the map grows large. Called with the
// lock held.
func (l *Limiter) maybeSweep(now time.Time) {
	if len(l.windows) < 4096 {
		return
	}
	var maxWindow time.Duration
	for _, lim := range l.limits {
		if lim.Window > maxWindow {
			maxWindow = lim.Window
		}
	}
	for k, w := range l.windows {
		if now.Sub(w.start) >= maxWindow {
			delete(l.windows, k)
		}
	}
}
