package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrRateLimited = errors.New("rate limited")

// KeyedLimiterOpts configures the sliding window rate limiter.
type KeyedLimiterOpts struct {
	// MaxRequests is the number of requests admitted per window.
	MaxRequests int
	// Window is the length of the sliding window.
	Window time.Duration
	// SweepEvery bounds how often idle keys are evicted.
	SweepEvery time.Duration
}

// DefaultKeyedLimiterOpts provides sensible defaults.
var DefaultKeyedLimiterOpts = KeyedLimiterOpts{
	MaxRequests: 60,
	Window:      time.Minute,
	SweepEvery:  5 * time.Minute,
}

// window holds one key's admission timestamps behind its own lock, so
// admission checks for distinct keys never contend. gone marks a window
// evicted by a sweep; holders of a stale pointer must refetch.
type window struct {
	mu     sync.Mutex
	stamps []time.Time
	gone   bool
}

// KeyedLimiter implements per-key sliding window rate limiting. Each key
// keeps the timestamps of its admitted requests inside the window; a new
// request is admitted only while fewer than MaxRequests remain after
// pruning. Keys never interfere with each other.
type KeyedLimiter struct {
	mu        sync.RWMutex // guards clients and lastSweep
	opts      KeyedLimiterOpts
	clients   map[string]*window
	lastSweep time.Time
	now       func() time.Time
}

// NewKeyedLimiter creates a sliding window limiter.
func NewKeyedLimiter(opts KeyedLimiterOpts) *KeyedLimiter {
	if opts.MaxRequests <= 0 {
		opts.MaxRequests = DefaultKeyedLimiterOpts.MaxRequests
	}
	if opts.Window <= 0 {
		opts.Window = DefaultKeyedLimiterOpts.Window
	}
	if opts.SweepEvery <= 0 {
		opts.SweepEvery = DefaultKeyedLimiterOpts.SweepEvery
	}
	return &KeyedLimiter{
		opts:    opts,
		clients: make(map[string]*window),
		now:     time.Now,
	}
}

// Opts returns the limiter configuration.
func (l *KeyedLimiter) Opts() KeyedLimiterOpts { return l.opts }

// Allow records and admits a request for key, or rejects it without
// recording when the window is full. A rejected request never consumes
// capacity.
func (l *KeyedLimiter) Allow(key string) bool {
	now := l.now()
	l.maybeSweep(now)

	for {
		w := l.window(key)
		w.mu.Lock()
		if w.gone {
			w.mu.Unlock()
			continue
		}
		w.stamps = prune(w.stamps, now.Add(-l.opts.Window))
		if len(w.stamps) >= l.opts.MaxRequests {
			w.mu.Unlock()
			return false
		}
		w.stamps = append(w.stamps, now)
		w.mu.Unlock()
		return true
	}
}

// RetryAfter reports how long key must wait for its next admission.
// Zero means a request would be admitted now.
func (l *KeyedLimiter) RetryAfter(key string) time.Duration {
	now := l.now()
	w := l.lookup(key)
	if w == nil {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stamps = prune(w.stamps, now.Add(-l.opts.Window))
	if len(w.stamps) < l.opts.MaxRequests {
		return 0
	}
	return w.stamps[0].Add(l.opts.Window).Sub(now)
}

// ResetAt reports when key's window fully clears. For an idle key this is
// the current time.
func (l *KeyedLimiter) ResetAt(key string) time.Time {
	now := l.now()
	w := l.lookup(key)
	if w == nil {
		return now
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stamps = prune(w.stamps, now.Add(-l.opts.Window))
	if len(w.stamps) == 0 {
		return now
	}
	return w.stamps[0].Add(l.opts.Window)
}

// Len returns the number of tracked keys, idle ones included until swept.
func (l *KeyedLimiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.clients)
}

// Sweep drops keys whose every timestamp has left the window and returns
// how many were evicted.
func (l *KeyedLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweepLocked(l.now())
}

func (l *KeyedLimiter) lookup(key string) *window {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.clients[key]
}

// window returns key's window, creating it on first use.
func (l *KeyedLimiter) window(key string) *window {
	if w := l.lookup(key); w != nil {
		return w
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	w := l.clients[key]
	if w == nil {
		w = &window{}
		l.clients[key] = w
	}
	return w
}

// maybeSweep runs an eviction pass at most once per SweepEvery.
func (l *KeyedLimiter) maybeSweep(now time.Time) {
	l.mu.RLock()
	due := now.Sub(l.lastSweep) >= l.opts.SweepEvery
	l.mu.RUnlock()
	if !due {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) >= l.opts.SweepEvery {
		l.sweepLocked(now)
	}
}

func (l *KeyedLimiter) sweepLocked(now time.Time) int {
	l.lastSweep = now
	cutoff := now.Add(-l.opts.Window)
	evicted := 0
	for key, w := range l.clients {
		w.mu.Lock()
		w.stamps = prune(w.stamps, cutoff)
		if len(w.stamps) == 0 {
			w.gone = true
			delete(l.clients, key)
			evicted++
		}
		w.mu.Unlock()
	}
	return evicted
}

// prune drops timestamps at or before cutoff, keeping order.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	return stamps[i:]
}
