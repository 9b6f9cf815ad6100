package security

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a key exceeds its rate limit.
var ErrRateLimited = errors.New("rate limit exceeded")

const (
	defaultIdleTTL = 10 * time.Minute
	sweepThreshold = 1024
)

// RateLimitConfig configures a keyed token bucket limiter.
type RateLimitConfig struct {
	// PerMinute is the sustained number of events per key per minute.
	// Zero or negative disables limiting.
	PerMinute int

	// Burst is the bucket size. Defaults to PerMinute.
	Burst int

	// IdleTTL drops buckets not used for this long. Defaults to 10 minutes.
	IdleTTL time.Duration
}

// RateLimiter keeps one token bucket per key (typically a chat ID).
// A nil *RateLimiter allows everything.
type RateLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	entries map[string]*limiterEntry
	now     func() time.Time
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter returns nil when cfg disables limiting.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.PerMinute <= 0 {
		return nil
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.PerMinute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = defaultIdleTTL
	}
	return &RateLimiter{
		limit:   rate.Every(time.Minute / time.Duration(cfg.PerMinute)),
		burst:   cfg.Burst,
		idleTTL: cfg.IdleTTL,
		entries: make(map[string]*limiterEntry),
		now:     time.Now,
	}
}

// Allow consumes one token from key's bucket. It returns ErrRateLimited
// when the bucket is empty.
func (rl *RateLimiter) Allow(key string) error {
	if rl == nil {
		return nil
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if len(rl.entries) >= sweepThreshold {
		rl.sweep(now)
	}

	e, ok := rl.entries[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.entries[key] = e
	}
	e.lastSeen = now

	if !e.lim.AllowN(now, 1) {
		return ErrRateLimited
	}
	return nil
}

// Len returns the number of tracked keys.
func (rl *RateLimiter) Len() int {
	if rl == nil {
		return 0
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.entries)
}

func (rl *RateLimiter) sweep(now time.Time) {
	for key, e := range rl.entries {
		if now.Sub(e.lastSeen) > rl.idleTTL {
			delete(rl.entries, key)
		}
	}
}
