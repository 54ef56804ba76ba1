package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sophialabs/apicover/internal/infrastructure/ports"
)

var _ ports.RateLimiter = (*TokenBucketStore)(nil)

type limiterEntry struct {
	limiter  *rate.Limiter
	rate     float64
	burst    int
	lastUsed time.Time
}

// TokenBucketStore keeps one token bucket per client key (the admin API keys
// by client IP). Time is taken from the injected clock so refill and
// eviction are deterministic under test.
type TokenBucketStore struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	ttl      time.Duration
	clock    ports.Clock
	stop     chan struct{}
	stopOnce sync.Once
}

// NewTokenBucketStore creates a store that forgets keys idle for longer than
// ttl. A background goroutine sweeps every ttl until Stop is called.
func NewTokenBucketStore(ttl time.Duration, clk ports.Clock) *TokenBucketStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	s := &TokenBucketStore{
		limiters: make(map[string]*limiterEntry),
		ttl:      ttl,
		clock:    clk,
		stop:     make(chan struct{}),
	}
	go s.evictLoop()
	return s
}

// Stop terminates the background eviction goroutine. It is safe to call twice.
func (s *TokenBucketStore) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *TokenBucketStore) evictLoop() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Evict()
		case <-s.stop:
			return
		}
	}
}

// Allow takes one token from key's bucket. A changed rate or burst (after a
// config reload) is applied to the existing bucket.
func (s *TokenBucketStore) Allow(_ context.Context, key string, r float64, burst int) bool {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.limiters[key]
	switch {
	case !ok:
		entry = &limiterEntry{rate: r, burst: burst, limiter: rate.NewLimiter(rate.Limit(r), burst)}
		s.limiters[key] = entry
	case entry.rate != r || entry.burst != burst:
		entry.limiter.SetLimitAt(now, rate.Limit(r))
		entry.limiter.SetBurstAt(now, burst)
		entry.rate = r
		entry.burst = burst
	}

	entry.lastUsed = now
	return entry.limiter.AllowN(now, 1)
}

// Evict removes entries idle for longer than the TTL.
func (s *TokenBucketStore) Evict() {
	cutoff := s.clock.Now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(s.limiters, key)
		}
	}
}

// Len returns the number of tracked keys.
func (s *TokenBucketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}
