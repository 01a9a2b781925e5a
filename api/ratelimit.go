package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

// SubmitLimiter throttles period updates per debt record. Idle debts are
// dropped by a background sweep; Close stops it.
type SubmitLimiter struct {
	mu          sync.Mutex
	limiters    map[string]*limiterEntry
	rate        rate.Limit
	burst       int
	ttl         time.Duration
	cleanupTick time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewSubmitLimiter allows perSecond submits per debt with the given burst.
// A non-positive rate disables limiting.
func NewSubmitLimiter(perSecond float64, burst int) *SubmitLimiter {
	l := &SubmitLimiter{
		limiters:    make(map[string]*limiterEntry),
		rate:        rate.Limit(perSecond),
		burst:       burst,
		ttl:         10 * time.Minute,
		cleanupTick: time.Minute,
		stop:        make(chan struct{}),
	}
	if l.rate > 0 {
		go l.cleanupLoop()
	}
	return l
}

// Close stops the background sweep.
func (l *SubmitLimiter) Close() {
	if l == nil {
		return
	}
	l.stopOnce.Do(func() { close(l.stop) })
}

// cleanupLoop periodically removes stale limiter entries.
func (l *SubmitLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupTick)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			l.cleanup(now)
		case <-l.stop:
			return
		}
	}
}

// cleanup removes debts not seen within the ttl.
func (l *SubmitLimiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.ttl)
	for id, e := range l.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(l.limiters, id)
		}
	}
}

func (l *SubmitLimiter) allow(debtID string, now time.Time) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.limiters[debtID]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[debtID] = e
	}
	e.lastSeen = now
	allowed := e.limiter.AllowN(now, 1)
	return allowed, int(e.limiter.TokensAt(now))
}

// Middleware rejects submits above the limit with 429.
func (l *SubmitLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l == nil || l.rate <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		allowed, remaining := l.allow(chi.URLParam(r, "id"), time.Now())
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.burst))
		if !allowed {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "Too many updates for this debt", nil)
			return
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		next.ServeHTTP(w, r)
	})
}
