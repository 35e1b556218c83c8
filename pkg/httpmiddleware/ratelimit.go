package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the per-client rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests a client may make per window.
	Max int
	// Window is the length of the sliding window.
	Window time.Duration
	// KeyFunc identifies the client. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
	// Skip exempts matching requests, such as health checks.
	Skip func(*http.Request) bool
}

// SkipPaths returns a Skip predicate matching the exact given paths.
func SkipPaths(paths ...string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.URL.Path]
		return ok
	}
}

// ClientIP returns the originating client address: the first
// X-Forwarded-For hop, then X-Real-IP, then the connection's host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// window approximates a sliding window from two fixed buckets: the count of
// the bucket in progress and the count of the one before it.
type window struct {
	start time.Time
	curr  int
	prev  int
}

// advance moves the buckets forward so that now falls in the current one.
func (w *window) advance(now time.Time, size time.Duration) {
	elapsed := now.Sub(w.start)
	switch {
	case elapsed < size:
		return
	case elapsed < 2*size:
		w.prev = w.curr
	default:
		w.prev = 0
	}
	w.curr = 0
	w.start = now.Truncate(size)
}

// load is the weighted request count over the trailing window.
func (w *window) load(now time.Time, size time.Duration) float64 {
	overlap := 1 - float64(now.Sub(w.start))/float64(size)
	return float64(w.prev)*math.Max(overlap, 0) + float64(w.curr)
}

// verdict is the outcome of one rate limit check.
type verdict struct {
	allowed   bool
	remaining int
	reset     time.Time
}

type limiter struct {
	max  int
	size time.Duration

	mu      sync.Mutex
	clients map[string]*window
}

func newLimiter(cfg RateLimitConfig) *limiter {
	return &limiter{
		max:     cfg.Max,
		size:    cfg.Window,
		clients: make(map[string]*window),
	}
}

// take records a request from key when it fits the limit.
func (l *limiter) take(key string, now time.Time) verdict {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.clients[key]
	if !ok {
		w = &window{start: now}
		l.clients[key] = w
	}
	w.advance(now, l.size)

	v := verdict{reset: w.start.Add(l.size)}
	used := w.load(now, l.size)
	if used >= float64(l.max) {
		return v
	}
	w.curr++
	v.allowed = true
	v.remaining = max(int(float64(l.max)-used-1), 0)
	return v
}

// evict drops clients idle for two full windows.
func (l *limiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.clients {
		if now.Sub(w.start) >= 2*l.size {
			delete(l.clients, key)
		}
	}
}

func (l *limiter) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(2 * l.size)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.evict(now)
		}
	}
}

// RateLimit limits each client to cfg.Max requests per sliding cfg.Window.
// Responses carry X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset; rejected requests get 429 with Retry-After and the
// JSON error body.
//
// Client state is never evicted. Long-running servers should use
// RateLimitWithCleanup.
func RateLimit(cfg RateLimitConfig) Middleware {
	return rateLimit(cfg, newLimiter(cfg))
}

// RateLimitWithCleanup is RateLimit plus a goroutine that evicts idle clients
// until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	go l.evictLoop(ctx)
	return rateLimit(cfg, l)
}

func rateLimit(cfg RateLimitConfig, l *limiter) Middleware {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = ClientIP
	}
	limit := strconv.Itoa(cfg.Max)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			v := l.take(keyFunc(r), time.Now())

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(v.remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(v.reset.Unix(), 10))

			if !v.allowed {
				wait := max(time.Until(v.reset), 0)
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				WriteError(w, http.StatusTooManyRequests, "ERR_RATE_LIMITED", "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
