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

// RateLimitConfig configures the fixed window rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests a client may send per window.
	Max int
	// Window is the window length.
	Window time.Duration
	// KeyFunc identifies the client. Defaults to the client IP.
	KeyFunc func(*http.Request) string
	// OnLimit writes the response for rejected requests. Defaults to a bare
	// 429 status.
	OnLimit http.Handler
}

type window struct {
	count int
	reset time.Time
}

type limiter struct {
	cfg     RateLimitConfig
	now     func() time.Time
	mu      sync.Mutex
	clients map[string]*window
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}
	if cfg.OnLimit == nil {
		cfg.OnLimit = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	return &limiter{cfg: cfg, now: time.Now, clients: make(map[string]*window)}
}

// hit counts a request of key and reports how many requests remain in the
// current window, when it resets, and whether the request is allowed.
func (l *limiter) hit(key string) (remaining int, reset time.Time, ok bool) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, found := l.clients[key]
	if !found || !now.Before(w.reset) {
		w = &window{reset: now.Add(l.cfg.Window)}
		l.clients[key] = w
	}
	w.count++
	if w.count > l.cfg.Max {
		return 0, w.reset, false
	}
	return l.cfg.Max - w.count, w.reset, true
}

// evict drops clients whose window has ended.
func (l *limiter) evict() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.clients {
		if !now.Before(w.reset) {
			delete(l.clients, key)
		}
	}
}

func (l *limiter) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.Window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evict()
		}
	}
}

// RateLimit limits every client to cfg.Max requests per cfg.Window and sets
// the RateLimit-Limit, RateLimit-Remaining and RateLimit-Reset headers.
// Expired windows are evicted in the background until ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	go l.evictLoop(ctx)
	return l.middleware
}

func (l *limiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remaining, reset, ok := l.hit(l.cfg.KeyFunc(r))

		resetIn := int(math.Ceil(reset.Sub(l.now()).Seconds()))
		h := w.Header()
		h.Set("RateLimit-Limit", strconv.Itoa(l.cfg.Max))
		h.Set("RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("RateLimit-Reset", strconv.Itoa(resetIn))

		if !ok {
			h.Set("Retry-After", strconv.Itoa(resetIn))
			l.cfg.OnLimit.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the client address, preferring the first
// X-Forwarded-For entry, then X-Real-IP, then the connection address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
