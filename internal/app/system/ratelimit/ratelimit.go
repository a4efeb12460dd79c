// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	"github.com/dalemusser/automationhub/internal/app/system/respond"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config sets the token bucket for each client key.
type Config struct {
	// Rate is the sustained number of requests per second.
	Rate rate.Limit
	// Burst is the number of requests allowed at once.
	Burst int
	// CleanupInterval controls how often idle keys are dropped. A key idle
	// for twice the interval is forgotten.
	CleanupInterval time.Duration
}

// PerMinute returns a Config allowing n requests per minute with a burst of n.
func PerMinute(n int) Config {
	return Config{
		Rate:            rate.Limit(float64(n) / 60.0),
		Burst:           n,
		CleanupInterval: 5 * time.Minute,
	}
}

type entry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Limiter keeps one token bucket per client key. It is safe for concurrent
// use.
type Limiter struct {
	cfg     Config
	mu      sync.Mutex
	entries map[string]*entry
	stop    chan struct{}
	once    sync.Once
	now     func() time.Time
}

// New starts a Limiter and its cleanup goroutine. Call Stop to end it.
func New(cfg Config) *Limiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	l := &Limiter{
		cfg:     cfg,
		entries: make(map[string]*entry),
		stop:    make(chan struct{}),
		now:     time.Now,
	}
	go l.cleanupLoop()
	return l
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Allow reports whether key may make a request now, consuming a token.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.cfg.Rate, l.cfg.Burst)}
		l.entries[key] = e
	}
	e.lastAccess = now
	return e.limiter.AllowN(now, 1)
}

// Len is the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) cleanup() {
	ttl := 2 * l.cfg.CleanupInterval
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, e := range l.entries {
		if now.Sub(e.lastAccess) > ttl {
			delete(l.entries, k)
		}
	}
}

// retryAfter is the whole seconds until one token is refilled.
func (l *Limiter) retryAfter() int {
	if l.cfg.Rate <= 0 {
		return 60
	}
	secs := int(math.Ceil(1.0 / float64(l.cfg.Rate)))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// ClientIP returns the request's remote host. When proxy headers are
// trusted, chi's RealIP middleware runs first and folds them into RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

var errLimited = apperr.New(apperr.RateLimited, "Too many requests. Please try again later.")

// Middleware rejects requests over the limit with 429 and a Retry-After
// header. Requests are keyed by name and client IP, so separate routes
// sharing one Limiter do not share buckets. onReject hooks run for every
// rejected request before the response is written.
func (l *Limiter) Middleware(name string, log *zap.Logger, onReject ...func(*http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if !l.Allow(name + "|" + ip) {
				log.Warn("rate limit exceeded",
					zap.String("limit", name),
					zap.String("ip", ip))
				for _, fn := range onReject {
					fn(r)
				}
				w.Header().Set("Retry-After", strconv.Itoa(l.retryAfter()))
				respond.Error(w, r, errLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
