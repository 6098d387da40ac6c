package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterTTL bounds how long an idle per-key limiter is kept before the
// sweeper drops it.
const limiterTTL = 10 * time.Minute

// KeyFunc extracts a rate limit key from an HTTP request. The second return
// value labels the key type for metrics ("user" or "ip").
type KeyFunc func(r *http.Request) (key, keyType string)

// IPKeyFunc returns a KeyFunc that uses the client's IP address.
func IPKeyFunc() KeyFunc {
	return func(r *http.Request) (string, string) {
		// Check X-Forwarded-For header first (for proxied requests)
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// Use the first IP in the chain, trimming whitespace per RFC 7239
			if idx := strings.Index(xff, ","); idx != -1 {
				return strings.TrimSpace(xff[:idx]), "ip"
			}
			return strings.TrimSpace(xff), "ip"
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri), "ip"
		}
		// Fall back to RemoteAddr (strip port properly for both IPv4 and IPv6)
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return r.RemoteAddr, "ip"
		}
		return host, "ip"
	}
}

// ViewerKeyFunc returns a KeyFunc that uses the authenticated viewer's ID if
// available, falling back to IP address.
func ViewerKeyFunc() KeyFunc {
	ipFunc := IPKeyFunc()
	return func(r *http.Request) (string, string) {
		if viewerID := GetViewerID(r.Context()); viewerID != "" {
			return "user:" + viewerID, "user"
		}
		key, _ := ipFunc(r)
		return "ip:" + key, "ip"
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitStore keeps one token bucket per key.
// Thread-safe for concurrent access.
type RateLimitStore struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rps      rate.Limit
	burst    int
}

// NewRateLimitStore creates a store allowing rps requests per second with
// the given burst per key.
func NewRateLimitStore(rps float64, burst int) *RateLimitStore {
	return &RateLimitStore{
		limiters: make(map[string]*limiterEntry),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether a request for the key fits its token bucket.
func (s *RateLimitStore) Allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(s.rps, s.burst)}
		s.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// Cleanup removes limiters idle longer than limiterTTL.
// This should be called periodically in production.
func (s *RateLimitStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-limiterTTL)
	for key, entry := range s.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(s.limiters, key)
		}
	}
}

// RateLimiter is a middleware that limits request rates per key.
// It returns HTTP 429 Too Many Requests when the limit is exceeded.
// metrics may be nil.
func RateLimiter(store *RateLimitStore, keyFunc KeyFunc, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, keyType := keyFunc(r)
			metrics.IncRateLimitRequests(keyType)

			if !store.Allow(key) {
				metrics.IncRateLimitBlocked(keyType)
				ctx := SetErrorCode(r.Context(), "rate_limited")
				UpdateResponseContext(w, ctx)

				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
