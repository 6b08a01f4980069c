package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Hiksang/rewardguard-backend/pkg/clientip"
)

// SecurityHeaders sets security-related response headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// --- Per-IP DoS backstop (token bucket, ahead of the engine's windows) ---
//
// The engine's fixed-window limiter enforces the per-class reward policy;
// this middleware only shields it from raw request floods.

const (
	backstopRPS             = 5
	backstopBurst           = 20
	backstopCleanupInterval = 5 * time.Minute
	backstopLimiterTTL      = 30 * time.Minute
)

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

var (
	backstopEntries    = make(map[string]*limiterEntry)
	backstopEntriesMu  sync.Mutex
	backstopCleanupRun bool
)

func getBackstopLimiter(ip string) *rate.Limiter {
	backstopEntriesMu.Lock()
	defer backstopEntriesMu.Unlock()
	startBackstopCleanupOnce()
	e, ok := backstopEntries[ip]
	if !ok {
		e = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(backstopRPS), backstopBurst),
			lastUse: time.Now(),
		}
		backstopEntries[ip] = e
	}
	e.lastUse = time.Now()
	return e.limiter
}

func startBackstopCleanupOnce() {
	if backstopCleanupRun {
		return
	}
	backstopCleanupRun = true
	go func() {
		ticker := time.NewTicker(backstopCleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			backstopEntriesMu.Lock()
			now := time.Now()
			for ip, e := range backstopEntries {
				if now.Sub(e.lastUse) > backstopLimiterTTL {
					delete(backstopEntries, ip)
				}
			}
			backstopEntriesMu.Unlock()
		}
	}()
}

// IPRateLimit rejects request floods per IP before they reach the engine.
func IPRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientip.FromRequest(r)
		if !getBackstopLimiter(ip).Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"success":false,"message":"Too many requests. Please slow down."}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
