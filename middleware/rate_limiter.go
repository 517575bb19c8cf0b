package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Per-client budget: steady 5 req/s with a burst of 30 covers a mobile client
// syncing its progression screens after coming back online.
const (
	clientRate  = 5
	clientBurst = 30
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	clients = make(map[string]*client)
	mu      sync.Mutex
)

// RateLimitMiddleware enforces a per-IP token bucket. X-Forwarded-For is
// checked first since the service runs behind a proxy.
func RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.Header.Get("X-Forwarded-For")
		if ip == "" {
			ip, _, _ = net.SplitHostPort(r.RemoteAddr)
		}

		if !limiterFor(ip).Allow() {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func limiterFor(ip string) *rate.Limiter {
	mu.Lock()
	defer mu.Unlock()

	c, ok := clients[ip]
	if !ok {
		limiter := rate.NewLimiter(clientRate, clientBurst)
		clients[ip] = &client{limiter, time.Now()}
		return limiter
	}

	c.lastSeen = time.Now()
	return c.limiter
}

// CleanupVisitors drops buckets idle for a few minutes. Runs as a goroutine
// from main.go.
func CleanupVisitors() {
	for {
		time.Sleep(time.Minute)
		mu.Lock()
		for ip, c := range clients {
			if time.Since(c.lastSeen) > 3*time.Minute {
				delete(clients, ip)
			}
		}
		mu.Unlock()
	}
}
