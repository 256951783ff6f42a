package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds configuration for the rate limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	// TrustedProxies lists IPs or CIDRs whose X-Forwarded-For / X-Real-IP
	// headers are honoured. Empty means proxy headers are ignored.
	TrustedProxies []string
	// OnLimit writes the rejection. Defaults to a plain 429.
	OnLimit http.HandlerFunc
}

const clientIdleTTL = 3 * time.Minute

// RateLimit implements token bucket rate limiting per client IP. Stale
// client entries are swept until ctx is cancelled.
func RateLimit(ctx context.Context, cfg RateLimitConfig) func(http.Handler) http.Handler {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
		trusted = parseTrusted(cfg.TrustedProxies)
	)

	onLimit := cfg.OnLimit
	if onLimit == nil {
		onLimit = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
		}
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				mu.Lock()
				for ip, c := range clients {
					if time.Since(c.lastSeen) > clientIdleTTL {
						delete(clients, ip)
					}
				}
				mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, trusted)

			mu.Lock()
			c, ok := clients[ip]
			if !ok {
				c = &client{limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)}
				clients[ip] = c
			}
			c.lastSeen = time.Now()
			mu.Unlock()

			if !c.limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				onLimit(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseTrusted(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, e := range entries {
		if _, n, err := net.ParseCIDR(e); err == nil {
			nets = append(nets, n)
			continue
		}
		if ip := net.ParseIP(e); ip != nil {
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
		}
	}
	return nets
}

// clientIP extracts the client IP from the request. Proxy headers are only
// read when the TCP peer is a trusted proxy.
func clientIP(r *http.Request, trusted []*net.IPNet) string {
	direct := r.RemoteAddr
	if host, _, err := net.SplitHostPort(direct); err == nil {
		direct = host
	}

	peer := net.ParseIP(direct)
	if peer == nil || !containsIP(trusted, peer) {
		return direct
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return direct
}

func containsIP(nets []*net.IPNet, ip net.IP) bool {
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
