package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

// ipLimiter keeps one token bucket per client IP: requests per window, bursting to the
// full window allowance.
type ipLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*client
	done    chan struct{}
	once    sync.Once
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(requests int, window time.Duration) *ipLimiter {
	l := &ipLimiter{
		limit:   rate.Limit(float64(requests) / window.Seconds()),
		burst:   requests,
		clients: make(map[string]*client),
		done:    make(chan struct{}),
	}
	go l.sweep()
	return l
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = time.Now()
	return c.limiter.Allow()
}

// sweep drops clients not seen for limiterIdleTTL.
func (l *ipLimiter) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for ip, c := range l.clients {
				if now.Sub(c.lastSeen) > limiterIdleTTL {
					delete(l.clients, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}

func (l *ipLimiter) stop() {
	l.once.Do(func() { close(l.done) })
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !s.limiter.allow(ip) {
			s.metrics.ObserveRateLimited()
			s.logger.Debug("rate limited", zap.String("ip", ip))
			w.Header().Set("Retry-After", "60")
			s.respondReply(w, http.StatusTooManyRequests, "Too many requests, please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the host part of r.RemoteAddr, which middleware.RealIP has already
// replaced with the forwarded address when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
