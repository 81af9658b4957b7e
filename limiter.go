package folio

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginLimiter rate-limits login attempts per IP address. Each IP gets a
// token bucket holding max attempts that refills completely over window.
type LoginLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	max      int
	window   time.Duration
}

// NewLoginLimiter creates a LoginLimiter that allows max attempts per window.
func NewLoginLimiter(max int, window time.Duration) *LoginLimiter {
	l := &LoginLimiter{
		limiters: make(map[string]*rate.Limiter),
		max:      max,
		window:   window,
	}
	go l.cleanup()
	return l
}

func (l *LoginLimiter) limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[ip]
	if !ok {
		every := l.window / time.Duration(l.max)
		lim = rate.NewLimiter(rate.Every(every), l.max)
		l.limiters[ip] = lim
	}
	return lim
}

// cleanup forgets IPs whose bucket has refilled, so the map only holds
// recent offenders.
func (l *LoginLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	for range ticker.C {
		l.mu.Lock()
		for ip, lim := range l.limiters {
			if lim.Tokens() >= float64(l.max) {
				delete(l.limiters, ip)
			}
		}
		l.mu.Unlock()
	}
}

// Allow checks if the IP has not exceeded the rate limit and records the attempt.
func (l *LoginLimiter) Allow(ip string) bool {
	return l.limiter(ip).Allow()
}

// Check returns true if the IP has an attempt left. It does not record
// one; call Record on failure.
func (l *LoginLimiter) Check(ip string) bool {
	return l.limiter(ip).Tokens() >= 1
}

// Record registers a failed login attempt for the given IP.
func (l *LoginLimiter) Record(ip string) {
	l.limiter(ip).Allow()
}
