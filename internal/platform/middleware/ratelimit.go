package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

// visitor tracks the token balance of one client IP.
type visitor struct {
	tokens   float64
	lastSeen time.Time
}

// idleEviction is how long a client may stay silent before its bucket is
// dropped from the table.
const idleEviction = 10 * time.Minute

type visitorTable struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	cfg      RateLimitConfig
}

func newVisitorTable(cfg RateLimitConfig) *visitorTable {
	return &visitorTable{
		visitors: make(map[string]*visitor),
		cfg:      cfg,
	}
}

// take refills the client's bucket for the elapsed time, then attempts to
// spend one token. It reports whether the request may proceed and, when it
// may not, how many seconds the client should wait.
func (t *visitorTable) take(ip string, now time.Time) (bool, int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.visitors[ip]
	if !ok {
		t.evictIdle(now)
		v = &visitor{tokens: float64(t.cfg.BurstSize)}
		t.visitors[ip] = v
	} else {
		v.tokens += now.Sub(v.lastSeen).Seconds() * t.cfg.RequestsPerSecond
		if max := float64(t.cfg.BurstSize); v.tokens > max {
			v.tokens = max
		}
	}
	v.lastSeen = now

	if v.tokens >= 1 {
		v.tokens--
		return true, 0
	}

	wait := 1
	if t.cfg.RequestsPerSecond > 0 {
		wait = int(math.Ceil((1 - v.tokens) / t.cfg.RequestsPerSecond))
	}
	return false, wait
}

// evictIdle is called under the lock whenever a new client appears.
func (t *visitorTable) evictIdle(now time.Time) {
	for ip, v := range t.visitors {
		if now.Sub(v.lastSeen) > idleEviction {
			delete(t.visitors, ip)
		}
	}
}

// RateLimit throttles clients by IP with a token bucket per client. It
// protects the administrative API group; the workflow endpoints stay
// unthrottled so payment finalization callbacks are never rejected.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	table := newVisitorTable(cfg)
	limitHeader := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, wait := table.take(c.RealIP(), time.Now())
			c.Response().Header().Set("X-RateLimit-Limit", limitHeader)
			if !ok {
				c.Response().Header().Set("Retry-After", strconv.Itoa(wait))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
