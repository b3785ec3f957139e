package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimitPerIP applies a token bucket per client IP. Buckets idle for
// longer than idle are dropped on the next request that finds them.
func RateLimitPerIP(rps rate.Limit, burst int, idle time.Duration) fiber.Handler {
	var (
		mu       sync.Mutex
		buckets  = make(map[string]*visitor)
		lastScan = time.Now()
	)
	allow := func(ip string, now time.Time) bool {
		mu.Lock()
		defer mu.Unlock()
		if idle > 0 && now.Sub(lastScan) > idle {
			for k, v := range buckets {
				if now.Sub(v.seen) > idle {
					delete(buckets, k)
				}
			}
			lastScan = now
		}
		v, ok := buckets[ip]
		if !ok {
			v = &visitor{lim: rate.NewLimiter(rps, burst)}
			buckets[ip] = v
		}
		v.seen = now
		return v.lim.AllowN(now, 1)
	}

	return func(c *fiber.Ctx) error {
		if allow(c.IP(), time.Now()) {
			return c.Next()
		}
		return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests, please try again later")
	}
}
