package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/bilgisen/fairprice/internal/logger"
)

// RateLimitConfig defines the config for the per-client rate limiter.
type RateLimitConfig struct {
	// Rate is the sustained number of requests per second per client.
	Rate float64

	// Burst is the number of requests a client may make at once.
	Burst int

	// KeyFunc identifies the client. Default: c.IP()
	KeyFunc func(c *fiber.Ctx) string

	// IdleTTL drops limiters of clients not seen for this long. Default: 10m
	IdleTTL time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterSet struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	lastScan time.Time
}

func (s *limiterSet) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastScan) > s.idleTTL {
		for k, v := range s.visitors {
			if now.Sub(v.lastSeen) > s.idleTTL {
				delete(s.visitors, k)
			}
		}
		s.lastScan = now
	}

	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// NewRateLimit answers 429 once a client exhausts its token bucket.
func NewRateLimit(cfg RateLimitConfig) fiber.Handler {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *fiber.Ctx) string { return c.IP() }
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}

	set := &limiterSet{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(cfg.Rate),
		burst:    cfg.Burst,
		idleTTL:  cfg.IdleTTL,
		lastScan: time.Now(),
	}

	return func(c *fiber.Ctx) error {
		key := cfg.KeyFunc(c)
		if set.get(key, time.Now()).Allow() {
			return c.Next()
		}

		retry := 1
		if cfg.Rate > 0 {
			retry = int(math.Ceil(1 / cfg.Rate))
		}
		logger.Get().Warn().
			Str("ip", c.IP()).
			Str("path", c.Path()).
			Msg("Rate limit exceeded")

		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retry))
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": "Too many requests",
		})
	}
}
