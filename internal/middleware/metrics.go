package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/fairprice/internal/metrics"
)

// Metrics records request count and latency per route pattern.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		if err := c.Next(); err != nil {
			renderError(c, err)
		}

		route := c.Route().Path
		if route == "" || route == "/" && c.Path() != "/" {
			route = "unmatched"
		}
		metrics.ObserveHTTP(route, c.Method(), c.Response().StatusCode(), time.Since(start))
		return nil
	}
}
