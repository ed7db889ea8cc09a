package middleware

import (
	"fmt"
	"log"
	"math"

	"github.com/labstack/echo/v4"

	"carmarket/internal/infrastructure/ratelimit"
	"carmarket/pkg/errors"
	"carmarket/pkg/response"
)

// RateLimit limits requests per client IP using the given action's bucket.
func RateLimit(limiter *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			if ok, wait := limiter.Allow(ip, action); !ok {
				log.Printf("RATE LIMIT: Blocked request from IP %s (retry in %v)", ip, wait)
				c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", int(math.Ceil(wait.Seconds()))))
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded"))
			}

			return next(c)
		}
	}
}
