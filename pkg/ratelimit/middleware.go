package ratelimit

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/learnhub/pkg/apperr"
	"github.com/Skotchmaster/learnhub/pkg/logging"
)

type KeyFunc func(c echo.Context) string

// RouteIPKey groups requests by matched route and client address.
func RouteIPKey(c echo.Context) string {
	return c.Path() + ":" + c.RealIP()
}

func Middleware(l *Limiter, key KeyFunc) echo.MiddlewareFunc {
	if key == nil {
		key = RouteIPKey
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l.Policy.Disabled {
				return next(c)
			}

			ctx := c.Request().Context()
			k := key(c)
			d, err := l.Check(ctx, k)
			if err != nil {
				logging.FromContext(ctx).Warn("rate_limit_store_error", "key", k, "error", err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.Policy.Max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				h.Set("Retry-After", strconv.Itoa(d.RetryAfter))
				logging.FromContext(ctx).Warn("rate_limited", "key", k, "status", 429, "retry_after", d.RetryAfter)
				return apperr.TooManyRequests(l.Policy.Message, d.RetryAfter)
			}
			return next(c)
		}
	}
}
