package server

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/shineum/contact-relay/internal/origin"
	"github.com/shineum/contact-relay/internal/ratelimit"
)

const (
	corsAllowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	corsAllowHeaders = "Content-Type, Authorization"
)

// accessLog logs one line per request. Errors from later handlers are
// rendered here so the logged status is the one sent.
func accessLog(c *fiber.Ctx) error {
	start := time.Now()

	if err := c.Next(); err != nil {
		if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	slog.Info("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"latency", time.Since(start).String(),
		"ip", c.IP(),
		"request_id", c.Locals("requestid"),
	)
	return nil
}

// originGuard rejects browser origins outside the allow-list and answers
// CORS preflights. The health endpoint is never rejected.
func originGuard(g *origin.Guard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		o := c.Get(fiber.HeaderOrigin)
		c.Vary(fiber.HeaderOrigin)

		if !g.IsAllowed(o) {
			if isHealthPath(c.Path()) {
				return c.Next()
			}
			slog.Warn("CORS blocked origin", "origin", o, "path", c.Path())
			return c.Status(fiber.StatusForbidden).JSON(failure(messageOriginNotAllowed))
		}

		if o != "" {
			c.Set(fiber.HeaderAccessControlAllowOrigin, o)
			c.Set(fiber.HeaderAccessControlAllowCredentials, "true")
		}

		if c.Method() == fiber.MethodOptions {
			c.Set(fiber.HeaderAccessControlAllowMethods, corsAllowMethods)
			c.Set(fiber.HeaderAccessControlAllowHeaders, corsAllowHeaders)
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}

func isHealthPath(p string) bool {
	return strings.TrimRight(p, "/") == healthPath
}

// rateLimit counts requests per client IP and rejects those over the limit
// before the body is read.
func rateLimit(l *ratelimit.Limiter, now func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.IP()
		d := l.Allow(ip)

		c.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			retry := d.RetryAfter(now())
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(retry/time.Second)))
			slog.Warn("rate limit exceeded", "ip", ip, "retry_after", retry.String())
			return c.Status(fiber.StatusTooManyRequests).JSON(failure(messageRateLimited))
		}

		return c.Next()
	}
}
