package middlewares

import (
	"time"

	"github.com/fullpos/poscloud/params"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// VerifyRateLimiter caps token guesses per client address. Counters live in
// storage so every instance behind a balancer shares them.
func VerifyRateLimiter(storage fiber.Storage, max int, span time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: span,
		Storage:    storage,
		KeyGenerator: func(ctx *fiber.Ctx) string {
			return params.RateLimitKeyPrefix + "verify:" + ctx.IP()
		},
		LimitReached: func(ctx *fiber.Ctx) error {
			return ctx.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"ok":      false,
				"message": "too many verify attempts",
			})
		},
	})
}
