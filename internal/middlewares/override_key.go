package middlewares

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

const (
	HeaderOverrideKey = "X-Override-Key"
	HeaderCloudKey    = "X-Cloud-Key"
)

// OverrideKeyGuard protects the terminal-facing override routes with a shared
// key. It lets everything through when allowPublic is set or no key is configured.
func OverrideKeyGuard(apiKey string, allowPublic bool) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if allowPublic || apiKey == "" {
			return ctx.Next()
		}
		provided := ctx.Get(HeaderOverrideKey)
		if provided == "" {
			provided = ctx.Get(HeaderCloudKey)
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Unauthorized"})
		}
		return ctx.Next()
	}
}
