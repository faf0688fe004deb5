package middlewares

import (
	"strings"

	"github.com/fullpos/poscloud/internal/auth"
	"github.com/gofiber/fiber/v2"
)

const sessionLocalKey = "session"

type AccessTokenParser interface {
	ParseAccessToken(tokenStr string) (*auth.Claims, error)
}

// RequireAuth accepts owner-app bearer tokens and stores their claims for
// CurrentSession.
func RequireAuth(parser AccessTokenParser) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		header := ctx.Get(fiber.HeaderAuthorization)
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Unauthorized"})
		}
		claims, err := parser.ParseAccessToken(strings.TrimSpace(token))
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Unauthorized"})
		}
		ctx.Locals(sessionLocalKey, claims)
		return ctx.Next()
	}
}

func CurrentSession(ctx *fiber.Ctx) *auth.Claims {
	claims, _ := ctx.Locals(sessionLocalKey).(*auth.Claims)
	return claims
}
