package api

import (
	"time"

	"github.com/fullpos/poscloud/internal/middlewares"
	"github.com/gofiber/fiber/v2"
)

type RouteConfig struct {
	OverrideKey      string
	AllowPublicCloud bool
	TokenParser      middlewares.AccessTokenParser
	RateLimitStorage fiber.Storage
	VerifyRateLimit  int
	VerifyRateSpan   time.Duration
}

// SetupRoutes mounts the JSON API under /api. Owner-app routes take the
// company from the bearer session; terminal routes carry it in the body.
func SetupRoutes(router fiber.Router, authHandler *AuthHandler, overrideHandler *OverrideHandler, cfg RouteConfig) {
	var (
		requireAuth = middlewares.RequireAuth(cfg.TokenParser)
		overrideKey = middlewares.OverrideKeyGuard(cfg.OverrideKey, cfg.AllowPublicCloud)
		verifyLimit = middlewares.VerifyRateLimiter(cfg.RateLimitStorage, cfg.VerifyRateLimit, cfg.VerifyRateSpan)
	)

	api := router.Group("/api")
	api.Post("/auth/login", authHandler.PostLogin)
	api.Post("/auth/refresh", authHandler.PostRefresh)
	api.Post("/auth/logout", authHandler.PostLogout)

	api.Post("/override/request", overrideKey, overrideHandler.PostRequest)
	api.Post("/override/verify", verifyLimit, overrideKey, overrideHandler.PostVerify)
	api.Post("/override/approve", requireAuth, overrideHandler.PostApprove)
	api.Post("/override/virtual/provision", requireAuth, overrideHandler.PostProvisionVirtual)
	api.Get("/override/requests", requireAuth, overrideHandler.GetRequests)
	api.Get("/override/audit", requireAuth, overrideHandler.GetAudit)
	api.Get("/audit", requireAuth, overrideHandler.GetAudit)
}
