package middlewares

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler turns anything a handler did not answer itself into a JSON
// error. Internal details never reach the client.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	switch code {
	case fiber.StatusBadRequest, fiber.StatusUnauthorized, fiber.StatusForbidden,
		fiber.StatusNotFound, fiber.StatusMethodNotAllowed, fiber.StatusRequestEntityTooLarge,
		fiber.StatusTooManyRequests:
		return ctx.Status(code).JSON(fiber.Map{"message": fiberErr.Message})
	default:
		slog.Error("Unhandled error", "method", ctx.Method(), "path", ctx.Path(), "code", code, "error", err)
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Unexpected error"})
	}
}
