package api

import (
	"errors"

	"github.com/fullpos/poscloud/internal/auth"
	"github.com/fullpos/poscloud/internal/users"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService AuthService
}

func unauthorized(ctx *fiber.Ctx, message string) error {
	return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": message})
}

func (h *AuthHandler) PostLogin(ctx *fiber.Ctx) error {
	var body loginBody
	if verr := parseBody(ctx, &body); verr != nil {
		return sendValidationError(ctx, verr)
	}
	if err := body.validate(); err != nil {
		return sendValidationError(ctx, err)
	}

	tokens, user, err := h.authService.Login(ctx.Context(), body.Identifier, body.Password)
	if errors.Is(err, users.ErrInvalidCredentials) {
		return unauthorized(ctx, "Invalid credentials")
	}
	if errors.Is(err, users.ErrUserDisabled) {
		return unauthorized(ctx, "User disabled")
	}
	if err != nil {
		return err
	}
	return ctx.JSON(loginResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		ExpiresAt:    tokens.ExpiresAt,
		User: &userInfo{
			ID:        user.ID,
			CompanyID: user.CompanyID,
			Username:  user.Username,
			Email:     user.Email,
			Role:      user.Role,
		},
	})
}

func (h *AuthHandler) PostRefresh(ctx *fiber.Ctx) error {
	var body refreshBody
	if verr := parseBody(ctx, &body); verr != nil {
		return sendValidationError(ctx, verr)
	}
	if err := body.validate(); err != nil {
		return sendValidationError(ctx, err)
	}

	tokens, err := h.authService.Refresh(ctx.Context(), body.RefreshToken)
	if errors.Is(err, auth.ErrRefreshTokenInvalid) {
		return unauthorized(ctx, "Invalid refresh token")
	}
	if err != nil {
		return err
	}
	return ctx.JSON(loginResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		ExpiresAt:    tokens.ExpiresAt,
	})
}

func (h *AuthHandler) PostLogout(ctx *fiber.Ctx) error {
	var body refreshBody
	if verr := parseBody(ctx, &body); verr != nil {
		return sendValidationError(ctx, verr)
	}
	if err := body.validate(); err != nil {
		return sendValidationError(ctx, err)
	}
	if err := h.authService.Logout(body.RefreshToken); err != nil {
		return err
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}
