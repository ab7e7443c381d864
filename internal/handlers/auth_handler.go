package handlers

import (
	"errors"
	"log/slog"

	"github.com/Causertragique/financeautonome2-sub001/internal/account"
	"github.com/Causertragique/financeautonome2-sub001/internal/dto"
	"github.com/Causertragique/financeautonome2-sub001/internal/identity"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	svc    *identity.Service
	events *account.EventHandler
}

func NewAuthHandler(svc *identity.Service, events *account.EventHandler) *AuthHandler {
	return &AuthHandler{svc: svc, events: events}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	mode, ok := parseMode(req.UsageMode)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid usage mode",
		})
	}

	sess, err := h.svc.Register(c.UserContext(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}

	h.settle(c, sess, mode)
	return c.Status(fiber.StatusCreated).JSON(authResponse(sess))
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	sess, err := h.svc.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidSignIn) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	h.settle(c, sess, account.ModeUnset)
	return c.JSON(authResponse(sess))
}

func (h *AuthHandler) GoogleSignIn(c *fiber.Ctx) error {
	var req dto.GoogleSignInRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	if req.IDToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Identity token is required",
		})
	}

	mode, ok := parseMode(req.UsageMode)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid usage mode",
		})
	}

	sess, err := h.svc.GoogleSignIn(c.UserContext(), req.IDToken, req.FullName)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Google sign-in failed",
		})
	}

	h.settle(c, sess, mode)
	return c.JSON(authResponse(sess))
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	sess, err := h.svc.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidRefreshToken) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	return c.JSON(authResponse(sess))
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	if err := h.svc.Logout(c.UserContext(), req.RefreshToken); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to logout",
		})
	}

	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// settle runs the sign-in-completed workflow. The user is authenticated at
// this point, so reconciliation failure is logged and swallowed.
func (h *AuthHandler) settle(c *fiber.Ctx, sess *identity.Session, mode account.UsageMode) {
	if _, err := h.events.OnSignInCompleted(c.UserContext(), sess.Identity, mode); err != nil {
		slog.Error("post-sign-in reconciliation failed",
			"account_id", sess.Identity.AccountID.String(), "error", err)
	}
}

func authResponse(sess *identity.Session) dto.AuthResponse {
	return dto.AuthResponse{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		User: dto.UserResponse{
			ID:          sess.Identity.AccountID,
			Email:       sess.Identity.Email,
			DisplayName: sess.Identity.DisplayName,
		},
	}
}

// parseMode accepts an optional usage-mode string; empty means unset.
func parseMode(s string) (account.UsageMode, bool) {
	if s == "" || s == string(account.ModeUnset) {
		return account.ModeUnset, true
	}
	mode := account.ParseUsageMode(s)
	return mode, mode.Chosen()
}
