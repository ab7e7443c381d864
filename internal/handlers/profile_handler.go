package handlers

import (
	"errors"

	"github.com/Causertragique/financeautonome2-sub001/internal/account"
	"github.com/Causertragique/financeautonome2-sub001/internal/docstore"
	"github.com/Causertragique/financeautonome2-sub001/internal/dto"
	"github.com/Causertragique/financeautonome2-sub001/internal/identity"
	"github.com/Causertragique/financeautonome2-sub001/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

type ProfileHandler struct {
	store  docstore.Store
	svc    *identity.Service
	events *account.EventHandler
}

func NewProfileHandler(store docstore.Store, svc *identity.Service, events *account.EventHandler) *ProfileHandler {
	return &ProfileHandler{store: store, svc: svc, events: events}
}

func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	accountID, err := middleware.GetAccountID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	doc, err := h.store.Get(c.UserContext(), account.ProfileCollection, accountID.String())
	if errors.Is(err, docstore.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Profile not found",
		})
	}
	if err != nil {
		return storeErrorResponse(c, err)
	}

	return c.JSON(dto.ProfileResponse{
		AccountID:   docString(doc, "account_id"),
		Email:       docString(doc, "email"),
		DisplayName: docString(doc, "display_name"),
		AvatarURL:   docString(doc, "avatar_url"),
		UsageMode:   docString(doc, "usage_mode"),
		CreatedAt:   docString(doc, "created_at"),
		UpdatedAt:   docString(doc, "updated_at"),
	})
}

// SetUsageMode reconciles with the requested mode. A mode already chosen wins
// over the request; the response reports whether the request took effect.
func (h *ProfileHandler) SetUsageMode(c *fiber.Ctx) error {
	accountID, err := middleware.GetAccountID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.UsageModeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	mode := account.ParseUsageMode(req.UsageMode)
	if !mode.Chosen() {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Usage mode must be personal, business or both",
		})
	}

	id, err := h.svc.GetIdentity(c.UserContext(), accountID)
	if err != nil {
		if errors.Is(err, identity.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Account not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	res, err := h.events.OnSignInCompleted(c.UserContext(), id, mode)
	if err != nil {
		return storeErrorResponse(c, err)
	}

	return c.JSON(dto.UsageModeResponse{
		UsageMode: string(res.Mode),
		Changed:   res.ModeChanged,
	})
}

func storeErrorResponse(c *fiber.Ctx, err error) error {
	if docstore.IsPermissionDenied(err) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Operation not permitted",
		})
	}
	if docstore.IsTransient(err) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Error: true, Message: "Profile store temporarily unavailable, try again",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: "Internal server error",
	})
}

func docString(doc docstore.Document, key string) string {
	s, _ := doc[key].(string)
	return s
}
