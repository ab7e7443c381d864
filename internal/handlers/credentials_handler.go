package handlers

import (
	"errors"

	"github.com/Causertragique/financeautonome2-sub001/internal/account"
	"github.com/Causertragique/financeautonome2-sub001/internal/config"
	"github.com/Causertragique/financeautonome2-sub001/internal/dto"
	"github.com/Causertragique/financeautonome2-sub001/internal/identity"
	"github.com/Causertragique/financeautonome2-sub001/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

type CredentialsHandler struct {
	svc    *identity.Service
	events *account.EventHandler
	cfg    *config.Config
}

func NewCredentialsHandler(svc *identity.Service, events *account.EventHandler, cfg *config.Config) *CredentialsHandler {
	return &CredentialsHandler{svc: svc, events: events, cfg: cfg}
}

func (h *CredentialsHandler) List(c *fiber.Ctx) error {
	id, err := h.currentIdentity(c)
	if err != nil {
		return identityErrorResponse(c, err)
	}

	out := make([]dto.CredentialResponse, 0, len(id.Credentials))
	for _, cred := range id.Credentials {
		out = append(out, dto.CredentialResponse{
			Kind:      string(cred.Kind),
			SubjectID: cred.SubjectID,
		})
	}
	return c.JSON(out)
}

func (h *CredentialsHandler) Link(c *fiber.Ctx) error {
	if !middleware.TokenIssuedWithin(c, h.cfg.ReauthWindow) {
		return reauthRequired(c)
	}

	var req dto.LinkCredentialRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	kind := identity.ProviderKind(req.Kind)
	if !kind.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Unknown credential kind",
		})
	}

	id, err := h.currentIdentity(c)
	if err != nil {
		return identityErrorResponse(c, err)
	}

	outcome, err := h.events.OnLinkRequested(c.UserContext(), id, identity.CredentialMaterial{
		Kind:     kind,
		Password: req.Password,
		IDToken:  req.IDToken,
	})
	if err != nil {
		return identityErrorResponse(c, err)
	}

	if !outcome.Decision.Allowed {
		return deniedResponse(c, outcome.Decision.Reason)
	}
	if outcome.Decision.AlreadyLinked {
		return c.JSON(fiber.Map{"message": "Credential already linked"})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.CredentialResponse{
		Kind:      string(outcome.Credential.Kind),
		SubjectID: outcome.Credential.SubjectID,
	})
}

func (h *CredentialsHandler) Unlink(c *fiber.Ctx) error {
	if !middleware.TokenIssuedWithin(c, h.cfg.ReauthWindow) {
		return reauthRequired(c)
	}

	kind := identity.ProviderKind(c.Params("kind"))
	if !kind.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Unknown credential kind",
		})
	}

	id, err := h.currentIdentity(c)
	if err != nil {
		return identityErrorResponse(c, err)
	}

	decision, err := h.events.OnUnlinkRequested(c.UserContext(), id, kind)
	if err != nil {
		return identityErrorResponse(c, err)
	}
	if !decision.Allowed {
		return deniedResponse(c, decision.Reason)
	}

	return c.JSON(fiber.Map{"message": "Credential unlinked"})
}

func (h *CredentialsHandler) currentIdentity(c *fiber.Ctx) (identity.Identity, error) {
	accountID, err := middleware.GetAccountID(c)
	if err != nil {
		return identity.Identity{}, identity.ErrAccountNotFound
	}
	return h.svc.GetIdentity(c.UserContext(), accountID)
}

func deniedResponse(c *fiber.Ctx, reason account.DenyReason) error {
	status := fiber.StatusConflict
	message := "Operation not allowed"
	switch reason {
	case account.DenyWouldStrandAccount:
		message = "This is your only sign-in method. Link an alternate credential before removing it."
	case account.DenyCrossAccountLink:
		message = "That credential already belongs to another account and accounts cannot be merged."
	case account.DenyNotLinked:
		status = fiber.StatusNotFound
		message = "No such credential is linked to this account."
	}
	return c.Status(status).JSON(dto.ErrorResponse{
		Error: true, Message: message, Code: string(reason),
	})
}

func reauthRequired(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error:   true,
		Message: "Please sign in again before changing sign-in methods",
		Code:    string(identity.ErrReauthRequired),
	})
}

func identityErrorResponse(c *fiber.Ctx, err error) error {
	if errors.Is(err, identity.ErrAccountNotFound) {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	switch identity.KindOf(err) {
	case identity.ErrAlreadyInUse:
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error: true, Message: "That credential is already in use", Code: string(identity.ErrAlreadyInUse),
		})
	case identity.ErrInvalidCredentials:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Credential could not be verified", Code: string(identity.ErrInvalidCredentials),
		})
	case identity.ErrReauthRequired:
		return reauthRequired(c)
	case identity.ErrUnsupported:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Unsupported credential operation", Code: string(identity.ErrUnsupported),
		})
	case identity.ErrPermission:
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Operation not permitted", Code: string(identity.ErrPermission),
		})
	case identity.ErrTransient:
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Error: true, Message: "Service temporarily unavailable, try again", Code: string(identity.ErrTransient),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
}
