package account

import (
	"context"
	"log/slog"

	"github.com/Causertragique/financeautonome2-sub001/internal/identity"
)

// EventHandler orchestrates the account core in response to identity events.
// It is the only component here with control flow.
type EventHandler struct {
	reconciler *Reconciler
	partitions *PartitionInitializer
	provider   identity.Provider
	log        *slog.Logger
}

func NewEventHandler(reconciler *Reconciler, partitions *PartitionInitializer, provider identity.Provider, log *slog.Logger) *EventHandler {
	if log == nil {
		log = slog.Default()
	}
	return &EventHandler{
		reconciler: reconciler,
		partitions: partitions,
		provider:   provider,
		log:        log,
	}
}

// OnSignInCompleted reconciles the profile and, on the first-ever
// reconciliation for the account, initializes its data partitions. The caller
// must treat a returned error as non-fatal to the sign-in itself: the user is
// authenticated whether or not the profile write landed.
func (h *EventHandler) OnSignInCompleted(ctx context.Context, id identity.Identity, requestedMode UsageMode) (ReconcileResult, error) {
	res, err := h.reconciler.Reconcile(ctx, ReconcileInput{
		AccountID:     id.AccountID,
		Email:         id.Email,
		DisplayName:   id.DisplayName,
		AvatarURL:     id.AvatarURL,
		RequestedMode: requestedMode,
	})
	if err != nil {
		h.log.Error("profile reconciliation failed",
			"account_id", id.AccountID.String(), "error", err)
		return res, err
	}

	if res.FirstEver {
		h.partitions.Initialize(ctx, id.AccountID, res.Mode)
	}
	return res, nil
}

// LinkOutcome reports what a link request did.
type LinkOutcome struct {
	Decision   Decision
	Credential identity.Credential
}

// OnLinkRequested consults the guard, then performs the provider link only if
// permitted. An already-linked credential short-circuits to a no-op.
func (h *EventHandler) OnLinkRequested(ctx context.Context, current identity.Identity, material identity.CredentialMaterial) (LinkOutcome, error) {
	cred, ownerID, err := h.provider.ResolveCredential(ctx, current, material)
	if err != nil {
		return LinkOutcome{}, err
	}

	decision := CanLink(current.AccountID, ownerID, cred, current.Credentials)
	if !decision.Allowed || decision.AlreadyLinked {
		return LinkOutcome{Decision: decision, Credential: cred}, nil
	}

	linked, err := h.provider.LinkCredential(ctx, current.AccountID, material)
	if err != nil {
		return LinkOutcome{Decision: decision}, err
	}
	return LinkOutcome{Decision: decision, Credential: linked}, nil
}

// OnUnlinkRequested consults the guard, then performs the provider unlink only
// if permitted. No reconciliation follows: profile fields are independent of
// credential count.
func (h *EventHandler) OnUnlinkRequested(ctx context.Context, current identity.Identity, kind identity.ProviderKind) (Decision, error) {
	cred, ok := current.Credentials.ByKind(kind)
	if !ok {
		return denied(DenyNotLinked), nil
	}

	decision := CanUnlink(current.Credentials, cred)
	if !decision.Allowed {
		return decision, nil
	}

	if err := h.provider.UnlinkCredential(ctx, current.AccountID, kind); err != nil {
		return decision, err
	}
	return decision, nil
}
