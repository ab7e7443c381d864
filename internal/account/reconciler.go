package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Causertragique/financeautonome2-sub001/internal/docstore"
	"github.com/google/uuid"
)

// ProfileCollection is the document collection holding one profile per account.
const ProfileCollection = "profiles"

// BackoffPolicy bounds the retry loop around store operations. Delay receives
// the 1-based attempt index that just failed.
type BackoffPolicy struct {
	MaxAttempts int
	Delay       func(attempt int) time.Duration
}

// LinearBackoff waits attempt*unit between attempts.
func LinearBackoff(unit time.Duration, maxAttempts int) BackoffPolicy {
	return BackoffPolicy{
		MaxAttempts: maxAttempts,
		Delay: func(attempt int) time.Duration {
			return time.Duration(attempt) * unit
		},
	}
}

// ZeroBackoff retries immediately; test use.
func ZeroBackoff(maxAttempts int) BackoffPolicy {
	return BackoffPolicy{
		MaxAttempts: maxAttempts,
		Delay:       func(int) time.Duration { return 0 },
	}
}

type ReconcileInput struct {
	AccountID     uuid.UUID
	Email         string
	DisplayName   string
	AvatarURL     string
	RequestedMode UsageMode
}

type ReconcileResult struct {
	// FirstEver is true when no profile document existed before this call.
	FirstEver bool
	// Mode is the usage mode now persisted.
	Mode UsageMode
	// ModeChanged is true when this call persisted a usage mode different
	// from what was stored before. Re-requesting the stored mode, or losing
	// to an already-chosen mode, leaves it false.
	ModeChanged bool
}

// Reconciler keeps the stored profile consistent with the latest sign-in's
// observed claims without discarding prior configuration. Safe to invoke
// repeatedly or concurrently for the same account: it only merge-writes, and
// a chosen usage mode is never regressed.
type Reconciler struct {
	store   docstore.Store
	backoff BackoffPolicy
	log     *slog.Logger
	now     func() time.Time
}

func NewReconciler(store docstore.Store, backoff BackoffPolicy, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	if backoff.MaxAttempts < 1 {
		backoff = LinearBackoff(time.Second, 5)
	}
	return &Reconciler{
		store:   store,
		backoff: backoff,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *Reconciler) Reconcile(ctx context.Context, in ReconcileInput) (ReconcileResult, error) {
	docID := in.AccountID.String()

	var doc docstore.Document
	firstEver := false
	err := r.withRetry(ctx, "read profile", docID, func() error {
		var getErr error
		doc, getErr = r.store.Get(ctx, ProfileCollection, docID)
		return getErr
	})
	if errors.Is(err, docstore.ErrNotFound) {
		firstEver = true
		doc = docstore.Document{}
	} else if err != nil {
		return ReconcileResult{}, err
	}

	stored := ModeUnset
	if raw, ok := doc["usage_mode"].(string); ok {
		stored = ParseUsageMode(raw)
	}
	finalMode := stored
	if !finalMode.Chosen() && in.RequestedMode.Chosen() {
		finalMode = in.RequestedMode
	}

	now := r.now()
	fields := docstore.Document{
		"account_id":   docID,
		"email":        in.Email,
		"display_name": in.DisplayName,
		"avatar_url":   in.AvatarURL,
		"usage_mode":   string(finalMode),
		"updated_at":   now.Format(time.RFC3339Nano),
	}
	if _, ok := doc["created_at"]; !ok {
		fields["created_at"] = now.Format(time.RFC3339Nano)
	}

	err = r.withRetry(ctx, "write profile", docID, func() error {
		return r.store.MergeWrite(ctx, ProfileCollection, docID, fields)
	})
	if err != nil {
		return ReconcileResult{}, err
	}

	return ReconcileResult{FirstEver: firstEver, Mode: finalMode, ModeChanged: finalMode != stored}, nil
}

// withRetry runs op up to MaxAttempts times, waiting Delay(attempt) after each
// transient failure. Anything non-transient (permission denials included) is
// surfaced immediately; the last transient error is surfaced when the budget
// runs out.
func (r *Reconciler) withRetry(ctx context.Context, action, docID string, op func() error) error {
	var err error
	for attempt := 1; attempt <= r.backoff.MaxAttempts; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if !docstore.IsTransient(err) {
			return err
		}
		if attempt == r.backoff.MaxAttempts {
			break
		}
		r.log.Warn("store operation failed, retrying",
			"action", action, "account_id", docID, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.backoff.Delay(attempt)):
		}
	}
	return err
}
