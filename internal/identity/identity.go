// Package identity is the identity-provider boundary: who the caller is, which
// sign-in methods are bound to the account, and the closed error taxonomy the
// rest of the system is allowed to see.
package identity

import (
	"context"

	"github.com/google/uuid"
)

// ProviderKind names one sign-in method family.
type ProviderKind string

const (
	KindPassword ProviderKind = "password"
	KindGoogle   ProviderKind = "google"
)

func (k ProviderKind) Valid() bool {
	return k == KindPassword || k == KindGoogle
}

// Credential is one bound sign-in method. For password credentials the subject
// is the account email; for OAuth credentials it is the provider-issued subject.
type Credential struct {
	Kind      ProviderKind `json:"kind"`
	SubjectID string       `json:"subject_id"`
}

// CredentialSet is the unordered set of credentials bound to one account.
type CredentialSet []Credential

func (s CredentialSet) Contains(c Credential) bool {
	for _, have := range s {
		if have.Kind == c.Kind && have.SubjectID == c.SubjectID {
			return true
		}
	}
	return false
}

func (s CredentialSet) HasKind(kind ProviderKind) bool {
	_, ok := s.ByKind(kind)
	return ok
}

func (s CredentialSet) ByKind(kind ProviderKind) (Credential, bool) {
	for _, have := range s {
		if have.Kind == kind {
			return have, true
		}
	}
	return Credential{}, false
}

// Without returns the set with one credential removed.
func (s CredentialSet) Without(c Credential) CredentialSet {
	out := make(CredentialSet, 0, len(s))
	for _, have := range s {
		if have.Kind == c.Kind && have.SubjectID == c.SubjectID {
			continue
		}
		out = append(out, have)
	}
	return out
}

// Identity is the provider's view of an authenticated account.
type Identity struct {
	AccountID   uuid.UUID     `json:"account_id"`
	Email       string        `json:"email"`
	DisplayName string        `json:"display_name"`
	AvatarURL   string        `json:"avatar_url"`
	Credentials CredentialSet `json:"credentials"`
}

// CredentialMaterial carries the input needed to mint a new credential.
type CredentialMaterial struct {
	Kind     ProviderKind
	Password string
	IDToken  string
}

// Provider is the surface the account core consumes. Mutating calls are remote
// and fallible; errors carry a Kind from this package's taxonomy.
type Provider interface {
	GetIdentity(ctx context.Context, accountID uuid.UUID) (Identity, error)

	// ResolveCredential determines which credential the material would mint
	// and which account, if any, already owns it (uuid.Nil when unowned).
	// It performs no mutation.
	ResolveCredential(ctx context.Context, current Identity, material CredentialMaterial) (Credential, uuid.UUID, error)

	LinkCredential(ctx context.Context, accountID uuid.UUID, material CredentialMaterial) (Credential, error)
	UnlinkCredential(ctx context.Context, accountID uuid.UUID, kind ProviderKind) error
}
