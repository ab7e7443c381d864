package account

import (
	"github.com/Causertragique/financeautonome2-sub001/internal/identity"
	"github.com/google/uuid"
)

// DenyReason is a machine-readable code the UI maps to a remediation message.
type DenyReason string

const (
	// DenyWouldStrandAccount: removing the credential would leave the account
	// with no sign-in method. Link an alternate credential first.
	DenyWouldStrandAccount DenyReason = "would-strand-account"
	// DenyCrossAccountLink: the credential already belongs to a different
	// account; the provider cannot merge two accounts.
	DenyCrossAccountLink DenyReason = "cross-account-link-unsupported"
	// DenyNotLinked: the credential to remove is not bound to the account.
	DenyNotLinked DenyReason = "credential-not-linked"
)

// Decision is a value, not an error: denial is an expected outcome.
type Decision struct {
	Allowed bool
	// AlreadyLinked marks an allowed link that needs no provider call.
	AlreadyLinked bool
	Reason        DenyReason
}

func allowed() Decision {
	return Decision{Allowed: true}
}

func denied(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// CanUnlink decides whether removing cred from set may proceed. It must run
// before any destructive provider call; it is a pre-condition, not a rollback.
func CanUnlink(set identity.CredentialSet, cred identity.Credential) Decision {
	if !set.Contains(cred) {
		return denied(DenyNotLinked)
	}
	if len(set.Without(cred)) == 0 {
		return denied(DenyWouldStrandAccount)
	}
	return allowed()
}

// CanLink decides whether binding cred to currentAccountID may proceed.
// candidateOwnerID is the account the credential currently resolves to,
// uuid.Nil when unowned. Linking a credential the account already holds is a
// no-op, not an error.
func CanLink(currentAccountID, candidateOwnerID uuid.UUID, cred identity.Credential, set identity.CredentialSet) Decision {
	if set.Contains(cred) {
		return Decision{Allowed: true, AlreadyLinked: true}
	}
	if candidateOwnerID != uuid.Nil && candidateOwnerID != currentAccountID {
		return denied(DenyCrossAccountLink)
	}
	return allowed()
}
