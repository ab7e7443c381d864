package identity

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	// ErrTransient covers temporary provider unavailability.
	ErrTransient ErrorKind = "transient"
	// ErrPermission covers authorization rejections.
	ErrPermission ErrorKind = "permission-denied"
	// ErrReauthRequired means the operation needs a recently minted token.
	ErrReauthRequired ErrorKind = "requires-recent-reauth"
	// ErrAlreadyInUse means the credential is bound to another account.
	ErrAlreadyInUse ErrorKind = "already-in-use"
	// ErrCancelled means the user abandoned the provider flow.
	ErrCancelled ErrorKind = "cancelled"
	// ErrUnsupported covers operations the provider cannot perform.
	ErrUnsupported ErrorKind = "unsupported"
	// ErrInvalidCredentials covers bad passwords and unverifiable tokens.
	ErrInvalidCredentials ErrorKind = "invalid-credentials"
	// ErrInternal covers permanent faults that retrying will not cure.
	ErrInternal ErrorKind = "internal"
)

// Error is the only error type the provider boundary emits, so core logic
// never inspects provider-specific strings.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("identity: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the taxonomy kind of err, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
