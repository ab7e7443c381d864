package identity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCredentialSetOperations(t *testing.T) {
	password := Credential{Kind: KindPassword, SubjectID: "marie@example.com"}
	google := Credential{Kind: KindGoogle, SubjectID: "g-108234"}
	set := CredentialSet{password, google}

	assert.True(t, set.Contains(password))
	assert.False(t, set.Contains(Credential{Kind: KindGoogle, SubjectID: "g-other"}))

	assert.True(t, set.HasKind(KindGoogle))
	assert.False(t, CredentialSet{password}.HasKind(KindGoogle))

	got, ok := set.ByKind(KindGoogle)
	assert.True(t, ok)
	assert.Equal(t, google, got)

	remaining := set.Without(google)
	assert.Len(t, remaining, 1)
	assert.True(t, remaining.Contains(password))
	// Without does not mutate the receiver
	assert.Len(t, set, 2)

	assert.Empty(t, CredentialSet{google}.Without(google))
}

func TestProviderKindValid(t *testing.T) {
	assert.True(t, KindPassword.Valid())
	assert.True(t, KindGoogle.Valid())
	assert.False(t, ProviderKind("facebook").Valid())
	assert.False(t, ProviderKind("").Valid())
}

func TestErrorKindClassification(t *testing.T) {
	base := &Error{Kind: ErrAlreadyInUse, Op: "link-credential", Err: errors.New("duplicate")}

	assert.Equal(t, ErrAlreadyInUse, KindOf(base))
	assert.True(t, IsKind(base, ErrAlreadyInUse))
	assert.False(t, IsKind(base, ErrTransient))

	wrapped := fmt.Errorf("handler: %w", base)
	assert.Equal(t, ErrAlreadyInUse, KindOf(wrapped))

	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.True(t, errors.Is(base, base.Err))
}
