package docstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ErrorKind
	}{
		{"insufficient privilege", &pgconn.PgError{Code: "42501"}, KindPermission},
		{"invalid authorization", &pgconn.PgError{Code: "28000"}, KindPermission},
		{"password rejected", &pgconn.PgError{Code: "28P01"}, KindPermission},
		{"connection failure", &pgconn.PgError{Code: "08006"}, KindTransient},
		{"too many connections", &pgconn.PgError{Code: "53300"}, KindTransient},
		{"shutting down", &pgconn.PgError{Code: "57P01"}, KindTransient},
		{"unique violation", &pgconn.PgError{Code: "23505"}, KindInternal},
		{"deadline exceeded", context.DeadlineExceeded, KindTransient},
		{"plain network error", errors.New("dial tcp: connection refused"), KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("get", tt.err)
			var de *Error
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.kind, de.Kind)
			assert.Equal(t, "get", de.Op)
		})
	}
}

func TestClassifyWrapped(t *testing.T) {
	inner := &pgconn.PgError{Code: "42501"}
	err := classify("merge-write", fmt.Errorf("exec failed: %w", inner))
	assert.True(t, IsPermissionDenied(err))
	assert.False(t, IsTransient(err))
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &Error{Kind: KindTransient, Op: "get", Err: inner}
	assert.True(t, errors.Is(err, inner))
	assert.True(t, IsTransient(err))
	assert.False(t, IsPermissionDenied(err))
}
