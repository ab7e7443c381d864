package middleware

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func ctxWithClaims(t *testing.T, claims jwt.MapClaims) *fiber.Ctx {
	t.Helper()

	app := fiber.New()
	c := app.AcquireCtx(&fasthttp.RequestCtx{})
	t.Cleanup(func() { app.ReleaseCtx(c) })

	if claims != nil {
		c.Locals("user", jwt.NewWithClaims(jwt.SigningMethodHS256, claims))
	}
	return c
}

func TestTokenIssuedWithin(t *testing.T) {
	window := 5 * time.Minute

	t.Run("fresh token passes", func(t *testing.T) {
		c := ctxWithClaims(t, jwt.MapClaims{
			"iat": float64(time.Now().Add(-time.Minute).Unix()),
		})
		assert.True(t, TokenIssuedWithin(c, window))
	})

	t.Run("stale token fails", func(t *testing.T) {
		c := ctxWithClaims(t, jwt.MapClaims{
			"iat": float64(time.Now().Add(-10 * time.Minute).Unix()),
		})
		assert.False(t, TokenIssuedWithin(c, window))
	})

	t.Run("missing iat fails", func(t *testing.T) {
		c := ctxWithClaims(t, jwt.MapClaims{"sub": uuid.NewString()})
		assert.False(t, TokenIssuedWithin(c, window))
	})

	t.Run("non-numeric iat fails", func(t *testing.T) {
		c := ctxWithClaims(t, jwt.MapClaims{"iat": "yesterday"})
		assert.False(t, TokenIssuedWithin(c, window))
	})

	t.Run("no token in context fails", func(t *testing.T) {
		c := ctxWithClaims(t, nil)
		assert.False(t, TokenIssuedWithin(c, window))
	})
}

func TestGetAccountID(t *testing.T) {
	t.Run("valid sub claim", func(t *testing.T) {
		want := uuid.New()
		c := ctxWithClaims(t, jwt.MapClaims{"sub": want.String()})

		got, err := GetAccountID(c)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("missing sub claim", func(t *testing.T) {
		c := ctxWithClaims(t, jwt.MapClaims{"iat": float64(time.Now().Unix())})
		_, err := GetAccountID(c)
		assert.Error(t, err)
	})

	t.Run("sub is not a uuid", func(t *testing.T) {
		c := ctxWithClaims(t, jwt.MapClaims{"sub": "not-a-uuid"})
		_, err := GetAccountID(c)
		assert.Error(t, err)
	})

	t.Run("no token in context", func(t *testing.T) {
		c := ctxWithClaims(t, nil)
		_, err := GetAccountID(c)
		assert.Error(t, err)
	})
}
