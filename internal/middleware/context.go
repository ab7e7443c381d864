package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// GetAccountID extracts the account UUID from JWT claims in context.
func GetAccountID(c *fiber.Ctx) (uuid.UUID, error) {
	claims, err := tokenClaims(c)
	if err != nil {
		return uuid.Nil, err
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, errors.New("missing sub claim")
	}

	return uuid.Parse(sub)
}

// TokenIssuedWithin reports whether the access token was minted within the
// given window. Credential link/unlink requires a recent sign-in.
func TokenIssuedWithin(c *fiber.Ctx, window time.Duration) bool {
	claims, err := tokenClaims(c)
	if err != nil {
		return false
	}

	iat, ok := claims["iat"].(float64)
	if !ok {
		return false
	}

	issuedAt := time.Unix(int64(iat), 0)
	return time.Since(issuedAt) <= window
}

func tokenClaims(c *fiber.Ctx) (jwt.MapClaims, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return nil, errors.New("invalid token in context")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}
