package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/prepwise-backend/internal/config"
)

func TestAuthServiceRoundTrip(t *testing.T) {
	auth := NewAuthService(&config.Config{JWTSecret: "secret", JWTExpiry: time.Hour})

	token, err := auth.GenerateToken(42, "Grace")
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, "Grace", claims.Name)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, TokenTypeUser, claims.TokenType)
}

func TestAuthServiceRejectsInvalidUser(t *testing.T) {
	auth := NewAuthService(&config.Config{JWTSecret: "secret", JWTExpiry: time.Hour})

	_, err := auth.GenerateToken(0, "")
	assert.Error(t, err)
}

func TestAuthServiceExpired(t *testing.T) {
	auth := NewAuthService(&config.Config{JWTSecret: "secret", JWTExpiry: time.Minute})
	issued := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return issued }

	token, err := auth.GenerateToken(1, "")
	require.NoError(t, err)

	auth.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = auth.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestAuthServiceWrongSecret(t *testing.T) {
	issuer := NewAuthService(&config.Config{JWTSecret: "one", JWTExpiry: time.Hour})
	verifier := NewAuthService(&config.Config{JWTSecret: "two", JWTExpiry: time.Hour})

	token, err := issuer.GenerateToken(1, "")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAuthServiceRejectsForeignTokenType(t *testing.T) {
	auth := NewAuthService(&config.Config{JWTSecret: "secret", JWTExpiry: time.Hour})

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		TokenType:        "admin",
		UserID:           1,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = auth.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
