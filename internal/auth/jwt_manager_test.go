package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTManager(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := NewJWTManager()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SECRET")
	})

	t.Run("secret from environment", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "env-secret")
		jm, err := NewJWTManager()
		require.NoError(t, err)
		assert.Equal(t, "HS256", jm.algorithm)
	})
}

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	jm, err := NewJWTManagerWithSecret("round-trip-secret")
	require.NoError(t, err)
	ctx := context.Background()

	token, err := jm.GenerateToken(ctx, "user-1", "user@example.com", []string{"owner"}, time.Hour)
	require.NoError(t, err)

	claims, err := jm.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Username)
	assert.Equal(t, []string{"owner"}, claims.Roles)
	assert.Equal(t, tokenIssuer, claims.Issuer)
}

func TestJWTManager_RejectsForeignTokens(t *testing.T) {
	jm, err := NewJWTManagerWithSecret("our-secret")
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("different signing key", func(t *testing.T) {
		other, err := NewJWTManagerWithSecret("their-secret")
		require.NoError(t, err)
		token, err := other.GenerateToken(ctx, "user-1", "u", nil, time.Hour)
		require.NoError(t, err)

		_, err = jm.ValidateToken(ctx, token)
		assert.Error(t, err)
	})

	t.Run("different issuer", func(t *testing.T) {
		claims := &Claims{
			UserID: "user-1",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "someone-else",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("our-secret"))
		require.NoError(t, err)

		_, err = jm.ValidateToken(ctx, token)
		assert.Error(t, err)
	})

	t.Run("unexpected algorithm", func(t *testing.T) {
		claims := &Claims{
			UserID: "user-1",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    tokenIssuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("our-secret"))
		require.NoError(t, err)

		_, err = jm.ValidateToken(ctx, token)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected signing method")
	})
}

func TestJWTManager_RefreshAndRotate(t *testing.T) {
	t.Setenv("JWT_SECRET", "first-secret")
	jm, err := NewJWTManager()
	require.NoError(t, err)
	ctx := context.Background()

	token, err := jm.GenerateToken(ctx, "user-1", "u", []string{"owner"}, time.Minute)
	require.NoError(t, err)

	refreshed, err := jm.RefreshToken(ctx, token, time.Hour)
	require.NoError(t, err)
	claims, err := jm.ValidateToken(ctx, refreshed)
	require.NoError(t, err)
	assert.Equal(t, []string{"owner"}, claims.Roles)

	t.Setenv("JWT_SECRET", "second-secret")
	require.NoError(t, jm.RotateSigningKey(ctx))

	_, err = jm.ValidateToken(ctx, refreshed)
	assert.Error(t, err, "tokens signed before rotation stop validating")

	_, err = jm.RefreshToken(ctx, "garbage", time.Hour)
	assert.Error(t, err)
}
