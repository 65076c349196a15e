package presence

import (
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestIdentityFromToken(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		token := signedTestToken(t, jwt.MapClaims{"sub": "u42", "username": "alice"})

		id, err := identityFromToken(token)
		require.NoError(t, err)
		assert.Equal(t, "u42", id.UserID)
		assert.Equal(t, "alice", id.Username)
	})

	t.Run("token without subject", func(t *testing.T) {
		token := signedTestToken(t, jwt.MapClaims{"username": "alice"})

		_, err := identityFromToken(token)
		require.Error(t, err)
		assert.True(t, errors.Is(err, NewError(ErrorUnauthorized, "")))
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := identityFromToken("not-a-token")
		require.Error(t, err)
		assert.True(t, errors.Is(err, NewError(ErrorUnauthorized, "")))
	})
}
