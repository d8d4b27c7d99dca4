package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, CheckPassword(hash, "correct horse battery staple"))
	assert.False(t, CheckPassword(hash, "wrong password"))
}

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", 1, "qrtrace-backend")

	token, err := m.Generate(7, "op@example.com", "operator")
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, "op@example.com", claims.Email)
	assert.Equal(t, "operator", claims.Role)
	assert.Equal(t, "qrtrace-backend", claims.Issuer)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-a", 1, "x").Generate(1, "a@b.c", "admin")
	require.NoError(t, err)

	_, err = NewJWTManager("secret-b", 1, "x").Verify(token)
	assert.Error(t, err)
}
