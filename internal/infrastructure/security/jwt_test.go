package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditorTokenRoundTrip(t *testing.T) {
	token, err := GenerateEditorToken("board-1", "test-secret", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateJWT(token, "test-secret")
	require.NoError(t, err)

	boardID, ok := BoardFromClaims(claims)
	require.True(t, ok)
	assert.Equal(t, "board-1", boardID)
	assert.Equal(t, "editor", claims["role"])
}

func TestValidateJWTRejectsWrongSecret(t *testing.T) {
	token, err := GenerateEditorToken("board-1", "test-secret", time.Hour)
	require.NoError(t, err)

	_, err = ValidateJWT(token, "other-secret")
	assert.Error(t, err)
}

func TestValidateJWTRejectsExpiredToken(t *testing.T) {
	token, err := GenerateEditorToken("board-1", "test-secret", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateJWT(token, "test-secret")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.True(t, CheckPassword("hunter2", hash))
	assert.False(t, CheckPassword("wrong", hash))
}

func TestGenerateULID(t *testing.T) {
	a := GenerateULID()
	b := GenerateULID()
	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
}
