package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndValidate(t *testing.T) {
	now := time.Now()
	tok := mint(t, now, time.Minute)

	claims, err := ParseAndValidate(tok, testSecret, now)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "42", claims.Subject)

	_, err = ParseAndValidate(tok, []byte("other"), now)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = ParseAndValidate(tok, testSecret, now.Add(2*time.Minute))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRawTokens(t *testing.T) {
	a, err := GenerateRawToken(32)
	require.NoError(t, err)
	b, err := GenerateRawToken(32)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, HashToken(a), HashToken(a))
	assert.NotEqual(t, HashToken(a), HashToken(b))
}
