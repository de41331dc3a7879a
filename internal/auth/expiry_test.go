package auth

import (
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainsession "github.com/NordCoder/Sugu/internal/domain/session"
)

var testSecret = []byte("test-secret")

func mint(t *testing.T, now time.Time, ttl time.Duration) string {
	t.Helper()
	tok, err := SignedString(NewAccessClaims(42, now, ttl), testSecret)
	require.NoError(t, err)
	return tok
}

func TestExpiresAt_ReadsExpWithoutSecret(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tok := mint(t, now, 20*time.Minute)

	exp, err := ExpiresAt(tok)
	require.NoError(t, err)
	assert.Equal(t, now.Add(20*time.Minute).Unix(), exp.Unix())
}

func TestExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	cases := []struct {
		name string
		ttl  time.Duration
		want bool
	}{
		{"fresh", time.Minute, false},
		{"already expired", -time.Minute, true},
		{"inside skew", 500 * time.Millisecond, true},
		{"exactly skew", time.Second, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tok := mint(t, now, tc.ttl)
			assert.Equal(t, tc.want, Expired(tok, now, DefaultSkew))
		})
	}
}

func TestExpiresAt_Malformed(t *testing.T) {
	noExp := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`)) + "." +
		base64.RawURLEncoding.EncodeToString([]byte(`{"user_id":1}`)) + ".sig"
	badExp := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`)) + "." +
		base64.RawURLEncoding.EncodeToString([]byte(`{"exp":"tomorrow"}`)) + ".sig"

	for name, tok := range map[string]string{
		"empty":          "",
		"two segments":   "abc.def",
		"bad base64":     "a.%%%.c",
		"payload no exp": noExp,
		"exp not number": badExp,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ExpiresAt(tok)
			require.Error(t, err)
			assert.ErrorIs(t, err, domainsession.ErrMalformedToken)
			assert.True(t, Expired(tok, time.Now(), DefaultSkew))
		})
	}
}

func rawToken(payload string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`)) + "." +
		base64.RawURLEncoding.EncodeToString([]byte(payload)) + ".sig"
}

func TestExpiresAt_IgnoresOtherClaimShapes(t *testing.T) {
	now := time.Now()
	exp := now.Add(10 * time.Minute).Unix()

	for name, payload := range map[string]string{
		"string user_id": fmt.Sprintf(`{"user_id":"42","exp":%d}`, exp),
		"uuid user_id":   fmt.Sprintf(`{"user_id":"7f3c1e2a-9b7d-4c1e-8f00-2a6b5d9e0c11","exp":%d}`, exp),
		"numeric aud":    fmt.Sprintf(`{"aud":123,"user_id":1,"exp":%d}`, exp),
		"nested claims":  fmt.Sprintf(`{"roles":{"admin":true},"iat":"yesterday","exp":%d}`, exp),
	} {
		t.Run(name, func(t *testing.T) {
			tok := rawToken(payload)
			got, err := ExpiresAt(tok)
			require.NoError(t, err)
			assert.Equal(t, exp, got.Unix())
			assert.False(t, Expired(tok, now, DefaultSkew))
		})
	}
}

func TestMask(t *testing.T) {
	assert.Equal(t, "***", Mask("short"))
	assert.Equal(t, "abcd...wxyz", Mask("abcdefghijklmnopqrstuvwxyz"))
}
