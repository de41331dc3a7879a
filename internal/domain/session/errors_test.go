package session

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{nil, ""},
		{ErrUnauthenticated, KindUnauthenticated},
		{fmt.Errorf("%w: %w", ErrMalformedToken, errors.New("bad segment")), KindMalformedToken},
		{fmt.Errorf("%w: no refresh token", ErrRefreshFailed), KindRefreshFailed},
		{fmt.Errorf("%w: %w", ErrSessionExpired, ErrRefreshFailed), KindSessionExpired},
		{fmt.Errorf("%w: POST /login: eof", ErrTransport), KindTransport},
		{&url.Error{Op: "Get", URL: "http://x", Err: &net.OpError{Op: "dial", Err: errors.New("refused")}}, KindTransport},
		{&APIError{Status: 500}, KindOther},
		{&ValidationError{Message: "x"}, KindOther},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, KindOf(tc.err), "%v", tc.err)
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"password": "too short", "email": "required"}}
	assert.Equal(t, "invalid input: email: required; password: too short", err.Error())
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, "invalid input: Bad Request", (&ValidationError{Message: "Bad Request"}).Error())
	assert.Equal(t, "invalid input", (&ValidationError{}).Error())
}
