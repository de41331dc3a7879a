package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Sugu/internal/apitest"
	"github.com/NordCoder/Sugu/internal/domain/event"
	domainsession "github.com/NordCoder/Sugu/internal/domain/session"
)

func TestLogin_StartsSession(t *testing.T) {
	e := newEnv(t)

	u, err := e.c.Login(context.Background(), Credentials{Email: "  Alice@Example.com ", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, e.user.ID, u.ID)
	assert.Equal(t, testEmail, u.Email)
	assert.Equal(t, "Alice Martin", u.FullName)

	for _, k := range domainsession.Keys {
		v, ok := e.value(t, k)
		assert.True(t, ok, k)
		assert.NotEmpty(t, v, k)
	}
	cached, ok := e.c.User(context.Background())
	require.True(t, ok)
	assert.Equal(t, *u, cached)
	assert.True(t, e.c.Authenticated(context.Background()))
	assert.Contains(t, e.drainEvents(t), event.KindLogin)
}

func TestLogin_LocalValidation(t *testing.T) {
	cases := []struct {
		name   string
		cr     Credentials
		fields []string
	}{
		{name: "empty", cr: Credentials{}, fields: []string{"email", "password"}},
		{name: "bad email", cr: Credentials{Email: "alice@example", Password: testPassword}, fields: []string{"email"}},
		{name: "short password", cr: Credentials{Email: testEmail, Password: "1234567"}, fields: []string{"password"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			_, err := e.c.Login(context.Background(), tc.cr)
			require.Error(t, err)
			assert.ErrorIs(t, err, domainsession.ErrInvalidInput)

			var ve *domainsession.ValidationError
			require.True(t, errors.As(err, &ve))
			for _, f := range tc.fields {
				assert.Contains(t, ve.Fields, f)
			}
			assert.Len(t, ve.Fields, len(tc.fields))
			assert.Zero(t, e.srv.LoginCalls())
		})
	}
}

func TestLogin_StatusMapping(t *testing.T) {
	t.Run("wrong password", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.c.Login(context.Background(), Credentials{Email: testEmail, Password: "wrong-password"})
		assert.ErrorIs(t, err, domainsession.ErrInvalidCredentials)
		assert.False(t, e.c.Authenticated(context.Background()))
	})
	t.Run("inactive account", func(t *testing.T) {
		e := newEnv(t)
		e.srv.UC.AddUser("bob@example.com", testPassword, "Bob", false)
		_, err := e.c.Login(context.Background(), Credentials{Email: "bob@example.com", Password: testPassword})
		assert.ErrorIs(t, err, domainsession.ErrAccountInactive)
	})
	t.Run("throttled by server", func(t *testing.T) {
		e := newEnv(t)
		e.srv.FailLogin(http.StatusTooManyRequests)
		_, err := e.c.Login(context.Background(), Credentials{Email: testEmail, Password: testPassword})
		assert.ErrorIs(t, err, domainsession.ErrThrottled)
	})
	t.Run("server error", func(t *testing.T) {
		e := newEnv(t)
		e.srv.FailLogin(http.StatusInternalServerError)
		_, err := e.c.Login(context.Background(), Credentials{Email: testEmail, Password: testPassword})
		var apiErr *domainsession.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
		assert.Equal(t, "/login", apiErr.Path)
	})
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (m *manualClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *manualClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

func TestLogin_ClientThrottle(t *testing.T) {
	clock := &manualClock{now: time.Now()}
	e := newEnv(t, func(c *Config, _ *apitest.Config, d *Deps) {
		c.LoginCooldown = 2 * time.Second
		d.Now = clock.Now
	})
	wrong := Credentials{Email: testEmail, Password: "wrong-password"}

	_, err := e.c.Login(context.Background(), wrong)
	require.ErrorIs(t, err, domainsession.ErrInvalidCredentials)

	_, err = e.c.Login(context.Background(), wrong)
	require.ErrorIs(t, err, domainsession.ErrThrottled)
	assert.EqualValues(t, 1, e.srv.LoginCalls())

	clock.Advance(2 * time.Second)
	_, err = e.c.Login(context.Background(), Credentials{Email: testEmail, Password: testPassword})
	require.NoError(t, err)
	assert.EqualValues(t, 2, e.srv.LoginCalls())
}

func TestLogin_StoreFailureLeavesNoPartialSession(t *testing.T) {
	fs := &faultyStore{Store: newMemStore()}
	e := newEnv(t, withStore(fs))
	fs.failSet.Store(true)

	_, err := e.c.Login(context.Background(), Credentials{Email: testEmail, Password: testPassword})
	require.Error(t, err)
	assert.ErrorIs(t, err, errStoreDown)

	fs.failSet.Store(false)
	e.requireCleared(t)
}

func TestVerifyRegistration(t *testing.T) {
	const phone = "+33612345678"

	t.Run("missing fields", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.c.VerifyRegistration(context.Background(), " ", "", false)
		var ve *domainsession.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Contains(t, ve.Fields, "phone_full")
		assert.Contains(t, ve.Fields, "otp")
	})
	t.Run("wrong code", func(t *testing.T) {
		e := newEnv(t)
		e.srv.UC.AddPendingRegistration(phone, "123456", "bob@example.com", "Bob")
		_, err := e.c.VerifyRegistration(context.Background(), phone, "000000", false)
		var ve *domainsession.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "Code OTP invalide", ve.Message)
		assert.False(t, e.c.Authenticated(context.Background()))
	})
	t.Run("unknown phone", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.c.VerifyRegistration(context.Background(), phone, "123456", false)
		var apiErr *domainsession.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusNotFound, apiErr.Status)
	})
	t.Run("confirmed", func(t *testing.T) {
		e := newEnv(t)
		e.srv.UC.AddPendingRegistration(phone, "123456", "bob@example.com", "Bob")
		u, err := e.c.VerifyRegistration(context.Background(), phone, "123456", false)
		require.NoError(t, err)
		assert.Equal(t, "Bob", u.FullName)
		assert.True(t, e.c.Authenticated(context.Background()))

		resp, err := e.do(authed(), http.MethodGet, "/echo", "")
		require.NoError(t, err)
		assert.Equal(t, u.ID, decodeEcho(t, resp).UserID)
	})
}

func TestParseValidation(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		fields  map[string]string
		message string
	}{
		{name: "nested errors", body: `{"errors":{"email":["Enter a valid email."]}}`, fields: map[string]string{"email": "Enter a valid email."}},
		{name: "detail", body: `{"detail":"Bad Request"}`, message: "Bad Request"},
		{name: "field lists", body: `{"password":["too short","too common"]}`, fields: map[string]string{"password": "too short too common"}},
		{name: "not json", body: "oops", message: "oops"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ve *domainsession.ValidationError
			require.True(t, errors.As(parseValidation([]byte(tc.body)), &ve))
			assert.Equal(t, tc.fields, ve.Fields)
			assert.Equal(t, tc.message, ve.Message)
		})
	}
}

func TestTokenResponse_ShortNames(t *testing.T) {
	var r tokenResponse
	require.NoError(t, json.Unmarshal([]byte(`{"access":"a","refresh":"r","user":{"id":7}}`), &r))
	assert.Equal(t, domainsession.TokenPair{Access: "a", Refresh: "r"}, r.pair())
	assert.EqualValues(t, 7, r.User.ID)
}
