package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/NordCoder/Sugu/internal/domain/event"
	domainsession "github.com/NordCoder/Sugu/internal/domain/session"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLen = 8

type Credentials struct {
	Email      string
	Password   string
	RememberMe bool
}

// Login checks the credentials locally, exchanges them for a token pair and
// starts a new session. RememberMe selects the durable store when one is configured.
func (c *Client) Login(ctx context.Context, cr Credentials) (*domainsession.User, error) {
	u, err := c.login(ctx, cr)
	mLogins.WithLabelValues(loginResult(err)).Inc()
	return u, err
}

func (c *Client) login(ctx context.Context, cr Credentials) (*domainsession.User, error) {
	if err := c.throttle(); err != nil {
		return nil, err
	}
	if err := validateCredentials(cr); err != nil {
		return nil, err
	}

	var out tokenResponse
	req := loginRequest{Email: strings.ToLower(strings.TrimSpace(cr.Email)), Password: cr.Password}
	status, body, err := c.doJSON(ctx, http.MethodPost, c.cfg.LoginPath, "", req, &out)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	switch status {
	case http.StatusOK, http.StatusCreated:
	case http.StatusBadRequest:
		return nil, parseValidation(body)
	case http.StatusUnauthorized:
		return nil, domainsession.ErrInvalidCredentials
	case http.StatusForbidden:
		return nil, domainsession.ErrAccountInactive
	case http.StatusTooManyRequests:
		return nil, domainsession.ErrThrottled
	default:
		return nil, apiError(http.MethodPost, c.cfg.LoginPath, status, body)
	}

	u, err := c.startSession(ctx, cr.RememberMe, out)
	if err != nil {
		return nil, err
	}
	c.log.Info("signed in", zap.Int64("user_id", u.ID), zap.Bool("remember", cr.RememberMe))
	c.publish(ctx, event.KindLogin, u.ID, "")
	return u, nil
}

// VerifyRegistration confirms a new account with the one-time code and signs it in.
func (c *Client) VerifyRegistration(ctx context.Context, phone, otp string, remember bool) (*domainsession.User, error) {
	fields := map[string]string{}
	if strings.TrimSpace(phone) == "" {
		fields["phone_full"] = "phone is required"
	}
	if strings.TrimSpace(otp) == "" {
		fields["otp"] = "code is required"
	}
	if len(fields) > 0 {
		return nil, &domainsession.ValidationError{Fields: fields}
	}

	var out tokenResponse
	req := verifyRequest{Phone: strings.TrimSpace(phone), OTP: strings.TrimSpace(otp)}
	status, body, err := c.doJSON(ctx, http.MethodPost, c.cfg.VerifyPath, "", req, &out)
	if err != nil {
		return nil, fmt.Errorf("verify registration: %w", err)
	}
	switch {
	case status == http.StatusBadRequest:
		return nil, parseValidation(body)
	case status/100 != 2:
		return nil, apiError(http.MethodPost, c.cfg.VerifyPath, status, body)
	}

	u, err := c.startSession(ctx, remember, out)
	if err != nil {
		return nil, err
	}
	c.publish(ctx, event.KindLogin, u.ID, "registration")
	return u, nil
}

// startSession persists the pair and the user summary and re-arms forced logout.
func (c *Client) startSession(ctx context.Context, remember bool, out tokenResponse) (*domainsession.User, error) {
	pair := out.pair()
	if pair.Access == "" || pair.Refresh == "" {
		return nil, errors.New("server returned an incomplete token pair")
	}
	userJSON, err := json.Marshal(out.User)
	if err != nil {
		return nil, fmt.Errorf("encode user: %w", err)
	}

	if r, ok := c.store.(Rememberer); ok {
		if err := r.Remember(ctx, remember); err != nil {
			c.log.Warn("switch token store", zap.Bool("remember", remember), zap.Error(err))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	// access goes last so a reader never sees it without the rest of the session
	err = setAll(ctx, c.store,
		domainsession.Entry{Key: domainsession.KeyRefreshToken, Value: pair.Refresh},
		domainsession.Entry{Key: domainsession.KeyUser, Value: string(userJSON)},
		domainsession.Entry{Key: domainsession.KeyAccessToken, Value: pair.Access},
	)
	if err != nil {
		mStoreErrors.WithLabelValues("set").Inc()
		_ = c.store.Clear(context.WithoutCancel(ctx), domainsession.Keys...)
		return nil, fmt.Errorf("save session: %w", err)
	}
	c.armed = true
	u := out.User
	return &u, nil
}

func (c *Client) throttle() error {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()
	now := c.now()
	if !c.lastAttempt.IsZero() && now.Sub(c.lastAttempt) < c.cfg.LoginCooldown {
		return fmt.Errorf("%w: wait %s between login attempts", domainsession.ErrThrottled, c.cfg.LoginCooldown)
	}
	c.lastAttempt = now
	return nil
}

func validateCredentials(cr Credentials) error {
	fields := map[string]string{}
	email := strings.TrimSpace(cr.Email)
	switch {
	case email == "":
		fields["email"] = "email is required"
	case !emailPattern.MatchString(email):
		fields["email"] = "email is not valid"
	}
	switch {
	case cr.Password == "":
		fields["password"] = "password is required"
	case utf8.RuneCountInString(cr.Password) < minPasswordLen:
		fields["password"] = fmt.Sprintf("password must be at least %d characters", minPasswordLen)
	}
	if len(fields) > 0 {
		return &domainsession.ValidationError{Fields: fields}
	}
	return nil
}

// parseValidation understands {"errors": {...}}, {"message"|"detail": "..."} and
// plain field maps whose values are strings or lists of strings.
func parseValidation(body []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return &domainsession.ValidationError{Message: strings.TrimSpace(string(body))}
	}
	ve := &domainsession.ValidationError{Fields: map[string]string{}}
	for k, raw := range top {
		switch k {
		case "message", "detail", "error":
			ve.Message = firstString(raw)
		case "errors":
			var nested map[string]json.RawMessage
			if err := json.Unmarshal(raw, &nested); err != nil {
				ve.Message = firstString(raw)
				continue
			}
			for f, v := range nested {
				ve.Fields[f] = firstString(v)
			}
		default:
			ve.Fields[k] = firstString(raw)
		}
	}
	if len(ve.Fields) == 0 {
		ve.Fields = nil
	}
	return ve
}

func firstString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, " ")
	}
	return string(raw)
}

func loginResult(err error) string {
	var ve *domainsession.ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &ve):
		return "invalid"
	case errors.Is(err, domainsession.ErrThrottled):
		return "throttled"
	case errors.Is(err, domainsession.ErrInvalidCredentials):
		return "bad_credentials"
	case errors.Is(err, domainsession.ErrAccountInactive):
		return "inactive"
	}
	return "error"
}
