package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	domainsession "github.com/NordCoder/Sugu/internal/domain/session"
)

const (
	headerRequestID = "X-Request-ID"
	maxResponseBody = 1 << 20
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Phone string `json:"phone_full"`
	OTP   string `json:"otp"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// tokenResponse accepts both the long and the short field names.
type tokenResponse struct {
	AccessToken  string             `json:"access_token"`
	Access       string             `json:"access"`
	RefreshToken string             `json:"refresh_token"`
	Refresh      string             `json:"refresh"`
	User         domainsession.User `json:"user"`
}

func (r tokenResponse) pair() domainsession.TokenPair {
	p := domainsession.TokenPair{Access: r.AccessToken, Refresh: r.RefreshToken}
	if p.Access == "" {
		p.Access = r.Access
	}
	if p.Refresh == "" {
		p.Refresh = r.Refresh
	}
	return p
}

// doJSON talks to the auth endpoints directly on the base transport.
// out is decoded only for 2xx answers; the raw body is always returned.
func (c *Client) doJSON(ctx context.Context, method, path, bearer string, in, out any) (int, []byte, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.url(path), body)
	if err != nil {
		return 0, nil, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set(headerRequestID, uuid.NewString())
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.raw.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s %s: %w", domainsession.ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: read %s response: %w", domainsession.ErrTransport, path, err)
	}
	if out != nil && resp.StatusCode/100 == 2 && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, raw, fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return resp.StatusCode, raw, nil
}

func apiError(method, path string, status int, body []byte) *domainsession.APIError {
	return &domainsession.APIError{Method: method, Path: path, Status: status, Body: string(body)}
}
