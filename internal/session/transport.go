package session

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	domainsession "github.com/NordCoder/Sugu/internal/domain/session"
)

// Transport attaches the bearer token, refreshes an expired token before
// sending and resends a request at most once after a 401.
type Transport struct {
	c *Client
}

var _ http.RoundTripper = (*Transport)(nil)

// pendingRequest is one logical request; it may be sent twice.
type pendingRequest struct {
	orig      *http.Request
	getBody   func() (io.ReadCloser, error)
	requestID string
	retried   bool
}

func newPendingRequest(req *http.Request) (*pendingRequest, error) {
	p := &pendingRequest{orig: req, requestID: req.Header.Get(headerRequestID)}
	if p.requestID == "" {
		p.requestID = uuid.NewString()
	}
	if req.Body == nil || req.Body == http.NoBody {
		return p, nil
	}
	if req.GetBody != nil {
		p.getBody = req.GetBody
		_ = req.Body.Close()
		return p, nil
	}
	b, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}
	p.getBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(b)), nil }
	return p, nil
}

func (p *pendingRequest) build(token, userAgent string) (*http.Request, error) {
	r := p.orig.Clone(p.orig.Context())
	if p.getBody != nil {
		body, err := p.getBody()
		if err != nil {
			return nil, fmt.Errorf("rewind request body: %w", err)
		}
		r.Body = body
	}
	r.Header.Set(headerRequestID, p.requestID)
	if r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", userAgent)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r, nil
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	c := t.c
	ctx := req.Context()
	gen := c.generation()

	p, err := newPendingRequest(req)
	if err != nil {
		return nil, err
	}

	token := c.read(ctx, domainsession.KeyAccessToken)
	switch {
	case token == "" && requiresAuth(ctx):
		return nil, domainsession.ErrUnauthenticated
	case token != "" && c.expired(token):
		fresh, err := c.refresh(ctx, token)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.forceLogout(ctx, reasonPreflight, gen)
			return nil, fmt.Errorf("%w: %w", domainsession.ErrSessionExpired, err)
		}
		// one refresh per request: a 401 on the fresh token is forwarded
		token, p.retried = fresh, true
	}

	for {
		out, err := p.build(token, c.cfg.UserAgent)
		if err != nil {
			return nil, err
		}
		resp, err := c.base.RoundTrip(out)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusUnauthorized || p.retried {
			return resp, nil
		}

		p.retried = true
		fresh, err := c.refresh(ctx, token)
		if err != nil {
			if ctx.Err() == nil {
				c.forceLogout(ctx, reasonUnauthorized, gen)
			}
			return resp, nil
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		_ = resp.Body.Close()
		token = fresh
		mRetries.Inc()
	}
}
