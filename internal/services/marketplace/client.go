package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	domainsession "github.com/NordCoder/Sugu/internal/domain/session"
	"github.com/NordCoder/Sugu/internal/obs"
	"github.com/NordCoder/Sugu/internal/session"
)

const (
	pathProfile     = "/users/me"
	pathOrders      = "/commandes/mes-commandes"
	pathDiscussions = "/discussions/discussions"
	pathSendMessage = "/discussion/send-message"

	maxBody = 4 << 20
)

// Client is the account side of the marketplace API. It needs an http.Client
// from session.Client; auth failures are handled there, everything else is
// returned to the caller as is.
type Client struct {
	base string
	hc   *http.Client
	log  *zap.Logger
}

func New(baseURL string, hc *http.Client, log *zap.Logger) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		hc:   hc,
		log:  obs.Component(log, "marketplace"),
	}
}

func (c *Client) Profile(ctx context.Context) (Profile, error) {
	var p Profile
	err := c.do(ctx, http.MethodGet, pathProfile, nil, &p)
	return p, err
}

func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) (Profile, error) {
	var p Profile
	err := c.do(ctx, http.MethodPatch, pathProfile, upd, &p)
	return p, err
}

func (c *Client) Orders(ctx context.Context) ([]Order, error) {
	var out []Order
	err := c.do(ctx, http.MethodGet, pathOrders, nil, &out)
	return out, err
}

// Discussions accepts both a plain list and a paginated {"results": [...]} page.
func (c *Client) Discussions(ctx context.Context) ([]Discussion, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, pathDiscussions, nil, &raw); err != nil {
		return nil, err
	}
	return decodeDiscussions(raw)
}

func decodeDiscussions(raw []byte) ([]Discussion, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '[' {
		var list []Discussion
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode discussions: %w", err)
		}
		return list, nil
	}
	var page struct {
		Results []Discussion `json:"results"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decode discussions page: %w", err)
	}
	return page.Results, nil
}

func (c *Client) SendMessage(ctx context.Context, listingID int64, content string) (Message, error) {
	var m Message
	if strings.TrimSpace(content) == "" {
		return m, &domainsession.ValidationError{Fields: map[string]string{"content": "message is empty"}}
	}
	in := struct {
		ListingID int64  `json:"listing_id"`
		Content   string `json:"content"`
	}{listingID, content}
	err := c.do(ctx, http.MethodPost, pathSendMessage, in, &m)
	return m, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, span := otel.Tracer("marketplace").Start(ctx, "marketplace "+method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.method", method), attribute.String("http.route", path)),
	)
	defer span.End()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(session.RequireAuth(ctx), method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		span.RecordError(err)
		return err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", domainsession.ErrTransport, path, err)
	}
	if resp.StatusCode/100 != 2 {
		obs.WithTrace(ctx, c.log).Debug("api call failed",
			zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode))
		return &domainsession.APIError{Method: method, Path: path, Status: resp.StatusCode, Body: string(raw)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
