package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/NordCoder/Sugu/internal/auth"
	"github.com/NordCoder/Sugu/internal/domain/event"
	domainsession "github.com/NordCoder/Sugu/internal/domain/session"
	"github.com/NordCoder/Sugu/internal/obs"
)

type Deps struct {
	Store     domainsession.Store
	Base      http.RoundTripper
	Notifier  domainsession.Notifier
	Navigator domainsession.Navigator
	Events    event.Publisher
	Log       *zap.Logger
	Now       func() time.Time
}

// Client owns one user session. Every API call of the application goes
// through the http.Client returned by HTTPClient.
type Client struct {
	cfg       Config
	store     domainsession.Store
	base      http.RoundTripper
	raw       *http.Client
	notifier  domainsession.Notifier
	navigator domainsession.Navigator
	events    event.Publisher
	log       *zap.Logger
	now       func() time.Time

	flights singleflight.Group

	// mu orders token writes against session start and end.
	// gen changes whenever a session starts or ends; armed gates forced logout.
	mu    sync.Mutex
	gen   uint64
	armed bool

	loginMu     sync.Mutex
	lastAttempt time.Time

	evMu     sync.Mutex
	evClosed bool
	evWG     sync.WaitGroup
}

func New(cfg Config, d Deps) (*Client, error) {
	if d.Store == nil {
		return nil, errors.New("session: token store is required")
	}
	if d.Base == nil {
		d.Base = http.DefaultTransport
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Navigator == nil {
		d.Navigator = nopNavigator{}
	}
	if d.Events == nil {
		d.Events = event.Nop{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Client{
		cfg:       cfg.withDefaults(),
		store:     d.Store,
		base:      d.Base,
		raw:       &http.Client{Transport: d.Base},
		notifier:  d.Notifier,
		navigator: d.Navigator,
		events:    d.Events,
		log:       obs.Component(d.Log, "session"),
		now:       d.Now,
		armed:     true,
	}, nil
}

// HTTPClient returns a client whose requests carry the session.
func (c *Client) HTTPClient() *http.Client {
	return &http.Client{Transport: c.Transport()}
}

func (c *Client) Transport() http.RoundTripper { return &Transport{c: c} }

// Authenticated reports whether a session is stored. The access token may still need a refresh.
func (c *Client) Authenticated(ctx context.Context) bool {
	return c.read(ctx, domainsession.KeyRefreshToken) != "" || c.read(ctx, domainsession.KeyAccessToken) != ""
}

func (c *Client) User(ctx context.Context) (domainsession.User, bool) {
	var u domainsession.User
	raw := c.read(ctx, domainsession.KeyUser)
	if raw == "" {
		return u, false
	}
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		c.log.Debug("cached user is not valid json", zap.Error(err))
		return u, false
	}
	return u, true
}

func (c *Client) userID(ctx context.Context) int64 {
	u, _ := c.User(ctx)
	return u.ID
}

// read treats a failing store as an absent value.
func (c *Client) read(ctx context.Context, key string) string {
	v, ok, err := c.store.Get(ctx, key)
	if err != nil {
		mStoreErrors.WithLabelValues("get").Inc()
		obs.WithTrace(ctx, c.log).Warn("token store read failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

func (c *Client) expired(token string) bool {
	return auth.Expired(token, c.now(), c.cfg.ExpirySkew)
}

func (c *Client) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Close waits for queued session events to be handed to the publisher.
func (c *Client) Close(ctx context.Context) error {
	c.evMu.Lock()
	c.evClosed = true
	c.evMu.Unlock()

	done := make(chan struct{})
	go func() {
		c.evWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string) {}

type nopNavigator struct{}

func (nopNavigator) Navigate(context.Context, string) {}
