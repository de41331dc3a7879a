package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Sugu/internal/apitest"
	"github.com/NordCoder/Sugu/internal/domain/event"
	domainsession "github.com/NordCoder/Sugu/internal/domain/session"
	"github.com/NordCoder/Sugu/internal/repository/memory"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "correct-horse"
)

type recorder struct {
	mu     sync.Mutex
	notes  []string
	navs   []string
	events []event.Event
}

func (r *recorder) Notify(_ context.Context, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, msg)
}

func (r *recorder) Navigate(_ context.Context, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.navs = append(r.navs, target)
}

func (r *recorder) Publish(_ context.Context, ev event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) counts() (notes, navs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notes), len(r.navs)
}

func (r *recorder) kinds() []event.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Kind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

type testEnv struct {
	srv   *apitest.Server
	c     *Client
	store domainsession.Store
	rec   *recorder
	user  *apitest.User
}

type envOption func(*Config, *apitest.Config, *Deps)

func withStore(s domainsession.Store) envOption {
	return func(_ *Config, _ *apitest.Config, d *Deps) { d.Store = s }
}

func newEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	cfg := Config{LoginCooldown: -1}
	apiCfg := apitest.Config{}
	rec := &recorder{}
	deps := Deps{Store: memory.NewStore(), Notifier: rec, Navigator: rec, Events: rec, Log: zap.NewNop()}
	for _, o := range opts {
		o(&cfg, &apiCfg, &deps)
	}

	srv := apitest.New(apiCfg)
	t.Cleanup(srv.Close)
	if cfg.BaseURL == "" {
		cfg.BaseURL = srv.BaseURL()
	}

	c, err := New(cfg, deps)
	require.NoError(t, err)
	usr := srv.UC.AddUser(testEmail, testPassword, "Alice Martin", true)
	return &testEnv{srv: srv, c: c, store: deps.Store, rec: rec, user: usr}
}

func (e *testEnv) login(t *testing.T) *domainsession.User {
	t.Helper()
	u, err := e.c.Login(context.Background(), Credentials{Email: testEmail, Password: testPassword})
	require.NoError(t, err)
	return u
}

// setAccess stores an access token for the test user expiring after ttl.
func (e *testEnv) setAccess(t *testing.T, ttl time.Duration) string {
	t.Helper()
	tok, err := e.srv.UC.IssueAccess(e.user.ID, ttl)
	require.NoError(t, err)
	require.NoError(t, e.store.Set(context.Background(), domainsession.KeyAccessToken, tok))
	return tok
}

func (e *testEnv) value(t *testing.T, key string) (string, bool) {
	t.Helper()
	v, ok, err := e.store.Get(context.Background(), key)
	require.NoError(t, err)
	return v, ok
}

func (e *testEnv) requireCleared(t *testing.T) {
	t.Helper()
	for _, k := range domainsession.Keys {
		_, ok := e.value(t, k)
		require.False(t, ok, "key %s survived the clear", k)
	}
}

// drainEvents waits for queued events to reach the recorder.
func (e *testEnv) drainEvents(t *testing.T) []event.Kind {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.c.Close(ctx))
	return e.rec.kinds()
}

type echoBody struct {
	UserID    int64  `json:"user_id"`
	Method    string `json:"method"`
	Body      string `json:"body"`
	RequestID string `json:"request_id"`
	Auth      string `json:"auth"`
}

func (e *testEnv) do(ctx context.Context, method, path, body string) (*http.Response, error) {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, e.srv.BaseURL()+path, rd)
	if err != nil {
		return nil, err
	}
	return e.c.HTTPClient().Do(req)
}

func decodeEcho(t *testing.T, resp *http.Response) echoBody {
	t.Helper()
	defer resp.Body.Close()
	var out echoBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
