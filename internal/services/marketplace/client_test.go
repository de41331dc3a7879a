package marketplace

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Sugu/internal/apitest"
	domainsession "github.com/NordCoder/Sugu/internal/domain/session"
	"github.com/NordCoder/Sugu/internal/repository/memory"
	"github.com/NordCoder/Sugu/internal/session"
)

type fixture struct {
	srv  *apitest.Server
	sess *session.Client
	mp   *Client
	user *apitest.User
}

func setup(t *testing.T) *fixture {
	t.Helper()
	srv := apitest.New(apitest.Config{})
	t.Cleanup(srv.Close)

	sess, err := session.New(session.Config{BaseURL: srv.BaseURL(), LoginCooldown: -1},
		session.Deps{Store: memory.NewStore(), Log: zap.NewNop()})
	require.NoError(t, err)

	usr := srv.UC.AddUser("seller@example.com", "long-password", "Sam Seller", true)
	_, err = sess.Login(context.Background(), session.Credentials{Email: "seller@example.com", Password: "long-password"})
	require.NoError(t, err)

	return &fixture{srv: srv, sess: sess, mp: New(srv.BaseURL(), sess.HTTPClient(), zap.NewNop()), user: usr}
}

func TestProfile_GetAndUpdate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.mp.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, p.ID)
	assert.Equal(t, "Sam Seller", p.Name)

	loc := "Lyon"
	p, err = f.mp.UpdateProfile(ctx, ProfileUpdate{Location: &loc})
	require.NoError(t, err)
	assert.Equal(t, "Lyon", p.Location)
	assert.Equal(t, "Sam Seller", p.Name)
}

func TestOrders(t *testing.T) {
	f := setup(t)
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	f.srv.AddOrder(f.user.ID, apitest.Order{ID: 9, Status: "paid", TotalPrice: "49.90", CreatedAt: at})

	orders, err := f.mp.Orders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, Order{ID: 9, Status: "paid", TotalPrice: "49.90", CreatedAt: at}, orders[0])
}

func TestDiscussions_AndSendMessage(t *testing.T) {
	f := setup(t)
	f.srv.AddDiscussion(apitest.Discussion{ID: 1, Listing: apitest.Listing{ID: 77, Title: "Oak table"}})
	f.srv.AddMessage(1, apitest.Sender{ID: 500, Name: "Buyer"}, "still available?")

	ds, err := f.mp.Discussions(context.Background())
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, "Oak table", ds[0].Listing.Title)
	require.Len(t, ds[0].Messages, 1)
	assert.Equal(t, "still available?", ds[0].Messages[0].Content)

	m, err := f.mp.SendMessage(context.Background(), 77, "yes it is")
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, m.Sender.ID)

	ds, err = f.mp.Discussions(context.Background())
	require.NoError(t, err)
	assert.Len(t, ds[0].Messages, 2)
}

func TestDecodeDiscussions(t *testing.T) {
	cases := map[string]struct {
		body string
		n    int
	}{
		"list":      {`[{"id":3,"listing":{"id":1,"title":"Bike"},"messages":[]}]`, 1},
		"paginated": {`{"count":2,"next":null,"results":[{"id":3},{"id":4}]}`, 2},
		"null":      {`null`, 0},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := decodeDiscussions([]byte(tc.body))
			require.NoError(t, err)
			assert.Len(t, got, tc.n)
		})
	}

	_, err := decodeDiscussions([]byte(`{"results":"nope"}`))
	assert.Error(t, err)
}

func TestNonAuthErrorsPassThrough(t *testing.T) {
	f := setup(t)

	_, err := f.mp.SendMessage(context.Background(), 404404, "hello")
	var apiErr *domainsession.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, pathSendMessage, apiErr.Path)
	assert.Zero(t, f.srv.RefreshCalls())

	_, err = f.mp.SendMessage(context.Background(), 1, "   ")
	assert.ErrorIs(t, err, domainsession.ErrInvalidInput)
}

func TestRequiresSession(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.sess.Logout(context.Background()))

	_, err := f.mp.Profile(context.Background())
	assert.ErrorIs(t, err, domainsession.ErrUnauthenticated)
}
