package identity

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storefront/internal/orders"
	"storefront/internal/users"
)

func newUsersServer(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	h := &users.Handler{Store: users.NewStore(), Log: zap.NewNop()}
	h.Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestAuthorizeRoundTrip(t *testing.T) {
	srv := newUsersServer(t)
	c := NewClient(srv.URL, 2*time.Second)
	ctx := context.Background()

	p, err := c.Authorize(ctx, "token-ada")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if p.UserID != 1 || !p.Admin() {
		t.Errorf("principal = %+v, want admin user 1", p)
	}

	p, err = c.Authorize(ctx, "token-linus")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if p.UserID != 2 || p.Admin() {
		t.Errorf("principal = %+v, want plain user 2", p)
	}

	if _, err := c.Authorize(ctx, "wrong"); !errors.Is(err, orders.ErrUnauthorized) {
		t.Errorf("bad token: err = %v, want ErrUnauthorized", err)
	}
}

func TestUserExists(t *testing.T) {
	srv := newUsersServer(t)
	c := NewClient(srv.URL, 2*time.Second)
	ctx := context.Background()

	ok, err := c.UserExists(ctx, 2)
	if err != nil || !ok {
		t.Fatalf("known user: ok=%v err=%v", ok, err)
	}
	ok, err = c.UserExists(ctx, 99)
	if err != nil || ok {
		t.Fatalf("unknown user: ok=%v err=%v", ok, err)
	}
}

func TestAuthorizeTimeout(t *testing.T) {
	srv := newUsersServer(t)
	c := NewClient(srv.URL, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	if _, err := c.Authorize(ctx, "token-ada"); !errors.Is(err, orders.ErrUpstreamTimeout) {
		t.Errorf("err = %v, want ErrUpstreamTimeout", err)
	}
}
