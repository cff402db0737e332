package users

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	h := &Handler{Store: NewStore(), Log: zap.NewNop()}
	h.Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestAuthorize(t *testing.T) {
	srv := newServer(t)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/authorize", nil)
	req.Header.Set("Authorization", "Bearer token-ada")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		UserID int    `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.UserID != 1 || body.Role != RoleAdmin {
		t.Errorf("body = %+v, want admin user 1", body)
	}
}

func TestAuthorizeRejects(t *testing.T) {
	srv := newServer(t)

	for _, header := range []string{"", "Bearer nope"} {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/authorize", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("do: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, resp.StatusCode)
		}
	}
}

func TestGetUser(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/users/2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var u User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if u.Name != "Linus" || u.Role != RoleUser {
		t.Errorf("user = %+v", u)
	}

	resp, err = http.Get(srv.URL + "/users/99")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
