package inventory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*httptest.Server, *MemStore) {
	t.Helper()
	store := seedStore(t)
	r := chi.NewRouter()
	h := &Handler{Store: store, Log: zap.NewNop()}
	h.Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

func TestReserveEndpoint(t *testing.T) {
	srv, store := newTestServer(t)

	resp, err := http.Post(srv.URL+"/reserve", "application/json",
		strings.NewReader(`{"order_id":"o1","items":[{"sku":"widget","qty":4}]}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := stockOf(t, store, "widget"); got != 6 {
		t.Errorf("widget stock = %d, want 6", got)
	}
}

func TestReserveEndpointShortage(t *testing.T) {
	srv, store := newTestServer(t)

	resp, err := http.Post(srv.URL+"/reserve", "application/json",
		strings.NewReader(`{"order_id":"o1","items":[{"sku":"gadget","qty":99}]}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}

	var body struct {
		Shortages []Shortage `json:"shortages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Shortages) != 1 || body.Shortages[0].SKU != "gadget" || body.Shortages[0].Available != 3 {
		t.Errorf("shortages = %+v", body.Shortages)
	}
	if got := stockOf(t, store, "gadget"); got != 3 {
		t.Errorf("gadget stock = %d, want untouched 3", got)
	}
}

func TestReleaseEndpoint(t *testing.T) {
	srv, store := newTestServer(t)

	resp, err := http.Post(srv.URL+"/reserve", "application/json",
		strings.NewReader(`{"order_id":"o1","items":[{"sku":"widget","qty":4}]}`))
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Post(srv.URL+"/release", "application/json",
		strings.NewReader(`{"order_id":"o1"}`))
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := stockOf(t, store, "widget"); got != 10 {
		t.Errorf("widget stock = %d, want 10", got)
	}
}

func TestReserveEndpointRejectsBadPayload(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, body := range []string{
		`not json`,
		`{"order_id":"","items":[{"sku":"widget","qty":1}]}`,
		`{"order_id":"o1","items":[]}`,
		`{"order_id":"o1","items":[{"sku":"widget","qty":0}]}`,
	} {
		resp, err := http.Post(srv.URL+"/reserve", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestItemEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/items", "application/json",
		strings.NewReader(`{"sku":"doodad","name":"Doodad","stock":7,"price_cents":250}`))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/items/doodad")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var it Item
	if err := json.NewDecoder(resp.Body).Decode(&it); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if it.Stock != 7 || it.PriceCents != 250 {
		t.Errorf("item = %+v", it)
	}

	resp, err = http.Get(srv.URL + "/items/ghost")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing item status = %d, want 404", resp.StatusCode)
	}
}
