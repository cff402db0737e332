package stock

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storefront/internal/inventory"
	"storefront/internal/orders"
)

func newInventoryServer(t *testing.T) (*httptest.Server, *inventory.MemStore) {
	t.Helper()
	store := inventory.NewMemStore()
	ctx := context.Background()
	for _, it := range []inventory.Item{
		{SKU: "widget", Name: "Widget", Stock: 10, PriceCents: 500},
		{SKU: "gadget", Name: "Gadget", Stock: 3, PriceCents: 1500},
	} {
		item := it
		if err := store.CreateItem(ctx, &item); err != nil {
			t.Fatalf("seed %s: %v", it.SKU, err)
		}
	}
	r := chi.NewRouter()
	h := &inventory.Handler{Store: store, Log: zap.NewNop()}
	h.Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

func TestReserveReleaseRoundTrip(t *testing.T) {
	srv, store := newInventoryServer(t)
	c := NewClient(srv.URL, 2*time.Second)
	ctx := context.Background()

	items := []orders.Item{
		{SKU: "widget", Qty: 4, UnitPriceCents: 500},
		{SKU: "gadget", Qty: 1, UnitPriceCents: 1500},
	}
	if err := c.Reserve(ctx, "o1", items); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	it, err := store.GetItem(ctx, "widget")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if it.Stock != 6 {
		t.Errorf("widget stock = %d, want 6", it.Stock)
	}

	if err := c.Release(ctx, "o1", items); err != nil {
		t.Fatalf("release: %v", err)
	}
	it, err = store.GetItem(ctx, "widget")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if it.Stock != 10 {
		t.Errorf("widget stock = %d, want 10", it.Stock)
	}
}

func TestReserveInsufficient(t *testing.T) {
	srv, _ := newInventoryServer(t)
	c := NewClient(srv.URL, 2*time.Second)

	err := c.Reserve(context.Background(), "o1", []orders.Item{{SKU: "gadget", Qty: 99}})
	if !errors.Is(err, orders.ErrInsufficientInventory) {
		t.Fatalf("err = %v, want ErrInsufficientInventory", err)
	}
}
