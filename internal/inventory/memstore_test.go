package inventory

import (
	"context"
	"errors"
	"testing"
)

func seedStore(t *testing.T) *MemStore {
	t.Helper()
	s := NewMemStore()
	ctx := context.Background()
	for _, it := range []Item{
		{SKU: "widget", Name: "Widget", Stock: 10, PriceCents: 500},
		{SKU: "gadget", Name: "Gadget", Stock: 3, PriceCents: 1500},
	} {
		item := it
		if err := s.CreateItem(ctx, &item); err != nil {
			t.Fatalf("seed %s: %v", it.SKU, err)
		}
	}
	return s
}

func stockOf(t *testing.T, s Store, sku string) int {
	t.Helper()
	it, err := s.GetItem(context.Background(), sku)
	if err != nil {
		t.Fatalf("get %s: %v", sku, err)
	}
	return it.Stock
}

func TestReserveAllDecrementsStock(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	ok, shortages, err := s.ReserveAll(ctx, "o1", []ReserveItem{
		{SKU: "widget", Qty: 4},
		{SKU: "gadget", Qty: 2},
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if !ok || shortages != nil {
		t.Fatalf("ok=%v shortages=%+v, want clean reservation", ok, shortages)
	}
	if got := stockOf(t, s, "widget"); got != 6 {
		t.Errorf("widget stock = %d, want 6", got)
	}
	if got := stockOf(t, s, "gadget"); got != 1 {
		t.Errorf("gadget stock = %d, want 1", got)
	}
}

func TestReserveAllIsAllOrNothing(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	ok, shortages, err := s.ReserveAll(ctx, "o1", []ReserveItem{
		{SKU: "widget", Qty: 4},
		{SKU: "gadget", Qty: 5}, // only 3 in stock
		{SKU: "ghost", Qty: 1},  // unknown sku
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if ok {
		t.Fatal("reservation succeeded despite shortage")
	}
	if len(shortages) != 2 {
		t.Fatalf("shortages = %+v, want gadget and ghost", shortages)
	}
	// Nothing was consumed, including the SKU that had stock.
	if got := stockOf(t, s, "widget"); got != 10 {
		t.Errorf("widget stock = %d, want 10", got)
	}
	for _, sh := range shortages {
		switch sh.SKU {
		case "gadget":
			if sh.Required != 5 || sh.Available != 3 {
				t.Errorf("gadget shortage = %+v", sh)
			}
		case "ghost":
			if sh.Available != 0 {
				t.Errorf("ghost shortage = %+v", sh)
			}
		default:
			t.Errorf("unexpected shortage %+v", sh)
		}
	}
}

func TestReserveAllIdempotentPerOrder(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()
	req := []ReserveItem{{SKU: "widget", Qty: 4}}

	for i := 0; i < 3; i++ {
		ok, _, err := s.ReserveAll(ctx, "o1", req)
		if err != nil || !ok {
			t.Fatalf("reserve #%d: ok=%v err=%v", i, ok, err)
		}
	}
	if got := stockOf(t, s, "widget"); got != 6 {
		t.Errorf("widget stock = %d, want 6 (retries must not double-consume)", got)
	}
}

func TestReleaseAllRestoresStock(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	if ok, _, err := s.ReserveAll(ctx, "o1", []ReserveItem{{SKU: "widget", Qty: 4}}); err != nil || !ok {
		t.Fatalf("reserve: ok=%v err=%v", ok, err)
	}
	if err := s.ReleaseAll(ctx, "o1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := stockOf(t, s, "widget"); got != 10 {
		t.Errorf("widget stock = %d, want 10", got)
	}

	// Releasing again restores nothing further.
	if err := s.ReleaseAll(ctx, "o1"); err != nil {
		t.Fatalf("second release: %v", err)
	}
	if got := stockOf(t, s, "widget"); got != 10 {
		t.Errorf("widget stock = %d after double release, want 10", got)
	}
}

func TestReleaseAllUnknownOrderIsNoop(t *testing.T) {
	s := seedStore(t)
	if err := s.ReleaseAll(context.Background(), "nope"); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestItemCRUD(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	dup := Item{SKU: "widget", Name: "Widget again", Stock: 1}
	if err := s.CreateItem(ctx, &dup); !errors.Is(err, ErrSKUExists) {
		t.Errorf("duplicate create: err = %v, want ErrSKUExists", err)
	}

	stock := 20
	it, err := s.UpdateItem(ctx, "widget", ItemPatch{Stock: &stock})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if it.Stock != 20 {
		t.Errorf("stock = %d, want 20", it.Stock)
	}

	if _, err := s.UpdateItem(ctx, "ghost", ItemPatch{}); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("update unknown: err = %v, want ErrItemNotFound", err)
	}

	if err := s.DeleteItem(ctx, "gadget"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetItem(ctx, "gadget"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("get deleted: err = %v, want ErrItemNotFound", err)
	}

	items, err := s.ListItems(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].SKU != "widget" {
		t.Errorf("items = %+v, want just widget", items)
	}
}
