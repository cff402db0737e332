package orders

import (
	"errors"
	"strconv"
	"testing"
)

func item(sku string, qty int, price int64) Item {
	return Item{SKU: sku, Qty: qty, UnitPriceCents: price}
}

func TestValidateItems(t *testing.T) {
	many := make([]Item, MaxOrderItems+1)
	for i := range many {
		many[i] = item("sku-"+strconv.Itoa(i), 1, 100)
	}

	cases := []struct {
		name  string
		items []Item
		total int64
		ok    bool
	}{
		{"valid", []Item{item("a", 2, 500), item("b", 1, 100)}, 1100, true},
		{"empty", nil, 0, false},
		{"duplicate sku", []Item{item("a", 1, 100), item("a", 1, 100)}, 200, false},
		{"empty sku", []Item{item("", 1, 100)}, 100, false},
		{"zero qty", []Item{item("a", 0, 100)}, 0, false},
		{"qty over max", []Item{item("a", MaxItemQty + 1, 100)}, int64(MaxItemQty+1) * 100, false},
		{"qty at max", []Item{item("a", MaxItemQty, 100)}, int64(MaxItemQty) * 100, true},
		{"negative price", []Item{item("a", 1, -1)}, -1, false},
		{"free item", []Item{item("a", 1, 0)}, 0, true},
		{"price over max", []Item{item("a", 1, MaxUnitPriceCents + 1)}, MaxUnitPriceCents + 1, false},
		{"total mismatch", []Item{item("a", 2, 500)}, 999, false},
		{"too many items", many, int64(len(many)) * 100, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := ValidateItems(c.items, c.total)
			if c.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !c.ok {
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("err = %v, want ValidationError", err)
				}
			}
		})
	}
}

func TestValidateCreate(t *testing.T) {
	base := CreateOrder{
		ID:         "o1",
		UserID:     1,
		Items:      []Item{item("a", 1, 100)},
		TotalCents: 100,
	}

	if err := ValidateCreate(base); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}

	noID := base
	noID.ID = ""
	if err := ValidateCreate(noID); err == nil {
		t.Error("missing id accepted")
	}

	noUser := base
	noUser.UserID = 0
	if err := ValidateCreate(noUser); err == nil {
		t.Error("missing user accepted")
	}

	badStatus := base
	badStatus.Status = "refunded"
	if err := ValidateCreate(badStatus); err == nil {
		t.Error("unknown status accepted")
	}

	explicit := base
	explicit.Status = StatusProcessing
	if err := ValidateCreate(explicit); err != nil {
		t.Errorf("explicit valid status rejected: %v", err)
	}
}
