package orders

// Structural and business limits on an order payload. All checks run before
// any external call; a failure here means a caller bug.
const (
	MaxOrderItems     = 100
	MaxItemQty        = 10000
	MaxUnitPriceCents = 1000000
)

// ValidateItems checks the item list and the client-supplied total: item
// count in [1,100], unique SKUs, qty in [1,10000], unit price cents in
// [0,1000000], and total exactly equal to the computed sum. Amounts are
// integer cents, so equality is exact.
func ValidateItems(items []Item, totalCents int64) error {
	if len(items) == 0 {
		return invalid("order needs at least one item")
	}
	if len(items) > MaxOrderItems {
		return invalid("too many items: %d (max %d)", len(items), MaxOrderItems)
	}
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.SKU == "" {
			return invalid("item has empty sku")
		}
		if _, dup := seen[it.SKU]; dup {
			return invalid("duplicate sku %q", it.SKU)
		}
		seen[it.SKU] = struct{}{}
		if it.Qty < 1 || it.Qty > MaxItemQty {
			return invalid("sku %q qty %d out of range [1,%d]", it.SKU, it.Qty, MaxItemQty)
		}
		if it.UnitPriceCents < 0 || it.UnitPriceCents > MaxUnitPriceCents {
			return invalid("sku %q unit price %d out of range [0,%d]", it.SKU, it.UnitPriceCents, MaxUnitPriceCents)
		}
	}
	if want := Sum(items); totalCents != want {
		return invalid("total %d does not match item sum %d", totalCents, want)
	}
	return nil
}

// ValidateCreate checks a full create payload.
func ValidateCreate(req CreateOrder) error {
	if req.ID == "" {
		return invalid("missing order id")
	}
	if req.UserID <= 0 {
		return invalid("missing user id")
	}
	if req.Status != "" && !ValidStatus(req.Status) {
		return invalid("unknown status %q", req.Status)
	}
	return ValidateItems(req.Items, req.TotalCents)
}
