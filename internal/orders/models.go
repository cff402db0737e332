package orders

import (
	"encoding/json"
	"time"
)

// Item is one order line. SKUs are unique within an order; the slice keeps
// insertion order but the order carries no meaning.
type Item struct {
	SKU            string `json:"sku"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// Order identifiers are caller-supplied (e.g. "A100") and immutable once
// created. Timestamps and Version are owned by the store.
type Order struct {
	ID         string    `json:"id"`
	UserID     int       `json:"user_id"`
	Items      []Item    `json:"items"`
	TotalCents int64     `json:"total_cents"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Version    int64     `json:"-"`
}

// Sum returns the item total in cents.
func Sum(items []Item) int64 {
	var total int64
	for _, it := range items {
		total += int64(it.Qty) * it.UnitPriceCents
	}
	return total
}

type EventType string

const (
	EventCreated       EventType = "created"
	EventStatusChanged EventType = "status_changed"
	EventUpdated       EventType = "updated"
	EventDeleted       EventType = "deleted"
)

// Event is one entry in the per-order audit log. Events are immutable;
// OldValue/NewValue are opaque snapshots whose shape depends on Type.
type Event struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	Type        EventType       `json:"event_type"`
	ActorUserID int             `json:"actor_user_id"`
	OldValue    json.RawMessage `json:"old_value,omitempty"`
	NewValue    json.RawMessage `json:"new_value,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	Seq         int64           `json:"-"`
}

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID int    `json:"user_id"`
	Role   string `json:"role"`
}

const RoleAdmin = "admin"

func (p Principal) Admin() bool { return p.Role == RoleAdmin }

// Analytics is a read-only aggregation over the store.
type Analytics struct {
	TotalOrders       int            `json:"total_orders"`
	TotalRevenueCents int64          `json:"total_revenue_cents"`
	StatusBreakdown   map[Status]int `json:"status_breakdown"`
	RecentOrders      []Order        `json:"recent_orders"`
}

func snapshot(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`null`)
	}
	return b
}
