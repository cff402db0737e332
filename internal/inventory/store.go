package inventory

import "context"

// Store owns stock levels and per-order reservations. ReserveAll is
// all-or-nothing: it either decrements stock for every requested SKU and
// records the reservation, or changes nothing and reports the shortages.
// ReleaseAll restores stock for every live reservation of the order.
type Store interface {
	ListItems(ctx context.Context) ([]Item, error)
	GetItem(ctx context.Context, sku string) (*Item, error)
	CreateItem(ctx context.Context, it *Item) error
	UpdateItem(ctx context.Context, sku string, patch ItemPatch) (*Item, error)
	DeleteItem(ctx context.Context, sku string) error

	ReserveAll(ctx context.Context, orderID string, items []ReserveItem) (ok bool, shortages []Shortage, err error)
	ReleaseAll(ctx context.Context, orderID string) error
}
