package orders

import "context"

// Store persists orders. Update and Delete run fn while the store holds
// exclusive ownership of the order id, so a read-modify-write (including any
// remote inventory effect fn performs) cannot interleave with another writer
// of the same order. Unrelated orders proceed in parallel.
//
// fn receives a private copy; the store commits it (bumping UpdatedAt and
// Version) only when fn returns nil. Delete removes the order after fn
// approves.
type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, offset, limit int) ([]Order, error)
	Update(ctx context.Context, id string, fn func(o *Order) error) (*Order, error)
	Delete(ctx context.Context, id string, fn func(o *Order) error) error
	Analytics(ctx context.Context) (*Analytics, error)
}

// EventLog is the append-only audit record of order mutations. Append is the
// only write. List returns events for one order ordered by created_at
// ascending, ties broken by insertion order; replayed in order they
// reconstruct every status the order held.
type EventLog interface {
	Append(ctx context.Context, e *Event) error
	List(ctx context.Context, orderID string) ([]Event, error)
}
