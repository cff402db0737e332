package inventory

import (
	"context"
	"sync"
	"time"
)

type reservation struct {
	sku    string
	qty    int
	status string
}

// MemStore is an in-memory Store for tests and local runs without Postgres.
type MemStore struct {
	mu           sync.Mutex
	nextID       int64
	items        map[string]*Item
	reservations map[string][]reservation
}

func NewMemStore() *MemStore {
	return &MemStore{
		items:        make(map[string]*Item),
		reservations: make(map[string][]reservation),
	}
}

func (m *MemStore) ListItems(ctx context.Context) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, *it)
	}
	sortItems(out)
	return out, nil
}

func sortItems(items []Item) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].SKU < items[j-1].SKU; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

func (m *MemStore) GetItem(ctx context.Context, sku string) (*Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[sku]
	if !ok {
		return nil, ErrItemNotFound
	}
	cp := *it
	return &cp, nil
}

func (m *MemStore) CreateItem(ctx context.Context, it *Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[it.SKU]; ok {
		return ErrSKUExists
	}
	m.nextID++
	it.ID = m.nextID
	now := time.Now().UTC()
	it.CreatedAt = now
	it.UpdatedAt = now
	cp := *it
	m.items[it.SKU] = &cp
	return nil
}

func (m *MemStore) UpdateItem(ctx context.Context, sku string, patch ItemPatch) (*Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[sku]
	if !ok {
		return nil, ErrItemNotFound
	}
	if patch.Name != nil {
		it.Name = *patch.Name
	}
	if patch.Stock != nil {
		it.Stock = *patch.Stock
	}
	if patch.PriceCents != nil {
		it.PriceCents = *patch.PriceCents
	}
	it.UpdatedAt = time.Now().UTC()
	cp := *it
	return &cp, nil
}

func (m *MemStore) DeleteItem(ctx context.Context, sku string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[sku]; !ok {
		return ErrItemNotFound
	}
	delete(m.items, sku)
	return nil
}

func (m *MemStore) ReserveAll(ctx context.Context, orderID string, items []ReserveItem) (bool, []Shortage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Retried reservation for an order that already holds stock is a no-op.
	live := 0
	for _, r := range m.reservations[orderID] {
		if r.status == reservationReserved {
			live++
		}
	}
	if live > 0 && live == len(items) {
		return true, nil, nil
	}

	var shortages []Shortage
	for _, req := range items {
		it, ok := m.items[req.SKU]
		if !ok {
			shortages = append(shortages, Shortage{SKU: req.SKU, Required: req.Qty, Available: 0})
			continue
		}
		if it.Stock < req.Qty {
			shortages = append(shortages, Shortage{SKU: req.SKU, Required: req.Qty, Available: it.Stock})
		}
	}
	if len(shortages) > 0 {
		return false, shortages, nil
	}

	now := time.Now().UTC()
	recs := make([]reservation, 0, len(items))
	for _, req := range items {
		it := m.items[req.SKU]
		it.Stock -= req.Qty
		it.UpdatedAt = now
		recs = append(recs, reservation{sku: req.SKU, qty: req.Qty, status: reservationReserved})
	}
	m.reservations[orderID] = recs
	return true, nil, nil
}

func (m *MemStore) ReleaseAll(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	recs := m.reservations[orderID]
	for i, r := range recs {
		if r.status != reservationReserved {
			continue
		}
		if it, ok := m.items[r.sku]; ok {
			it.Stock += r.qty
			it.UpdatedAt = now
		}
		recs[i].status = reservationReleased
	}
	return nil
}
