package orders

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemStore keeps orders in memory. Per-order serialization is a mutex per
// order id held across the whole Update/Delete closure.
type MemStore struct {
	mu     sync.Mutex
	orders map[string]*Order
	locks  map[string]*sync.Mutex
}

func NewMemStore() *MemStore {
	return &MemStore{
		orders: make(map[string]*Order),
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *MemStore) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func cloneOrder(o *Order) *Order {
	c := *o
	c.Items = append([]Item(nil), o.Items...)
	return &c
}

func (s *MemStore) Create(ctx context.Context, o *Order) error {
	l := s.lockFor(o.ID)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[o.ID]; exists {
		return ErrAlreadyExists
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	o.Version = 1
	s.orders[o.ID] = cloneOrder(o)
	return nil
}

func (s *MemStore) Get(ctx context.Context, id string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneOrder(o), nil
}

func (s *MemStore) List(ctx context.Context, offset, limit int) ([]Order, error) {
	s.mu.Lock()
	all := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		all = append(all, *cloneOrder(o))
	}
	s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if offset >= len(all) {
		return []Order{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *MemStore) Update(ctx context.Context, id string, fn func(o *Order) error) (*Order, error) {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	cur, ok := s.orders[id]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}

	work := cloneOrder(cur)
	if err := fn(work); err != nil {
		return nil, err
	}

	work.UpdatedAt = time.Now().UTC()
	work.Version = cur.Version + 1
	s.mu.Lock()
	s.orders[id] = cloneOrder(work)
	s.mu.Unlock()
	return work, nil
}

func (s *MemStore) Delete(ctx context.Context, id string, fn func(o *Order) error) error {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	cur, ok := s.orders[id]
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	if fn != nil {
		if err := fn(cloneOrder(cur)); err != nil {
			return err
		}
	}
	s.mu.Lock()
	delete(s.orders, id)
	s.mu.Unlock()
	return nil
}

func (s *MemStore) Analytics(ctx context.Context) (*Analytics, error) {
	s.mu.Lock()
	all := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		all = append(all, *cloneOrder(o))
	}
	s.mu.Unlock()

	a := &Analytics{StatusBreakdown: make(map[Status]int)}
	a.TotalOrders = len(all)
	for _, o := range all {
		a.TotalRevenueCents += o.TotalCents
		a.StatusBreakdown[o.Status]++
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if len(all) > 5 {
		all = all[:5]
	}
	a.RecentOrders = all
	return a, nil
}
