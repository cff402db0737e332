package orders

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemEventLog is the in-memory EventLog. Seq is a global appender counter,
// used only as the created_at tiebreak.
type MemEventLog struct {
	mu     sync.Mutex
	seq    int64
	events []Event
}

func NewMemEventLog() *MemEventLog {
	return &MemEventLog{}
}

func (l *MemEventLog) Append(ctx context.Context, e *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	e.Seq = l.seq
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	l.events = append(l.events, *e)
	return nil
}

func (l *MemEventLog) List(ctx context.Context, orderID string) ([]Event, error) {
	l.mu.Lock()
	out := make([]Event, 0, 8)
	for _, e := range l.events {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	l.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
