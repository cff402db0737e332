package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"storefront/internal/orders"
)

type recordingFeed struct {
	mu   sync.Mutex
	msgs [][]byte
	keys [][]byte
}

func (f *recordingFeed) Publish(key, value []byte, headers ...kafkago.Header) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	f.msgs = append(f.msgs, value)
}

func TestNotifierDeliversToSubscribers(t *testing.T) {
	var mu sync.Mutex
	var bodies []payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		var p payload
		if err := json.Unmarshal(b, &p); err != nil {
			t.Errorf("bad body: %v", err)
		}
		mu.Lock()
		bodies = append(bodies, p)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	feed := &recordingFeed{}
	n := New(zap.NewNop(), []string{srv.URL}, feed, "orders-test", 16)
	n.Start(context.Background())

	n.Publish(orders.NotifyOrderCreated, "o1", map[string]string{"id": "o1"})
	n.Publish(orders.NotifyOrderStatusChanged, "o1", map[string]string{"status": "cancelled"})

	n.Close()
	n.WaitClosed()

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 2 {
		t.Fatalf("deliveries = %d, want 2", len(bodies))
	}
	if bodies[0].Event != orders.NotifyOrderCreated || bodies[1].Event != orders.NotifyOrderStatusChanged {
		t.Errorf("events = %s,%s", bodies[0].Event, bodies[1].Event)
	}

	feed.mu.Lock()
	defer feed.mu.Unlock()
	if len(feed.msgs) != 2 {
		t.Fatalf("feed messages = %d, want 2", len(feed.msgs))
	}
	if string(feed.keys[0]) != "o1" {
		t.Errorf("partition key = %s, want o1", feed.keys[0])
	}
	var env orders.Envelope
	if err := json.Unmarshal(feed.msgs[0], &env); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	if env.Event != orders.NotifyOrderCreated || env.CorrelationID != "o1" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestNotifierDropsWhenQueueFull(t *testing.T) {
	n := New(zap.NewNop(), nil, nil, "orders-test", 2)
	// Worker not started: the third publish finds the queue full and drops.
	n.Publish("a", "o1", nil)
	n.Publish("b", "o1", nil)
	n.Publish("c", "o1", nil)

	if got := len(n.jobs); got != 2 {
		t.Fatalf("queued = %d, want 2", got)
	}
}

func TestNotifierSurvivesFailingSubscriber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := New(zap.NewNop(), []string{srv.URL, "http://127.0.0.1:1/unreachable"}, nil, "orders-test", 4)
	n.Start(context.Background())
	n.Publish(orders.NotifyOrderDeleted, "o1", nil)
	n.Close()
	n.WaitClosed() // must not hang or panic
}
