// Package notify dispatches order events to external subscribers. Delivery
// is fire-and-forget: the orchestrator's response never waits on it, and
// failed deliveries are logged and dropped. There is no retry queue and no
// durability guarantee; the Kafka feed is the durable counterpart.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"storefront/internal/orders"
)

// Feed is the optional Kafka side of dispatch, satisfied by kafka.Producer.
type Feed interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type job struct {
	Event     string
	OrderID   string
	Data      any
	Timestamp time.Time
}

type payload struct {
	Event     string    `json:"event"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

type Notifier struct {
	logger      *zap.Logger
	client      *http.Client
	subscribers []string
	feed        Feed
	producer    string
	jobs        chan job
	closeOnce   sync.Once
	closeCh     chan struct{}
}

// New builds a notifier for the given subscriber URLs. The client timeout
// bounds each delivery so a slow subscriber cannot pin the worker.
func New(logger *zap.Logger, subscribers []string, feed Feed, producer string, buf int) *Notifier {
	if buf <= 0 {
		buf = 256
	}
	return &Notifier{
		logger:      logger,
		client:      &http.Client{Timeout: 3 * time.Second},
		subscribers: subscribers,
		feed:        feed,
		producer:    producer,
		jobs:        make(chan job, buf),
		closeCh:     make(chan struct{}),
	}
}

// Start runs the dispatch worker. Work already scheduled is delivered even
// if the request that scheduled it is long gone; only process shutdown stops
// the worker, after a final drain.
func (n *Notifier) Start(ctx context.Context) {
	go func() {
		defer close(n.closeCh)
		for {
			select {
			case <-ctx.Done():
				n.Close()
				for j := range n.jobs {
					n.dispatch(j)
				}
				return
			case j, ok := <-n.jobs:
				if !ok {
					return
				}
				n.dispatch(j)
			}
		}
	}()
}

// Publish schedules a notification without blocking. A full queue drops the
// event; this path is explicitly best-effort.
func (n *Notifier) Publish(event, orderID string, data any) {
	j := job{Event: event, OrderID: orderID, Data: data, Timestamp: time.Now().UTC()}
	select {
	case n.jobs <- j:
	default:
		n.logger.Warn("notification queue full, event dropped",
			zap.String("event", event), zap.String("order_id", orderID))
	}
}

func (n *Notifier) dispatch(j job) {
	body, err := json.Marshal(payload{Event: j.Event, Data: j.Data, Timestamp: j.Timestamp})
	if err != nil {
		n.logger.Error("notification marshal failed", zap.String("event", j.Event), zap.Error(err))
		return
	}

	if n.feed != nil {
		env := orders.Envelope{
			EventID:       uuid.NewString(),
			Event:         j.Event,
			OccurredAt:    j.Timestamp,
			Producer:      n.producer,
			CorrelationID: j.OrderID,
			Payload:       body,
		}
		if b, err := json.Marshal(env); err == nil {
			n.feed.Publish(orders.PartitionKey(j.OrderID), b,
				kafkago.Header{Key: "x-event", Value: []byte(j.Event)})
		}
	}

	for _, url := range n.subscribers {
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			n.logger.Warn("webhook request build failed", zap.String("url", url), zap.Error(err))
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := n.client.Do(req)
		if err != nil {
			n.logger.Warn("webhook delivery failed",
				zap.String("url", url), zap.String("event", j.Event), zap.Error(err))
			continue
		}
		resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			n.logger.Warn("webhook delivery rejected",
				zap.String("url", url), zap.String("event", j.Event), zap.Int("status", resp.StatusCode))
		}
	}
}

// Close stops accepting new work; Start's goroutine delivers the remainder.
func (n *Notifier) Close() { n.closeOnce.Do(func() { close(n.jobs) }) }

// WaitClosed blocks until the worker exits.
func (n *Notifier) WaitClosed() { <-n.closeCh }
