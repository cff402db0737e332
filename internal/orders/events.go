package orders

import (
	"encoding/json"
	"time"
)

// Dot-qualified names carried by notifications and the event feed.
const (
	NotifyOrderCreated       = "order.created"
	NotifyOrderStatusChanged = "order.status_changed"
	NotifyOrderUpdated       = "order.updated"
	NotifyOrderDeleted       = "order.deleted"
)

// TopicOrderEvents is the Kafka feed topic for outbound order events.
const TopicOrderEvents = "storefront.orders.events"

// Envelope wraps an order event for the feed.
type Envelope struct {
	EventID       string          `json:"event_id"`
	Event         string          `json:"event"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id"`
	Payload       json.RawMessage `json:"payload"`
}

// PartitionKey keeps all events of one order on one partition so consumers
// see them in order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
