package redisx

import "time"

const (
	// Order snapshot cache: order:{order_id} -> order JSON
	KeyOrder = "order:%s"

	// Analytics cache: single aggregate document
	KeyAnalytics = "analytics:orders"
)

var (
	TTLOrderCache     = 5 * time.Minute
	TTLAnalyticsCache = 30 * time.Second
)
