package events

import "time"

// Exchange names
const (
	ExchangeOrders = "storefront.orders.events"
)

// Routing keys
const (
	RoutingKeyOrderConfirmed     = "order.confirmed"
	RoutingKeyOrderPaymentFailed = "order.payment_failed"
)

// OrderConfirmedEvent is published exactly once when an order's payment is
// confirmed. The transactional email service consumes it to send the order
// confirmation.
type OrderConfirmedEvent struct {
	Version   string                `json:"version"`
	EventType string                `json:"event_type"`
	Timestamp time.Time             `json:"timestamp"`
	TraceID   string                `json:"trace_id"`
	Payload   OrderConfirmedPayload `json:"payload"`
}

// OrderConfirmedPayload contains the confirmed order data
type OrderConfirmedPayload struct {
	Reference   string    `json:"reference"`
	Email       string    `json:"email"`
	TotalAmount int64     `json:"total_amount"`
	Currency    string    `json:"currency"`
	PaidAt      time.Time `json:"paid_at"`
}

// NewOrderConfirmedEvent creates a new OrderConfirmedEvent
func NewOrderConfirmedEvent(reference, email string, totalAmount int64, currency string, paidAt time.Time, traceID string) *OrderConfirmedEvent {
	return &OrderConfirmedEvent{
		Version:   "1.0",
		EventType: RoutingKeyOrderConfirmed,
		Timestamp: time.Now(),
		TraceID:   traceID,
		Payload: OrderConfirmedPayload{
			Reference:   reference,
			Email:       email,
			TotalAmount: totalAmount,
			Currency:    currency,
			PaidAt:      paidAt,
		},
	}
}

// OrderPaymentFailedEvent is published when a payment is terminated or
// cancelled before completion
type OrderPaymentFailedEvent struct {
	Version   string                    `json:"version"`
	EventType string                    `json:"event_type"`
	Timestamp time.Time                 `json:"timestamp"`
	TraceID   string                    `json:"trace_id"`
	Payload   OrderPaymentFailedPayload `json:"payload"`
}

// OrderPaymentFailedPayload contains the failed order data
type OrderPaymentFailedPayload struct {
	Reference string `json:"reference"`
	Email     string `json:"email"`
	Reason    string `json:"reason"`
}

// NewOrderPaymentFailedEvent creates a new OrderPaymentFailedEvent
func NewOrderPaymentFailedEvent(reference, email, reason, traceID string) *OrderPaymentFailedEvent {
	return &OrderPaymentFailedEvent{
		Version:   "1.0",
		EventType: RoutingKeyOrderPaymentFailed,
		Timestamp: time.Now(),
		TraceID:   traceID,
		Payload: OrderPaymentFailedPayload{
			Reference: reference,
			Email:     email,
			Reason:    reason,
		},
	}
}
