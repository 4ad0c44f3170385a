package adapters

import (
	"context"

	"storefront/internal/orders/domain"
	"storefront/internal/orders/ports"
	"storefront/pkg/events"
	"storefront/pkg/logger"
	"storefront/pkg/rabbitmq"
)

// RabbitMQNotifier implements Notifier by publishing order events. The
// transactional email service consumes them; delivery itself is outside
// this service.
type RabbitMQNotifier struct {
	publisher *rabbitmq.Publisher
	log       *logger.Logger
}

var _ ports.Notifier = (*RabbitMQNotifier)(nil)

// NewRabbitMQNotifier creates a new RabbitMQ-backed notifier
func NewRabbitMQNotifier(publisher *rabbitmq.Publisher, log *logger.Logger) *RabbitMQNotifier {
	return &RabbitMQNotifier{
		publisher: publisher,
		log:       log,
	}
}

// OrderConfirmed publishes an order confirmed event
func (n *RabbitMQNotifier) OrderConfirmed(ctx context.Context, order *domain.Order) error {
	traceID := logger.GetTraceID(ctx)

	var paidAt = order.UpdatedAt
	if order.PaidAt != nil {
		paidAt = *order.PaidAt
	}

	event := events.NewOrderConfirmedEvent(
		order.Reference,
		order.Email,
		order.TotalAmount,
		order.Currency,
		paidAt,
		traceID,
	)

	return n.publisher.Publish(ctx, events.RoutingKeyOrderConfirmed, event)
}

// OrderPaymentFailed publishes a payment failed event
func (n *RabbitMQNotifier) OrderPaymentFailed(ctx context.Context, order *domain.Order, reason string) error {
	traceID := logger.GetTraceID(ctx)

	event := events.NewOrderPaymentFailedEvent(order.Reference, order.Email, reason, traceID)

	return n.publisher.Publish(ctx, events.RoutingKeyOrderPaymentFailed, event)
}
