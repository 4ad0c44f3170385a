package ports

import (
	"context"
	"time"

	"storefront/internal/gateway"
	"storefront/internal/orders/domain"
)

// OrderRepository defines the interface for order persistence. It is the
// only path to order rows; no component mutates them directly.
type OrderRepository interface {
	// Create persists a new order. A duplicate reference is a conflict,
	// never a second row.
	Create(ctx context.Context, order *domain.Order) error

	// GetByReference retrieves an order by its reference
	GetByReference(ctx context.Context, reference string) (*domain.Order, error)

	// UpdateByReference loads the order, applies fn, and writes the result,
	// serialized per reference so concurrent mutations of the same order
	// cannot interleave. An error from fn aborts the write.
	UpdateByReference(ctx context.Context, reference string, fn func(*domain.Order) error) (*domain.Order, error)

	// ListByStatus retrieves all orders currently in status
	ListByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error)

	// ListStaleUnpaid retrieves orders in PENDING or PAYMENT_PENDING
	// created before the cutoff
	ListStaleUnpaid(ctx context.Context, cutoff time.Time) ([]*domain.Order, error)
}

// PaymentGateway defines the calls consumed from the external payment
// gateway (see the gateway package for the wire types)
type PaymentGateway interface {
	CreateSession(ctx context.Context, request gateway.CreateSessionRequest) (*gateway.Session, error)
	GetSessionStatus(ctx context.Context, reference string) (*gateway.SessionStatus, error)
	GetPaymentDetails(ctx context.Context, reference string) (*gateway.PaymentDetails, error)
	Capture(ctx context.Context, reference string, amount int64) (*gateway.PaymentDetails, error)
	Cancel(ctx context.Context, reference, reason string) (*gateway.PaymentDetails, error)
	Refund(ctx context.Context, reference string, amount int64) (*gateway.PaymentDetails, error)
}

// Notifier dispatches customer-facing notifications. The webhook processor
// hands messages off and never blocks its acknowledgment on them.
type Notifier interface {
	OrderConfirmed(ctx context.Context, order *domain.Order) error
	OrderPaymentFailed(ctx context.Context, order *domain.Order, reason string) error
}

// ProductInfo is the trusted catalog snapshot for one product/size
type ProductInfo struct {
	ProductID string
	Name      string
	Image     string
	Size      string
	Price     int64
	Tax       int64
}

// Catalog looks up trusted product prices. The catalog service itself is an
// external collaborator.
type Catalog interface {
	GetProduct(ctx context.Context, productID, size string) (*ProductInfo, error)
}
