package application

import (
	"context"
	"time"

	"storefront/internal/gateway"
	"storefront/internal/orders/domain"
	"storefront/internal/orders/ports"
	"storefront/pkg/errors"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
// UpdateByReference applies fn to a copy and only commits on success, the
// same abort-on-error contract the real repository has.
type MockOrderRepository struct {
	orders      map[string]*domain.Order
	createFn    func(ctx context.Context, order *domain.Order) error
	getFn       func(ctx context.Context, reference string) (*domain.Order, error)
	listStaleFn func(ctx context.Context, cutoff time.Time) ([]*domain.Order, error)
	updates     int
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{orders: make(map[string]*domain.Order)}
}

func cloneOrder(order *domain.Order) *domain.Order {
	clone := *order
	clone.Items = append([]domain.OrderLineItem(nil), order.Items...)
	if order.PaidAt != nil {
		paidAt := *order.PaidAt
		clone.PaidAt = &paidAt
	}
	if order.ShippedAt != nil {
		shippedAt := *order.ShippedAt
		clone.ShippedAt = &shippedAt
	}
	return &clone
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if m.createFn != nil {
		return m.createFn(ctx, order)
	}
	if _, exists := m.orders[order.Reference]; exists {
		return errors.NewConflict("order with this reference already exists")
	}
	m.orders[order.Reference] = cloneOrder(order)
	return nil
}

func (m *MockOrderRepository) GetByReference(ctx context.Context, reference string) (*domain.Order, error) {
	if m.getFn != nil {
		return m.getFn(ctx, reference)
	}
	order, ok := m.orders[reference]
	if !ok {
		return nil, domain.NewOrderNotFound(reference)
	}
	return cloneOrder(order), nil
}

func (m *MockOrderRepository) UpdateByReference(ctx context.Context, reference string, fn func(*domain.Order) error) (*domain.Order, error) {
	order, ok := m.orders[reference]
	if !ok {
		return nil, domain.NewOrderNotFound(reference)
	}

	next := cloneOrder(order)
	if err := fn(next); err != nil {
		return nil, err
	}

	m.orders[reference] = next
	m.updates++
	return cloneOrder(next), nil
}

func (m *MockOrderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	var result []*domain.Order
	for _, order := range m.orders {
		if order.Status == status {
			result = append(result, cloneOrder(order))
		}
	}
	return result, nil
}

func (m *MockOrderRepository) ListStaleUnpaid(ctx context.Context, cutoff time.Time) ([]*domain.Order, error) {
	if m.listStaleFn != nil {
		return m.listStaleFn(ctx, cutoff)
	}
	var result []*domain.Order
	for _, order := range m.orders {
		unpaid := order.Status == domain.StatusPending || order.Status == domain.StatusPaymentPending
		if unpaid && order.CreatedAt.Before(cutoff) {
			result = append(result, cloneOrder(order))
		}
	}
	return result, nil
}

// MockPaymentGateway is a programmable gateway fake. Every call is counted
// so tests can assert that preconditions fire before any mutating call.
type MockPaymentGateway struct {
	createSessionErr  error
	sessionStatus     *gateway.SessionStatus
	sessionStatusErr  error
	paymentDetails    *gateway.PaymentDetails
	paymentDetailsErr error
	captureFn         func(reference string) (*gateway.PaymentDetails, error)
	refundState       gateway.PaymentState

	lastSessionRequest gateway.CreateSessionRequest

	createCalls  int
	statusCalls  int
	detailCalls  int
	captureCalls int
	cancelCalls  int
	refundCalls  int
}

func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{refundState: gateway.PaymentRefunded}
}

func (m *MockPaymentGateway) CreateSession(ctx context.Context, request gateway.CreateSessionRequest) (*gateway.Session, error) {
	m.createCalls++
	m.lastSessionRequest = request
	if m.createSessionErr != nil {
		return nil, m.createSessionErr
	}
	return &gateway.Session{Token: "session-token", FrontendURL: "https://checkout.example/session-token"}, nil
}

func (m *MockPaymentGateway) GetSessionStatus(ctx context.Context, reference string) (*gateway.SessionStatus, error) {
	m.statusCalls++
	if m.sessionStatusErr != nil {
		return nil, m.sessionStatusErr
	}
	return m.sessionStatus, nil
}

func (m *MockPaymentGateway) GetPaymentDetails(ctx context.Context, reference string) (*gateway.PaymentDetails, error) {
	m.detailCalls++
	if m.paymentDetailsErr != nil {
		return nil, m.paymentDetailsErr
	}
	return m.paymentDetails, nil
}

func (m *MockPaymentGateway) Capture(ctx context.Context, reference string, amount int64) (*gateway.PaymentDetails, error) {
	m.captureCalls++
	if m.captureFn != nil {
		return m.captureFn(reference)
	}
	return &gateway.PaymentDetails{State: gateway.PaymentCaptured, Amount: amount, CapturedAmount: amount}, nil
}

func (m *MockPaymentGateway) Cancel(ctx context.Context, reference, reason string) (*gateway.PaymentDetails, error) {
	m.cancelCalls++
	return &gateway.PaymentDetails{State: gateway.PaymentCancelled}, nil
}

func (m *MockPaymentGateway) Refund(ctx context.Context, reference string, amount int64) (*gateway.PaymentDetails, error) {
	m.refundCalls++
	return &gateway.PaymentDetails{State: m.refundState, RefundedAmount: amount}, nil
}

// MockCatalog serves trusted prices from a fixed product map
type MockCatalog struct {
	products map[string]*ports.ProductInfo
}

func NewMockCatalog(products ...*ports.ProductInfo) *MockCatalog {
	m := &MockCatalog{products: make(map[string]*ports.ProductInfo)}
	for _, p := range products {
		m.products[p.ProductID] = p
	}
	return m
}

func (m *MockCatalog) GetProduct(ctx context.Context, productID, size string) (*ports.ProductInfo, error) {
	product, ok := m.products[productID]
	if !ok {
		return nil, errors.NewNotFound("product", productID)
	}
	info := *product
	info.Size = size
	return &info, nil
}

// MockNotifier records dispatched notifications
type MockNotifier struct {
	confirmed []string
	failed    []string
	err       error
}

func (m *MockNotifier) OrderConfirmed(ctx context.Context, order *domain.Order) error {
	if m.err != nil {
		return m.err
	}
	m.confirmed = append(m.confirmed, order.Reference)
	return nil
}

func (m *MockNotifier) OrderPaymentFailed(ctx context.Context, order *domain.Order, reason string) error {
	if m.err != nil {
		return m.err
	}
	m.failed = append(m.failed, order.Reference)
	return nil
}
