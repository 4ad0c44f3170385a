package domain

import (
	"time"
)

// OrderStatus represents the lifecycle status of an order
type OrderStatus string

const (
	StatusPending        OrderStatus = "PENDING"
	StatusPaymentPending OrderStatus = "PAYMENT_PENDING"
	StatusReserved       OrderStatus = "RESERVED"
	StatusPaid           OrderStatus = "PAID"
	StatusShipped        OrderStatus = "SHIPPED"
	StatusDelivered      OrderStatus = "DELIVERED"
	StatusCancelled      OrderStatus = "CANCELLED"
	StatusRefunded       OrderStatus = "REFUNDED"
	StatusTerminated     OrderStatus = "TERMINATED"
)

// AllStatuses lists every order status
var AllStatuses = []OrderStatus{
	StatusPending, StatusPaymentPending, StatusReserved, StatusPaid,
	StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded,
	StatusTerminated,
}

// transitions defines the allowed edges of the order state graph.
// Anything not listed here is rejected.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:        {StatusPaymentPending, StatusPaid, StatusReserved, StatusTerminated, StatusCancelled},
	StatusPaymentPending: {StatusPaid, StatusReserved, StatusTerminated, StatusCancelled},
	StatusReserved:       {StatusPaid, StatusCancelled},
	StatusPaid:           {StatusRefunded, StatusShipped},
	StatusShipped:        {StatusDelivered},
}

// CanTransition reports whether the edge from -> to is on the state graph
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is permitted from status
func (s OrderStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// PlaceholderEmail marks an order created before the gateway reported the
// customer's identity. The webhook processor replaces it once.
const PlaceholderEmail = "unknown@checkout.pending"

// Address is a shipping or billing address snapshot
type Address struct {
	FullName   string
	Street     string
	PostalCode string
	City       string
	Country    string
}

// IsPlaceholder reports whether the address still awaits gateway-provided data
func (a Address) IsPlaceholder() bool {
	return a.Street == "" && a.PostalCode == "" && a.City == ""
}

// OrderLineItem is a product snapshot taken at order creation. Catalog price
// changes must never retroactively affect an existing order.
type OrderLineItem struct {
	ProductID string
	Name      string
	Image     string
	Size      string
	UnitPrice int64
	Quantity  int
	LineTotal int64
	Tax       int64
}

// Order is the aggregate root of a purchase attempt. Amounts are integer
// minor currency units (øre).
type Order struct {
	Reference           string
	Status              OrderStatus
	GatewaySessionID    string
	GatewayPaymentState string
	CallbackToken       string

	Email           string
	PhoneNumber     string
	ShippingAddress Address
	BillingAddress  Address

	Items         []OrderLineItem
	ItemsTotal    int64
	ShippingPrice int64
	TotalAmount   int64
	Currency      string

	CreatedAt time.Time
	UpdatedAt time.Time
	PaidAt    *time.Time
	ShippedAt *time.Time
}

// NewOrder creates a provisional order in PENDING with snapshotted line
// items. The totals invariant is checked here, once.
func NewOrder(reference string, items []OrderLineItem, shippingPrice int64, currency string, now time.Time) (*Order, error) {
	if reference == "" {
		return nil, ErrReferenceRequired
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	var itemsTotal int64
	for _, item := range items {
		if item.Quantity <= 0 || item.UnitPrice < 0 {
			return nil, NewInvalidLineItem(item.ProductID)
		}
		itemsTotal += item.LineTotal
	}

	return &Order{
		Reference:     reference,
		Status:        StatusPending,
		Items:         items,
		ItemsTotal:    itemsTotal,
		ShippingPrice: shippingPrice,
		TotalAmount:   itemsTotal + shippingPrice,
		Currency:      currency,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// NewRecoveredOrder rebuilds an order from gateway-reported data when the
// gateway session exists but the local row was never written. Line items
// cannot be recovered and are left empty for manual reconciliation.
func NewRecoveredOrder(reference string, amount int64, currency string, now time.Time) *Order {
	return &Order{
		Reference:   reference,
		Status:      StatusPending,
		Email:       PlaceholderEmail,
		TotalAmount: amount,
		ItemsTotal:  amount,
		Currency:    currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// TransitionTo moves the order along the state graph. Off-graph edges are
// rejected and leave the order untouched, including UpdatedAt. paidAt is
// stamped exactly once, on entry into PAID.
func (o *Order) TransitionTo(to OrderStatus, now time.Time) error {
	if !CanTransition(o.Status, to) {
		return NewInvalidTransitionError(o.Status, to)
	}

	o.Status = to
	o.UpdatedAt = now

	switch to {
	case StatusPaid:
		if o.PaidAt == nil {
			paidAt := now
			o.PaidAt = &paidAt
		}
	case StatusShipped:
		if o.ShippedAt == nil {
			shippedAt := now
			o.ShippedAt = &shippedAt
		}
	}

	return nil
}

// AmendCustomer fills customer identity fields that are still placeholders.
// Fields already holding real data are never overwritten (write-once).
func (o *Order) AmendCustomer(email, phone string, shipping, billing Address) {
	if o.Email == "" || o.Email == PlaceholderEmail {
		if email != "" {
			o.Email = email
		}
	}
	if o.PhoneNumber == "" && phone != "" {
		o.PhoneNumber = phone
	}
	if o.ShippingAddress.IsPlaceholder() && !shipping.IsPlaceholder() {
		o.ShippingAddress = shipping
	}
	if o.BillingAddress.IsPlaceholder() && !billing.IsPlaceholder() {
		o.BillingAddress = billing
	}
}
