package domain

import (
	"regexp"
	"testing"
	"time"
)

var testNow = time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

func testItems() []OrderLineItem {
	return []OrderLineItem{
		{ProductID: "hoodie-1", Name: "Hoodie", Size: "M", UnitPrice: 29900, Quantity: 1, LineTotal: 29900},
		{ProductID: "sticker-1", Name: "Sticker", UnitPrice: 1000, Quantity: 2, LineTotal: 2000},
	}
}

func TestNewOrder_ComputesTotals(t *testing.T) {
	order, err := NewOrder("MF-1700000000-AB12CD", testItems(), 3900, "NOK", testNow)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if order.Status != StatusPending {
		t.Errorf("expected status PENDING, got %s", order.Status)
	}
	if order.ItemsTotal != 31900 {
		t.Errorf("expected items total 31900, got %d", order.ItemsTotal)
	}
	if order.TotalAmount != 35800 {
		t.Errorf("expected total 35800, got %d", order.TotalAmount)
	}
	if order.PaidAt != nil {
		t.Error("expected no paidAt on a new order")
	}
}

func TestNewOrder_Validation(t *testing.T) {
	if _, err := NewOrder("", testItems(), 0, "NOK", testNow); err != ErrReferenceRequired {
		t.Errorf("expected ErrReferenceRequired, got %v", err)
	}

	if _, err := NewOrder("MF-1-ABCDEF", nil, 0, "NOK", testNow); err != ErrEmptyCart {
		t.Errorf("expected ErrEmptyCart, got %v", err)
	}

	bad := []OrderLineItem{{ProductID: "p", UnitPrice: 100, Quantity: 0}}
	if _, err := NewOrder("MF-1-ABCDEF", bad, 0, "NOK", testNow); err == nil {
		t.Error("expected error for zero quantity line")
	}
}

// allowed enumerates the full state graph; any (from, to) pair missing here
// must be rejected by TransitionTo.
var allowed = map[OrderStatus]map[OrderStatus]bool{
	StatusPending: {
		StatusPaymentPending: true, StatusPaid: true, StatusReserved: true,
		StatusTerminated: true, StatusCancelled: true,
	},
	StatusPaymentPending: {
		StatusPaid: true, StatusReserved: true,
		StatusTerminated: true, StatusCancelled: true,
	},
	StatusReserved: {StatusPaid: true, StatusCancelled: true},
	StatusPaid:     {StatusRefunded: true, StatusShipped: true},
	StatusShipped:  {StatusDelivered: true},
}

func TestTransitionTo_FullGraph(t *testing.T) {
	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			order := &Order{Reference: "MF-1-ABCDEF", Status: from, UpdatedAt: testNow}
			err := order.TransitionTo(to, testNow.Add(time.Minute))

			if allowed[from][to] {
				if err != nil {
					t.Errorf("%s -> %s: expected allowed, got %v", from, to, err)
				}
				if order.Status != to {
					t.Errorf("%s -> %s: status not updated", from, to)
				}
			} else {
				if err == nil {
					t.Errorf("%s -> %s: expected rejection", from, to)
				}
				if order.Status != from {
					t.Errorf("%s -> %s: rejected transition mutated status", from, to)
				}
				if !order.UpdatedAt.Equal(testNow) {
					t.Errorf("%s -> %s: rejected transition touched UpdatedAt", from, to)
				}
			}
		}
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []OrderStatus{StatusDelivered, StatusCancelled, StatusRefunded, StatusTerminated}
	for _, status := range terminal {
		if !status.IsTerminal() {
			t.Errorf("expected %s to be terminal", status)
		}
	}
	for _, status := range []OrderStatus{StatusPending, StatusPaymentPending, StatusReserved, StatusPaid, StatusShipped} {
		if status.IsTerminal() {
			t.Errorf("expected %s not to be terminal", status)
		}
	}
}

func TestTransitionTo_StampsPaidAtOnce(t *testing.T) {
	order, _ := NewOrder("MF-1-ABCDEF", testItems(), 0, "NOK", testNow)

	paidTime := testNow.Add(5 * time.Minute)
	if err := order.TransitionTo(StatusPaid, paidTime); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if order.PaidAt == nil || !order.PaidAt.Equal(paidTime) {
		t.Fatalf("expected paidAt %v, got %v", paidTime, order.PaidAt)
	}

	// Later transitions never move the payment timestamp.
	if err := order.TransitionTo(StatusShipped, paidTime.Add(time.Hour)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !order.PaidAt.Equal(paidTime) {
		t.Errorf("paidAt changed after shipping: %v", order.PaidAt)
	}
	if order.ShippedAt == nil {
		t.Error("expected shippedAt to be stamped")
	}
}

func TestAmendCustomer_WriteOnce(t *testing.T) {
	order, _ := NewOrder("MF-1-ABCDEF", testItems(), 0, "NOK", testNow)
	order.Email = PlaceholderEmail

	shipping := Address{FullName: "Ola Nordmann", Street: "Storgata 1", PostalCode: "0155", City: "Oslo", Country: "NO"}
	order.AmendCustomer("ola@example.com", "+4712345678", shipping, shipping)

	if order.Email != "ola@example.com" {
		t.Errorf("expected placeholder email to be amended, got %s", order.Email)
	}
	if order.ShippingAddress.City != "Oslo" {
		t.Errorf("expected shipping address to be amended, got %+v", order.ShippingAddress)
	}

	// Real values are never overwritten by later callbacks.
	other := Address{Street: "Other 2", PostalCode: "9999", City: "Bergen", Country: "NO"}
	order.AmendCustomer("mallory@example.com", "+4700000000", other, other)

	if order.Email != "ola@example.com" {
		t.Errorf("amend overwrote real email: %s", order.Email)
	}
	if order.PhoneNumber != "+4712345678" {
		t.Errorf("amend overwrote real phone: %s", order.PhoneNumber)
	}
	if order.ShippingAddress.City != "Oslo" {
		t.Errorf("amend overwrote real address: %+v", order.ShippingAddress)
	}
}

func TestAmendCustomer_IgnoresEmptyInput(t *testing.T) {
	order, _ := NewOrder("MF-1-ABCDEF", testItems(), 0, "NOK", testNow)
	order.Email = PlaceholderEmail

	order.AmendCustomer("", "", Address{}, Address{})

	if order.Email != PlaceholderEmail {
		t.Errorf("empty amendment changed email: %s", order.Email)
	}
	if !order.ShippingAddress.IsPlaceholder() {
		t.Errorf("empty amendment changed address: %+v", order.ShippingAddress)
	}
}

func TestNewRecoveredOrder(t *testing.T) {
	order := NewRecoveredOrder("MF-1700000000-AB12CD", 35800, "NOK", testNow)

	if order.Status != StatusPending {
		t.Errorf("expected PENDING, got %s", order.Status)
	}
	if order.Email != PlaceholderEmail {
		t.Errorf("expected placeholder email, got %s", order.Email)
	}
	if order.TotalAmount != 35800 {
		t.Errorf("expected total 35800, got %d", order.TotalAmount)
	}
	if len(order.Items) != 0 {
		t.Errorf("expected no recovered line items, got %d", len(order.Items))
	}
}

func TestNewReference_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^MF-\d+-[A-Z0-9]{6}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ref, err := NewReference(testNow)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !pattern.MatchString(ref) {
			t.Fatalf("reference %q does not match expected format", ref)
		}
		if seen[ref] {
			t.Fatalf("reference %q generated twice", ref)
		}
		seen[ref] = true
	}
}

func TestNewCallbackToken_Unique(t *testing.T) {
	a, err := NewCallbackToken()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	b, err := NewCallbackToken()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if a == b {
		t.Error("expected distinct callback tokens")
	}
	if len(a) < 32 {
		t.Errorf("expected token of at least 32 characters, got %d", len(a))
	}
}
