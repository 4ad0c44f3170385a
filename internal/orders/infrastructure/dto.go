package infrastructure

import (
	"time"

	"storefront/internal/orders/domain"
)

// OrderResponse is the response body for order reads and admin mutations
type OrderResponse struct {
	Reference           string              `json:"reference"`
	Status              string              `json:"status"`
	GatewayPaymentState string              `json:"gateway_payment_state,omitempty"`
	Email               string              `json:"email"`
	PhoneNumber         string              `json:"phone_number,omitempty"`
	Items               []LineItemResponse  `json:"items"`
	ItemsTotal          int64               `json:"items_total"`
	ShippingPrice       int64               `json:"shipping_price"`
	TotalAmount         int64               `json:"total_amount"`
	Currency            string              `json:"currency"`
	CreatedAt           string              `json:"created_at"`
	UpdatedAt           string              `json:"updated_at"`
	PaidAt              string              `json:"paid_at,omitempty"`
	ShippedAt           string              `json:"shipped_at,omitempty"`
}

// LineItemResponse is one order line in responses
type LineItemResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Size      string `json:"size,omitempty"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal int64  `json:"line_total"`
}

func toOrderResponse(order *domain.Order) OrderResponse {
	items := make([]LineItemResponse, len(order.Items))
	for i, item := range order.Items {
		items[i] = LineItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Size:      item.Size,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal,
		}
	}

	return OrderResponse{
		Reference:           order.Reference,
		Status:              string(order.Status),
		GatewayPaymentState: order.GatewayPaymentState,
		Email:               order.Email,
		PhoneNumber:         order.PhoneNumber,
		Items:               items,
		ItemsTotal:          order.ItemsTotal,
		ShippingPrice:       order.ShippingPrice,
		TotalAmount:         order.TotalAmount,
		Currency:            order.Currency,
		CreatedAt:           order.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           order.UpdatedAt.Format(time.RFC3339),
		PaidAt:              formatOptional(order.PaidAt),
		ShippedAt:           formatOptional(order.ShippedAt),
	}
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
