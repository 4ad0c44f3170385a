package infrastructure

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/gateway"
	"storefront/internal/orders/application"
	"storefront/pkg/errors"
	"storefront/pkg/logger"
	"storefront/pkg/middleware"
)

// HTTPHandler handles HTTP requests for checkout, gateway callbacks and
// admin payment operations
type HTTPHandler struct {
	checkout *application.CheckoutService
	webhook  *application.WebhookService
	payment  *application.PaymentService
	reaper   *application.ReaperService

	defaultSweepAge time.Duration
	log             *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(
	checkout *application.CheckoutService,
	webhook *application.WebhookService,
	payment *application.PaymentService,
	reaper *application.ReaperService,
	defaultSweepAge time.Duration,
	log *logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		checkout:        checkout,
		webhook:         webhook,
		payment:         payment,
		reaper:          reaper,
		defaultSweepAge: defaultSweepAge,
		log:             log,
	}
}

// RegisterRoutes registers the storefront routes. adminAuth protects the
// admin group.
func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup, adminAuth gin.HandlerFunc) {
	r.POST("/checkout/session", h.CreateCheckoutSession)
	r.POST("/callbacks/orders/:reference", h.HandleCallback)

	admin := r.Group("/admin/orders", adminAuth)
	{
		admin.GET("/:reference", h.GetOrder)
		admin.POST("/:reference/capture", h.CaptureOrder)
		admin.POST("/:reference/cancel", h.CancelOrder)
		admin.POST("/:reference/refund", h.RefundOrder)
		admin.POST("/capture-all", h.CaptureAllReserved)
		admin.POST("/sweep", h.SweepAbandoned)
	}
}

// CartItemRequest is one cart line in the checkout request
type CartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	UnitPrice int64  `json:"unit_price" binding:"required,gte=0"`
}

// CreateCheckoutRequest is the request body for creating a checkout session
type CreateCheckoutRequest struct {
	Items         []CartItemRequest `json:"items" binding:"required,min=1,dive"`
	Email         string            `json:"email"`
	PhoneNumber   string            `json:"phone_number"`
	ShippingPrice int64             `json:"shipping_price" binding:"gte=0"`
}

// CheckoutResponse is the customer-facing session result
type CheckoutResponse struct {
	Reference    string `json:"reference"`
	SessionToken string `json:"session_token"`
	FrontendURL  string `json:"frontend_url"`
}

// CreateCheckoutSession handles POST /checkout/session
//
//	@Summary	Create a checkout session
//	@Tags		checkout
//	@Accept		json
//	@Produce	json
//	@Param		request	body		CreateCheckoutRequest	true	"Cart"
//	@Success	201		{object}	CheckoutResponse
//	@Failure	400		{object}	errors.ErrorResponse
//	@Failure	502		{object}	errors.ErrorResponse
//	@Router		/api/v1/checkout/session [post]
func (h *HTTPHandler) CreateCheckoutSession(c *gin.Context) {
	var req CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	items := make([]application.CartItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = application.CartItem{
			ProductID: item.ProductID,
			Size:      item.Size,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}

	output, err := h.checkout.CreateSession(c.Request.Context(), application.CreateSessionInput{
		Items:         items,
		Email:         req.Email,
		PhoneNumber:   req.PhoneNumber,
		ShippingPrice: req.ShippingPrice,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": CheckoutResponse{
			Reference:    output.Reference,
			SessionToken: output.SessionToken,
			FrontendURL:  output.FrontendURL,
		},
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// CallbackRequest is the gateway callback body. Amounts and identity in the
// body are not trusted; the processor fetches authoritative session detail.
type CallbackRequest struct {
	SessionState string `json:"sessionState" binding:"required"`
}

// HandleCallback handles POST /callbacks/orders/:reference. The gateway
// delivers callbacks at-least-once; the response is success regardless of
// internal processing errors, so the gateway never retries because of a
// downstream failure. Only an authentication mismatch is surfaced.
//
//	@Summary	Gateway payment callback
//	@Tags		callbacks
//	@Accept		json
//	@Produce	json
//	@Param		reference	path		string			true	"Order reference"
//	@Param		request		body		CallbackRequest	true	"Session state"
//	@Success	200			{object}	map[string]string
//	@Failure	401			{object}	errors.ErrorResponse
//	@Router		/api/v1/callbacks/orders/{reference} [post]
func (h *HTTPHandler) HandleCallback(c *gin.Context) {
	reference := c.Param("reference")
	authToken := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")

	var req CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Malformed bodies are acknowledged too; there is nothing to retry.
		h.log.WithContext(c.Request.Context()).Warn("malformed gateway callback",
			zap.String("reference", reference),
			zap.Error(err),
		)
		c.JSON(http.StatusOK, gin.H{"status": "received"})
		return
	}

	err := h.webhook.HandleCallback(c.Request.Context(), reference, gateway.SessionState(req.SessionState), authToken)
	if err != nil {
		if errors.Is(err, errors.CodeUnauthorized) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errors.ErrorResponse{
				Error: errors.ErrorBody{
					Code:    errors.CodeUnauthorized,
					Message: "invalid callback token",
				},
			})
			return
		}

		h.log.WithContext(c.Request.Context()).Error("callback processing failed",
			zap.String("reference", reference),
			zap.String("session_state", req.SessionState),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// GetOrder handles GET /admin/orders/:reference
//
//	@Summary	Get an order
//	@Tags		admin
//	@Produce	json
//	@Security	ApiKeyAuth
//	@Param		reference	path		string	true	"Order reference"
//	@Success	200			{object}	OrderResponse
//	@Failure	404			{object}	errors.ErrorResponse
//	@Router		/api/v1/admin/orders/{reference} [get]
func (h *HTTPHandler) GetOrder(c *gin.Context) {
	order, err := h.checkout.GetOrder(c.Request.Context(), c.Param("reference"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     toOrderResponse(order),
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// CaptureOrder handles POST /admin/orders/:reference/capture
//
//	@Summary	Capture a reserved payment
//	@Tags		admin
//	@Produce	json
//	@Security	ApiKeyAuth
//	@Param		reference	path		string	true	"Order reference"
//	@Success	200			{object}	OrderResponse
//	@Failure	409			{object}	errors.ErrorResponse
//	@Router		/api/v1/admin/orders/{reference}/capture [post]
func (h *HTTPHandler) CaptureOrder(c *gin.Context) {
	order, err := h.payment.Capture(c.Request.Context(), c.Param("reference"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     toOrderResponse(order),
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// CancelOrder handles POST /admin/orders/:reference/cancel
//
//	@Summary	Cancel a reserved payment
//	@Tags		admin
//	@Produce	json
//	@Security	ApiKeyAuth
//	@Param		reference	path		string	true	"Order reference"
//	@Success	200			{object}	OrderResponse
//	@Failure	409			{object}	errors.ErrorResponse
//	@Router		/api/v1/admin/orders/{reference}/cancel [post]
func (h *HTTPHandler) CancelOrder(c *gin.Context) {
	order, err := h.payment.Cancel(c.Request.Context(), c.Param("reference"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     toOrderResponse(order),
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// RefundRequest is the request body for refunds, in minor currency units
type RefundRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// RefundOrder handles POST /admin/orders/:reference/refund
//
//	@Summary	Refund a captured payment
//	@Tags		admin
//	@Accept		json
//	@Produce	json
//	@Security	ApiKeyAuth
//	@Param		reference	path		string			true	"Order reference"
//	@Param		request		body		RefundRequest	true	"Refund amount"
//	@Success	200			{object}	OrderResponse
//	@Failure	409			{object}	errors.ErrorResponse
//	@Router		/api/v1/admin/orders/{reference}/refund [post]
func (h *HTTPHandler) RefundOrder(c *gin.Context) {
	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	order, err := h.payment.Refund(c.Request.Context(), c.Param("reference"), req.Amount)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     toOrderResponse(order),
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// CaptureAllReserved handles POST /admin/orders/capture-all
//
//	@Summary	Capture all reserved payments
//	@Tags		admin
//	@Produce	json
//	@Security	ApiKeyAuth
//	@Success	200	{object}	map[string]interface{}
//	@Router		/api/v1/admin/orders/capture-all [post]
func (h *HTTPHandler) CaptureAllReserved(c *gin.Context) {
	result, err := h.payment.CaptureAllReserved(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"captured": result.Captured,
			"failed":   result.Failed,
			"failures": result.Failures,
		},
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// SweepRequest is the request body for an on-demand reaper run
type SweepRequest struct {
	MaxAgeMinutes int `json:"max_age_minutes" binding:"gte=0"`
}

// SweepAbandoned handles POST /admin/orders/sweep
//
//	@Summary	Terminate abandoned unpaid orders
//	@Tags		admin
//	@Accept		json
//	@Produce	json
//	@Security	ApiKeyAuth
//	@Param		request	body		SweepRequest	false	"Age threshold"
//	@Success	200		{object}	map[string]interface{}
//	@Router		/api/v1/admin/orders/sweep [post]
func (h *HTTPHandler) SweepAbandoned(c *gin.Context) {
	maxAge := h.defaultSweepAge

	var req SweepRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.MaxAgeMinutes > 0 {
		maxAge = time.Duration(req.MaxAgeMinutes) * time.Minute
	}

	result, err := h.reaper.Sweep(c.Request.Context(), maxAge)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"terminated": result.Terminated,
			"errors":     result.Errors,
		},
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}
