package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"storefront/internal/gateway"
	"storefront/internal/orders/domain"
	"storefront/internal/orders/ports"
	"storefront/pkg/errors"
	"storefront/pkg/logger"
)

// CheckoutConfig holds the checkout-specific settings
type CheckoutConfig struct {
	// CallbackBaseURL is the externally reachable base URL the gateway
	// posts callbacks to
	CallbackBaseURL string
	// Currency is the ISO code for all sessions (amounts are minor units)
	Currency string
	// PriceTolerance is the maximum accepted difference, in minor units,
	// between a client-supplied price and the catalog price
	PriceTolerance int64
}

// CheckoutService validates carts, creates gateway sessions and persists
// provisional orders
type CheckoutService struct {
	repo    ports.OrderRepository
	gateway ports.PaymentGateway
	catalog ports.Catalog
	cfg     CheckoutConfig
	log     *logger.Logger
	now     func() time.Time
}

// NewCheckoutService creates a new checkout service. now may be nil and
// defaults to time.Now.
func NewCheckoutService(
	repo ports.OrderRepository,
	gw ports.PaymentGateway,
	catalog ports.Catalog,
	cfg CheckoutConfig,
	log *logger.Logger,
	now func() time.Time,
) *CheckoutService {
	if now == nil {
		now = time.Now
	}
	return &CheckoutService{
		repo:    repo,
		gateway: gw,
		catalog: catalog,
		cfg:     cfg,
		log:     log,
		now:     now,
	}
}

// CartItem is one cart line as submitted by the storefront. UnitPrice is
// client-supplied and only accepted within the configured tolerance of the
// catalog price.
type CartItem struct {
	ProductID string
	Size      string
	Quantity  int
	UnitPrice int64
}

// CreateSessionInput is the input for creating a checkout session
type CreateSessionInput struct {
	Items         []CartItem
	Email         string
	PhoneNumber   string
	ShippingPrice int64
}

// CreateSessionOutput is the customer-facing session result
type CreateSessionOutput struct {
	Reference    string
	SessionToken string
	FrontendURL  string
}

// CreateSession validates the cart against the catalog, persists a
// provisional order and requests a gateway session. The order is written in
// PENDING before the gateway is contacted, so a gateway failure never loses
// the cart; the order then stays PENDING for reconciliation or reaping.
func (s *CheckoutService) CreateSession(ctx context.Context, input CreateSessionInput) (*CreateSessionOutput, error) {
	if len(input.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	items, err := s.priceItems(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	now := s.now()
	reference, err := domain.NewReference(now)
	if err != nil {
		return nil, errors.NewInternal("failed to generate order reference", err)
	}
	callbackToken, err := domain.NewCallbackToken()
	if err != nil {
		return nil, errors.NewInternal("failed to generate callback token", err)
	}

	order, err := domain.NewOrder(reference, items, input.ShippingPrice, s.cfg.Currency, now)
	if err != nil {
		return nil, err
	}
	order.CallbackToken = callbackToken
	order.Email = input.Email
	if order.Email == "" {
		order.Email = domain.PlaceholderEmail
	}
	order.PhoneNumber = input.PhoneNumber

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, errors.Wrap(err, "failed to persist provisional order")
	}

	session, err := s.gateway.CreateSession(ctx, gateway.CreateSessionRequest{
		Reference:     reference,
		Amount:        order.TotalAmount,
		Currency:      order.Currency,
		CallbackURL:   s.cfg.CallbackBaseURL + "/api/v1/callbacks/orders/" + reference,
		CallbackToken: callbackToken,
	})
	if err != nil {
		// The provisional order is kept; the reaper terminates it if the
		// customer never returns.
		s.log.WithContext(ctx).Error("gateway session creation failed",
			zap.String("reference", reference),
			zap.Error(err),
		)
		return nil, err
	}

	if _, err := s.repo.UpdateByReference(ctx, reference, func(o *domain.Order) error {
		o.GatewaySessionID = session.Token
		return o.TransitionTo(domain.StatusPaymentPending, s.now())
	}); err != nil {
		return nil, errors.Wrap(err, "failed to record gateway session")
	}

	s.log.WithContext(ctx).Info("checkout session created",
		zap.String("reference", reference),
		zap.Int64("total_amount", order.TotalAmount),
		zap.Int("items", len(order.Items)),
	)

	return &CreateSessionOutput{
		Reference:    reference,
		SessionToken: session.Token,
		FrontendURL:  session.FrontendURL,
	}, nil
}

// priceItems recomputes every line strictly from trusted catalog prices.
// The client price is cross-checked only to catch a stale storefront.
func (s *CheckoutService) priceItems(ctx context.Context, cart []CartItem) ([]domain.OrderLineItem, error) {
	items := make([]domain.OrderLineItem, 0, len(cart))
	for _, line := range cart {
		if line.Quantity <= 0 {
			return nil, domain.NewInvalidLineItem(line.ProductID)
		}

		product, err := s.catalog.GetProduct(ctx, line.ProductID, line.Size)
		if err != nil {
			return nil, errors.Wrap(err, "failed to look up product "+line.ProductID)
		}

		diff := line.UnitPrice - product.Price
		if diff < 0 {
			diff = -diff
		}
		if diff > s.cfg.PriceTolerance {
			return nil, domain.NewPriceMismatch(line.ProductID, line.UnitPrice, product.Price)
		}

		items = append(items, domain.OrderLineItem{
			ProductID: product.ProductID,
			Name:      product.Name,
			Image:     product.Image,
			Size:      line.Size,
			UnitPrice: product.Price,
			Quantity:  line.Quantity,
			LineTotal: product.Price * int64(line.Quantity),
			Tax:       product.Tax * int64(line.Quantity),
		})
	}
	return items, nil
}

// GetOrder retrieves an order for display
func (s *CheckoutService) GetOrder(ctx context.Context, reference string) (*domain.Order, error) {
	return s.repo.GetByReference(ctx, reference)
}
