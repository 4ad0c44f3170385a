package application

import (
	"context"
	"crypto/subtle"
	"time"

	"go.uber.org/zap"

	"storefront/internal/gateway"
	"storefront/internal/orders/domain"
	"storefront/internal/orders/ports"
	"storefront/pkg/errors"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"
)

// WebhookService processes asynchronous gateway callbacks. Delivery is
// at-least-once and unordered, so every path here must be idempotent; the
// HTTP layer acknowledges with success regardless of internal errors other
// than an authentication failure.
type WebhookService struct {
	repo     ports.OrderRepository
	gateway  ports.PaymentGateway
	notifier ports.Notifier
	metrics  *metrics.Metrics
	log      *logger.Logger
	now      func() time.Time
}

// NewWebhookService creates a new webhook service. notifier and m may be
// nil; now defaults to time.Now.
func NewWebhookService(
	repo ports.OrderRepository,
	gw ports.PaymentGateway,
	notifier ports.Notifier,
	m *metrics.Metrics,
	log *logger.Logger,
	now func() time.Time,
) *WebhookService {
	if now == nil {
		now = time.Now
	}
	return &WebhookService{
		repo:     repo,
		gateway:  gw,
		notifier: notifier,
		metrics:  m,
		log:      log,
		now:      now,
	}
}

// HandleCallback applies one gateway callback to the local order state.
// The callback body is not trusted for amounts or identity; on a success
// signal the authoritative session detail is fetched from the gateway.
func (s *WebhookService) HandleCallback(ctx context.Context, reference string, state gateway.SessionState, authToken string) error {
	order, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return s.handleMissingOrder(ctx, reference, state, authToken)
		}
		s.count("error")
		return err
	}

	if subtle.ConstantTimeCompare([]byte(order.CallbackToken), []byte(authToken)) != 1 {
		s.count("unauthorized")
		return errors.NewUnauthorized("callback token mismatch")
	}

	switch {
	case state.IsSuccess():
		return s.applySuccess(ctx, order)
	case state.IsTerminalFailure():
		return s.applyFailure(ctx, order, string(state))
	default:
		s.log.WithContext(ctx).Debug("ignoring non-final session state",
			zap.String("reference", reference),
			zap.String("session_state", string(state)),
		)
		s.count("ignored")
		return nil
	}
}

// applySuccess maps a successful-payment signal onto the order. The target
// status depends on whether the gateway captured or merely authorized.
func (s *WebhookService) applySuccess(ctx context.Context, order *domain.Order) error {
	status, err := s.gateway.GetSessionStatus(ctx, order.Reference)
	if err != nil {
		s.count("error")
		return err
	}
	if status.PaymentDetails == nil {
		s.count("error")
		return errors.NewGateway("session reported successful without payment details", nil)
	}

	target := domain.StatusReserved
	if status.PaymentDetails.State == gateway.PaymentCaptured {
		target = domain.StatusPaid
	}

	// Re-delivery of a callback that would produce the same status is a
	// no-op: no write, no duplicate confirmation.
	if order.Status == target {
		s.count("replayed")
		return nil
	}

	// The closure runs under the row lock; a concurrent delivery may have
	// already applied the transition between the read above and the lock,
	// so only the delivery that actually transitions may notify.
	applied := false
	updated, err := s.repo.UpdateByReference(ctx, order.Reference, func(o *domain.Order) error {
		applied = false
		if o.Status == target {
			return nil
		}
		s.amendFromSession(o, status)
		o.GatewayPaymentState = string(status.PaymentDetails.State)
		if err := o.TransitionTo(target, s.now()); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		s.count("rejected")
		return err
	}
	if !applied {
		s.count("replayed")
		return nil
	}

	s.countTarget(target)
	s.log.WithContext(ctx).Info("payment confirmed via callback",
		zap.String("reference", order.Reference),
		zap.String("status", string(updated.Status)),
		zap.String("payment_state", updated.GatewayPaymentState),
	)

	if target == domain.StatusPaid {
		s.notifyConfirmed(ctx, updated)
	}
	return nil
}

// applyFailure maps a terminated or expired payment onto CANCELLED
func (s *WebhookService) applyFailure(ctx context.Context, order *domain.Order, reason string) error {
	if order.Status == domain.StatusCancelled {
		s.count("replayed")
		return nil
	}

	applied := false
	updated, err := s.repo.UpdateByReference(ctx, order.Reference, func(o *domain.Order) error {
		applied = false
		if o.Status == domain.StatusCancelled {
			return nil
		}
		if err := o.TransitionTo(domain.StatusCancelled, s.now()); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		s.count("rejected")
		return err
	}
	if !applied {
		s.count("replayed")
		return nil
	}

	s.count("cancelled")
	s.log.WithContext(ctx).Info("payment terminated via callback",
		zap.String("reference", order.Reference),
		zap.String("reason", reason),
	)

	s.notifyFailed(ctx, updated, reason)
	return nil
}

// handleMissingOrder covers a session whose local order row was never
// written. The stored callback token is gone with the row, so authenticity
// comes from the authoritative gateway fetch instead; a failure signal for
// an unknown reference is simply nothing to cancel.
func (s *WebhookService) handleMissingOrder(ctx context.Context, reference string, state gateway.SessionState, authToken string) error {
	if !state.IsSuccess() {
		s.count("ignored")
		return nil
	}

	status, err := s.gateway.GetSessionStatus(ctx, reference)
	if err != nil {
		s.count("error")
		return err
	}
	if status.PaymentDetails == nil {
		s.count("error")
		return errors.NewGateway("session reported successful without payment details", nil)
	}

	target := domain.StatusReserved
	if status.PaymentDetails.State == gateway.PaymentCaptured {
		target = domain.StatusPaid
	}

	order := domain.NewRecoveredOrder(reference, status.Amount, status.Currency, s.now())
	order.CallbackToken = authToken
	order.GatewayPaymentState = string(status.PaymentDetails.State)
	s.amendFromSession(order, status)
	if err := order.TransitionTo(target, s.now()); err != nil {
		s.count("rejected")
		return err
	}

	if err := s.repo.Create(ctx, order); err != nil {
		s.count("error")
		return errors.Wrap(err, "failed to recover order from gateway data")
	}

	s.countTarget(target)
	s.log.WithContext(ctx).Warn("order recovered from gateway session",
		zap.String("reference", reference),
		zap.Int64("amount", status.Amount),
	)

	if target == domain.StatusPaid {
		s.notifyConfirmed(ctx, order)
	}
	return nil
}

// amendFromSession fills customer fields that are still placeholders from
// the gateway-collected identity. Real values are never overwritten.
func (s *WebhookService) amendFromSession(order *domain.Order, status *gateway.SessionStatus) {
	var email, phone string
	if status.CustomerDetails != nil {
		email = status.CustomerDetails.Email
		phone = status.CustomerDetails.PhoneNumber
	}
	order.AmendCustomer(email, phone, toAddress(status.ShippingAddress), toAddress(status.BillingAddress))
}

func toAddress(details *gateway.AddressDetails) domain.Address {
	if details == nil {
		return domain.Address{}
	}
	return domain.Address{
		FullName:   details.FirstName + " " + details.LastName,
		Street:     details.Street,
		PostalCode: details.PostalCode,
		City:       details.City,
		Country:    details.Country,
	}
}

// notifyConfirmed hands the confirmation to the notifier. Failures are
// logged, never surfaced: the callback must not be retried because a
// notification failed.
func (s *WebhookService) notifyConfirmed(ctx context.Context, order *domain.Order) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.OrderConfirmed(ctx, order); err != nil {
		s.log.WithContext(ctx).Error("failed to dispatch order confirmation",
			zap.String("reference", order.Reference),
			zap.Error(err),
		)
	}
}

func (s *WebhookService) notifyFailed(ctx context.Context, order *domain.Order, reason string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.OrderPaymentFailed(ctx, order, reason); err != nil {
		s.log.WithContext(ctx).Error("failed to dispatch payment failure notice",
			zap.String("reference", order.Reference),
			zap.Error(err),
		)
	}
}

func (s *WebhookService) countTarget(target domain.OrderStatus) {
	if target == domain.StatusPaid {
		s.count("paid")
	} else {
		s.count("reserved")
	}
}

func (s *WebhookService) count(result string) {
	if s.metrics != nil {
		s.metrics.Webhooks.WithLabelValues(result).Inc()
	}
}
