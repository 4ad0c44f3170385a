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
	"storefront/pkg/metrics"
)

// PaymentService executes administrator-initiated capture, cancel and
// refund. Every mutation is preceded by a check against the gateway's
// current authoritative state, which makes retries after a timeout safe and
// prevents double-capture and double-refund races.
type PaymentService struct {
	repo    ports.OrderRepository
	gateway ports.PaymentGateway
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time
}

// NewPaymentService creates a new payment service. m may be nil; now
// defaults to time.Now.
func NewPaymentService(
	repo ports.OrderRepository,
	gw ports.PaymentGateway,
	m *metrics.Metrics,
	log *logger.Logger,
	now func() time.Time,
) *PaymentService {
	if now == nil {
		now = time.Now
	}
	return &PaymentService{
		repo:    repo,
		gateway: gw,
		metrics: m,
		log:     log,
		now:     now,
	}
}

// Capture converts a reservation into a settled payment and moves the order
// to PAID. The gateway must currently hold the payment in RESERVED;
// otherwise no mutating call is made.
func (s *PaymentService) Capture(ctx context.Context, reference string) (*domain.Order, error) {
	order, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	if err := s.requireGatewayState(ctx, reference, "capture", gateway.PaymentReserved); err != nil {
		s.countCapture("precondition_failed")
		return nil, err
	}

	result, err := s.gateway.Capture(ctx, reference, order.TotalAmount)
	if err != nil {
		s.countCapture("gateway_error")
		return nil, err
	}

	updated, err := s.repo.UpdateByReference(ctx, reference, func(o *domain.Order) error {
		o.GatewayPaymentState = string(result.State)
		return o.TransitionTo(domain.StatusPaid, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.countCapture("ok")
	s.log.WithContext(ctx).Info("payment captured",
		zap.String("reference", reference),
		zap.Int64("amount", order.TotalAmount),
	)

	return updated, nil
}

// Cancel releases a reservation and moves the order to CANCELLED
func (s *PaymentService) Cancel(ctx context.Context, reference string) (*domain.Order, error) {
	if _, err := s.repo.GetByReference(ctx, reference); err != nil {
		return nil, err
	}

	if err := s.requireGatewayState(ctx, reference, "cancel", gateway.PaymentReserved); err != nil {
		return nil, err
	}

	result, err := s.gateway.Cancel(ctx, reference, "cancelled by administrator")
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateByReference(ctx, reference, func(o *domain.Order) error {
		o.GatewayPaymentState = string(result.State)
		return o.TransitionTo(domain.StatusCancelled, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Info("payment cancelled",
		zap.String("reference", reference),
	)

	return updated, nil
}

// Refund returns captured funds. A full refund moves the order to REFUNDED;
// a partial refund leaves it PAID with the gateway state recorded.
func (s *PaymentService) Refund(ctx context.Context, reference string, amount int64) (*domain.Order, error) {
	if amount <= 0 {
		return nil, errors.NewValidation("refund amount must be positive", nil)
	}

	if _, err := s.repo.GetByReference(ctx, reference); err != nil {
		return nil, err
	}

	if err := s.requireGatewayState(ctx, reference, "refund", gateway.PaymentCaptured); err != nil {
		s.countRefund("precondition_failed")
		return nil, err
	}

	result, err := s.gateway.Refund(ctx, reference, amount)
	if err != nil {
		s.countRefund("gateway_error")
		return nil, err
	}

	updated, err := s.repo.UpdateByReference(ctx, reference, func(o *domain.Order) error {
		o.GatewayPaymentState = string(result.State)
		if result.State == gateway.PaymentRefunded {
			return o.TransitionTo(domain.StatusRefunded, s.now())
		}
		// Partial refund: funds remain captured, order stays PAID.
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.countRefund("ok")
	s.log.WithContext(ctx).Info("payment refunded",
		zap.String("reference", reference),
		zap.Int64("amount", amount),
		zap.String("payment_state", string(result.State)),
	)

	return updated, nil
}

// BulkCaptureResult aggregates a capture-all run. Failures are isolated per
// reference; one failure never aborts the batch.
type BulkCaptureResult struct {
	Captured int
	Failed   int
	Failures map[string]string
}

// CaptureAllReserved captures every order currently in RESERVED,
// independently
func (s *PaymentService) CaptureAllReserved(ctx context.Context) (*BulkCaptureResult, error) {
	orders, err := s.repo.ListByStatus(ctx, domain.StatusReserved)
	if err != nil {
		return nil, err
	}

	result := &BulkCaptureResult{Failures: make(map[string]string)}
	for _, order := range orders {
		if _, err := s.Capture(ctx, order.Reference); err != nil {
			result.Failed++
			result.Failures[order.Reference] = err.Error()
			s.log.WithContext(ctx).Warn("bulk capture failed for order",
				zap.String("reference", order.Reference),
				zap.Error(err),
			)
			continue
		}
		result.Captured++
	}

	s.log.WithContext(ctx).Info("bulk capture finished",
		zap.Int("captured", result.Captured),
		zap.Int("failed", result.Failed),
	)

	return result, nil
}

// requireGatewayState enforces the mutation precondition against the
// gateway's current authoritative state, not the locally cached one
func (s *PaymentService) requireGatewayState(ctx context.Context, reference, operation string, required gateway.PaymentState) error {
	details, err := s.gateway.GetPaymentDetails(ctx, reference)
	if err != nil {
		return err
	}
	if details.State != required {
		return errors.NewInvalidPaymentState(operation, string(details.State))
	}
	return nil
}

func (s *PaymentService) countCapture(result string) {
	if s.metrics != nil {
		s.metrics.Captures.WithLabelValues(result).Inc()
	}
}

func (s *PaymentService) countRefund(result string) {
	if s.metrics != nil {
		s.metrics.Refunds.WithLabelValues(result).Inc()
	}
}
