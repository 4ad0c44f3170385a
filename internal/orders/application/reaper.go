package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"storefront/internal/orders/domain"
	"storefront/internal/orders/ports"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"
)

// ReaperService terminates orders abandoned mid-checkout. It only ever
// touches PENDING and PAYMENT_PENDING orders older than the threshold.
type ReaperService struct {
	repo    ports.OrderRepository
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time
}

// NewReaperService creates a new reaper. m may be nil; now defaults to
// time.Now.
func NewReaperService(repo ports.OrderRepository, m *metrics.Metrics, log *logger.Logger, now func() time.Time) *ReaperService {
	if now == nil {
		now = time.Now
	}
	return &ReaperService{
		repo:    repo,
		metrics: m,
		log:     log,
		now:     now,
	}
}

// SweepResult reports one sweep run
type SweepResult struct {
	Terminated int
	Errors     int
}

// Sweep transitions stale unpaid orders to TERMINATED. Each order is
// processed independently; one failure does not block the others.
func (s *ReaperService) Sweep(ctx context.Context, maxAge time.Duration) (*SweepResult, error) {
	cutoff := s.now().Add(-maxAge)

	orders, err := s.repo.ListStaleUnpaid(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{}
	for _, order := range orders {
		_, err := s.repo.UpdateByReference(ctx, order.Reference, func(o *domain.Order) error {
			// The order may have been paid between listing and locking;
			// the state graph rejects terminating it.
			return o.TransitionTo(domain.StatusTerminated, s.now())
		})
		if err != nil {
			result.Errors++
			s.log.WithContext(ctx).Warn("failed to terminate abandoned order",
				zap.String("reference", order.Reference),
				zap.Error(err),
			)
			continue
		}

		result.Terminated++
		if s.metrics != nil {
			s.metrics.OrdersTerminated.Inc()
		}
	}

	if result.Terminated > 0 || result.Errors > 0 {
		s.log.WithContext(ctx).Info("abandoned order sweep finished",
			zap.Int("terminated", result.Terminated),
			zap.Int("errors", result.Errors),
			zap.Duration("max_age", maxAge),
		)
	}

	return result, nil
}
