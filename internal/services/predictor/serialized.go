package predictor

import (
	"context"
	"fmt"
	"time"

	"Veritas/internal/domain/models"
	domsvc "Veritas/internal/domain/service"
	svcmetrics "Veritas/internal/service/metrics"
	"Veritas/pkg/cache"
	"Veritas/pkg/logger"
)

const (
	lockKey      = "lock:predictor"
	lockPoll     = 5 * time.Millisecond
	unlockBudget = 2 * time.Second
)

// SerializedPredictor allows one inference in flight at a time. The scope of
// exclusion is that of the lock service: one process for MemoryCache, every
// replica for RedisCache.
type SerializedPredictor struct {
	next  domsvc.MarketPredictor
	locks cache.Service
	ttl   time.Duration
	log   *logger.Logger
}

func NewSerializedPredictor(next domsvc.MarketPredictor, locks cache.Service, ttl time.Duration, log *logger.Logger) *SerializedPredictor {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &SerializedPredictor{next: next, locks: locks, ttl: ttl, log: log}
}

func (s *SerializedPredictor) Predict(ctx context.Context) (models.MarketAssessment, error) {
	start := time.Now()
	token, err := cache.AcquireLock(ctx, s.locks, lockKey, s.ttl, lockPoll)
	svcmetrics.PredictorLockWait.Observe(time.Since(start).Seconds())
	if err != nil {
		return models.MarketAssessment{}, fmt.Errorf("%w: acquire predictor lock: %w", domsvc.ErrUpstreamPredictor, err)
	}
	defer func() {
		uctx, cancel := context.WithTimeout(context.Background(), unlockBudget)
		defer cancel()
		if err := s.locks.Unlock(uctx, lockKey, token); err != nil {
			s.log.Warn("release predictor lock", logger.Error(err))
		}
	}()

	return s.next.Predict(ctx)
}

var _ domsvc.MarketPredictor = (*SerializedPredictor)(nil)
