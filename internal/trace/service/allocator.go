package service

import (
	"context"
	"time"

	"github.com/agrotrace/agrotrace-backend/internal/trace/lotcode"
	"github.com/agrotrace/agrotrace-backend/internal/trace/repository"
	"github.com/agrotrace/agrotrace-backend/pkg/config"
	"github.com/agrotrace/agrotrace-backend/pkg/database"
	apperrors "github.com/agrotrace/agrotrace-backend/pkg/errors"
	"github.com/agrotrace/agrotrace-backend/pkg/logger"
)

// CounterStore is the persistence primitive the allocator drives. The
// production implementation is repository.CounterRepository; tests use an
// in-memory store.
type CounterStore interface {
	IncrementOrCreate(ctx context.Context, key lotcode.Key) (*repository.ConsecutiveCounter, error)
}

// Allocator hands out consecutive numbers, retrying transient
// infrastructure faults and failing fast on configuration faults.
type Allocator struct {
	counters CounterStore
	cfg      config.AllocatorConfig
	logger   *logger.Logger

	// sleep is swapped out in tests to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewAllocator creates a new allocator
func NewAllocator(counters CounterStore, cfg config.AllocatorConfig, log *logger.Logger) *Allocator {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	return &Allocator{
		counters: counters,
		cfg:      cfg,
		logger:   log.WithComponent("allocator"),
		sleep:    sleepContext,
	}
}

// Next claims the next consecutive for the key.
//
// Faults are classified before any retry decision:
//   - configuration faults (missing table or function, permission or
//     policy rejection) are never retried; the datastore will not heal
//     on its own and the caller gets a fatal error immediately;
//   - transient faults (connection loss, timeouts, resource exhaustion)
//     are retried with linear backoff: attempt n sleeps n * backoff base;
//   - anything unrecognized is treated as fatal, with the key and the
//     driver code attached for diagnosis.
func (a *Allocator) Next(ctx context.Context, key lotcode.Key) (int, error) {
	var lastErr error

	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		counter, err := a.counters.IncrementOrCreate(ctx, key)
		if err == nil {
			a.logger.Debug().
				Str("key", key.String()).
				Int("consecutive", counter.Consecutive).
				Int("attempt", attempt).
				Msg("consecutive allocated")
			return counter.Consecutive, nil
		}

		if database.IsConfigurationFault(err) {
			a.logger.Error().
				Str("key", key.String()).
				Str("pq_code", database.PQCode(err)).
				Err(err).
				Msg("allocator hit a configuration fault, not retrying")
			return 0, apperrors.AllocatorUnavailable(key.String(), err)
		}

		if !database.IsTransientFault(err) {
			a.logger.Error().
				Str("key", key.String()).
				Str("pq_code", database.PQCode(err)).
				Err(err).
				Msg("allocator hit an unrecognized fault, not retrying")
			return 0, apperrors.AllocatorUnavailable(key.String(), err)
		}

		lastErr = err
		a.logger.Warn().
			Str("key", key.String()).
			Int("attempt", attempt).
			Int("max_attempts", a.cfg.MaxAttempts).
			Err(err).
			Msg("transient fault while allocating consecutive")

		if attempt < a.cfg.MaxAttempts {
			if err := a.sleep(ctx, time.Duration(attempt)*a.cfg.BackoffBase); err != nil {
				return 0, apperrors.AllocatorUnavailable(key.String(), err)
			}
		}
	}

	return 0, apperrors.AllocatorUnavailable(key.String(), lastErr)
}

// sleepContext sleeps for d unless the context is canceled first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
