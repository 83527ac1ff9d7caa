package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/bft-labs/mongoship/internal/domain"
	"github.com/bft-labs/mongoship/internal/ports"
)

// DefaultBreakerTimeout is how long an open breaker waits before probing.
const DefaultBreakerTimeout = 30 * time.Second

// writer submits ops to the store and applies the failure policy:
// duplicates are skipped, transient failures are retried with backoff
// until the policy gives up.
type writer struct {
	store   ports.Store
	policy  RetryPolicy
	breaker *gobreaker.CircuitBreaker
	logger  ports.Logger
	emitter Emitter
	sleep   func(ctx context.Context, d time.Duration) error
}

func newWriter(store ports.Store, policy RetryPolicy, bs BreakerSettings, logger ports.Logger, emitter Emitter) *writer {
	w := &writer{
		store:   store,
		policy:  policy,
		logger:  logger,
		emitter: emitter,
		sleep:   sleepContext,
	}
	if bs.Failures > 0 {
		w.breaker = newBreaker(bs, logger, emitter)
	}
	return w
}

func newBreaker(bs BreakerSettings, logger ports.Logger, emitter Emitter) *gobreaker.CircuitBreaker {
	timeout := bs.Timeout
	if timeout <= 0 {
		timeout = DefaultBreakerTimeout
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "store",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bs.Failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				ports.String("breaker", name),
				ports.String("from", from.String()),
				ports.String("to", to.String()),
			)
			emitter.OnBreakerState(to.String())
		},
		IsSuccessful: func(err error) bool {
			return Classify(err) != OutcomeRetry
		},
	})
}

// writeBatch submits ops as ordered bulk calls.
func (w *writer) writeBatch(ctx context.Context, collection string, ops []domain.WriteOp) error {
	return w.submit(ctx, collection, ops, func(ops []domain.WriteOp) error {
		return w.store.BulkWrite(ctx, collection, ops)
	})
}

// writeOne submits a single op outside of a bulk envelope.
func (w *writer) writeOne(ctx context.Context, collection string, op domain.WriteOp) error {
	return w.submit(ctx, collection, []domain.WriteOp{op}, func(ops []domain.WriteOp) error {
		return w.store.Write(ctx, collection, ops[0])
	})
}

func (w *writer) submit(ctx context.Context, collection string, ops []domain.WriteOp, call func([]domain.WriteOp) error) error {
	flushID := uuid.NewString()
	start := time.Now()
	bo := newBackoff(w.policy)

	remaining := ops
	offset := 0
	attempt := 0
	for len(remaining) > 0 {
		attempt++
		err := w.execute(func() error { return call(remaining) })

		switch Classify(err) {
		case OutcomeSuccess:
			w.logger.Debug("wrote ops",
				ports.String("collection", collection),
				ports.String("flush_id", flushID),
				ports.Int("ops", len(ops)),
				ports.Duration("duration", time.Since(start)),
			)
			w.emitter.OnFlush(collection, len(remaining), time.Since(start))
			return nil

		case OutcomeSkip:
			idx := failedIndex(err)
			if (idx < 0 || idx >= len(remaining)) && len(remaining) > 1 {
				w.logger.Warn("duplicate key at unknown index, writing ops one at a time",
					ports.String("collection", collection),
					ports.String("flush_id", flushID),
					ports.Int("ops", len(remaining)),
					ports.Err(err),
				)
				return w.submitEach(ctx, collection, remaining, call)
			}
			w.logger.Warn("duplicate key, skipping event",
				ports.String("collection", collection),
				ports.String("flush_id", flushID),
				ports.Int("index", offset+idx),
				ports.Err(err),
			)
			w.emitter.OnDuplicate(collection)
			if idx < 0 || idx >= len(remaining) {
				return nil
			}
			if idx > 0 {
				w.emitter.OnFlush(collection, idx, time.Since(start))
			}
			remaining = remaining[idx+1:]
			offset += idx + 1
			attempt = 0
			bo.Reset()

		case OutcomeAbort:
			return err

		default:
			if idx := failedIndex(err); idx > 0 && idx < len(remaining) {
				// Ordered bulk: ops before idx are already written.
				w.emitter.OnFlush(collection, idx, time.Since(start))
				remaining = remaining[idx:]
				offset += idx
			}
			if w.policy.MaxAttempts > 0 && attempt >= w.policy.MaxAttempts {
				w.logger.Error("giving up on write",
					ports.String("collection", collection),
					ports.String("flush_id", flushID),
					ports.Int("ops", len(remaining)),
					ports.Int("attempts", attempt),
					ports.Err(err),
				)
				w.emitter.OnDrop(collection, len(remaining))
				return fmt.Errorf("%w: %d ops for %q after %d attempts: %v",
					domain.ErrRetriesExhausted, len(remaining), collection, attempt, err)
			}

			delay := bo.Next()
			w.logger.Warn("failed to write to store, retrying",
				ports.String("collection", collection),
				ports.String("flush_id", flushID),
				ports.Int("attempt", attempt),
				ports.Duration("delay", delay),
				ports.Err(err),
			)
			w.emitter.OnRetry(collection, attempt, err)
			if err := w.sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
	return nil
}

// submitEach writes ops as single-op calls so each duplicate is located.
// Ops already applied by the failed call are written again.
func (w *writer) submitEach(ctx context.Context, collection string, ops []domain.WriteOp, call func([]domain.WriteOp) error) error {
	var errs []error
	for i := range ops {
		if err := w.submit(ctx, collection, ops[i:i+1], call); err != nil {
			if ctx.Err() != nil {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *writer) execute(call func() error) error {
	if w.breaker == nil {
		return call()
	}
	_, err := w.breaker.Execute(func() (interface{}, error) {
		return nil, call()
	})
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
