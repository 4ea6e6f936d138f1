package uow

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"ledgerpos/backend/internal/observability"
	"ledgerpos/backend/internal/resilience"
	"ledgerpos/backend/internal/store"
)

// Result reports how far a plan got.
type Result struct {
	Operation string  `json:"operation"`
	Applied   []Write `json:"applied"`
	Failed    *Write  `json:"failed,omitempty"`
	Pending   []Write `json:"pending,omitempty"`
	Skipped   []Skip  `json:"skipped,omitempty"`
}

func (r *Result) Complete() bool {
	return r.Failed == nil
}

// PartialFailureError is returned when a write fails after zero or more
// writes of the same plan were applied. Applied writes are not rolled back.
type PartialFailureError struct {
	Result *Result
	Err    error
}

func (e *PartialFailureError) Error() string {
	if !e.Partial() {
		return fmt.Sprintf("%s: write %s failed, nothing applied: %v",
			e.Result.Operation, e.Result.Failed, e.Err)
	}
	return fmt.Sprintf("%s: write %s failed after %d applied: %v",
		e.Result.Operation, e.Result.Failed, len(e.Result.Applied), e.Err)
}

// Partial reports whether any write landed before the failure.
func (e *PartialFailureError) Partial() bool {
	return len(e.Result.Applied) > 0
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}

type Executor struct {
	gw      store.Gateway
	breaker *gobreaker.CircuitBreaker
	retry   resilience.Config
	logger  *zap.Logger
	metrics *observability.Metrics
}

func NewExecutor(gw store.Gateway, retry resilience.Config, logger *zap.Logger, metrics *observability.Metrics) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		gw:      gw,
		breaker: resilience.NewCircuitBreaker("gateway-writes"),
		retry:   retry,
		logger:  logger,
		metrics: metrics,
	}
}

// Execute applies the writes in order and stops at the first failure.
func (e *Executor) Execute(ctx context.Context, plan *Plan) (*Result, error) {
	result := &Result{Operation: plan.Operation, Skipped: plan.Skipped}
	for _, skip := range plan.Skipped {
		e.metrics.IncrSkipped(string(skip.Collection))
	}

	for i, write := range plan.Writes {
		if err := e.apply(ctx, write); err != nil {
			failed := write
			result.Failed = &failed
			result.Pending = append([]Write(nil), plan.Writes[i+1:]...)
			e.metrics.IncrWrite(string(write.Collection), "error")
			if len(result.Applied) > 0 {
				e.metrics.IncrPartialFailure(plan.Operation)
			}
			return result, &PartialFailureError{Result: result, Err: err}
		}
		result.Applied = append(result.Applied, write)
		e.metrics.IncrWrite(string(write.Collection), "ok")
	}
	return result, nil
}

// Repair reverts the applied writes of result in reverse order. It keeps
// going past failures and returns them joined.
func (e *Executor) Repair(ctx context.Context, result *Result) error {
	var errs []error
	for i := len(result.Applied) - 1; i >= 0; i-- {
		if err := e.apply(ctx, compensation(result.Applied[i])); err != nil {
			e.logger.Warn("compensating write failed",
				zap.String("operation", result.Operation),
				zap.Stringer("write", result.Applied[i]),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func compensation(w Write) Write {
	switch {
	case w.Op == OpDelete:
		return Write{Collection: w.Collection, ID: w.ID, Op: OpUpsert, Patch: w.Undo}
	case w.Undo == nil:
		return Write{Collection: w.Collection, ID: w.ID, Op: OpDelete}
	default:
		return Write{Collection: w.Collection, ID: w.ID, Op: OpUpsert, Patch: w.Undo}
	}
}

func (e *Executor) apply(ctx context.Context, write Write) error {
	return resilience.RetryWithBackoff(ctx, e.retry, func() error {
		_, err := e.breaker.Execute(func() (any, error) {
			var err error
			switch write.Op {
			case OpDelete:
				err = e.gw.Delete(ctx, write.Collection, write.ID)
			default:
				err = e.gw.Upsert(ctx, write.Collection, write.ID, write.Patch)
			}
			if errors.Is(err, store.ErrInvalidID) || errors.Is(err, store.ErrUnknownCollection) {
				return nil, resilience.Permanent(err)
			}
			return nil, err
		})
		return err
	})
}
