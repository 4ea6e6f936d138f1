package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/engine"
	"ledgerpos/backend/internal/observability"
	"ledgerpos/backend/internal/report"
	"ledgerpos/backend/internal/resilience"
	"ledgerpos/backend/internal/snapshot"
	"ledgerpos/backend/internal/store"
	"ledgerpos/backend/internal/uow"
	"ledgerpos/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Outcome pairs the record an operation produced with the writes that
// carried it.
type Outcome[T any] struct {
	Record T           `json:"record"`
	Result *uow.Result `json:"result"`
}

// Receipt is the record of a purchase order receive. Purchase is nil when
// the order was not PENDING and nothing happened.
type Receipt struct {
	PurchaseOrder domain.PurchaseOrder `json:"purchaseOrder"`
	Purchase      *domain.Transaction  `json:"purchase,omitempty"`
}

// Closure is the record of an account close. Transfer is nil when the
// balance was already zero.
type Closure struct {
	AccountID string              `json:"accountId"`
	Transfer  *domain.Transaction `json:"transfer,omitempty"`
}

type Options struct {
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Retry      resilience.Config
	Compensate bool
}

type Service struct {
	gw         store.Gateway
	snapshots  *snapshot.Store
	engine     *engine.Engine
	exec       *uow.Executor
	reports    *report.Engine
	logger     *zap.Logger
	metrics    *observability.Metrics
	tracer     trace.Tracer
	compensate bool

	// mu serializes ledger operations so each plan is built from the
	// snapshot the previous one left behind.
	mu sync.Mutex
}

func New(gw store.Gateway, snapshots *snapshot.Store, eng *engine.Engine, reports *report.Engine, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if reports == nil {
		reports = report.NewEngine(nil, 0, eng.CashAccountID(), opts.Metrics)
	}

	return &Service{
		gw:         gw,
		snapshots:  snapshots,
		engine:     eng,
		exec:       uow.NewExecutor(gw, opts.Retry, logger, opts.Metrics),
		reports:    reports,
		logger:     logger,
		metrics:    opts.Metrics,
		tracer:     otel.Tracer("ledgerpos/service"),
		compensate: opts.Compensate,
	}
}

// run builds a plan from the current snapshot, executes it and audits the
// outcome. A plan that fails part-way is repaired when compensation is on.
func run[T any](
	ctx context.Context,
	s *Service,
	entityType string,
	build func(*snapshot.Snapshot) (*uow.Plan, T, error),
	entityID func(T) string,
) (Outcome[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.snapshots.Sync(ctx); err != nil {
		return Outcome[T]{}, err
	}
	snap := s.snapshots.Current()
	plan, record, err := build(snap)
	if err != nil {
		return Outcome[T]{Record: record}, err
	}

	ctx, span := s.tracer.Start(ctx, "ledger."+plan.Operation, trace.WithAttributes(
		attribute.String("ledger.entity_type", entityType),
		attribute.String("ledger.entity_id", entityID(record)),
		attribute.Int("ledger.writes", len(plan.Writes)),
		attribute.Int64("ledger.snapshot_version", int64(snap.Version)),
	))
	defer span.End()
	started := time.Now()

	result, err := s.exec.Execute(ctx, plan)
	s.warnSkipped(result)

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.repair(ctx, result)
	}
	s.metrics.RecordOperation(plan.Operation, status, time.Since(started))

	out := Outcome[T]{Record: record, Result: result}
	if err != nil {
		return out, err
	}
	if !plan.Empty() {
		s.logAudit(ctx, plan.Operation, entityType, entityID(record),
			fmt.Sprintf("writes=%d,skipped=%d", len(result.Applied), len(result.Skipped)))
	}
	return out, nil
}

func (s *Service) warnSkipped(result *uow.Result) {
	for _, skip := range result.Skipped {
		s.logger.Warn("correction skipped",
			zap.String("operation", result.Operation),
			zap.String("collection", string(skip.Collection)),
			zap.String("id", skip.ID),
			zap.Float64("delta", skip.Delta),
			zap.String("reason", skip.Reason))
	}
}

func (s *Service) repair(ctx context.Context, result *uow.Result) {
	if !s.compensate || len(result.Applied) == 0 {
		s.logger.Error("operation partially applied",
			zap.String("operation", result.Operation),
			zap.Int("applied", len(result.Applied)),
			zap.Int("pending", len(result.Pending)))
		return
	}
	if err := s.exec.Repair(ctx, result); err != nil {
		s.logger.Error("compensation incomplete",
			zap.String("operation", result.Operation),
			zap.Error(err))
		return
	}
	s.logger.Warn("partially applied operation reverted",
		zap.String("operation", result.Operation),
		zap.Int("reverted", len(result.Applied)))
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	entry := domain.AuditLog{
		ID:         xid.New("audit"),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Actor:      actor.Username,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}
	doc, err := store.Encode(entry)
	if err == nil {
		err = s.gw.Upsert(ctx, domain.CollectionAuditLogs, entry.ID, doc)
	}
	if err != nil {
		s.logger.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("entity", entityType+"/"+entityID),
			zap.Error(err))
	}
}

func transactionID(tx domain.Transaction) string { return tx.ID }
