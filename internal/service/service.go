package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"upendo/backend/internal/cache"
	"upendo/backend/internal/domain"
	"upendo/backend/internal/events"
	"upendo/backend/internal/lock"
	"upendo/backend/internal/reorder"
	"upendo/backend/internal/stock"
	"upendo/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	Bus             *events.Bus
	SummaryCache    cache.SummaryCache
	SummaryCacheTTL time.Duration
	Locker          lock.Locker
	Logger          *zap.Logger
}

type Service struct {
	repo       store.Repository
	engine     *stock.Engine
	advisor    *reorder.Advisor
	bus        *events.Bus
	summary    cache.SummaryCache
	summaryTTL time.Duration
	locker     lock.Locker
	log        *zap.Logger
	now        func() time.Time
}

func New(repo store.Repository, opts Options) *Service {
	s := &Service{
		repo:       repo,
		engine:     stock.NewEngine(),
		advisor:    reorder.NewAdvisor(),
		bus:        opts.Bus,
		summary:    opts.SummaryCache,
		summaryTTL: opts.SummaryCacheTTL,
		locker:     opts.Locker,
		log:        opts.Logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
	if s.summary == nil {
		s.summary = cache.NoopSummaryCache{}
	}
	if s.summaryTTL <= 0 {
		s.summaryTTL = 30 * time.Second
	}
	if s.locker == nil {
		s.locker = lock.Noop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// authorize returns the caller when it holds permission.
func (s *Service) authorize(ctx context.Context, permission string) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, fmt.Errorf("%w: no authenticated user", domain.ErrForbidden)
	}
	if !actor.Can(permission) {
		return domain.Actor{}, fmt.Errorf("%w: %s requires %s", domain.ErrForbidden, actor.Role, permission)
	}
	return actor, nil
}

func (s *Service) authorizeAny(ctx context.Context, permissions ...string) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, fmt.Errorf("%w: no authenticated user", domain.ErrForbidden)
	}
	for _, permission := range permissions {
		if actor.Can(permission) {
			return actor, nil
		}
	}
	return domain.Actor{}, fmt.Errorf("%w: %s may not perform this action", domain.ErrForbidden, actor.Role)
}

// inTx runs fn in one store transaction. Business rule violations pass
// through unchanged; everything else surfaces as a persistence failure.
func (s *Service) inTx(ctx context.Context, op string, fn func(tx store.Tx) error) error {
	err := s.repo.InTx(ctx, fn)
	if err == nil {
		return nil
	}
	var persistence *domain.PersistenceError
	if domain.IsBusinessError(err) || errors.As(err, &persistence) {
		return err
	}
	s.log.Error("transaction rolled back", zap.String("op", op), zap.Error(err))
	return &domain.PersistenceError{Op: op, Err: err}
}

// withLock holds the advisory lock for key while fn runs.
func (s *Service) withLock(ctx context.Context, key string, fn func() error) error {
	release, err := s.locker.Acquire(ctx, key)
	if err != nil {
		if errors.Is(err, lock.ErrBusy) {
			return &domain.PersistenceError{Op: "lock " + key, Err: err}
		}
		return err
	}
	defer release()
	return fn()
}

func (s *Service) publish(ctx context.Context, evts ...events.Event) {
	s.bus.Publish(ctx, evts...)
}

func movementEvent(moved stock.Movement) events.Event {
	return events.Event{
		Kind:        events.StockChanged,
		EntityID:    moved.Product.ID,
		StockLevels: map[string]int{moved.Product.ID: moved.Product.StockQuantity},
		Labels:      map[string]string{"kind": moved.Entry.Kind, "source": moved.Entry.Source},
		At:          moved.Entry.CreatedAt,
	}
}

// readErr maps a failed lookup outside a transaction onto the error
// taxonomy.
func readErr(op string, err error, missing error, id string) error {
	if missing != nil && errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", missing, id)
	}
	if domain.IsBusinessError(err) {
		return err
	}
	return &domain.PersistenceError{Op: op, Err: err}
}

func clampLimit(limit int, fallback int, ceiling int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}
