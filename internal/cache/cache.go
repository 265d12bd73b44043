package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"upendo/backend/internal/domain"
	"upendo/backend/internal/events"
)

const DashboardKey = "upendo:dashboard:summary"

type SummaryCache interface {
	Get(ctx context.Context, key string) (*domain.DashboardSummary, bool, error)
	Set(ctx context.Context, key string, value *domain.DashboardSummary, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

type NoopSummaryCache struct{}

func (NoopSummaryCache) Get(_ context.Context, _ string) (*domain.DashboardSummary, bool, error) {
	return nil, false, nil
}

func (NoopSummaryCache) Set(_ context.Context, _ string, _ *domain.DashboardSummary, _ time.Duration) error {
	return nil
}

func (NoopSummaryCache) Invalidate(_ context.Context, _ ...string) error {
	return nil
}

// InvalidateOnCommit returns an event handler that drops the cached
// dashboard summary whenever committed data changes.
func InvalidateOnCommit(c SummaryCache, log *zap.Logger) events.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, event events.Event) {
		if err := c.Invalidate(ctx, DashboardKey); err != nil {
			log.Warn("dashboard cache invalidation failed", zap.String("event", string(event.Kind)), zap.Error(err))
		}
	}
}
