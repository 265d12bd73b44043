package service

import (
	"context"

	"go.uber.org/zap"

	"upendo/backend/internal/cache"
	"upendo/backend/internal/domain"
)

// Dashboard serves the summary from cache when possible. Cache failures are
// logged and fall through to the store.
func (s *Service) Dashboard(ctx context.Context) (domain.DashboardSummary, error) {
	cached, ok, err := s.summary.Get(ctx, cache.DashboardKey)
	if err != nil {
		s.log.Warn("dashboard cache read failed", zap.Error(err))
	}
	if ok && cached != nil {
		return *cached, nil
	}

	summary, err := s.repo.DashboardSummary(ctx, s.now())
	if err != nil {
		return domain.DashboardSummary{}, readErr("dashboard summary", err, nil, "")
	}
	if err := s.summary.Set(ctx, cache.DashboardKey, &summary, s.summaryTTL); err != nil {
		s.log.Warn("dashboard cache write failed", zap.Error(err))
	}
	return summary, nil
}
