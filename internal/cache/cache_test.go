package cache

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"upendo/backend/internal/domain"
	"upendo/backend/internal/events"
)

func TestMemorySummaryCacheRoundTripAndInvalidate(t *testing.T) {
	c := NewMemorySummaryCache()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, DashboardKey)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, DashboardKey, &domain.DashboardSummary{TodayRevenue: decimal.NewFromInt(150), TodayTransactions: 1}, time.Minute))
	got, ok, err := c.Get(ctx, DashboardKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.TodayRevenue.Equal(decimal.NewFromInt(150)))

	require.NoError(t, c.Invalidate(ctx, DashboardKey))
	_, ok, err = c.Get(ctx, DashboardKey)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemorySummaryCacheExpires(t *testing.T) {
	c := NewMemorySummaryCache()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, DashboardKey, &domain.DashboardSummary{TodayTransactions: 2}, 50*time.Millisecond))

	got, ok, err := c.Get(ctx, DashboardKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, got.TodayTransactions)

	require.Eventually(t, func() bool {
		_, ok, err := c.Get(ctx, DashboardKey)
		return err == nil && !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMemorySummaryCacheReturnsCopies(t *testing.T) {
	c := NewMemorySummaryCache()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, DashboardKey, &domain.DashboardSummary{TodayTransactions: 1}, time.Minute))

	got, _, err := c.Get(ctx, DashboardKey)
	require.NoError(t, err)
	got.TodayTransactions = 99

	again, ok, err := c.Get(ctx, DashboardKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, again.TodayTransactions)
}

func TestInvalidateOnCommitDropsSummary(t *testing.T) {
	c := NewMemorySummaryCache()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, DashboardKey, &domain.DashboardSummary{}, time.Minute))

	InvalidateOnCommit(c, nil)(ctx, events.Event{Kind: events.SaleCreated})

	_, ok, err := c.Get(ctx, DashboardKey)
	require.NoError(t, err)
	require.False(t, ok)
}
