package reorder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"upendo/backend/internal/domain"
)

func TestAdviseAboveThreshold(t *testing.T) {
	d := NewAdvisor().Advise(domain.Product{ID: "p", StockQuantity: 11, MinimumStockLevel: 10, ReorderQuantity: 30})
	require.False(t, d.Triggered)
	require.Zero(t, d.ReorderQuantity)
}

func TestAdviseTakesLargerOfReorderAndDoubleMinimum(t *testing.T) {
	advisor := NewAdvisor()

	d := advisor.Advise(domain.Product{ID: "p", StockQuantity: 10, MinimumStockLevel: 10, ReorderQuantity: 30})
	require.True(t, d.Triggered)
	require.Equal(t, 30, d.ReorderQuantity)

	d = advisor.Advise(domain.Product{ID: "p", StockQuantity: 2, MinimumStockLevel: 10, ReorderQuantity: 5})
	require.True(t, d.Triggered)
	require.Equal(t, 20, d.ReorderQuantity)
}

func TestAdviseWithoutQuantitiesSuggestsNothing(t *testing.T) {
	d := NewAdvisor().Advise(domain.Product{ID: "p", StockQuantity: 0, MinimumStockLevel: 0, ReorderQuantity: 0})
	require.True(t, d.Triggered)
	require.Zero(t, d.ReorderQuantity)
}

func TestRankOrdersByShortfall(t *testing.T) {
	ranked := NewAdvisor().Rank([]domain.Product{
		{ID: "a", StockQuantity: 9, MinimumStockLevel: 10, Active: true},
		{ID: "b", StockQuantity: 0, MinimumStockLevel: 10, Active: true},
		{ID: "c", StockQuantity: 50, MinimumStockLevel: 10, Active: true},
		{ID: "d", StockQuantity: 0, MinimumStockLevel: 10, Active: false},
	})
	require.Len(t, ranked, 2)
	require.Equal(t, "b", ranked[0].ProductID)
	require.Equal(t, "a", ranked[1].ProductID)
}
