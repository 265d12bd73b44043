package stock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"upendo/backend/internal/domain"
	"upendo/backend/internal/store"
	"upendo/backend/internal/store/memory"
)

func seedProduct(t *testing.T, repo *memory.Store, id string, qty int) {
	t.Helper()
	err := repo.InTx(context.Background(), func(tx store.Tx) error {
		return tx.InsertProduct(context.Background(), domain.Product{ID: id, Name: id, Unit: "piece", StockQuantity: qty, Active: true})
	})
	require.NoError(t, err)
}

func stockOf(t *testing.T, repo *memory.Store, id string) int {
	t.Helper()
	p, err := repo.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.StockQuantity
}

func TestApplyDeltaWritesOneAuditRow(t *testing.T) {
	repo := memory.New()
	seedProduct(t, repo, "bun", 20)
	engine := NewEngine()

	var moved Movement
	err := repo.InTx(context.Background(), func(tx store.Tx) error {
		var err error
		moved, err = engine.ApplyDelta(context.Background(), tx, Change{
			ProductID: "bun", Delta: -3, Kind: domain.StockKindSale, Actor: "cashier",
		})
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 17, moved.Product.StockQuantity)
	require.Equal(t, 17, stockOf(t, repo, "bun"))

	entries, err := repo.ListStockAudit(context.Background(), domain.StockAuditFilter{ProductID: "bun"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, -3, entries[0].Delta)
	require.Equal(t, domain.StockKindSale, entries[0].Kind)
	require.Equal(t, domain.AuditSourceEngine, entries[0].Source)
	require.Equal(t, "cashier", entries[0].Actor)
}

func TestApplyDeltaRejectsNegativeResult(t *testing.T) {
	repo := memory.New()
	seedProduct(t, repo, "bun", 5)
	engine := NewEngine()

	err := repo.InTx(context.Background(), func(tx store.Tx) error {
		_, err := engine.ApplyDelta(context.Background(), tx, Change{ProductID: "bun", Delta: -6, Kind: domain.StockKindSubtraction})
		return err
	})
	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, 6, insufficient.Requested)
	require.Equal(t, 5, insufficient.Available)
	require.Equal(t, 5, stockOf(t, repo, "bun"))

	entries, err := repo.ListStockAudit(context.Background(), domain.StockAuditFilter{ProductID: "bun"})
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestApplyDeltaValidatesKindAndSign(t *testing.T) {
	repo := memory.New()
	seedProduct(t, repo, "bun", 5)
	engine := NewEngine()

	cases := []Change{
		{ProductID: "bun", Delta: 0, Kind: domain.StockKindAddition},
		{ProductID: "bun", Delta: -1, Kind: domain.StockKindAddition},
		{ProductID: "bun", Delta: 2, Kind: domain.StockKindSale},
		{ProductID: "bun", Delta: 1, Kind: domain.StockKindReorder},
		{ProductID: "bun", Delta: 1, Kind: domain.StockKindAdjustment},
		{ProductID: "bun", Delta: 1, Kind: "gift"},
	}
	for _, change := range cases {
		err := repo.InTx(context.Background(), func(tx store.Tx) error {
			_, err := engine.ApplyDelta(context.Background(), tx, change)
			return err
		})
		require.ErrorIs(t, err, domain.ErrValidation, "change %+v", change)
	}
	require.Equal(t, 5, stockOf(t, repo, "bun"))
}

func TestApplyDeltaUnknownProduct(t *testing.T) {
	repo := memory.New()
	engine := NewEngine()

	err := repo.InTx(context.Background(), func(tx store.Tx) error {
		_, err := engine.ApplyDelta(context.Background(), tx, Change{ProductID: "ghost", Delta: 1, Kind: domain.StockKindAddition})
		return err
	})
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestAdjustRecordsManualSource(t *testing.T) {
	repo := memory.New()
	seedProduct(t, repo, "cake", 5)
	engine := NewEngine()

	err := repo.InTx(context.Background(), func(tx store.Tx) error {
		_, err := engine.Adjust(context.Background(), tx, "cake", 2, domain.AdjustmentRemove, "storekeeper", "damaged")
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 3, stockOf(t, repo, "cake"))

	entries, err := repo.ListStockAudit(context.Background(), domain.StockAuditFilter{Source: domain.AuditSourceManualAdjustment})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, -2, entries[0].Delta)
	require.Equal(t, 2, entries[0].Quantity())
	require.Equal(t, domain.AdjustmentRemove, entries[0].AdjustmentType)
}

func TestAdjustRejectsBadInput(t *testing.T) {
	repo := memory.New()
	seedProduct(t, repo, "cake", 5)
	engine := NewEngine()

	run := func(qty int, kind string) error {
		return repo.InTx(context.Background(), func(tx store.Tx) error {
			_, err := engine.Adjust(context.Background(), tx, "cake", qty, kind, "storekeeper", "")
			return err
		})
	}

	require.ErrorIs(t, run(1, "shrink"), domain.ErrInvalidAdjustment)
	require.ErrorIs(t, run(0, domain.AdjustmentAdd), domain.ErrValidation)
	require.ErrorIs(t, run(10, domain.AdjustmentRemove), domain.ErrInsufficientStock)
	require.Equal(t, 5, stockOf(t, repo, "cake"))
}

func TestEngineNeverCommitsOnItsOwn(t *testing.T) {
	repo := memory.New()
	seedProduct(t, repo, "bun", 10)
	engine := NewEngine()
	boom := errors.New("later step failed")

	err := repo.InTx(context.Background(), func(tx store.Tx) error {
		if _, err := engine.ApplyDelta(context.Background(), tx, Change{ProductID: "bun", Delta: -4, Kind: domain.StockKindSale}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 10, stockOf(t, repo, "bun"))

	entries, err := repo.ListStockAudit(context.Background(), domain.StockAuditFilter{ProductID: "bun"})
	require.NoError(t, err)
	require.Empty(t, entries)
}
