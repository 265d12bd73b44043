// Package stock moves product quantities and records the audit trail for
// every movement. The engine only ever works on a caller-supplied
// transaction and never commits on its own.
package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"upendo/backend/internal/domain"
	"upendo/backend/internal/store"
	"upendo/backend/internal/xid"
)

type Change struct {
	ProductID string
	Delta     int
	Kind      string
	Actor     string
	Notes     string
	Reference string
}

type Movement struct {
	Product domain.Product
	Entry   domain.StockAuditEntry
}

type Engine struct {
	now func() time.Time
}

func NewEngine() *Engine {
	return &Engine{now: func() time.Time { return time.Now().UTC() }}
}

// ApplyDelta moves stock by a signed delta and appends one engine audit row.
func (e *Engine) ApplyDelta(ctx context.Context, tx store.Tx, change Change) (Movement, error) {
	if err := validateChange(change); err != nil {
		return Movement{}, err
	}
	product, err := e.load(ctx, tx, change.ProductID)
	if err != nil {
		return Movement{}, err
	}
	return e.record(ctx, tx, product, domain.StockAuditEntry{
		ProductID: product.ID,
		Delta:     change.Delta,
		Kind:      change.Kind,
		Source:    domain.AuditSourceEngine,
		Notes:     change.Notes,
		Reference: change.Reference,
		Actor:     change.Actor,
	})
}

// Adjust applies a manual correction. The quantity is unsigned and the
// adjustment type selects the direction.
func (e *Engine) Adjust(ctx context.Context, tx store.Tx, productID string, quantity int, adjustmentType string, actor string, notes string) (Movement, error) {
	var delta int
	switch adjustmentType {
	case domain.AdjustmentAdd:
		delta = quantity
	case domain.AdjustmentRemove:
		delta = -quantity
	default:
		return Movement{}, fmt.Errorf("%w: %q", domain.ErrInvalidAdjustment, adjustmentType)
	}
	if quantity <= 0 {
		return Movement{}, domain.Invalid("quantity", "must be greater than zero")
	}

	product, err := e.load(ctx, tx, productID)
	if err != nil {
		return Movement{}, err
	}
	return e.record(ctx, tx, product, domain.StockAuditEntry{
		ProductID:      product.ID,
		Delta:          delta,
		Kind:           domain.StockKindAdjustment,
		Source:         domain.AuditSourceManualAdjustment,
		AdjustmentType: adjustmentType,
		Notes:          notes,
		Actor:          actor,
	})
}

// record is the single write path for stock movements: the quantity update
// and its audit row always go together.
func (e *Engine) record(ctx context.Context, tx store.Tx, product domain.Product, entry domain.StockAuditEntry) (Movement, error) {
	if entry.Delta == 0 {
		return Movement{}, domain.Invalid("delta", "must be nonzero")
	}
	next := product.StockQuantity + entry.Delta
	if next < 0 {
		return Movement{}, &domain.InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   -entry.Delta,
			Available:   product.StockQuantity,
		}
	}

	at := e.now()
	if err := tx.UpdateProductStock(ctx, product.ID, next, at); err != nil {
		return Movement{}, fmt.Errorf("update stock %s: %w", product.ID, err)
	}

	entry.ID = xid.New("stk")
	entry.CreatedAt = at
	if entry.Actor == "" {
		entry.Actor = "system"
	}
	if err := tx.AppendStockAudit(ctx, entry); err != nil {
		return Movement{}, fmt.Errorf("append stock audit %s: %w", product.ID, err)
	}

	product.StockQuantity = next
	product.UpdatedAt = at
	return Movement{Product: product, Entry: entry}, nil
}

func (e *Engine) load(ctx context.Context, tx store.Tx, productID string) (domain.Product, error) {
	product, err := tx.GetProductForUpdate(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Product{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
		}
		return domain.Product{}, fmt.Errorf("lock product %s: %w", productID, err)
	}
	return *product, nil
}

func validateChange(change Change) error {
	if change.ProductID == "" {
		return domain.Invalid("product_id", "is required")
	}
	if change.Delta == 0 {
		return domain.Invalid("delta", "must be nonzero")
	}
	switch change.Kind {
	case domain.StockKindAddition:
		if change.Delta < 0 {
			return domain.Invalid("delta", "addition must be positive")
		}
	case domain.StockKindSubtraction, domain.StockKindSale:
		if change.Delta > 0 {
			return domain.Invalid("delta", change.Kind+" must be negative")
		}
	case domain.StockKindSaleEdit, domain.StockKindImport:
	case domain.StockKindAdjustment:
		return domain.Invalid("kind", "manual adjustments go through adjust")
	case domain.StockKindReorder:
		return domain.Invalid("kind", "reorder markers do not move stock")
	default:
		return domain.Invalid("kind", fmt.Sprintf("unknown stock kind %q", change.Kind))
	}
	return nil
}
