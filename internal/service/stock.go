package service

import (
	"context"
	"strings"

	"upendo/backend/internal/domain"
	"upendo/backend/internal/events"
	"upendo/backend/internal/stock"
	"upendo/backend/internal/store"
)

// ApplyStockChange moves stock outside of a sale, for example a fresh bake
// or spoilage written off by the kitchen.
func (s *Service) ApplyStockChange(ctx context.Context, productID string, req domain.StockChangeRequest) (domain.StockResult, error) {
	actor, err := s.authorize(ctx, domain.PermManageInventory)
	if err != nil {
		return domain.StockResult{}, err
	}

	var moved stock.Movement
	err = s.inTx(ctx, "apply stock change", func(tx store.Tx) error {
		var err error
		moved, err = s.engine.ApplyDelta(ctx, tx, stock.Change{
			ProductID: productID,
			Delta:     req.Delta,
			Kind:      strings.TrimSpace(req.Kind),
			Actor:     actor.Username,
			Notes:     strings.TrimSpace(req.Notes),
			Reference: strings.TrimSpace(req.Reference),
		})
		return err
	})
	if err != nil {
		return domain.StockResult{}, err
	}

	s.publish(ctx, movementEvent(moved))
	return domain.StockResult{Product: moved.Product, Entry: moved.Entry}, nil
}

// AdjustStock records a manual correction after a physical count.
func (s *Service) AdjustStock(ctx context.Context, productID string, req domain.StockAdjustRequest) (domain.StockResult, error) {
	actor, err := s.authorize(ctx, domain.PermManageInventory)
	if err != nil {
		return domain.StockResult{}, err
	}

	var moved stock.Movement
	err = s.inTx(ctx, "adjust stock", func(tx store.Tx) error {
		var err error
		moved, err = s.engine.Adjust(ctx, tx, productID, req.Quantity, strings.TrimSpace(req.AdjustmentType), actor.Username, strings.TrimSpace(req.Notes))
		return err
	})
	if err != nil {
		return domain.StockResult{}, err
	}

	s.publish(ctx, movementEvent(moved))
	return domain.StockResult{Product: moved.Product, Entry: moved.Entry}, nil
}

func (s *Service) StockHistory(ctx context.Context, productID string, limit int) ([]domain.StockAuditEntry, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListStockAudit(ctx, domain.StockAuditFilter{
		ProductID: productID,
		Limit:     clampLimit(limit, 100, 500),
	})
	if err != nil {
		return nil, readErr("list stock history", err, nil, productID)
	}
	return entries, nil
}

func (s *Service) ListAdjustments(ctx context.Context, productID string, limit int) ([]domain.StockAuditEntry, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListStockAudit(ctx, domain.StockAuditFilter{
		ProductID: productID,
		Source:    domain.AuditSourceManualAdjustment,
		Limit:     clampLimit(limit, 100, 500),
	})
	if err != nil {
		return nil, readErr("list adjustments", err, nil, productID)
	}
	return entries, nil
}

func stockLevels(moves []stock.Movement) map[string]int {
	levels := make(map[string]int, len(moves))
	for _, moved := range moves {
		levels[moved.Product.ID] = moved.Product.StockQuantity
	}
	return levels
}

func movementEvents(moves []stock.Movement) []events.Event {
	out := make([]events.Event, 0, len(moves))
	for _, moved := range moves {
		out = append(out, movementEvent(moved))
	}
	return out
}
