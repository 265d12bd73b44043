package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"upendo/backend/internal/domain"
	"upendo/backend/internal/events"
	"upendo/backend/internal/stock"
	"upendo/backend/internal/store"
	"upendo/backend/internal/xid"
)

const (
	defaultMinimumStockLevel = 10
	defaultReorderQuantity   = 20
)

func (s *Service) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	products, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return nil, readErr("list products", err, nil, "")
	}
	return products, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, readErr("get product", err, domain.ErrProductNotFound, id)
	}
	return *product, nil
}

// CreateProduct registers a product. Opening stock is booked through the
// engine so it shows up in the product's history.
func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, err := s.authorize(ctx, domain.PermManageInventory)
	if err != nil {
		return domain.Product{}, err
	}

	product := domain.Product{
		ID:                xid.New("prd"),
		Name:              strings.TrimSpace(req.Name),
		Description:       strings.TrimSpace(req.Description),
		Price:             req.Price,
		Category:          strings.TrimSpace(req.Category),
		Unit:              strings.TrimSpace(req.Unit),
		MinimumStockLevel: defaultMinimumStockLevel,
		ReorderQuantity:   defaultReorderQuantity,
		SupplierID:        strings.TrimSpace(req.SupplierID),
		Active:            true,
	}
	if req.MinimumStockLevel != nil {
		product.MinimumStockLevel = *req.MinimumStockLevel
	}
	if req.ReorderQuantity != nil {
		product.ReorderQuantity = *req.ReorderQuantity
	}
	if req.InitialStock < 0 {
		return domain.Product{}, domain.Invalid("initial_stock", "must not be negative")
	}
	if err := validateProduct(product); err != nil {
		return domain.Product{}, err
	}
	if err := s.checkSupplier(ctx, product.SupplierID); err != nil {
		return domain.Product{}, err
	}

	var opening *stock.Movement
	err = s.inTx(ctx, "create product", func(tx store.Tx) error {
		opening = nil
		now := s.now()
		product.CreatedAt = now
		product.UpdatedAt = now
		if err := tx.InsertProduct(ctx, product); err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		if req.InitialStock == 0 {
			return nil
		}
		moved, err := s.engine.ApplyDelta(ctx, tx, stock.Change{
			ProductID: product.ID,
			Delta:     req.InitialStock,
			Kind:      domain.StockKindAddition,
			Actor:     actor.Username,
			Notes:     "Opening stock",
		})
		if err != nil {
			return err
		}
		opening = &moved
		product = moved.Product
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.log.Info("product created", zap.String("product_id", product.ID), zap.Int("stock", product.StockQuantity), zap.String("actor", actor.Username))
	evts := []events.Event{{
		Kind:        events.ProductChanged,
		EntityID:    product.ID,
		StockLevels: map[string]int{product.ID: product.StockQuantity},
	}}
	if opening != nil {
		evts = append(evts, movementEvent(*opening))
	}
	s.publish(ctx, evts...)
	return product, nil
}

// UpdateProduct edits catalogue details. Stock quantity is never changed
// here; it only moves through the stock engine.
func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, err := s.authorize(ctx, domain.PermManageInventory)
	if err != nil {
		return domain.Product{}, err
	}
	existing, err := s.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		updated.Price = *req.Price
	}
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}
	if req.Unit != nil {
		updated.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.MinimumStockLevel != nil {
		updated.MinimumStockLevel = *req.MinimumStockLevel
	}
	if req.ReorderQuantity != nil {
		updated.ReorderQuantity = *req.ReorderQuantity
	}
	if req.SupplierID != nil {
		updated.SupplierID = strings.TrimSpace(*req.SupplierID)
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}
	if err := validateProduct(updated); err != nil {
		return domain.Product{}, err
	}
	if updated.SupplierID != existing.SupplierID {
		if err := s.checkSupplier(ctx, updated.SupplierID); err != nil {
			return domain.Product{}, err
		}
	}
	updated.UpdatedAt = s.now()

	saved, err := s.repo.UpdateProductDetails(ctx, updated)
	if err != nil {
		return domain.Product{}, readErr("update product", err, domain.ErrProductNotFound, id)
	}

	s.log.Info("product updated", zap.String("product_id", saved.ID), zap.String("actor", actor.Username))
	s.publish(ctx, events.Event{Kind: events.ProductChanged, EntityID: saved.ID})
	return *saved, nil
}

func (s *Service) checkSupplier(ctx context.Context, supplierID string) error {
	if supplierID == "" {
		return nil
	}
	if _, err := s.repo.GetSupplier(ctx, supplierID); err != nil {
		return readErr("get supplier", err, domain.ErrSupplierNotFound, supplierID)
	}
	return nil
}

func validateProduct(p domain.Product) error {
	switch {
	case p.Name == "":
		return domain.Invalid("name", "is required")
	case len(p.Name) > 100:
		return domain.Invalid("name", "must be at most 100 characters")
	case p.Unit == "":
		return domain.Invalid("unit", "is required")
	case p.Price.IsNegative():
		return domain.Invalid("price", "must not be negative")
	case p.MinimumStockLevel < 0:
		return domain.Invalid("minimum_stock_level", "must not be negative")
	case p.ReorderQuantity < 0:
		return domain.Invalid("reorder_quantity", "must not be negative")
	}
	return nil
}
