package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"upendo/backend/internal/domain"
	"upendo/backend/internal/events"
	"upendo/backend/internal/stock"
	"upendo/backend/internal/store"
	"upendo/backend/internal/xid"
)

// EvaluateReorder checks one product against its threshold. Every triggered
// decision raises a new pending purchase order with the product's supplier.
func (s *Service) EvaluateReorder(ctx context.Context, productID string) (domain.ReorderDecision, error) {
	return s.evaluateReorder(ctx, productID, false)
}

// ReorderIfNoneOpen behaves like EvaluateReorder but returns an existing
// pending or ordered purchase order for the product instead of raising
// another one.
func (s *Service) ReorderIfNoneOpen(ctx context.Context, productID string) (domain.ReorderDecision, error) {
	return s.evaluateReorder(ctx, productID, true)
}

func (s *Service) evaluateReorder(ctx context.Context, productID string, reuseOpen bool) (domain.ReorderDecision, error) {
	actor, err := s.authorize(ctx, domain.PermManageInventory)
	if err != nil {
		return domain.ReorderDecision{}, err
	}

	var (
		decision domain.ReorderDecision
		created  bool
	)
	err = s.inTx(ctx, "evaluate reorder", func(tx store.Tx) error {
		created = false
		product, err := tx.GetProductForUpdate(ctx, productID)
		if err != nil {
			return readErr("load product", err, domain.ErrProductNotFound, productID)
		}
		decision = s.advisor.Advise(*product)
		if !decision.Triggered {
			return nil
		}

		now := s.now()
		marker := domain.ReorderEvent{
			ID:              xid.New("rord"),
			ProductID:       product.ID,
			StockLevel:      product.StockQuantity,
			Threshold:       product.MinimumStockLevel,
			ReorderQuantity: decision.ReorderQuantity,
			Actor:           actor.Username,
			CreatedAt:       now,
		}

		if reuseOpen {
			open, err := tx.FindOpenPurchaseOrder(ctx, product.ID)
			switch {
			case err == nil:
				decision.PurchaseOrder = open
				decision.Reused = true
				decision.Reason = "open purchase order already covers this product"
			case !errors.Is(err, store.ErrNotFound):
				return fmt.Errorf("find open purchase order: %w", err)
			}
		}

		switch {
		case decision.Reused:
			// Nothing new to raise.
		case decision.ReorderQuantity <= 0:
			decision.Reason = "reorder quantity is zero; nothing to order"
		case product.SupplierID == "":
			decision.Reason = "no supplier on file; restock manually"
		default:
			po := newPurchaseOrder(*product, decision.ReorderQuantity, now)
			if err := tx.InsertPurchaseOrder(ctx, po); err != nil {
				return fmt.Errorf("insert purchase order: %w", err)
			}
			decision.PurchaseOrder = &po
			decision.Reason = "stock at or below minimum level"
			created = true
		}
		if decision.PurchaseOrder != nil {
			marker.PurchaseOrderID = decision.PurchaseOrder.ID
		}
		if err := tx.AppendReorderEvent(ctx, marker); err != nil {
			return fmt.Errorf("append reorder event: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.ReorderDecision{}, err
	}

	outcome := "skipped"
	switch {
	case created:
		outcome = "ordered"
	case decision.Reused:
		outcome = "reused"
	case decision.Triggered && decision.ReorderQuantity <= 0:
		outcome = "zero_quantity"
	case decision.Triggered:
		outcome = "no_supplier"
	}
	s.log.Info("reorder evaluated",
		zap.String("product_id", productID),
		zap.String("outcome", outcome),
		zap.Int("stock", decision.StockLevel),
		zap.Int("threshold", decision.Threshold),
		zap.String("actor", actor.Username),
	)

	evts := []events.Event{{
		Kind:     events.ReorderEvaluated,
		EntityID: productID,
		Labels:   map[string]string{"outcome": outcome},
	}}
	if created {
		evts = append(evts, events.Event{Kind: events.PurchaseOrderCreated, EntityID: decision.PurchaseOrder.ID})
	}
	s.publish(ctx, evts...)
	return decision, nil
}

// LowStock lists active products at or below their minimum, most urgent
// first, with the quantity the advisor would order.
func (s *Service) LowStock(ctx context.Context) ([]domain.ReorderDecision, error) {
	products, err := s.repo.ListLowStockProducts(ctx)
	if err != nil {
		return nil, readErr("list low stock", err, nil, "")
	}
	return s.advisor.Rank(products), nil
}

func (s *Service) ListReorderEvents(ctx context.Context, productID string, limit int) ([]domain.ReorderEvent, error) {
	evts, err := s.repo.ListReorderEvents(ctx, productID, clampLimit(limit, 50, 500))
	if err != nil {
		return nil, readErr("list reorder events", err, nil, productID)
	}
	return evts, nil
}

func (s *Service) CreateSupplier(ctx context.Context, req domain.SupplierCreateRequest) (domain.Supplier, error) {
	actor, err := s.authorize(ctx, domain.PermManageSuppliers)
	if err != nil {
		return domain.Supplier{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Supplier{}, domain.Invalid("name", "is required")
	}

	now := s.now()
	created, err := s.repo.CreateSupplier(ctx, domain.Supplier{
		ID:            xid.New("sup"),
		Name:          name,
		ContactPerson: strings.TrimSpace(req.ContactPerson),
		Phone:         strings.TrimSpace(req.Phone),
		Email:         strings.TrimSpace(req.Email),
		Address:       strings.TrimSpace(req.Address),
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return domain.Supplier{}, readErr("create supplier", err, nil, "")
	}
	s.log.Info("supplier created", zap.String("supplier_id", created.ID), zap.String("actor", actor.Username))
	return *created, nil
}

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	suppliers, err := s.repo.ListSuppliers(ctx)
	if err != nil {
		return nil, readErr("list suppliers", err, nil, "")
	}
	return suppliers, nil
}

func (s *Service) GetPurchaseOrder(ctx context.Context, id string) (domain.PurchaseOrder, error) {
	po, err := s.repo.GetPurchaseOrder(ctx, id)
	if err != nil {
		return domain.PurchaseOrder{}, readErr("get purchase order", err, domain.ErrPurchaseOrderNotFound, id)
	}
	return *po, nil
}

func (s *Service) ListPurchaseOrders(ctx context.Context, status string, limit int) ([]domain.PurchaseOrder, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != "" && !isPurchaseOrderStatus(status) {
		return nil, domain.Invalid("status", fmt.Sprintf("unsupported status %q", status))
	}
	orders, err := s.repo.ListPurchaseOrders(ctx, status, clampLimit(limit, 50, 500))
	if err != nil {
		return nil, readErr("list purchase orders", err, nil, "")
	}
	return orders, nil
}

// UpdatePurchaseOrderStatus moves an order forward. Delivery books every
// line into stock through the engine in the same transaction.
func (s *Service) UpdatePurchaseOrderStatus(ctx context.Context, id string, status string) (domain.PurchaseOrder, error) {
	actor, err := s.authorize(ctx, domain.PermManageSuppliers)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	status = strings.ToLower(strings.TrimSpace(status))

	var (
		po    domain.PurchaseOrder
		moves []stock.Movement
	)
	err = s.inTx(ctx, "update purchase order", func(tx store.Tx) error {
		moves = nil
		current, err := tx.GetPurchaseOrderForUpdate(ctx, id)
		if err != nil {
			return readErr("load purchase order", err, domain.ErrPurchaseOrderNotFound, id)
		}
		po = *current
		if !canTransition(po.Status, status) {
			return domain.Invalid("status", fmt.Sprintf("cannot move purchase order from %s to %s", po.Status, status))
		}

		var deliveredAt *time.Time
		if status == domain.PurchaseOrderDelivered {
			now := s.now()
			deliveredAt = &now
			for _, item := range po.Items {
				moved, err := s.engine.ApplyDelta(ctx, tx, stock.Change{
					ProductID: item.ProductID,
					Delta:     item.Quantity,
					Kind:      domain.StockKindAddition,
					Actor:     actor.Username,
					Notes:     "Purchase order #" + po.ID + " delivered",
					Reference: po.ID,
				})
				if err != nil {
					return err
				}
				moves = append(moves, moved)
			}
		}
		if err := tx.UpdatePurchaseOrderStatus(ctx, po.ID, status, deliveredAt); err != nil {
			return fmt.Errorf("update purchase order status: %w", err)
		}
		po.Status = status
		po.DeliveryDate = deliveredAt
		return nil
	})
	if err != nil {
		return domain.PurchaseOrder{}, err
	}

	s.log.Info("purchase order updated", zap.String("purchase_order_id", po.ID), zap.String("status", po.Status), zap.String("actor", actor.Username))
	evts := movementEvents(moves)
	evts = append(evts, events.Event{
		Kind:        events.PurchaseOrderStatusChanged,
		EntityID:    po.ID,
		StockLevels: stockLevels(moves),
		Labels:      map[string]string{"status": po.Status},
	})
	s.publish(ctx, evts...)
	return po, nil
}

func newPurchaseOrder(product domain.Product, qty int, now time.Time) domain.PurchaseOrder {
	id := xid.New("po")
	// Supplier prices are not tracked; the line is priced at the selling
	// price as an upper bound.
	lineTotal := product.Price.Mul(decimal.NewFromInt(int64(qty)))
	return domain.PurchaseOrder{
		ID:          id,
		SupplierID:  product.SupplierID,
		Status:      domain.PurchaseOrderPending,
		TotalAmount: lineTotal,
		Notes:       "Automatic reorder for " + product.Name,
		OrderDate:   now,
		CreatedAt:   now,
		Items: []domain.PurchaseOrderItem{{
			ID:              xid.New("poi"),
			PurchaseOrderID: id,
			ProductID:       product.ID,
			Quantity:        qty,
			UnitPrice:       product.Price,
			TotalPrice:      lineTotal,
		}},
	}
}

func isPurchaseOrderStatus(status string) bool {
	switch status {
	case domain.PurchaseOrderPending, domain.PurchaseOrderOrdered, domain.PurchaseOrderDelivered:
		return true
	}
	return false
}

func canTransition(from string, to string) bool {
	switch to {
	case domain.PurchaseOrderOrdered:
		return from == domain.PurchaseOrderPending
	case domain.PurchaseOrderDelivered:
		return from == domain.PurchaseOrderPending || from == domain.PurchaseOrderOrdered
	}
	return false
}
