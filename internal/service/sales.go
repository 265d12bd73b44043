package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"upendo/backend/internal/domain"
	"upendo/backend/internal/events"
	"upendo/backend/internal/stock"
	"upendo/backend/internal/store"
	"upendo/backend/internal/xid"
)

// CreateSale records a sale and decrements stock for every line in one
// transaction. Either all of it commits or none of it does.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	actor, err := s.authorize(ctx, domain.PermProcessSales)
	if err != nil {
		return domain.Sale{}, err
	}
	if err := validateLines(req.Items); err != nil {
		return domain.Sale{}, err
	}
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		method = domain.PaymentMethodCash
	}
	if !domain.IsPaymentMethod(method) {
		return domain.Sale{}, domain.Invalid("payment_method", fmt.Sprintf("unsupported method %q", req.PaymentMethod))
	}
	var initial *domain.PaymentRequest
	if req.Payment != nil {
		normalized, err := normalizePayment(*req.Payment)
		if err != nil {
			return domain.Sale{}, err
		}
		initial = &normalized
	}

	var (
		sale  domain.Sale
		moves []stock.Movement
	)
	err = s.inTx(ctx, "create sale", func(tx store.Tx) error {
		now := s.now()
		sale = domain.Sale{
			ID:            xid.New("sale"),
			CustomerName:  strings.TrimSpace(req.CustomerName),
			TotalAmount:   decimal.Zero,
			PaymentMethod: method,
			PaymentStatus: domain.PaymentStatusPending,
			SaleDate:      now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.InsertSale(ctx, sale); err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}

		items, lineMoves, err := s.applyLines(ctx, tx, sale.ID, req.Items, domain.StockKindSale, actor.Username, "Sale #"+sale.ID, now)
		if err != nil {
			return err
		}
		moves = lineMoves
		sale.Items = items
		sale.TotalAmount = sumItems(items)

		if initial != nil {
			if _, err := s.insertPayment(ctx, tx, sale.ID, *initial, now); err != nil {
				return err
			}
		}
		status, err := s.derivedStatus(ctx, tx, sale.ID, sale.TotalAmount)
		if err != nil {
			return err
		}
		sale.PaymentStatus = status
		if err := tx.UpdateSale(ctx, sale); err != nil {
			return fmt.Errorf("update sale total: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Sale{}, err
	}

	s.log.Info("sale created", saleFields(sale, actor)...)
	evts := movementEvents(moves)
	evts = append(evts, events.Event{
		Kind:        events.SaleCreated,
		EntityID:    sale.ID,
		StockLevels: stockLevels(moves),
		Labels:      map[string]string{"method": sale.PaymentMethod, "sale_status": sale.PaymentStatus},
	})
	s.publish(ctx, evts...)
	return sale, nil
}

// EditSale replaces the lines of a sale. The old lines are returned to
// stock, then the new lines are applied as if the sale were new.
func (s *Service) EditSale(ctx context.Context, saleID string, req domain.SaleEditRequest) (domain.Sale, error) {
	actor, err := s.authorize(ctx, domain.PermProcessSales)
	if err != nil {
		return domain.Sale{}, err
	}
	if err := validateLines(req.Items); err != nil {
		return domain.Sale{}, err
	}

	var (
		sale  domain.Sale
		moves []stock.Movement
	)
	err = s.withLock(ctx, "sale:"+saleID, func() error {
		return s.inTx(ctx, "edit sale", func(tx store.Tx) error {
			moves = nil
			current, err := tx.GetSaleForUpdate(ctx, saleID)
			if err != nil {
				return readErr("load sale", err, domain.ErrSaleNotFound, saleID)
			}
			sale = *current
			now := s.now()

			// Lock every product on both sides of the edit up front in a
			// stable order.
			ids := make([]string, 0, len(sale.Items)+len(req.Items))
			for _, item := range sale.Items {
				ids = append(ids, item.ProductID)
			}
			for _, line := range req.Items {
				ids = append(ids, line.ProductID)
			}
			if _, err := tx.LockProducts(ctx, uniqueSorted(ids)); err != nil {
				return fmt.Errorf("lock products: %w", err)
			}

			for _, item := range sale.Items {
				moved, err := s.engine.ApplyDelta(ctx, tx, stock.Change{
					ProductID: item.ProductID,
					Delta:     item.Quantity,
					Kind:      domain.StockKindSaleEdit,
					Actor:     actor.Username,
					Notes:     "Sale edit #" + sale.ID + ": previous line returned",
					Reference: sale.ID,
				})
				if err != nil {
					return err
				}
				moves = append(moves, moved)
			}
			if err := tx.DeleteSaleItems(ctx, sale.ID); err != nil {
				return fmt.Errorf("delete sale items: %w", err)
			}

			items, lineMoves, err := s.applyLines(ctx, tx, sale.ID, req.Items, domain.StockKindSaleEdit, actor.Username, "Sale edit #"+sale.ID, now)
			if err != nil {
				return err
			}
			moves = append(moves, lineMoves...)

			sale.Items = items
			sale.TotalAmount = sumItems(items)
			if req.CustomerName != nil {
				sale.CustomerName = strings.TrimSpace(*req.CustomerName)
			}
			status, err := s.derivedStatus(ctx, tx, sale.ID, sale.TotalAmount)
			if err != nil {
				return err
			}
			sale.PaymentStatus = status
			sale.UpdatedAt = now
			if err := tx.UpdateSale(ctx, sale); err != nil {
				return fmt.Errorf("update sale: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return domain.Sale{}, err
	}

	s.log.Info("sale edited", saleFields(sale, actor)...)
	evts := movementEvents(moves)
	evts = append(evts, events.Event{
		Kind:        events.SaleUpdated,
		EntityID:    sale.ID,
		StockLevels: stockLevels(moves),
		Labels:      map[string]string{"method": sale.PaymentMethod, "sale_status": sale.PaymentStatus},
	})
	s.publish(ctx, evts...)
	return sale, nil
}

// DeleteSale returns every line of the sale to stock and removes the sale
// together with its items and payments.
func (s *Service) DeleteSale(ctx context.Context, saleID string) error {
	actor, err := s.authorize(ctx, domain.PermProcessSales)
	if err != nil {
		return err
	}

	var moves []stock.Movement
	err = s.withLock(ctx, "sale:"+saleID, func() error {
		return s.inTx(ctx, "delete sale", func(tx store.Tx) error {
			moves = nil
			sale, err := tx.GetSaleForUpdate(ctx, saleID)
			if err != nil {
				return readErr("load sale", err, domain.ErrSaleNotFound, saleID)
			}

			ids := make([]string, 0, len(sale.Items))
			for _, item := range sale.Items {
				ids = append(ids, item.ProductID)
			}
			if _, err := tx.LockProducts(ctx, uniqueSorted(ids)); err != nil {
				return fmt.Errorf("lock products: %w", err)
			}

			for _, item := range sale.Items {
				moved, err := s.engine.ApplyDelta(ctx, tx, stock.Change{
					ProductID: item.ProductID,
					Delta:     item.Quantity,
					Kind:      domain.StockKindSaleEdit,
					Actor:     actor.Username,
					Notes:     "Sale #" + sale.ID + " deleted",
					Reference: sale.ID,
				})
				if err != nil {
					return err
				}
				moves = append(moves, moved)
			}
			if err := tx.DeleteSale(ctx, sale.ID); err != nil {
				return fmt.Errorf("delete sale: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	s.log.Info("sale deleted", saleFields(domain.Sale{ID: saleID}, actor)...)
	evts := movementEvents(moves)
	evts = append(evts, events.Event{
		Kind:        events.SaleDeleted,
		EntityID:    saleID,
		StockLevels: stockLevels(moves),
	})
	s.publish(ctx, evts...)
	return nil
}

func (s *Service) GetSale(ctx context.Context, saleID string) (domain.Sale, error) {
	sale, err := s.repo.GetSale(ctx, saleID)
	if err != nil {
		return domain.Sale{}, readErr("get sale", err, domain.ErrSaleNotFound, saleID)
	}
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	sales, err := s.repo.ListSales(ctx, clampLimit(limit, 50, 500))
	if err != nil {
		return nil, readErr("list sales", err, nil, "")
	}
	return sales, nil
}

// applyLines resolves every product before moving any stock, then applies
// the lines in order and stores the resulting items.
func (s *Service) applyLines(ctx context.Context, tx store.Tx, saleID string, lines []domain.SaleLine, kind string, actor string, note string, now time.Time) ([]domain.SaleItem, []stock.Movement, error) {
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	products, err := tx.LockProducts(ctx, uniqueSorted(ids))
	if err != nil {
		return nil, nil, fmt.Errorf("lock products: %w", err)
	}

	prices := make([]decimal.Decimal, len(lines))
	for i, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, line.ProductID)
		}
		if !product.Active {
			return nil, nil, domain.Invalid(fmt.Sprintf("items[%d].product_id", i), fmt.Sprintf("product %s is inactive", product.Name))
		}
		prices[i] = product.Price
		if line.UnitPrice != nil {
			prices[i] = *line.UnitPrice
		}
	}

	// Lines naming the same product are checked against its stock as one
	// request.
	requested := make(map[string]int, len(products))
	for _, line := range lines {
		requested[line.ProductID] += line.Quantity
	}
	for _, line := range lines {
		product := products[line.ProductID]
		if total := requested[line.ProductID]; total > product.StockQuantity {
			return nil, nil, &domain.InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   total,
				Available:   product.StockQuantity,
			}
		}
	}

	items := make([]domain.SaleItem, 0, len(lines))
	moves := make([]stock.Movement, 0, len(lines))
	for i, line := range lines {
		moved, err := s.engine.ApplyDelta(ctx, tx, stock.Change{
			ProductID: line.ProductID,
			Delta:     -line.Quantity,
			Kind:      kind,
			Actor:     actor,
			Notes:     note,
			Reference: saleID,
		})
		if err != nil {
			return nil, nil, err
		}
		moves = append(moves, moved)
		items = append(items, domain.SaleItem{
			ID:         xid.New("item"),
			SaleID:     saleID,
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
			UnitPrice:  prices[i],
			TotalPrice: prices[i].Mul(decimal.NewFromInt(int64(line.Quantity))),
			CreatedAt:  now,
		})
	}
	if err := tx.InsertSaleItems(ctx, items); err != nil {
		return nil, nil, fmt.Errorf("insert sale items: %w", err)
	}
	return items, moves, nil
}

func validateLines(lines []domain.SaleLine) error {
	if len(lines) == 0 {
		return domain.Invalid("items", "at least one item is required")
	}
	for i, line := range lines {
		if strings.TrimSpace(line.ProductID) == "" {
			return domain.Invalid(fmt.Sprintf("items[%d].product_id", i), "is required")
		}
		if line.Quantity <= 0 {
			return domain.Invalid(fmt.Sprintf("items[%d].quantity", i), "must be greater than zero")
		}
		if line.UnitPrice != nil && line.UnitPrice.IsNegative() {
			return domain.Invalid(fmt.Sprintf("items[%d].unit_price", i), "must not be negative")
		}
	}
	return nil
}

func sumItems(items []domain.SaleItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.TotalPrice)
	}
	return total
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
