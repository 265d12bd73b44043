package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"upendo/backend/internal/domain"
	"upendo/backend/internal/store"
)

// txStore implements store.Tx on one serializable transaction. Locking
// reads use SELECT ... FOR UPDATE.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) InsertProduct(ctx context.Context, p domain.Product) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO products (
			id, name, description, price, category, unit, stock_quantity,
			minimum_stock_level, reorder_quantity, supplier_id, active, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, p.ID, p.Name, p.Description, p.Price, p.Category, p.Unit, p.StockQuantity,
		p.MinimumStockLevel, p.ReorderQuantity, nullIfEmpty(p.SupplierID), p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (t *txStore) GetProductForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	return loadProduct(ctx, t.tx, id, true)
}

func (t *txStore) LockProducts(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	products, err := queryProducts(ctx, t.tx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		result[p.ID] = p
	}
	return result, nil
}

func (t *txStore) UpdateProductStock(ctx context.Context, id string, qty int, at time.Time) error {
	return expectOne(t.tx.ExecContext(ctx, `
		UPDATE products SET stock_quantity = $2, updated_at = $3 WHERE id = $1
	`, id, qty, at))
}

func (t *txStore) AppendStockAudit(ctx context.Context, e domain.StockAuditEntry) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO stock_audit (id, product_id, delta, kind, source, adjustment_type, notes, reference, actor, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, e.ID, e.ProductID, e.Delta, e.Kind, e.Source, e.AdjustmentType, e.Notes, e.Reference, e.Actor, e.CreatedAt)
	return err
}

func (t *txStore) GetSaleForUpdate(ctx context.Context, id string) (*domain.Sale, error) {
	return loadSale(ctx, t.tx, id, true)
}

func (t *txStore) InsertSale(ctx context.Context, sale domain.Sale) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO sales (id, customer_name, total_amount, payment_method, payment_status, sale_date, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, sale.ID, sale.CustomerName, sale.TotalAmount, sale.PaymentMethod, sale.PaymentStatus, sale.SaleDate, sale.CreatedAt, sale.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (t *txStore) UpdateSale(ctx context.Context, sale domain.Sale) error {
	return expectOne(t.tx.ExecContext(ctx, `
		UPDATE sales
		SET customer_name = $2, total_amount = $3, payment_method = $4, payment_status = $5, updated_at = $6
		WHERE id = $1
	`, sale.ID, sale.CustomerName, sale.TotalAmount, sale.PaymentMethod, sale.PaymentStatus, sale.UpdatedAt))
}

func (t *txStore) DeleteSaleItems(ctx context.Context, saleID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, saleID)
	return err
}

func (t *txStore) InsertSaleItems(ctx context.Context, items []domain.SaleItem) error {
	for i, item := range items {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO sale_items (id, sale_id, position, product_id, quantity, unit_price, total_price, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, item.ID, item.SaleID, i, item.ProductID, item.Quantity, item.UnitPrice, item.TotalPrice, item.CreatedAt)
		if err != nil {
			return fmt.Errorf("sale item %d: %w", i, err)
		}
	}
	return nil
}

// DeleteSale relies on ON DELETE CASCADE for items and payments.
func (t *txStore) DeleteSale(ctx context.Context, id string) error {
	return expectOne(t.tx.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, id))
}

func (t *txStore) InsertPayment(ctx context.Context, p domain.Payment) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO payments (id, sale_id, amount, payment_method, transaction_id, status, payment_date, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, p.ID, p.SaleID, p.Amount, p.Method, p.TransactionID, p.Status, p.PaymentDate, p.CreatedAt, p.UpdatedAt)
	return err
}

func (t *txStore) GetPaymentForUpdate(ctx context.Context, id string) (*domain.Payment, error) {
	p, err := scanPayment(t.tx.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (t *txStore) UpdatePaymentStatus(ctx context.Context, id string, status string, at time.Time) error {
	return expectOne(t.tx.ExecContext(ctx, `
		UPDATE payments SET status = $2, updated_at = $3 WHERE id = $1
	`, id, status, at))
}

func (t *txStore) ListSalePayments(ctx context.Context, saleID string) ([]domain.Payment, error) {
	return loadPayments(ctx, t.tx, saleID)
}

func (t *txStore) SetSalePaymentStatus(ctx context.Context, saleID string, status string, at time.Time) error {
	return expectOne(t.tx.ExecContext(ctx, `
		UPDATE sales SET payment_status = $2, updated_at = $3 WHERE id = $1
	`, saleID, status, at))
}

func (t *txStore) FindOpenPurchaseOrder(ctx context.Context, productID string) (*domain.PurchaseOrder, error) {
	var id string
	err := t.tx.QueryRowContext(ctx, `
		SELECT po.id
		FROM purchase_orders po
		JOIN purchase_order_items poi ON poi.purchase_order_id = po.id
		WHERE poi.product_id = $1 AND po.status IN ('pending', 'ordered')
		ORDER BY po.created_at ASC, po.id ASC
		LIMIT 1
	`, productID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return loadPurchaseOrder(ctx, t.tx, id, false)
}

func (t *txStore) InsertPurchaseOrder(ctx context.Context, po domain.PurchaseOrder) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO purchase_orders (id, supplier_id, status, total_amount, notes, order_date, delivery_date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, po.ID, po.SupplierID, po.Status, po.TotalAmount, po.Notes, po.OrderDate, nullTime(po.DeliveryDate), po.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	for i, item := range po.Items {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO purchase_order_items (id, purchase_order_id, position, product_id, quantity, unit_price, total_price)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, item.ID, po.ID, i, item.ProductID, item.Quantity, item.UnitPrice, item.TotalPrice)
		if err != nil {
			return fmt.Errorf("purchase order item %d: %w", i, err)
		}
	}
	return nil
}

func (t *txStore) GetPurchaseOrderForUpdate(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	return loadPurchaseOrder(ctx, t.tx, id, true)
}

func (t *txStore) UpdatePurchaseOrderStatus(ctx context.Context, id string, status string, deliveredAt *time.Time) error {
	return expectOne(t.tx.ExecContext(ctx, `
		UPDATE purchase_orders
		SET status = $2, delivery_date = COALESCE($3, delivery_date)
		WHERE id = $1
	`, id, status, nullTime(deliveredAt)))
}

func (t *txStore) AppendReorderEvent(ctx context.Context, e domain.ReorderEvent) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO reorder_events (id, product_id, purchase_order_id, stock_level, threshold, reorder_quantity, actor, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, e.ID, e.ProductID, nullIfEmpty(e.PurchaseOrderID), e.StockLevel, e.Threshold, e.ReorderQuantity, e.Actor, e.CreatedAt)
	return err
}

func expectOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
