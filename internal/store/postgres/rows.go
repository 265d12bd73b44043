package postgres

import (
	"context"
	"database/sql"
	"errors"

	"upendo/backend/internal/domain"
	"upendo/backend/internal/store"
)

const (
	productColumns = `id, name, description, price, category, unit, stock_quantity, minimum_stock_level,
		reorder_quantity, COALESCE(supplier_id, ''), active, created_at, updated_at`
	saleColumns          = `id, customer_name, total_amount, payment_method, payment_status, sale_date, created_at, updated_at`
	saleItemColumns      = `id, sale_id, product_id, quantity, unit_price, total_price, created_at`
	paymentColumns       = `id, sale_id, amount, payment_method, transaction_id, status, payment_date, created_at, updated_at`
	supplierColumns      = `id, name, contact_person, phone, email, address, active, created_at, updated_at`
	purchaseOrderColumns = `id, supplier_id, status, total_amount, notes, order_date, delivery_date, created_at`
)

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Unit, &p.StockQuantity,
		&p.MinimumStockLevel, &p.ReorderQuantity, &p.SupplierID, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func queryProducts(ctx context.Context, q querier, query string, args ...any) ([]domain.Product, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func loadProduct(ctx context.Context, q querier, id string, forUpdate bool) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	p, err := scanProduct(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanSale(row rowScanner) (domain.Sale, error) {
	var sale domain.Sale
	err := row.Scan(&sale.ID, &sale.CustomerName, &sale.TotalAmount, &sale.PaymentMethod, &sale.PaymentStatus,
		&sale.SaleDate, &sale.CreatedAt, &sale.UpdatedAt)
	if err != nil {
		return domain.Sale{}, err
	}
	sale.SaleDate = sale.SaleDate.UTC()
	sale.CreatedAt = sale.CreatedAt.UTC()
	sale.UpdatedAt = sale.UpdatedAt.UTC()
	sale.Items = []domain.SaleItem{}
	return sale, nil
}

func loadSale(ctx context.Context, q querier, id string, forUpdate bool) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	sale, err := scanSale(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	items, err := loadSaleItems(ctx, q, []string{sale.ID})
	if err != nil {
		return nil, err
	}
	sale.Items = append(sale.Items, items...)
	return &sale, nil
}

func loadSaleItems(ctx context.Context, q querier, saleIDs []string) ([]domain.SaleItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+saleItemColumns+`
		FROM sale_items
		WHERE sale_id = ANY($1)
		ORDER BY sale_id, position
	`, saleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.SaleItem, 0, len(saleIDs)*2)
	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.TotalPrice, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.CreatedAt = item.CreatedAt.UTC()
		items = append(items, item)
	}
	return items, rows.Err()
}

func loadPayments(ctx context.Context, q querier, saleID string) ([]domain.Payment, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE sale_id = $1
		ORDER BY payment_date ASC, id ASC
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0, 4)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanPayment(row rowScanner) (domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(&p.ID, &p.SaleID, &p.Amount, &p.Method, &p.TransactionID, &p.Status, &p.PaymentDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Payment{}, err
	}
	p.PaymentDate = p.PaymentDate.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func scanSupplier(row rowScanner) (domain.Supplier, error) {
	var s domain.Supplier
	err := row.Scan(&s.ID, &s.Name, &s.ContactPerson, &s.Phone, &s.Email, &s.Address, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return domain.Supplier{}, err
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

func scanPurchaseOrder(row rowScanner) (domain.PurchaseOrder, error) {
	var (
		po       domain.PurchaseOrder
		delivery sql.NullTime
	)
	err := row.Scan(&po.ID, &po.SupplierID, &po.Status, &po.TotalAmount, &po.Notes, &po.OrderDate, &delivery, &po.CreatedAt)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	po.OrderDate = po.OrderDate.UTC()
	po.CreatedAt = po.CreatedAt.UTC()
	if delivery.Valid {
		d := delivery.Time.UTC()
		po.DeliveryDate = &d
	}
	po.Items = []domain.PurchaseOrderItem{}
	return po, nil
}

func loadPurchaseOrder(ctx context.Context, q querier, id string, forUpdate bool) (*domain.PurchaseOrder, error) {
	query := `SELECT ` + purchaseOrderColumns + ` FROM purchase_orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	po, err := scanPurchaseOrder(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	items, err := loadPurchaseOrderItems(ctx, q, po.ID)
	if err != nil {
		return nil, err
	}
	po.Items = append(po.Items, items...)
	return &po, nil
}

func loadPurchaseOrderItems(ctx context.Context, q querier, purchaseOrderID string) ([]domain.PurchaseOrderItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, purchase_order_id, product_id, quantity, unit_price, total_price
		FROM purchase_order_items
		WHERE purchase_order_id = $1
		ORDER BY position
	`, purchaseOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.PurchaseOrderItem, 0, 4)
	for rows.Next() {
		var item domain.PurchaseOrderItem
		if err := rows.Scan(&item.ID, &item.PurchaseOrderID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.TotalPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
