package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"upendo/backend/internal/domain"
	"upendo/backend/internal/store"
)

// memTx writes to a staged copy of the state. The copy replaces the live
// state only when the transaction function returns nil.
type memTx struct {
	st *state
}

func (t *memTx) InsertProduct(_ context.Context, product domain.Product) error {
	if _, exists := t.st.products[product.ID]; exists {
		return store.ErrConflict
	}
	t.st.products[product.ID] = product
	return nil
}

func (t *memTx) GetProductForUpdate(_ context.Context, id string) (*domain.Product, error) {
	p, ok := t.st.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (t *memTx) LockProducts(_ context.Context, ids []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := t.st.products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

func (t *memTx) UpdateProductStock(_ context.Context, id string, qty int, at time.Time) error {
	p, ok := t.st.products[id]
	if !ok {
		return store.ErrNotFound
	}
	p.StockQuantity = qty
	p.UpdatedAt = at
	t.st.products[id] = p
	return nil
}

func (t *memTx) AppendStockAudit(_ context.Context, entry domain.StockAuditEntry) error {
	t.st.audit = append(t.st.audit, entry)
	return nil
}

func (t *memTx) GetSaleForUpdate(_ context.Context, id string) (*domain.Sale, error) {
	sale, ok := t.st.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cloned := cloneSale(sale)
	return &cloned, nil
}

func (t *memTx) InsertSale(_ context.Context, sale domain.Sale) error {
	if _, exists := t.st.sales[sale.ID]; exists {
		return store.ErrConflict
	}
	sale.Items = nil
	t.st.sales[sale.ID] = sale
	return nil
}

func (t *memTx) UpdateSale(_ context.Context, sale domain.Sale) error {
	current, ok := t.st.sales[sale.ID]
	if !ok {
		return store.ErrNotFound
	}
	current.CustomerName = sale.CustomerName
	current.TotalAmount = sale.TotalAmount
	current.PaymentMethod = sale.PaymentMethod
	current.PaymentStatus = sale.PaymentStatus
	current.UpdatedAt = sale.UpdatedAt
	t.st.sales[sale.ID] = current
	return nil
}

func (t *memTx) DeleteSaleItems(_ context.Context, saleID string) error {
	sale, ok := t.st.sales[saleID]
	if !ok {
		return store.ErrNotFound
	}
	sale.Items = nil
	t.st.sales[saleID] = sale
	return nil
}

func (t *memTx) InsertSaleItems(_ context.Context, items []domain.SaleItem) error {
	for _, item := range items {
		sale, ok := t.st.sales[item.SaleID]
		if !ok {
			return store.ErrNotFound
		}
		if _, ok := t.st.products[item.ProductID]; !ok {
			return store.ErrNotFound
		}
		sale.Items = append(slices.Clip(sale.Items), item)
		t.st.sales[item.SaleID] = sale
	}
	return nil
}

func (t *memTx) DeleteSale(_ context.Context, id string) error {
	if _, ok := t.st.sales[id]; !ok {
		return store.ErrNotFound
	}
	delete(t.st.sales, id)
	for paymentID, p := range t.st.payments {
		if p.SaleID == id {
			delete(t.st.payments, paymentID)
		}
	}
	return nil
}

func (t *memTx) InsertPayment(_ context.Context, payment domain.Payment) error {
	if _, ok := t.st.sales[payment.SaleID]; !ok {
		return store.ErrNotFound
	}
	t.st.payments[payment.ID] = payment
	return nil
}

func (t *memTx) GetPaymentForUpdate(_ context.Context, id string) (*domain.Payment, error) {
	p, ok := t.st.payments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (t *memTx) UpdatePaymentStatus(_ context.Context, id string, status string, at time.Time) error {
	p, ok := t.st.payments[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Status = status
	p.UpdatedAt = at
	t.st.payments[id] = p
	return nil
}

func (t *memTx) ListSalePayments(_ context.Context, saleID string) ([]domain.Payment, error) {
	return t.st.salePayments(saleID), nil
}

func (t *memTx) SetSalePaymentStatus(_ context.Context, saleID string, status string, at time.Time) error {
	sale, ok := t.st.sales[saleID]
	if !ok {
		return store.ErrNotFound
	}
	sale.PaymentStatus = status
	sale.UpdatedAt = at
	t.st.sales[saleID] = sale
	return nil
}

func (t *memTx) FindOpenPurchaseOrder(_ context.Context, productID string) (*domain.PurchaseOrder, error) {
	open := make([]domain.PurchaseOrder, 0, 1)
	for _, po := range t.st.purchaseOrders {
		if po.Status != domain.PurchaseOrderPending && po.Status != domain.PurchaseOrderOrdered {
			continue
		}
		for _, item := range po.Items {
			if item.ProductID == productID {
				open = append(open, po)
				break
			}
		}
	}
	if len(open) == 0 {
		return nil, store.ErrNotFound
	}
	sort.Slice(open, func(i, j int) bool {
		return open[i].CreatedAt.Before(open[j].CreatedAt)
	})
	found := clonePurchaseOrder(open[0])
	return &found, nil
}

func (t *memTx) InsertPurchaseOrder(_ context.Context, po domain.PurchaseOrder) error {
	if _, exists := t.st.purchaseOrders[po.ID]; exists {
		return store.ErrConflict
	}
	t.st.purchaseOrders[po.ID] = clonePurchaseOrder(po)
	return nil
}

func (t *memTx) GetPurchaseOrderForUpdate(_ context.Context, id string) (*domain.PurchaseOrder, error) {
	po, ok := t.st.purchaseOrders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cloned := clonePurchaseOrder(po)
	return &cloned, nil
}

func (t *memTx) UpdatePurchaseOrderStatus(_ context.Context, id string, status string, deliveredAt *time.Time) error {
	po, ok := t.st.purchaseOrders[id]
	if !ok {
		return store.ErrNotFound
	}
	po.Status = status
	if deliveredAt != nil {
		d := *deliveredAt
		po.DeliveryDate = &d
	}
	t.st.purchaseOrders[id] = po
	return nil
}

func (t *memTx) AppendReorderEvent(_ context.Context, event domain.ReorderEvent) error {
	t.st.reorderEvents = append(t.st.reorderEvents, event)
	return nil
}
