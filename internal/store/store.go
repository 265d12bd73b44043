package store

import (
	"context"
	"errors"
	"time"

	"upendo/backend/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Tx is the write surface available inside a single store transaction. Every
// *ForUpdate read locks the row until the transaction ends.
type Tx interface {
	InsertProduct(ctx context.Context, product domain.Product) error
	GetProductForUpdate(ctx context.Context, id string) (*domain.Product, error)
	LockProducts(ctx context.Context, ids []string) (map[string]domain.Product, error)
	UpdateProductStock(ctx context.Context, id string, qty int, at time.Time) error
	AppendStockAudit(ctx context.Context, entry domain.StockAuditEntry) error

	GetSaleForUpdate(ctx context.Context, id string) (*domain.Sale, error)
	InsertSale(ctx context.Context, sale domain.Sale) error
	UpdateSale(ctx context.Context, sale domain.Sale) error
	DeleteSaleItems(ctx context.Context, saleID string) error
	InsertSaleItems(ctx context.Context, items []domain.SaleItem) error
	DeleteSale(ctx context.Context, id string) error

	InsertPayment(ctx context.Context, payment domain.Payment) error
	GetPaymentForUpdate(ctx context.Context, id string) (*domain.Payment, error)
	UpdatePaymentStatus(ctx context.Context, id string, status string, at time.Time) error
	ListSalePayments(ctx context.Context, saleID string) ([]domain.Payment, error)
	SetSalePaymentStatus(ctx context.Context, saleID string, status string, at time.Time) error

	FindOpenPurchaseOrder(ctx context.Context, productID string) (*domain.PurchaseOrder, error)
	InsertPurchaseOrder(ctx context.Context, po domain.PurchaseOrder) error
	GetPurchaseOrderForUpdate(ctx context.Context, id string) (*domain.PurchaseOrder, error)
	UpdatePurchaseOrderStatus(ctx context.Context, id string, status string, deliveredAt *time.Time) error
	AppendReorderEvent(ctx context.Context, event domain.ReorderEvent) error
}

type Repository interface {
	// InTx runs fn in one transaction. A non-nil error from fn rolls back
	// every write made through tx.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	UpdateProductDetails(ctx context.Context, product domain.Product) (*domain.Product, error)
	ListLowStockProducts(ctx context.Context) ([]domain.Product, error)

	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, limit int) ([]domain.Sale, error)
	CountSales(ctx context.Context) (int, error)
	GetPayment(ctx context.Context, id string) (*domain.Payment, error)
	ListPayments(ctx context.Context, saleID string) ([]domain.Payment, error)

	ListStockAudit(ctx context.Context, filter domain.StockAuditFilter) ([]domain.StockAuditEntry, error)
	ListReorderEvents(ctx context.Context, productID string, limit int) ([]domain.ReorderEvent, error)

	CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	GetSupplier(ctx context.Context, id string) (*domain.Supplier, error)
	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	GetPurchaseOrder(ctx context.Context, id string) (*domain.PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context, status string, limit int) ([]domain.PurchaseOrder, error)

	DashboardSummary(ctx context.Context, now time.Time) (domain.DashboardSummary, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
