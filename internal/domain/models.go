package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusPartial   = "partial"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

const (
	PaymentMethodCash  = "cash"
	PaymentMethodMpesa = "mpesa"
	PaymentMethodCard  = "card"
)

const (
	PurchaseOrderPending   = "pending"
	PurchaseOrderOrdered   = "ordered"
	PurchaseOrderDelivered = "delivered"
)

type Product struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	Price             decimal.Decimal `json:"price"`
	Category          string          `json:"category"`
	Unit              string          `json:"unit"`
	StockQuantity     int             `json:"stock_quantity"`
	MinimumStockLevel int             `json:"minimum_stock_level"`
	ReorderQuantity   int             `json:"reorder_quantity"`
	SupplierID        string          `json:"supplier_id,omitempty"`
	Active            bool            `json:"active"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (p Product) NeedsRestock() bool {
	return p.StockQuantity <= p.MinimumStockLevel
}

type ProductCreateRequest struct {
	Name              string          `json:"name" validate:"required,max=100"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`
	Category          string          `json:"category" validate:"max=50"`
	Unit              string          `json:"unit" validate:"required,max=20"`
	InitialStock      int             `json:"initial_stock" validate:"gte=0"`
	MinimumStockLevel *int            `json:"minimum_stock_level,omitempty" validate:"omitempty,gte=0"`
	ReorderQuantity   *int            `json:"reorder_quantity,omitempty" validate:"omitempty,gte=0"`
	SupplierID        string          `json:"supplier_id"`
}

type ProductUpdateRequest struct {
	Name              *string          `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description       *string          `json:"description,omitempty"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	Category          *string          `json:"category,omitempty" validate:"omitempty,max=50"`
	Unit              *string          `json:"unit,omitempty" validate:"omitempty,min=1,max=20"`
	MinimumStockLevel *int             `json:"minimum_stock_level,omitempty" validate:"omitempty,gte=0"`
	ReorderQuantity   *int             `json:"reorder_quantity,omitempty" validate:"omitempty,gte=0"`
	SupplierID        *string          `json:"supplier_id,omitempty"`
	Active            *bool            `json:"active,omitempty"`
}

type ProductFilter struct {
	Category   string
	ActiveOnly bool
}

type Sale struct {
	ID            string          `json:"id"`
	CustomerName  string          `json:"customer_name,omitempty"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
	PaymentStatus string          `json:"payment_status"`
	SaleDate      time.Time       `json:"sale_date"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Items         []SaleItem      `json:"items"`
}

type SaleItem struct {
	ID         string          `json:"id"`
	SaleID     string          `json:"sale_id"`
	ProductID  string          `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

type SaleLine struct {
	ProductID string           `json:"product_id" validate:"required"`
	Quantity  int              `json:"quantity" validate:"required,gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type SaleCreateRequest struct {
	CustomerName  string          `json:"customer_name" validate:"max=100"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,oneof=cash mpesa card"`
	Items         []SaleLine      `json:"items" validate:"required,min=1,dive"`
	Payment       *PaymentRequest `json:"payment,omitempty"`
}

type SaleEditRequest struct {
	CustomerName *string    `json:"customer_name,omitempty" validate:"omitempty,max=100"`
	Items        []SaleLine `json:"items" validate:"required,min=1,dive"`
}

type Payment struct {
	ID            string          `json:"id"`
	SaleID        string          `json:"sale_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"payment_method"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Status        string          `json:"status"`
	PaymentDate   time.Time       `json:"payment_date"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type PaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"payment_method" validate:"required,oneof=cash mpesa card"`
	TransactionID string          `json:"transaction_id" validate:"max=100"`
}

type PaymentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending completed failed"`
}

type PaymentResult struct {
	Payment Payment `json:"payment"`
	Sale    Sale    `json:"sale"`
}

type StockChangeRequest struct {
	Delta     int    `json:"delta" validate:"required,ne=0"`
	Kind      string `json:"kind" validate:"required"`
	Notes     string `json:"notes"`
	Reference string `json:"reference" validate:"max=100"`
}

type StockAdjustRequest struct {
	Quantity       int    `json:"quantity" validate:"required,gt=0"`
	AdjustmentType string `json:"adjustment_type" validate:"required"`
	Notes          string `json:"notes"`
}

type StockResult struct {
	Product Product         `json:"product"`
	Entry   StockAuditEntry `json:"entry"`
}

type Supplier struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contact_person,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	Address       string    `json:"address,omitempty"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type SupplierCreateRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	ContactPerson string `json:"contact_person" validate:"max=100"`
	Phone         string `json:"phone" validate:"max=20"`
	Email         string `json:"email" validate:"omitempty,email,max=120"`
	Address       string `json:"address"`
}

type PurchaseOrder struct {
	ID           string              `json:"id"`
	SupplierID   string              `json:"supplier_id"`
	Status       string              `json:"status"`
	TotalAmount  decimal.Decimal     `json:"total_amount"`
	Notes        string              `json:"notes,omitempty"`
	OrderDate    time.Time           `json:"order_date"`
	DeliveryDate *time.Time          `json:"delivery_date,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	Items        []PurchaseOrderItem `json:"items"`
}

type PurchaseOrderItem struct {
	ID              string          `json:"id"`
	PurchaseOrderID string          `json:"purchase_order_id"`
	ProductID       string          `json:"product_id"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	TotalPrice      decimal.Decimal `json:"total_price"`
}

type PurchaseOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ordered delivered"`
}

type ReorderEvent struct {
	ID              string    `json:"id"`
	ProductID       string    `json:"product_id"`
	PurchaseOrderID string    `json:"purchase_order_id,omitempty"`
	StockLevel      int       `json:"stock_level"`
	Threshold       int       `json:"threshold"`
	ReorderQuantity int       `json:"reorder_quantity"`
	Actor           string    `json:"actor"`
	CreatedAt       time.Time `json:"created_at"`
}

type ReorderDecision struct {
	ProductID       string         `json:"product_id"`
	Triggered       bool           `json:"triggered"`
	StockLevel      int            `json:"stock_level"`
	Threshold       int            `json:"threshold"`
	ReorderQuantity int            `json:"reorder_quantity"`
	Reason          string         `json:"reason,omitempty"`
	PurchaseOrder   *PurchaseOrder `json:"purchase_order,omitempty"`
	Reused          bool           `json:"reused,omitempty"`
}

type DashboardSummary struct {
	TodayRevenue       decimal.Decimal   `json:"today_revenue"`
	TodayTransactions  int               `json:"today_transactions"`
	MonthRevenue       decimal.Decimal   `json:"month_revenue"`
	MonthTransactions  int               `json:"month_transactions"`
	ActiveProducts     int               `json:"active_products"`
	LowStockProducts   int               `json:"low_stock_products"`
	RecentSales        []Sale            `json:"recent_sales"`
	RecentStockChanges []StockAuditEntry `json:"recent_stock_changes"`
	GeneratedAt        time.Time         `json:"generated_at"`
}

type Actor struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type UserCreateRequest struct {
	Username string `json:"username" validate:"required,min=4,max=80"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}
