package domain

import "time"

const (
	StockKindAddition    = "addition"
	StockKindSubtraction = "subtraction"
	StockKindSale        = "sale"
	StockKindSaleEdit    = "sale_edit"
	StockKindAdjustment  = "adjustment"
	StockKindReorder     = "reorder"
	StockKindImport      = "import"
)

const (
	AuditSourceEngine           = "engine"
	AuditSourceManualAdjustment = "manual-adjustment"
)

const (
	AdjustmentAdd    = "add"
	AdjustmentRemove = "remove"
)

// StockAuditEntry is one immutable row of the stock audit log. Entries with
// Source engine form the stock history; entries with Source
// manual-adjustment are the manual corrections.
type StockAuditEntry struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	Delta          int       `json:"delta"`
	Kind           string    `json:"kind"`
	Source         string    `json:"source"`
	AdjustmentType string    `json:"adjustment_type,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	Reference      string    `json:"reference,omitempty"`
	Actor          string    `json:"actor"`
	CreatedAt      time.Time `json:"created_at"`
}

// Quantity is the unsigned magnitude used by the adjustment view.
func (e StockAuditEntry) Quantity() int {
	if e.Delta < 0 {
		return -e.Delta
	}
	return e.Delta
}

type StockAuditFilter struct {
	ProductID string
	Source    string
	Limit     int
}

func IsStockKind(kind string) bool {
	switch kind {
	case StockKindAddition, StockKindSubtraction, StockKindSale, StockKindSaleEdit,
		StockKindAdjustment, StockKindReorder, StockKindImport:
		return true
	}
	return false
}
