// Package reorder decides when and how much of a product to restock.
package reorder

import (
	"sort"

	"upendo/backend/internal/domain"
)

type Advisor struct {
	// multiplier scales the minimum stock level into the floor of the
	// suggested order quantity.
	multiplier int
}

func NewAdvisor() *Advisor {
	return &Advisor{multiplier: 2}
}

// Advise is read-only: it never touches the store.
func (a *Advisor) Advise(product domain.Product) domain.ReorderDecision {
	decision := domain.ReorderDecision{
		ProductID:  product.ID,
		StockLevel: product.StockQuantity,
		Threshold:  product.MinimumStockLevel,
	}
	if !product.NeedsRestock() {
		decision.Reason = "stock above reorder threshold"
		return decision
	}

	decision.Triggered = true
	// Zero when the product has neither a reorder quantity nor a minimum;
	// callers raise no order in that case.
	decision.ReorderQuantity = max(product.ReorderQuantity, product.MinimumStockLevel*a.multiplier)
	return decision
}

// Rank returns the triggered decisions for products, most urgent first.
func (a *Advisor) Rank(products []domain.Product) []domain.ReorderDecision {
	result := make([]domain.ReorderDecision, 0, len(products))
	for _, product := range products {
		if !product.Active {
			continue
		}
		decision := a.Advise(product)
		if decision.Triggered {
			result = append(result, decision)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		gapI := result[i].StockLevel - result[i].Threshold
		gapJ := result[j].StockLevel - result[j].Threshold
		return gapI < gapJ
	})
	return result
}
