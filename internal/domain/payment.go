package domain

import "github.com/shopspring/decimal"

// DerivePaymentStatus classifies a sale from the sum of its completed
// payments. A sale with nothing owed counts as completed.
func DerivePaymentStatus(total decimal.Decimal, paid decimal.Decimal) string {
	if paid.GreaterThanOrEqual(total) && (paid.IsPositive() || total.IsZero()) {
		return PaymentStatusCompleted
	}
	if paid.IsPositive() {
		return PaymentStatusPartial
	}
	return PaymentStatusPending
}

// CompletedTotal sums the amounts of completed payments only.
func CompletedTotal(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.Status != PaymentStatusCompleted {
			continue
		}
		total = total.Add(p.Amount)
	}
	return total
}

func IsPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodCash, PaymentMethodMpesa, PaymentMethodCard:
		return true
	}
	return false
}

func RequiresTransactionID(method string) bool {
	return method == PaymentMethodMpesa || method == PaymentMethodCard
}

func IsPaymentRecordStatus(status string) bool {
	switch status {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed:
		return true
	}
	return false
}
