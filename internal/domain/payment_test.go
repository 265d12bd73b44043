package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDerivePaymentStatus(t *testing.T) {
	d := decimal.RequireFromString
	cases := []struct {
		name  string
		total string
		paid  string
		want  string
	}{
		{"nothing paid", "500", "0", PaymentStatusPending},
		{"part paid", "500", "200", PaymentStatusPartial},
		{"exactly paid", "500", "500", PaymentStatusCompleted},
		{"overpaid", "500", "650", PaymentStatusCompleted},
		{"cent short", "500", "499.99", PaymentStatusPartial},
		{"free sale", "0", "0", PaymentStatusCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DerivePaymentStatus(d(tc.total), d(tc.paid)))
		})
	}
}

func TestCompletedTotalIgnoresOtherStatuses(t *testing.T) {
	payments := []Payment{
		{Amount: decimal.NewFromInt(200), Status: PaymentStatusCompleted},
		{Amount: decimal.NewFromInt(300), Status: PaymentStatusFailed},
		{Amount: decimal.NewFromInt(50), Status: PaymentStatusPending},
		{Amount: decimal.RequireFromString("0.5"), Status: PaymentStatusCompleted},
	}
	assert.True(t, CompletedTotal(payments).Equal(decimal.RequireFromString("200.5")))
	assert.True(t, CompletedTotal(nil).IsZero())
}

func TestRequiresTransactionID(t *testing.T) {
	assert.False(t, RequiresTransactionID(PaymentMethodCash))
	assert.True(t, RequiresTransactionID(PaymentMethodMpesa))
	assert.True(t, RequiresTransactionID(PaymentMethodCard))
}

func TestRolePermissions(t *testing.T) {
	assert.True(t, Actor{Role: RoleAdmin}.Can(PermManageSystem))
	assert.False(t, Actor{Role: RoleManager}.Can(PermManageSystem))
	assert.True(t, Actor{Role: RoleInventoryManager}.Can(PermManageSuppliers))
	assert.False(t, Actor{Role: RoleSales}.Can(PermManageInventory))
	assert.False(t, Actor{Role: RoleBaker}.Can(PermProcessSales))
	assert.False(t, Actor{Role: "owner"}.Can(PermProcessSales))
	assert.False(t, IsRole("owner"))
}

func TestInsufficientStockErrorMatchesSentinel(t *testing.T) {
	err := error(&InsufficientStockError{ProductID: "prd-1", Requested: 10, Available: 5})
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, err.Error(), "requested 10, available 5")
	assert.True(t, IsBusinessError(err))
	assert.False(t, IsBusinessError(&PersistenceError{Op: "x", Err: assert.AnError}))
}
