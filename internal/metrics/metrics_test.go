package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"upendo/backend/internal/events"
)

func TestObserveCountsStockMovementsAndGauge(t *testing.T) {
	m := New("test")

	m.Observe(context.Background(), events.Event{
		Kind:        events.StockChanged,
		Labels:      map[string]string{"kind": "sale"},
		StockLevels: map[string]int{"prd-1": 17},
	})

	require.Equal(t, float64(1), testutil.ToFloat64(m.stockMovements.WithLabelValues("sale")))
	require.Equal(t, float64(17), testutil.ToFloat64(m.productStock.WithLabelValues("prd-1")))
}

func TestObserveSaleAndPaymentEvents(t *testing.T) {
	m := New("test")
	ctx := context.Background()

	m.Observe(ctx, events.Event{Kind: events.SaleCreated})
	m.Observe(ctx, events.Event{Kind: events.SaleDeleted})
	m.Observe(ctx, events.Event{Kind: events.PaymentRecorded, Labels: map[string]string{"method": "cash", "sale_status": "partial"}})

	require.Equal(t, float64(1), testutil.ToFloat64(m.saleOperations.WithLabelValues("create")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.saleOperations.WithLabelValues("delete")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.payments.WithLabelValues("recorded", "cash", "partial")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New("test")
	m.Observe(context.Background(), events.Event{Kind: events.SaleCreated})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "test_sale_operations_total"))
}
