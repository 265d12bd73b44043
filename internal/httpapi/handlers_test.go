package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upendo/backend/internal/domain"
	"upendo/backend/internal/metrics"
	"upendo/backend/internal/service"
	"upendo/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()
	return newTestAPIWith(t, Options{AllowedOrigin: "*"})
}

func newTestAPIWith(t *testing.T, opts Options) *API {
	t.Helper()
	t.Setenv("SEED_ADMIN_PASSWORD", "admin123")
	t.Setenv("SEED_STAFF_PASSWORD", "staff123")

	repo := memory.NewSeeded(nil)
	svc := service.New(repo, service.Options{})
	auth := NewAuthManager(context.Background(), "test-secret-key-0123456789abcdef", time.Hour, repo, nil)
	return New(svc, auth, opts)
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, h http.Handler, username, password string) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp domain.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out), rec.Body.String())
	return out
}

func TestHandleHealth(t *testing.T) {
	h := newTestAPI(t).Handler()

	rec := doJSON(t, h, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, true, body["ok"])
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newTestAPI(t).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "trace-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "trace-42", rec.Header().Get(requestIDHeader))
}

func TestHandleLogin(t *testing.T) {
	h := newTestAPI(t).Handler()

	token := login(t, h, "admin", "admin123")
	assert.NotEmpty(t, token)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "admin",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProductsRequireAuth(t *testing.T) {
	h := newTestAPI(t).Handler()

	rec := doJSON(t, h, http.MethodGet, "/api/v1/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/products", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListProductsWithValidToken(t *testing.T) {
	h := newTestAPI(t).Handler()
	token := login(t, h, "cashier", "staff123")

	rec := doJSON(t, h, http.MethodGet, "/api/v1/products?category=bread", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[struct {
		Products []domain.Product `json:"products"`
	}](t, rec)
	require.Len(t, body.Products, 2)
	for _, p := range body.Products {
		assert.Equal(t, "bread", p.Category)
	}
}

func TestCreateSaleOverHTTP(t *testing.T) {
	h := newTestAPI(t).Handler()
	token := login(t, h, "cashier", "staff123")

	rec := doJSON(t, h, http.MethodPost, "/api/v1/sales", token, map[string]any{
		"customer_name": "Walk-in",
		"items": []map[string]any{
			{"product_id": "prd-white-bread", "quantity": 3, "unit_price": "50"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sale := decodeBody[domain.Sale](t, rec)
	assert.True(t, sale.TotalAmount.Equal(decimal.NewFromInt(150)), sale.TotalAmount.String())
	assert.Equal(t, domain.PaymentStatusPending, sale.PaymentStatus)
	require.Len(t, sale.Items, 1)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/products/prd-white-bread", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	product := decodeBody[domain.Product](t, rec)
	assert.Equal(t, 37, product.StockQuantity)
}

func TestCreateSaleInsufficientStockReturns409(t *testing.T) {
	h := newTestAPI(t).Handler()
	token := login(t, h, "cashier", "staff123")

	rec := doJSON(t, h, http.MethodPost, "/api/v1/sales", token, map[string]any{
		"items": []map[string]any{{"product_id": "prd-birthday-cake", "quantity": 10}},
	})
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "prd-birthday-cake", body["product_id"])
	assert.EqualValues(t, 10, body["requested"])
	assert.EqualValues(t, 3, body["available"])

	rec = doJSON(t, h, http.MethodGet, "/api/v1/sales", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[struct {
		Sales []domain.Sale `json:"sales"`
	}](t, rec)
	assert.Empty(t, list.Sales)
}

func TestCreateSaleValidationReturns422(t *testing.T) {
	h := newTestAPI(t).Handler()
	token := login(t, h, "cashier", "staff123")

	rec := doJSON(t, h, http.MethodPost, "/api/v1/sales", token, map[string]any{
		"items": []map[string]any{{"product_id": "prd-white-bread", "quantity": 0}},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "items[0].quantity", body["field"])

	rec = doJSON(t, h, http.MethodPost, "/api/v1/sales", token, map[string]any{"items": []any{}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateSaleUnknownProductReturns404(t *testing.T) {
	h := newTestAPI(t).Handler()
	token := login(t, h, "cashier", "staff123")

	rec := doJSON(t, h, http.MethodPost, "/api/v1/sales", token, map[string]any{
		"items": []map[string]any{{"product_id": "prd-missing", "quantity": 1}},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}

func TestUnknownFieldIsRejected(t *testing.T) {
	h := newTestAPI(t).Handler()
	token := login(t, h, "cashier", "staff123")

	rec := doJSON(t, h, http.MethodPost, "/api/v1/sales", token, map[string]any{
		"items":    []map[string]any{{"product_id": "prd-white-bread", "quantity": 1}},
		"discount": 10,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentFlowOverHTTP(t *testing.T) {
	h := newTestAPI(t).Handler()
	token := login(t, h, "cashier", "staff123")

	rec := doJSON(t, h, http.MethodPost, "/api/v1/sales", token, map[string]any{
		"items": []map[string]any{{"product_id": "prd-white-bread", "quantity": 10, "unit_price": "50"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sale := decodeBody[domain.Sale](t, rec)
	paymentsPath := "/api/v1/sales/" + sale.ID + "/payments"

	rec = doJSON(t, h, http.MethodPost, paymentsPath, token, map[string]any{
		"amount": "200", "payment_method": "cash",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	result := decodeBody[domain.PaymentResult](t, rec)
	assert.Equal(t, domain.PaymentStatusPartial, result.Sale.PaymentStatus)

	rec = doJSON(t, h, http.MethodPost, paymentsPath, token, map[string]any{
		"amount": "300", "payment_method": "mpesa",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, paymentsPath, token, map[string]any{
		"amount": "300", "payment_method": "mpesa", "transaction_id": "QHX81KD2",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	result = decodeBody[domain.PaymentResult](t, rec)
	assert.Equal(t, domain.PaymentStatusCompleted, result.Sale.PaymentStatus)

	// Only finance roles may change a recorded payment.
	rec = doJSON(t, h, http.MethodPatch, "/api/v1/payments/"+result.Payment.ID+"/status", token, map[string]any{"status": "failed"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	finance := login(t, h, "accountant", "staff123")
	rec = doJSON(t, h, http.MethodPatch, "/api/v1/payments/"+result.Payment.ID+"/status", finance, map[string]any{"status": "failed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result = decodeBody[domain.PaymentResult](t, rec)
	assert.Equal(t, domain.PaymentStatusPartial, result.Sale.PaymentStatus)

	rec = doJSON(t, h, http.MethodGet, paymentsPath, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[struct {
		Payments []domain.Payment `json:"payments"`
	}](t, rec)
	assert.Len(t, list.Payments, 2)
}

func TestDeleteSaleOverHTTP(t *testing.T) {
	h := newTestAPI(t).Handler()
	token := login(t, h, "cashier", "staff123")

	rec := doJSON(t, h, http.MethodPost, "/api/v1/sales", token, map[string]any{
		"items": []map[string]any{{"product_id": "prd-croissant", "quantity": 4}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sale := decodeBody[domain.Sale](t, rec)

	rec = doJSON(t, h, http.MethodDelete, "/api/v1/sales/"+sale.ID, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/api/v1/sales/"+sale.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/products/prd-croissant", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 18, decodeBody[domain.Product](t, rec).StockQuantity)
}

func TestAdjustStockOverHTTP(t *testing.T) {
	h := newTestAPI(t).Handler()
	cashier := login(t, h, "cashier", "staff123")
	storekeeper := login(t, h, "storekeeper", "staff123")
	path := "/api/v1/products/prd-flour-2kg/adjustments"

	rec := doJSON(t, h, http.MethodPost, path, cashier, map[string]any{"quantity": 1, "adjustment_type": "add"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, h, http.MethodPost, path, storekeeper, map[string]any{"quantity": 10, "adjustment_type": "remove"})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, path, storekeeper, map[string]any{"quantity": 1, "adjustment_type": "shrink"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, path, storekeeper, map[string]any{"quantity": 2, "adjustment_type": "remove", "notes": "torn bags"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	result := decodeBody[domain.StockResult](t, rec)
	assert.Equal(t, 3, result.Product.StockQuantity)
	assert.Equal(t, -2, result.Entry.Delta)

	rec = doJSON(t, h, http.MethodGet, path, cashier, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[struct {
		Adjustments []domain.StockAuditEntry `json:"adjustments"`
	}](t, rec)
	require.Len(t, list.Adjustments, 1)
	assert.Equal(t, domain.AuditSourceManualAdjustment, list.Adjustments[0].Source)
}

func TestReorderOverHTTP(t *testing.T) {
	h := newTestAPI(t).Handler()
	token := login(t, h, "storekeeper", "staff123")

	rec := doJSON(t, h, http.MethodPost, "/api/v1/products/prd-flour-2kg/reorder", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decision := decodeBody[domain.ReorderDecision](t, rec)
	require.True(t, decision.Triggered)
	require.NotNil(t, decision.PurchaseOrder)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/purchase-orders?status=pending", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[struct {
		PurchaseOrders []domain.PurchaseOrder `json:"purchase_orders"`
	}](t, rec)
	require.Len(t, list.PurchaseOrders, 1)
	assert.Equal(t, decision.PurchaseOrder.ID, list.PurchaseOrders[0].ID)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/products/prd-flour-2kg/reorder-events", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	evts := decodeBody[struct {
		Events []domain.ReorderEvent `json:"events"`
	}](t, rec)
	assert.Len(t, evts.Events, 1)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/products/prd-flour-2kg/reorder?if_none_open=true", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reused := decodeBody[domain.ReorderDecision](t, rec)
	require.True(t, reused.Reused)
	assert.Equal(t, decision.PurchaseOrder.ID, reused.PurchaseOrder.ID)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/products/prd-flour-2kg/reorder", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	fresh := decodeBody[domain.ReorderDecision](t, rec)
	require.False(t, fresh.Reused)
	assert.NotEqual(t, decision.PurchaseOrder.ID, fresh.PurchaseOrder.ID)
}

func TestUsersRequireSystemPermission(t *testing.T) {
	h := newTestAPI(t).Handler()
	admin := login(t, h, "admin", "admin123")
	cashier := login(t, h, "cashier", "staff123")

	rec := doJSON(t, h, http.MethodGet, "/api/v1/users", cashier, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/users", admin, map[string]any{
		"username": "headbaker", "password": "ovenproof", "role": "baker",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "ovenproof")

	login(t, h, "headbaker", "ovenproof")

	rec = doJSON(t, h, http.MethodGet, "/api/v1/users", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "headbaker")
}

func TestDashboardOverHTTP(t *testing.T) {
	h := newTestAPI(t).Handler()
	token := login(t, h, "admin", "admin123")

	rec := doJSON(t, h, http.MethodGet, "/api/v1/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decodeBody[domain.DashboardSummary](t, rec)
	assert.Equal(t, 6, summary.ActiveProducts)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestAPIWith(t, Options{AllowedOrigin: "*", Metrics: metrics.New("upendo_test")}).Handler()

	rec := doJSON(t, h, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "upendo_test_http_requests_total")
}

func TestUnknownRouteAndMethod(t *testing.T) {
	h := newTestAPI(t).Handler()

	rec := doJSON(t, h, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/healthz", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
