package memory

import (
	"context"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"upendo/backend/internal/domain"
	"upendo/backend/internal/store"
)

type state struct {
	products       map[string]domain.Product
	sales          map[string]domain.Sale
	payments       map[string]domain.Payment
	audit          []domain.StockAuditEntry
	reorderEvents  []domain.ReorderEvent
	suppliers      map[string]domain.Supplier
	purchaseOrders map[string]domain.PurchaseOrder
	users          map[string]domain.UserAccount
}

func newState() *state {
	return &state{
		products:       make(map[string]domain.Product),
		sales:          make(map[string]domain.Sale),
		payments:       make(map[string]domain.Payment),
		suppliers:      make(map[string]domain.Supplier),
		purchaseOrders: make(map[string]domain.PurchaseOrder),
		users:          make(map[string]domain.UserAccount),
	}
}

// clone copies everything a transaction may write. Audit and reorder logs
// are append-only, so the slices are shared up to their current length.
func (st *state) clone() *state {
	next := &state{
		products:       make(map[string]domain.Product, len(st.products)),
		sales:          make(map[string]domain.Sale, len(st.sales)),
		payments:       make(map[string]domain.Payment, len(st.payments)),
		audit:          slices.Clip(st.audit),
		reorderEvents:  slices.Clip(st.reorderEvents),
		suppliers:      st.suppliers,
		purchaseOrders: make(map[string]domain.PurchaseOrder, len(st.purchaseOrders)),
		users:          st.users,
	}
	for id, p := range st.products {
		next.products[id] = p
	}
	for id, s := range st.sales {
		next.sales[id] = cloneSale(s)
	}
	for id, p := range st.payments {
		next.payments[id] = p
	}
	for id, po := range st.purchaseOrders {
		next.purchaseOrders[id] = clonePurchaseOrder(po)
	}
	return next
}

type Store struct {
	mu    sync.RWMutex
	state *state
	log   *zap.Logger
}

func New() *Store {
	return &Store{state: newState(), log: zap.NewNop()}
}

// seedUsers builds the dev/demo accounts. Passwords come from
// SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD with dev fallbacks.
func seedUsers(log *zap.Logger) map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Warn("memory store is using default dev credentials; set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"cashier", staffPwd, domain.RoleSales},
		{"storekeeper", staffPwd, domain.RoleInventoryManager},
		{"accountant", staffPwd, domain.RoleAccountant},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.MinCost)
		if err != nil {
			log.Fatal("failed to hash seed password", zap.String("username", u.username), zap.Error(err))
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store holding a small bakery catalogue with opening
// stock recorded in the audit log.
func NewSeeded(log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	now := time.Now().UTC()
	st := newState()

	st.suppliers["sup-flour"] = domain.Supplier{ID: "sup-flour", Name: "Unga Millers Ltd", ContactPerson: "Amina", Phone: "0700000001", Active: true, CreatedAt: now, UpdatedAt: now}
	st.suppliers["sup-dairy"] = domain.Supplier{ID: "sup-dairy", Name: "Highland Dairy", ContactPerson: "Peter", Phone: "0700000002", Active: true, CreatedAt: now, UpdatedAt: now}

	products := []domain.Product{
		{ID: "prd-white-bread", Name: "White Bread 400g", Category: "bread", Unit: "loaf", Price: decimal.NewFromInt(55), StockQuantity: 40, MinimumStockLevel: 10, ReorderQuantity: 30, SupplierID: "sup-flour"},
		{ID: "prd-brown-bread", Name: "Brown Bread 400g", Category: "bread", Unit: "loaf", Price: decimal.NewFromInt(60), StockQuantity: 25, MinimumStockLevel: 8, ReorderQuantity: 20, SupplierID: "sup-flour"},
		{ID: "prd-croissant", Name: "Butter Croissant", Category: "pastry", Unit: "piece", Price: decimal.NewFromInt(80), StockQuantity: 18, MinimumStockLevel: 6, ReorderQuantity: 24, SupplierID: "sup-dairy"},
		{ID: "prd-mandazi", Name: "Mandazi", Category: "pastry", Unit: "piece", Price: decimal.NewFromInt(10), StockQuantity: 120, MinimumStockLevel: 30, ReorderQuantity: 100},
		{ID: "prd-birthday-cake", Name: "Birthday Cake 1kg", Category: "cake", Unit: "piece", Price: decimal.NewFromInt(1500), StockQuantity: 3, MinimumStockLevel: 2, ReorderQuantity: 4, SupplierID: "sup-dairy"},
		{ID: "prd-flour-2kg", Name: "Baking Flour 2kg", Category: "ingredient", Unit: "bag", Price: decimal.NewFromInt(210), StockQuantity: 5, MinimumStockLevel: 10, ReorderQuantity: 15, SupplierID: "sup-flour"},
	}
	for _, p := range products {
		p.Active = true
		p.CreatedAt = now
		p.UpdatedAt = now
		st.products[p.ID] = p
		st.audit = append(st.audit, domain.StockAuditEntry{
			ID:        "seed-" + p.ID,
			ProductID: p.ID,
			Delta:     p.StockQuantity,
			Kind:      domain.StockKindAddition,
			Source:    domain.AuditSourceEngine,
			Notes:     "opening stock",
			Actor:     "system",
			CreatedAt: now,
		})
	}
	st.users = seedUsers(log)

	return &Store{state: st, log: log}
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.state.clone()
	if err := fn(&memTx{st: staged}); err != nil {
		return err
	}
	s.state = staged
	return nil
}

func (s *Store) ListProducts(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Product, 0, len(s.state.products))
	for _, p := range s.state.products {
		if filter.ActiveOnly && !p.Active {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(p.Category, filter.Category) {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Category == result[j].Category {
			return result[i].Name < result[j].Name
		}
		return result[i].Category < result[j].Category
	})
	return result, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.state.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) UpdateProductDetails(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.state.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	// Stock only moves through a transaction with an audit entry.
	product.StockQuantity = current.StockQuantity
	product.CreatedAt = current.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	s.state.products[product.ID] = product
	return &product, nil
}

func (s *Store) ListLowStockProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.ListProducts(ctx, domain.ProductFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	low := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.NeedsRestock() {
			low = append(low, p)
		}
	}
	sort.SliceStable(low, func(i, j int) bool {
		return low[i].StockQuantity < low[j].StockQuantity
	})
	return low, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.state.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cloned := cloneSale(sale)
	return &cloned, nil
}

func (s *Store) ListSales(_ context.Context, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.recentSales(limit), nil
}

func (s *Store) CountSales(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.state.sales), nil
}

func (s *Store) GetPayment(_ context.Context, id string) (*domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.state.payments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ListPayments(_ context.Context, saleID string) ([]domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.salePayments(saleID), nil
}

func (s *Store) ListStockAudit(_ context.Context, filter domain.StockAuditFilter) ([]domain.StockAuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.StockAuditEntry, 0, 32)
	for i := len(s.state.audit) - 1; i >= 0; i-- {
		entry := s.state.audit[i]
		if filter.ProductID != "" && entry.ProductID != filter.ProductID {
			continue
		}
		if filter.Source != "" && entry.Source != filter.Source {
			continue
		}
		result = append(result, entry)
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}
	return result, nil
}

func (s *Store) ListReorderEvents(_ context.Context, productID string, limit int) ([]domain.ReorderEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.ReorderEvent, 0, 8)
	for i := len(s.state.reorderEvents) - 1; i >= 0; i-- {
		event := s.state.reorderEvents[i]
		if productID != "" && event.ProductID != productID {
			continue
		}
		result = append(result, event)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.state.suppliers {
		if strings.EqualFold(existing.Name, supplier.Name) {
			return nil, store.ErrConflict
		}
	}
	suppliers := make(map[string]domain.Supplier, len(s.state.suppliers)+1)
	for id, sup := range s.state.suppliers {
		suppliers[id] = sup
	}
	suppliers[supplier.ID] = supplier
	s.state.suppliers = suppliers
	return &supplier, nil
}

func (s *Store) GetSupplier(_ context.Context, id string) (*domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sup, ok := s.state.suppliers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sup, nil
}

func (s *Store) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Supplier, 0, len(s.state.suppliers))
	for _, sup := range s.state.suppliers {
		result = append(result, sup)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (s *Store) GetPurchaseOrder(_ context.Context, id string) (*domain.PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	po, ok := s.state.purchaseOrders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cloned := clonePurchaseOrder(po)
	return &cloned, nil
}

func (s *Store) ListPurchaseOrders(_ context.Context, status string, limit int) ([]domain.PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.PurchaseOrder, 0, len(s.state.purchaseOrders))
	for _, po := range s.state.purchaseOrders {
		if status != "" && po.Status != status {
			continue
		}
		result = append(result, clonePurchaseOrder(po))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) DashboardSummary(_ context.Context, now time.Time) (domain.DashboardSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now = now.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	summary := domain.DashboardSummary{
		TodayRevenue: decimal.Zero,
		MonthRevenue: decimal.Zero,
		GeneratedAt:  now,
	}
	for _, sale := range s.state.sales {
		if !sale.SaleDate.Before(monthStart) {
			summary.MonthRevenue = summary.MonthRevenue.Add(sale.TotalAmount)
			summary.MonthTransactions++
		}
		if !sale.SaleDate.Before(dayStart) {
			summary.TodayRevenue = summary.TodayRevenue.Add(sale.TotalAmount)
			summary.TodayTransactions++
		}
	}
	for _, p := range s.state.products {
		if !p.Active {
			continue
		}
		summary.ActiveProducts++
		if p.NeedsRestock() {
			summary.LowStockProducts++
		}
	}
	summary.RecentSales = s.state.recentSales(5)
	summary.RecentStockChanges = make([]domain.StockAuditEntry, 0, 5)
	for i := len(s.state.audit) - 1; i >= 0 && len(summary.RecentStockChanges) < 5; i-- {
		summary.RecentStockChanges = append(summary.RecentStockChanges, s.state.audit[i])
	}
	return summary, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(user.Username))
	if _, exists := s.state.users[key]; exists {
		return store.ErrConflict
	}
	users := make(map[string]domain.UserAccount, len(s.state.users)+1)
	for k, v := range s.state.users {
		users[k] = v
	}
	user.Username = key
	users[key] = user
	s.state.users = users
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.UserAccount, 0, len(s.state.users))
	for _, u := range s.state.users {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Username < result[j].Username
	})
	return result, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(username))
	user, ok := s.state.users[key]
	if !ok {
		return store.ErrNotFound
	}
	users := make(map[string]domain.UserAccount, len(s.state.users))
	for k, v := range s.state.users {
		users[k] = v
	}
	user.Password = password
	users[key] = user
	s.state.users = users
	return nil
}

func (st *state) recentSales(limit int) []domain.Sale {
	result := make([]domain.Sale, 0, len(st.sales))
	for _, sale := range st.sales {
		result = append(result, cloneSale(sale))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SaleDate.After(result[j].SaleDate)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func (st *state) salePayments(saleID string) []domain.Payment {
	result := make([]domain.Payment, 0, 4)
	for _, p := range st.payments {
		if p.SaleID == saleID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func cloneSale(sale domain.Sale) domain.Sale {
	sale.Items = slices.Clone(sale.Items)
	return sale
}

func clonePurchaseOrder(po domain.PurchaseOrder) domain.PurchaseOrder {
	po.Items = slices.Clone(po.Items)
	if po.DeliveryDate != nil {
		d := *po.DeliveryDate
		po.DeliveryDate = &d
	}
	return po
}
