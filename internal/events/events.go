// Package events carries post-commit notifications from the service layer to
// interested subscribers such as cache invalidation and metrics.
package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Kind string

const (
	StockChanged               Kind = "stock.changed"
	SaleCreated                Kind = "sale.created"
	SaleUpdated                Kind = "sale.updated"
	SaleDeleted                Kind = "sale.deleted"
	PaymentRecorded            Kind = "payment.recorded"
	PaymentStatusChanged       Kind = "payment.status_changed"
	PurchaseOrderCreated       Kind = "purchase_order.created"
	PurchaseOrderStatusChanged Kind = "purchase_order.updated"
	ReorderEvaluated           Kind = "reorder.evaluated"
	ProductChanged             Kind = "product.changed"
)

type Event struct {
	Kind     Kind
	EntityID string
	// StockLevels holds the post-commit quantity of every product the
	// operation touched.
	StockLevels map[string]int
	// Labels carries low-cardinality detail such as the stock kind or
	// payment method.
	Labels map[string]string
	At     time.Time
}

type Handler func(ctx context.Context, event Event)

type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	log      *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{log: log}
}

func (b *Bus) Subscribe(h Handler) {
	if b == nil || h == nil {
		return
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, h)
	b.mu.Unlock()
}

// Publish delivers events synchronously. A panicking handler is logged and
// does not stop delivery to the others.
func (b *Bus) Publish(ctx context.Context, evts ...Event) {
	if b == nil || len(evts) == 0 {
		return
	}
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers...)
	b.mu.RUnlock()

	for _, event := range evts {
		if event.At.IsZero() {
			event.At = time.Now().UTC()
		}
		for _, h := range handlers {
			b.deliver(ctx, h, event)
		}
	}
}

func (b *Bus) deliver(ctx context.Context, h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked", zap.String("kind", string(event.Kind)), zap.Any("panic", r))
		}
	}()
	h(ctx, event)
}
