package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToAllSubscribersInOrder(t *testing.T) {
	bus := NewBus(nil)
	var got []string
	bus.Subscribe(func(_ context.Context, e Event) { got = append(got, "a:"+string(e.Kind)) })
	bus.Subscribe(func(_ context.Context, e Event) { got = append(got, "b:"+string(e.Kind)) })

	bus.Publish(context.Background(), Event{Kind: SaleCreated}, Event{Kind: StockChanged})

	require.Equal(t, []string{"a:sale.created", "b:sale.created", "a:stock.changed", "b:stock.changed"}, got)
}

func TestPublishSurvivesPanickingHandler(t *testing.T) {
	bus := NewBus(nil)
	delivered := 0
	bus.Subscribe(func(context.Context, Event) { panic("boom") })
	bus.Subscribe(func(context.Context, Event) { delivered++ })

	bus.Publish(context.Background(), Event{Kind: PaymentRecorded})

	require.Equal(t, 1, delivered)
}

func TestPublishStampsTime(t *testing.T) {
	bus := NewBus(nil)
	var seen Event
	bus.Subscribe(func(_ context.Context, e Event) { seen = e })

	bus.Publish(context.Background(), Event{Kind: SaleDeleted})

	require.False(t, seen.At.IsZero())
}

func TestNilBusIsSafe(t *testing.T) {
	var bus *Bus
	bus.Subscribe(func(context.Context, Event) {})
	bus.Publish(context.Background(), Event{Kind: SaleCreated})
}
