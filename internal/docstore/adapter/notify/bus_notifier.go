package notify

import (
	"context"

	"gym-assistant/internal/docstore/domain/repository"
	"gym-assistant/internal/shared/eventbus"
)

const source = "docstore"

// BusNotifier delivers change signals inside one process over the event bus.
type BusNotifier struct {
	bus eventbus.Bus
}

// NewBusNotifier creates a notifier on bus.
func NewBusNotifier(bus eventbus.Bus) *BusNotifier {
	return &BusNotifier{bus: bus}
}

// Notify publishes a change of collection.
func (n *BusNotifier) Notify(ctx context.Context, collection string) error {
	return n.bus.Publish(ctx, eventbus.NewEvent(eventbus.EventTypeDocumentChanged, collection, source))
}

// Listen calls fn after every change to collection.
func (n *BusNotifier) Listen(collection string, fn func()) (func(), error) {
	unsubscribe := n.bus.Subscribe(eventbus.EventTypeDocumentChanged, func(_ context.Context, event eventbus.Event) error {
		if name, ok := event.Data().(string); ok && name == collection {
			fn()
		}
		return nil
	})
	return unsubscribe, nil
}

var _ repository.ChangeNotifier = (*BusNotifier)(nil)
