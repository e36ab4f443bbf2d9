package services

import (
	"context"

	"github.com/risiti/risiti-backend/types"
)

// EventNotifier delivers one pipeline event to every interested party:
// connected dashboards and configured external sinks.
type EventNotifier interface {
	Notify(ctx context.Context, event types.Event)
}

// FanoutNotifier feeds the in-process broadcaster and the dispatch router
// from a single call site so event emission stays uniform across handlers,
// the engine, and the runner.
type FanoutNotifier struct {
	broadcaster *Broadcaster
	dispatcher  *DispatchRouter
}

func NewFanoutNotifier(broadcaster *Broadcaster, dispatcher *DispatchRouter) *FanoutNotifier {
	return &FanoutNotifier{broadcaster: broadcaster, dispatcher: dispatcher}
}

func (n *FanoutNotifier) Notify(ctx context.Context, event types.Event) {
	n.broadcaster.Publish(event)
	n.dispatcher.Dispatch(ctx, event)
}
