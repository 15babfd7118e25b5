// internal/notify/dispatcher.go
package notify

import (
	"context"
	"sync"
)

// IntentDispatcher executes notification intents. Callers treat dispatch as
// fire-and-forget; implementations must return only once all deliveries have
// settled.
type IntentDispatcher interface {
	Dispatch(ctx context.Context, intents []Intent)
}

// Dispatcher fans intents out concurrently and waits for all deliveries to
// settle before returning, so no notification work outlives the invocation
// that triggered it. Individual failures are already swallowed by the
// notifier.
type Dispatcher struct {
	notifier *Notifier
}

func NewDispatcher(n *Notifier) *Dispatcher {
	return &Dispatcher{notifier: n}
}

func (d *Dispatcher) Dispatch(ctx context.Context, intents []Intent) {
	if len(intents) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, intent := range intents {
		wg.Add(1)
		go func(in Intent) {
			defer wg.Done()
			d.notifier.Notify(ctx, in)
		}(intent)
	}
	wg.Wait()
}
