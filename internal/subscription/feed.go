// Package subscription keeps a live, flattened view of a store collection for
// readers such as the dashboard streams.
package subscription

import (
	"context"
	"sync"

	"stockboard/internal/docstore"
	"stockboard/internal/domain"
	"stockboard/internal/repository"

	"go.uber.org/zap"
)

// State is the lifecycle stage of a feed.
type State string

const (
	Loading State = "loading"
	Loaded  State = "loaded"
	Errored State = "error"
)

// View is what a reader sees at one moment.
type View[T any] struct {
	State State
	Items []T
	Err   string
}

// Subscriber is the gateway operation a feed needs.
type Subscriber interface {
	Subscribe(ctx context.Context, collection string, onSnapshot func(docstore.Snapshot), onError func(error)) (*docstore.Subscription, error)
}

// FlattenFunc converts a snapshot into items and reports skipped keys.
type FlattenFunc[T any] func(docstore.Snapshot) ([]T, []string)

// Feed follows one collection. Each activation starts from Loading and moves
// to Loaded on every snapshot or to Errored on a delivery error; nothing
// changes after Deactivate.
type Feed[T any] struct {
	store      Subscriber
	collection string
	flatten    FlattenFunc[T]
	logger     *zap.Logger

	mu         sync.Mutex
	view       View[T]
	active     bool
	generation uint64
	sub        *docstore.Subscription
	updates    chan View[T]
}

// NewFeed builds an inactive feed over collection.
func NewFeed[T any](store Subscriber, collection string, flatten FlattenFunc[T], logger *zap.Logger) *Feed[T] {
	return &Feed[T]{
		store:      store,
		collection: collection,
		flatten:    flatten,
		logger:     logger.With(zap.String("collection", collection)),
		view:       View[T]{State: Loading},
		updates:    make(chan View[T], 1),
	}
}

// NewProductFeed follows the catalog in store order.
func NewProductFeed(store Subscriber, logger *zap.Logger) *Feed[*domain.Product] {
	return NewFeed(store, repository.ProductsCollection, repository.FlattenProducts, logger)
}

// NewOrderFeed follows the orders, newest first.
func NewOrderFeed(store Subscriber, logger *zap.Logger) *Feed[*domain.Order] {
	return NewFeed(store, repository.OrdersCollection, repository.FlattenOrders, logger)
}

// Activate attaches the listener. Calling it on an active feed restarts it.
// An error attaching moves the feed to Errored and is also returned.
func (f *Feed[T]) Activate(ctx context.Context) error {
	f.mu.Lock()
	if f.sub != nil {
		f.sub.Detach()
		f.sub = nil
	}
	f.generation++
	gen := f.generation
	f.active = true
	f.set(View[T]{State: Loading})
	f.mu.Unlock()

	sub, err := f.store.Subscribe(ctx, f.collection,
		func(s docstore.Snapshot) { f.onSnapshot(gen, s) },
		func(err error) { f.onError(gen, err) },
	)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		if f.generation == gen {
			f.logger.Error("Failed to subscribe", zap.Error(err))
			f.set(View[T]{State: Errored, Err: err.Error()})
		}
		return err
	}
	if f.generation != gen || !f.active {
		// Deactivated or restarted while attaching.
		sub.Detach()
		return nil
	}
	f.sub = sub
	return nil
}

// Deactivate detaches the listener. The last view stays readable.
func (f *Feed[T]) Deactivate() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.active = false
	f.generation++
	if f.sub != nil {
		f.sub.Detach()
		f.sub = nil
	}
}

// Current returns the latest view.
func (f *Feed[T]) Current() View[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

// Updates yields the view after each transition. Only the newest pending view
// is kept; a slow reader skips intermediate ones.
func (f *Feed[T]) Updates() <-chan View[T] {
	return f.updates
}

func (f *Feed[T]) onSnapshot(gen uint64, snapshot docstore.Snapshot) {
	items, skipped := f.flatten(snapshot)
	if len(skipped) > 0 {
		f.logger.Warn("Skipped malformed records", zap.Strings("keys", skipped))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generation != gen || !f.active {
		return
	}
	f.set(View[T]{State: Loaded, Items: items})
}

func (f *Feed[T]) onError(gen uint64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generation != gen || !f.active {
		return
	}
	f.logger.Error("Subscription failed", zap.Error(err))
	f.set(View[T]{State: Errored, Err: err.Error()})
}

// set must be called with mu held.
func (f *Feed[T]) set(view View[T]) {
	f.view = view
	select {
	case <-f.updates:
	default:
	}
	f.updates <- view
}
