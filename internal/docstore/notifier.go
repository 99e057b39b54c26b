package docstore

import (
	"context"
	"sync"
)

// Notifier fans change notifications out to in-process watchers. Backends
// without a native change feed embed one and call Publish after each write.
type Notifier struct {
	mu       sync.Mutex
	nextID   uint64
	watchers map[uint64]NotifyFunc
}

// Watch registers notify until ctx ends.
func (n *Notifier) Watch(ctx context.Context, notify NotifyFunc) (<-chan error, error) {
	n.mu.Lock()
	if n.watchers == nil {
		n.watchers = make(map[uint64]NotifyFunc)
	}
	n.nextID++
	id := n.nextID
	n.watchers[id] = notify
	n.mu.Unlock()

	done := make(chan error)
	go func() {
		<-ctx.Done()
		n.mu.Lock()
		delete(n.watchers, id)
		n.mu.Unlock()
		close(done)
	}()

	return done, nil
}

// Publish calls every registered watcher. It must not be called while
// holding a backend lock.
func (n *Notifier) Publish(collection string) {
	n.mu.Lock()
	watchers := make([]NotifyFunc, 0, len(n.watchers))
	for _, notify := range n.watchers {
		watchers = append(watchers, notify)
	}
	n.mu.Unlock()

	for _, notify := range watchers {
		notify(collection)
	}
}
