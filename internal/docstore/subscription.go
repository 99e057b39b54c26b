package docstore

import (
	"context"
	"sync"
	"sync/atomic"
)

// Subscription is a live listener on one collection.
type Subscription struct {
	client     *Client
	id         uint64
	collection string
	onSnapshot func(Snapshot)
	onError    func(error)

	dirty  chan struct{}
	failed chan error
	cancel context.CancelFunc
	done   chan struct{}

	detached atomic.Bool
	once     sync.Once
}

// Detach stops delivery. A callback already running may finish, but no new
// one starts once Detach returns.
func (s *Subscription) Detach() {
	s.once.Do(func() {
		s.detached.Store(true)
		s.cancel()
		s.client.remove(s)
	})
}

// Done is closed when the delivery goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) markDirty() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (s *Subscription) fail(err error) {
	select {
	case s.failed <- err:
	default:
	}
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)
	defer s.Detach()

	if !s.refresh(ctx) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-s.failed:
			s.deliverError(err)
			return
		case <-s.dirty:
			if !s.refresh(ctx) {
				return
			}
		}
	}
}

func (s *Subscription) refresh(ctx context.Context) bool {
	snapshot, err := s.client.load(s.collection)
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		s.deliverError(err)
		return false
	}
	if s.detached.Load() {
		return false
	}
	s.onSnapshot(snapshot)
	return true
}

func (s *Subscription) deliverError(err error) {
	if s.detached.Load() || s.onError == nil {
		return
	}
	s.onError(err)
}
