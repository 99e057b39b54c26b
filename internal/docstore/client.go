package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Client is the process-wide handle to the document store. It is built by the
// composition root and passed to whatever needs store access; the connection
// itself is opened on first use and reused afterwards.
type Client struct {
	connect Connector
	logger  *zap.Logger

	once    sync.Once
	backend Backend
	connErr error

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]*Subscription
	closed bool
	// feedErr is set once the change feed has ended with an error.
	feedErr error

	loads singleflight.Group
}

// New creates a client. No connection is made until the first operation.
func New(connect Connector, logger *zap.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		connect: connect,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		subs:    make(map[string]map[uint64]*Subscription),
	}
}

// Connect opens the connection if it is not open yet. Calling it again
// returns the outcome of the first attempt.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.conn(ctx)
	return err
}

func (c *Client) conn(ctx context.Context) (Backend, error) {
	c.once.Do(func() {
		backend, err := c.connect(ctx)
		if err != nil {
			c.connErr = fmt.Errorf("failed to connect to document store: %w", err)
			return
		}

		failed, err := backend.Watch(c.ctx, c.notify)
		if err != nil {
			_ = backend.Close()
			c.connErr = fmt.Errorf("failed to watch document store: %w", err)
			return
		}

		c.backend = backend
		go c.watch(failed)
		c.logger.Info("Document store connected")
	})

	if c.connErr != nil {
		return nil, c.connErr
	}

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	return c.backend, nil
}

func (c *Client) watch(failed <-chan error) {
	err, ok := <-failed
	if !ok || err == nil || c.ctx.Err() != nil {
		return
	}

	c.logger.Error("Document store change feed failed", zap.Error(err))
	err = fmt.Errorf("%w: %w", ErrFeedFailed, err)

	c.mu.Lock()
	c.feedErr = err
	var all []*Subscription
	for _, subs := range c.subs {
		for _, sub := range subs {
			all = append(all, sub)
		}
	}
	c.mu.Unlock()

	for _, sub := range all {
		sub.fail(err)
	}
}

func (c *Client) notify(collection string) {
	// A load that started before this change must not satisfy waiters that
	// are woken by it.
	c.loads.Forget(collection)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subs[collection] {
		sub.markDirty()
	}
}

// Get returns the raw value at path.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	backend, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}
	return backend.Get(ctx, p.Collection, p.Key)
}

// List reads the whole collection once.
func (c *Client) List(ctx context.Context, collection string) (Snapshot, error) {
	if err := ValidateCollection(collection); err != nil {
		return Snapshot{}, err
	}
	backend, err := c.conn(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	entries, err := backend.List(ctx, collection)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Collection: collection, Entries: entries}, nil
}

// Update merges fields into the record at path. Fields not named are kept;
// a nil value removes the field.
func (c *Client) Update(ctx context.Context, path string, fields map[string]any) error {
	p, err := ParsePath(path)
	if err != nil {
		return err
	}
	encoded, err := EncodeFields(fields)
	if err != nil {
		return err
	}
	backend, err := c.conn(ctx)
	if err != nil {
		return err
	}
	return backend.Merge(ctx, p.Collection, p.Key, encoded)
}

// Set replaces the record at path.
func (c *Client) Set(ctx context.Context, path string, value any) error {
	p, err := ParsePath(path)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	backend, err := c.conn(ctx)
	if err != nil {
		return err
	}
	return backend.Put(ctx, p.Collection, p.Key, raw)
}

// Push appends value to collection under a new time-ordered key.
func (c *Client) Push(ctx context.Context, collection string, value any) (string, error) {
	if err := ValidateCollection(collection); err != nil {
		return "", err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	backend, err := c.conn(ctx)
	if err != nil {
		return "", err
	}

	key := id.String()
	if err := backend.Put(ctx, collection, key, raw); err != nil {
		return "", err
	}
	return key, nil
}

// Remove deletes the record at path. Removing a missing record succeeds.
func (c *Client) Remove(ctx context.Context, path string) error {
	p, err := ParsePath(path)
	if err != nil {
		return err
	}
	backend, err := c.conn(ctx)
	if err != nil {
		return err
	}
	return backend.Delete(ctx, p.Collection, p.Key)
}

// Transaction runs fn atomically against the record at path.
func (c *Client) Transaction(ctx context.Context, path string, fn TxFunc) error {
	p, err := ParsePath(path)
	if err != nil {
		return err
	}
	backend, err := c.conn(ctx)
	if err != nil {
		return err
	}
	return backend.Transact(ctx, p.Collection, p.Key, fn)
}

// Subscribe attaches a listener to collection. onSnapshot receives the current
// value first and then a fresh snapshot after every change; calls for one
// subscription never overlap and arrive in order. onError is called at most
// once, after which the subscription is finished. Nothing is delivered after
// Detach or after ctx ends. Once the change feed has failed, Subscribe returns
// an error wrapping ErrFeedFailed.
func (c *Client) Subscribe(ctx context.Context, collection string, onSnapshot func(Snapshot), onError func(error)) (*Subscription, error) {
	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}
	if _, err := c.conn(ctx); err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		client:     c,
		collection: collection,
		onSnapshot: onSnapshot,
		onError:    onError,
		dirty:      make(chan struct{}, 1),
		failed:     make(chan error, 1),
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		return nil, ErrClosed
	}
	if c.feedErr != nil {
		err := c.feedErr
		c.mu.Unlock()
		cancel()
		return nil, err
	}
	c.nextID++
	sub.id = c.nextID
	if c.subs[collection] == nil {
		c.subs[collection] = make(map[uint64]*Subscription)
	}
	c.subs[collection][sub.id] = sub
	c.mu.Unlock()

	go sub.run(subCtx)

	return sub, nil
}

func (c *Client) load(collection string) (Snapshot, error) {
	v, err, _ := c.loads.Do(collection, func() (any, error) {
		backend, err := c.conn(c.ctx)
		if err != nil {
			return nil, err
		}
		entries, err := backend.List(c.ctx, collection)
		if err != nil {
			return nil, err
		}
		return Snapshot{Collection: collection, Entries: entries}, nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}

func (c *Client) remove(sub *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	subs := c.subs[sub.collection]
	delete(subs, sub.id)
	if len(subs) == 0 {
		delete(c.subs, sub.collection)
	}
}

// Health reports the backend status. A failed change feed reports down.
func (c *Client) Health(ctx context.Context) map[string]string {
	backend, err := c.conn(ctx)
	if err != nil {
		return map[string]string{"status": "down", "error": err.Error()}
	}
	c.mu.Lock()
	feedErr := c.feedErr
	c.mu.Unlock()
	if feedErr != nil {
		return map[string]string{"status": "down", "error": feedErr.Error()}
	}
	if reporter, ok := backend.(HealthReporter); ok {
		return reporter.Health(ctx)
	}
	return map[string]string{"status": "up"}
}

// Close detaches every subscription and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	var all []*Subscription
	for _, subs := range c.subs {
		for _, sub := range subs {
			all = append(all, sub)
		}
	}
	c.mu.Unlock()

	for _, sub := range all {
		sub.Detach()
	}
	c.cancel()

	// Never connected: make sure no later call opens a connection.
	c.once.Do(func() { c.connErr = ErrClosed })

	if c.backend != nil {
		if err := c.backend.Close(); err != nil {
			return fmt.Errorf("failed to close document store: %w", err)
		}
	}
	return nil
}
