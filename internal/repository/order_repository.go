package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"stockboard/internal/docstore"
	"stockboard/internal/domain"

	"go.uber.org/zap"
)

var (
	ErrOrderNotFound = errors.New("order not found")
)

// OrderRepository defines the interface for order data access. Orders are
// placed by the storefront; the dashboard only changes their status fields.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, delivered bool) (*domain.Order, error)
	UpdatePayment(ctx context.Context, id string, paid bool) (*domain.Order, error)
}

type orderRepository struct {
	store  DocumentStore
	logger *zap.Logger
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(store DocumentStore, logger *zap.Logger) OrderRepository {
	return &orderRepository{store: store, logger: logger}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	key, err := r.store.Push(ctx, OrdersCollection, encodeOrder(order))
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	order.ID = key
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	raw, err := r.store.Get(ctx, docstore.Join(OrdersCollection, id))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) || errors.Is(err, docstore.ErrInvalidPath) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}
	return decodeOrder(id, raw)
}

// List returns every order, newest first
func (r *orderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	snapshot, err := r.store.List(ctx, OrdersCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	orders, skipped := FlattenOrders(snapshot)
	if len(skipped) > 0 {
		r.logger.Warn("Skipped malformed order records", zap.Strings("keys", skipped))
	}
	return orders, nil
}

// UpdateStatus writes the delivery state in the vocabulary the order already
// uses.
func (r *orderRepository) UpdateStatus(ctx context.Context, id string, delivered bool) (*domain.Order, error) {
	return r.modify(ctx, id, func(order *domain.Order) map[string]any {
		order.Status = order.Status.WithDelivered(delivered)
		return map[string]any{order.Status.Field(): order.Status.Value()}
	})
}

func (r *orderRepository) UpdatePayment(ctx context.Context, id string, paid bool) (*domain.Order, error) {
	return r.modify(ctx, id, func(order *domain.Order) map[string]any {
		order.PaymentStatus = "unpaid"
		if paid {
			order.PaymentStatus = "paid"
		}
		return map[string]any{"paymentStatus": order.PaymentStatus}
	})
}

func (r *orderRepository) modify(ctx context.Context, id string, change func(order *domain.Order) map[string]any) (*domain.Order, error) {
	var updated *domain.Order
	err := r.store.Transaction(ctx, docstore.Join(OrdersCollection, id), func(current json.RawMessage, exists bool) (json.RawMessage, error) {
		if !exists {
			return nil, ErrOrderNotFound
		}
		order, err := decodeOrder(id, current)
		if err != nil {
			return nil, err
		}
		fields, err := docstore.EncodeFields(change(order))
		if err != nil {
			return nil, err
		}
		updated = order
		return docstore.MergeFields(current, fields)
	})
	if errors.Is(err, ErrOrderNotFound) || errors.Is(err, docstore.ErrInvalidPath) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	return updated, nil
}
