package service

import (
	"context"
	"errors"

	"stockboard/internal/domain"
	"stockboard/internal/repository"

	"go.uber.org/zap"
)

var ErrUnknownSection = errors.New("unknown order section")

// OrderSection selects part of the order board.
type OrderSection string

const (
	SectionAll       OrderSection = ""
	SectionPending   OrderSection = "pending"
	SectionDelivered OrderSection = "delivered"
)

// ParseSection accepts "", "all", "pending" and "delivered".
func ParseSection(raw string) (OrderSection, error) {
	switch OrderSection(raw) {
	case SectionAll, "all":
		return SectionAll, nil
	case SectionPending, SectionDelivered:
		return OrderSection(raw), nil
	default:
		return "", ErrUnknownSection
	}
}

// FilterOrders keeps the orders belonging to section, preserving order.
func FilterOrders(orders []*domain.Order, section OrderSection) []*domain.Order {
	if section == SectionAll {
		return orders
	}
	out := make([]*domain.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status.Delivered == (section == SectionDelivered) {
			out = append(out, o)
		}
	}
	return out
}

// OrderService defines the order board operations
type OrderService interface {
	List(ctx context.Context, section OrderSection) ([]*domain.Order, error)
	SetDelivered(ctx context.Context, id string, delivered bool) (*domain.Order, error)
	SetPaid(ctx context.Context, id string, paid bool) (*domain.Order, error)
}

type orderService struct {
	orders repository.OrderRepository
	logger *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(orders repository.OrderRepository, logger *zap.Logger) OrderService {
	return &orderService{orders: orders, logger: logger}
}

func (s *orderService) List(ctx context.Context, section OrderSection) ([]*domain.Order, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, err
	}
	return FilterOrders(orders, section), nil
}

func (s *orderService) SetDelivered(ctx context.Context, id string, delivered bool) (*domain.Order, error) {
	order, err := s.orders.UpdateStatus(ctx, id, delivered)
	if err != nil {
		s.logger.Warn("Failed to update order status", zap.String("order_id", id), zap.Error(err))
		return nil, err
	}
	s.logger.Info("Order status updated",
		zap.String("order_id", id),
		zap.String(order.Status.Field(), order.Status.Value()),
	)
	return order, nil
}

func (s *orderService) SetPaid(ctx context.Context, id string, paid bool) (*domain.Order, error) {
	order, err := s.orders.UpdatePayment(ctx, id, paid)
	if err != nil {
		s.logger.Warn("Failed to update payment status", zap.String("order_id", id), zap.Error(err))
		return nil, err
	}
	s.logger.Info("Payment status updated", zap.String("order_id", id), zap.String("payment_status", order.PaymentStatus))
	return order, nil
}
