package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockboard/internal/domain"
	"stockboard/internal/repository"

	"go.uber.org/zap"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must not be negative")
)

// StockService adjusts stock levels.
type StockService interface {
	// DecrementStock removes quantity units from a product's stock. It fails
	// with repository.ErrProductNotFound for an unknown product and with
	// ErrInsufficientStock when stock would go below zero; in both cases
	// nothing is written. A zero quantity succeeds and only refreshes
	// updatedAt.
	DecrementStock(ctx context.Context, productID string, quantity int) error
}

type stockService struct {
	products repository.ProductRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewStockService creates a new instance of StockService
func NewStockService(products repository.ProductRepository, logger *zap.Logger) StockService {
	return &stockService{
		products: products,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *stockService) DecrementStock(ctx context.Context, productID string, quantity int) error {
	if quantity < 0 {
		s.logger.Warn("Rejected negative stock decrement",
			zap.String("product_id", productID),
			zap.Int("quantity", quantity),
		)
		return ErrInvalidQuantity
	}

	var current int
	err := s.products.AdjustStock(ctx, productID, func(p *domain.Product) error {
		current = p.Stock
		if p.Stock < quantity {
			return ErrInsufficientStock
		}
		p.Stock -= quantity
		p.UpdatedAt = s.now()
		return nil
	})

	switch {
	case err == nil:
		s.logger.Debug("Stock decremented",
			zap.String("product_id", productID),
			zap.Int("quantity", quantity),
			zap.Int("remaining", current-quantity),
		)
		return nil
	case errors.Is(err, repository.ErrProductNotFound):
		s.logger.Warn("Product not found", zap.String("product_id", productID))
		return err
	case errors.Is(err, ErrInsufficientStock):
		s.logger.Warn("Insufficient stock",
			zap.String("product_id", productID),
			zap.Int("current", current),
			zap.Int("requested", quantity),
		)
		return err
	default:
		s.logger.Error("Failed to decrement stock", zap.String("product_id", productID), zap.Error(err))
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
}
