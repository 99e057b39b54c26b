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
	ErrProductNotFound = errors.New("product not found")
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
	// AdjustStock runs fn against the stored product inside a transaction and
	// writes back the stock and updatedAt fields. An error from fn aborts the
	// write and is returned unchanged.
	AdjustStock(ctx context.Context, id string, fn func(product *domain.Product) error) error
}

type productRepository struct {
	store  DocumentStore
	logger *zap.Logger
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(store DocumentStore, logger *zap.Logger) ProductRepository {
	return &productRepository{store: store, logger: logger}
}

// Create appends the product and sets its ID to the store key.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	fields := productFields(product)
	fields["createdAt"] = toMillis(product.CreatedAt)

	key, err := r.store.Push(ctx, ProductsCollection, fields)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	product.ID = key
	return nil
}

// Update merges the product's fields into the stored record. Fields the save
// does not carry, such as createdAt, are kept.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	encoded, err := docstore.EncodeFields(productFields(product))
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	err = r.store.Transaction(ctx, docstore.Join(ProductsCollection, product.ID), func(current json.RawMessage, exists bool) (json.RawMessage, error) {
		if !exists {
			return nil, ErrProductNotFound
		}
		return docstore.MergeFields(current, encoded)
	})
	if errors.Is(err, ErrProductNotFound) {
		return ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

// Delete removes a product. Deleting a missing product is not an error.
func (r *productRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Remove(ctx, docstore.Join(ProductsCollection, id)); err != nil {
		if errors.Is(err, docstore.ErrInvalidPath) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

// FindByID retrieves a product by its store key
func (r *productRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	raw, err := r.store.Get(ctx, docstore.Join(ProductsCollection, id))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) || errors.Is(err, docstore.ErrInvalidPath) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return decodeProduct(id, raw)
}

// List returns the whole catalog in store order
func (r *productRepository) List(ctx context.Context) ([]*domain.Product, error) {
	snapshot, err := r.store.List(ctx, ProductsCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	products, skipped := FlattenProducts(snapshot)
	if len(skipped) > 0 {
		r.logger.Warn("Skipped malformed product records", zap.Strings("keys", skipped))
	}
	return products, nil
}

func (r *productRepository) AdjustStock(ctx context.Context, id string, fn func(product *domain.Product) error) error {
	err := r.store.Transaction(ctx, docstore.Join(ProductsCollection, id), func(current json.RawMessage, exists bool) (json.RawMessage, error) {
		if !exists {
			return nil, ErrProductNotFound
		}
		product, err := decodeProduct(id, current)
		if err != nil {
			return nil, err
		}
		if err := fn(product); err != nil {
			return nil, err
		}
		return docstore.MergeFields(current, map[string]json.RawMessage{
			"stock":     json.RawMessage(fmt.Sprintf("%d", product.Stock)),
			"updatedAt": json.RawMessage(fmt.Sprintf("%d", toMillis(product.UpdatedAt))),
		})
	})
	if errors.Is(err, docstore.ErrInvalidPath) {
		return ErrProductNotFound
	}
	return err
}
