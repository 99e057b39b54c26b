package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"stockboard/internal/docstore"
	"stockboard/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *docstore.Client {
	t.Helper()
	client := docstore.New(docstore.NewMemoryBackend().Connector(), zap.NewNop())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// Feature: stockboard, Property 2: Product creation preserves attributes
func TestProperty_ProductCreationPreservesAttributes(t *testing.T) {
	store := newTestStore(t)
	productRepo := NewProductRepository(store, zap.NewNop())
	ctx := context.Background()

	properties := gopter.NewProperties(nil)

	properties.Property("creating and retrieving a product preserves all attributes", prop.ForAll(
		func(name string, description string, priceCents int64, stock int, enabled bool) bool {
			now := time.UnixMilli(time.Now().UnixMilli())
			price := decimal.New(priceCents, -2)
			product := &domain.Product{
				Name:         name,
				Description:  description,
				Category:     domain.CategoryPosters,
				MRP:          price.Add(decimal.NewFromInt(10)),
				Price:        price,
				Stock:        stock,
				Enabled:      enabled,
				DisplayImage: "https://cdn.example.com/p.jpg",
				Tags:         []string{"car"},
				CreatedAt:    now,
				UpdatedAt:    now,
			}

			if err := productRepo.Create(ctx, product); err != nil {
				t.Logf("FAIL: Failed to create product: %v", err)
				return false
			}

			retrieved, err := productRepo.FindByID(ctx, product.ID)
			if err != nil {
				t.Logf("FAIL: Failed to retrieve product: %v", err)
				return false
			}

			if retrieved.Name != product.Name || retrieved.Description != product.Description {
				t.Logf("FAIL: text mismatch. Expected %q/%q, got %q/%q", product.Name, product.Description, retrieved.Name, retrieved.Description)
				return false
			}
			if !retrieved.Price.Equal(product.Price) || !retrieved.MRP.Equal(product.MRP) {
				t.Logf("FAIL: Price mismatch. Expected %s/%s, got %s/%s", product.MRP, product.Price, retrieved.MRP, retrieved.Price)
				return false
			}
			if retrieved.Stock != product.Stock || retrieved.Enabled != product.Enabled {
				t.Logf("FAIL: Stock mismatch. Expected %d, got %d", product.Stock, retrieved.Stock)
				return false
			}
			if !retrieved.CreatedAt.Equal(now) || !retrieved.UpdatedAt.Equal(now) {
				t.Logf("FAIL: timestamps not preserved")
				return false
			}

			_ = productRepo.Delete(ctx, product.ID)
			return true
		},
		gen.RegexMatch(`[A-Za-z0-9 ]{3,50}`),
		gen.RegexMatch(`[A-Za-z0-9 .,!?]{10,200}`),
		gen.Int64Range(1, 999999),
		gen.IntRange(0, 1000),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProductCreateKeepsInsertionOrder(t *testing.T) {
	productRepo := NewProductRepository(newTestStore(t), zap.NewNop())
	ctx := context.Background()

	for _, name := range []string{"First", "Second", "Third"} {
		if err := productRepo.Create(ctx, &domain.Product{Name: name}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	products, err := productRepo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(products) != 3 || products[0].Name != "First" || products[2].Name != "Third" {
		t.Errorf("unexpected order: %+v", products)
	}
}

func TestProductUpdateKeepsCreatedAtAndAlbum(t *testing.T) {
	store := newTestStore(t)
	productRepo := NewProductRepository(store, zap.NewNop())
	ctx := context.Background()

	created := time.UnixMilli(1700000000000)
	product := &domain.Product{Name: "Frame", Album: []string{"a.jpg"}, CreatedAt: created, UpdatedAt: created}
	if err := productRepo.Create(ctx, product); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	product.Name = "Frame XL"
	product.Album = nil
	product.UpdatedAt = created.Add(time.Hour)
	if err := productRepo.Update(ctx, product); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	retrieved, err := productRepo.FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if retrieved.Name != "Frame XL" {
		t.Errorf("Name = %q", retrieved.Name)
	}
	if !retrieved.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed to %v", retrieved.CreatedAt)
	}
	if len(retrieved.Album) != 1 || retrieved.Album[0] != "a.jpg" {
		t.Errorf("Album = %v, want stored album kept", retrieved.Album)
	}
}

func TestProductUpdateMissingFails(t *testing.T) {
	store := newTestStore(t)
	productRepo := NewProductRepository(store, zap.NewNop())

	err := productRepo.Update(context.Background(), &domain.Product{ID: "missing", Name: "x"})
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	if _, err := store.Get(context.Background(), "stock/missing"); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("update of missing product wrote a record")
	}
}

func TestAdjustStockWritesOnlyStockFields(t *testing.T) {
	store := newTestStore(t)
	productRepo := NewProductRepository(store, zap.NewNop())
	ctx := context.Background()

	if err := store.Set(ctx, "stock/p1", map[string]any{"name": "Frame", "stock": 5, "extra": true}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	err := productRepo.AdjustStock(ctx, "p1", func(p *domain.Product) error {
		p.Stock -= 3
		p.UpdatedAt = time.UnixMilli(42)
		return nil
	})
	if err != nil {
		t.Fatalf("AdjustStock failed: %v", err)
	}

	raw, _ := store.Get(ctx, "stock/p1")
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if doc["stock"] != float64(2) || doc["updatedAt"] != float64(42) || doc["extra"] != true {
		t.Errorf("unexpected document: %v", doc)
	}

	errStop := errors.New("stop")
	if err := productRepo.AdjustStock(ctx, "p1", func(p *domain.Product) error { return errStop }); !errors.Is(err, errStop) {
		t.Errorf("expected callback error, got %v", err)
	}
	if err := productRepo.AdjustStock(ctx, "nope", func(p *domain.Product) error { return nil }); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestFindByIDRejectsBadKeys(t *testing.T) {
	productRepo := NewProductRepository(newTestStore(t), zap.NewNop())

	if _, err := productRepo.FindByID(context.Background(), "a.b"); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}
