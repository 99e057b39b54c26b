package service

import (
	"context"
	"fmt"
	"time"

	"stockboard/internal/domain"
	"stockboard/internal/media"
	"stockboard/internal/repository"

	"go.uber.org/zap"
)

// ImageUploads are the files attached to a product save.
type ImageUploads struct {
	DisplayImage *media.File
	Album        []media.File
}

// CatalogService defines the product editor operations
type CatalogService interface {
	Create(ctx context.Context, form ProductForm, uploads ImageUploads) (*domain.Product, error)
	Update(ctx context.Context, id string, form ProductForm, uploads ImageUploads) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
	LowStock(ctx context.Context) ([]domain.CategoryGroup, error)
}

type catalogService struct {
	products  repository.ProductRepository
	uploader  media.Uploader
	options   ValidationOptions
	threshold int
	logger    *zap.Logger
	now       func() time.Time
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	products repository.ProductRepository,
	uploader media.Uploader,
	options ValidationOptions,
	lowStockThreshold int,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		products:  products,
		uploader:  uploader,
		options:   options,
		threshold: lowStockThreshold,
		logger:    logger,
		now:       time.Now,
	}
}

// Create validates the form, uploads attached images and appends the product.
func (s *catalogService) Create(ctx context.Context, form ProductForm, uploads ImageUploads) (*domain.Product, error) {
	product, err := s.prepare(ctx, form, uploads)
	if err != nil {
		return nil, err
	}

	now := s.now()
	product.CreatedAt = now
	product.UpdatedAt = now

	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product created", zap.String("product_id", product.ID), zap.String("name", product.Name))
	return product, nil
}

// Update validates the form, uploads attached images and merges the result
// into the stored product.
func (s *catalogService) Update(ctx context.Context, id string, form ProductForm, uploads ImageUploads) (*domain.Product, error) {
	product, err := s.prepare(ctx, form, uploads)
	if err != nil {
		return nil, err
	}

	product.ID = id
	product.UpdatedAt = s.now()

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product updated", zap.String("product_id", id))
	return s.products.FindByID(ctx, id)
}

// prepare runs validation and then the uploads, in that order, so an invalid
// form never reaches the image service.
func (s *catalogService) prepare(ctx context.Context, form ProductForm, uploads ImageUploads) (*domain.Product, error) {
	if uploads.DisplayImage != nil {
		form.HasDisplayImageFile = true
	}
	if err := form.Validate(s.options); err != nil {
		return nil, err
	}
	if category := domain.Category(form.Category); !category.Known() {
		s.logger.Warn("Product saved with unknown category", zap.String("category", string(category)))
	}

	displayImage := form.DisplayImage
	if uploads.DisplayImage != nil {
		url, err := s.upload(ctx, *uploads.DisplayImage)
		if err != nil {
			return nil, fmt.Errorf("failed to upload display image: %w", err)
		}
		displayImage = url
	}

	var album []string
	if len(uploads.Album) > 0 {
		if s.uploader == nil {
			return nil, media.ErrNotConfigured
		}
		urls, err := media.UploadAll(ctx, s.uploader, uploads.Album)
		if err != nil {
			return nil, err
		}
		album = urls
	}
	album = append(album, ParseAlbum(form.Album)...)

	return form.product(displayImage, album), nil
}

func (s *catalogService) upload(ctx context.Context, file media.File) (string, error) {
	if s.uploader == nil {
		return "", media.ErrNotConfigured
	}
	return s.uploader.Upload(ctx, file)
}

func (s *catalogService) Delete(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Product deleted", zap.String("product_id", id))
	return nil
}

func (s *catalogService) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

func (s *catalogService) List(ctx context.Context) ([]*domain.Product, error) {
	return s.products.List(ctx)
}

// LowStock groups products at or below the configured threshold by category.
func (s *catalogService) LowStock(ctx context.Context) ([]domain.CategoryGroup, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}
	return domain.GroupLowStock(products, s.threshold), nil
}
