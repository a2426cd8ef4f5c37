package service

import (
	"context"

	"github.com/kitchenlane/catering-ops/internal/models"
	apperrors "github.com/kitchenlane/catering-ops/pkg/errors"
	"github.com/kitchenlane/catering-ops/pkg/logger"
)

// CatalogService manages the product catalog orders are priced against.
type CatalogService struct {
	catalog ProductCatalog
	logger  logger.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(catalog ProductCatalog, logger logger.Logger) *CatalogService {
	return &CatalogService{
		catalog: catalog,
		logger:  logger,
	}
}

// ProductInput is the input for creating or updating a product.
type ProductInput struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"image_url"`
}

func validateProductInput(input *ProductInput) error {
	if input.Name == "" {
		return apperrors.NewValidationError("name is required")
	}

	if input.Code == "" {
		return apperrors.NewValidationError("code is required")
	}

	if input.Price < 0 {
		return apperrors.NewValidationError("price cannot be negative")
	}

	return nil
}

// CreateProduct adds a product to the catalog.
func (s *CatalogService) CreateProduct(ctx context.Context, input *ProductInput) (*models.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	if existing, err := s.catalog.GetByCode(ctx, input.Code); err == nil && existing != nil {
		return nil, apperrors.NewConflictError("a product with this code already exists")
	}

	product := models.NewProduct(input.Code, input.Name, input.Category, input.Price, input.ImageURL)

	if err := s.catalog.Create(ctx, product); err != nil {
		return nil, mapRepositoryError(err, input.Code)
	}

	s.logger.Info("Product created", "productID", product.ID, "code", product.Code)

	return product, nil
}

// GetProduct retrieves a product by ID.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.catalog.GetByID(ctx, id)

	if err != nil {
		return nil, mapRepositoryError(err, id)
	}

	return product, nil
}

// GetProductByCode retrieves a product by its lookup code.
func (s *CatalogService) GetProductByCode(ctx context.Context, code string) (*models.Product, error) {
	product, err := s.catalog.GetByCode(ctx, code)

	if err != nil {
		return nil, mapRepositoryError(err, code)
	}

	return product, nil
}

// ListProducts retrieves the whole catalog.
func (s *CatalogService) ListProducts(ctx context.Context) ([]*models.Product, error) {
	products, err := s.catalog.GetAll(ctx)

	if err != nil {
		return nil, mapRepositoryError(err, "")
	}

	return products, nil
}

// UpdateProduct replaces a product's fields. Existing orders keep the item
// names and prices captured when they were created.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, input *ProductInput) (*models.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product, err := s.catalog.GetByID(ctx, id)

	if err != nil {
		return nil, mapRepositoryError(err, id)
	}

	product.Code = input.Code
	product.Name = input.Name
	product.Category = input.Category
	product.Price = input.Price
	product.ImageURL = input.ImageURL

	if err := s.catalog.Update(ctx, product); err != nil {
		return nil, mapRepositoryError(err, id)
	}

	s.logger.Info("Product updated", "productID", product.ID, "code", product.Code)

	return product, nil
}

// DeleteProduct removes a product from the catalog.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.catalog.Delete(ctx, id); err != nil {
		return mapRepositoryError(err, id)
	}

	s.logger.Info("Product deleted", "productID", id)

	return nil
}
