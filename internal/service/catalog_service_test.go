package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kitchenlane/catering-ops/internal/models"
	"github.com/kitchenlane/catering-ops/internal/repository"
	apperrors "github.com/kitchenlane/catering-ops/pkg/errors"
)

func TestCreateProduct(t *testing.T) {
	t.Run("creates a catalog entry", func(t *testing.T) {
		catalog := new(mockProductCatalog)
		svc := NewCatalogService(catalog, testLogger())

		catalog.On("GetByCode", mock.Anything, "LMP-01").Return(nil, repository.ErrNotFound)
		catalog.On("Create", mock.Anything, mock.MatchedBy(func(p *models.Product) bool {
			return p.Code == "LMP-01" && p.Price == 45
		})).Return(nil)

		product, err := svc.CreateProduct(context.Background(), &ProductInput{
			Code:  "LMP-01",
			Name:  "Lumpia tray",
			Price: 45,
		})

		require.NoError(t, err)
		assert.NotEmpty(t, product.ID)
		catalog.AssertExpectations(t)
	})

	t.Run("duplicate code is a conflict", func(t *testing.T) {
		catalog := new(mockProductCatalog)
		svc := NewCatalogService(catalog, testLogger())

		catalog.On("GetByCode", mock.Anything, "LMP-01").
			Return(&models.Product{ID: "prd-1", Code: "LMP-01"}, nil)

		_, err := svc.CreateProduct(context.Background(), &ProductInput{
			Code:  "LMP-01",
			Name:  "Lumpia tray",
			Price: 45,
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		catalog.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects a negative price", func(t *testing.T) {
		svc := NewCatalogService(new(mockProductCatalog), testLogger())

		_, err := svc.CreateProduct(context.Background(), &ProductInput{
			Code:  "LMP-01",
			Name:  "Lumpia tray",
			Price: -1,
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestUpdateProduct(t *testing.T) {
	t.Run("replaces fields on an existing product", func(t *testing.T) {
		catalog := new(mockProductCatalog)
		svc := NewCatalogService(catalog, testLogger())

		catalog.On("GetByID", mock.Anything, "prd-1").
			Return(&models.Product{ID: "prd-1", Code: "LMP-01", Name: "Lumpia tray", Price: 45}, nil)
		catalog.On("Update", mock.Anything, mock.MatchedBy(func(p *models.Product) bool {
			return p.Price == 50
		})).Return(nil)

		product, err := svc.UpdateProduct(context.Background(), "prd-1", &ProductInput{
			Code:  "LMP-01",
			Name:  "Lumpia tray",
			Price: 50,
		})

		require.NoError(t, err)
		assert.Equal(t, 50.0, product.Price)
	})

	t.Run("missing product surfaces as not found", func(t *testing.T) {
		catalog := new(mockProductCatalog)
		svc := NewCatalogService(catalog, testLogger())

		catalog.On("GetByID", mock.Anything, "prd-missing").Return(nil, repository.ErrNotFound)

		_, err := svc.UpdateProduct(context.Background(), "prd-missing", &ProductInput{
			Code:  "LMP-01",
			Name:  "Lumpia tray",
			Price: 50,
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}
