package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kitchenlane/catering-ops/internal/lifecycle"
	"github.com/kitchenlane/catering-ops/internal/models"
	"github.com/kitchenlane/catering-ops/internal/repository"
	apperrors "github.com/kitchenlane/catering-ops/pkg/errors"
	"github.com/kitchenlane/catering-ops/pkg/logger"
)

func testLogger() logger.Logger {
	return logger.NewLogger("error")
}

func pendingOrder(id string) *models.Order {
	now := models.GetCurrentTime()
	return &models.Order{
		ID:            id,
		CustomerName:  "Maria Santos",
		CustomerPhone: "0917-555-0101",
		Items: models.OrderItems{
			{ProductID: "prd-1", Name: "Lumpia tray", Quantity: 2, UnitPrice: 45},
		},
		Status:    models.OrderStatusPending,
		Amount:    90,
		Type:      models.OrderTypeTakeaway,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateOrder(t *testing.T) {
	t.Run("resolves items against the catalog and locks the amount", func(t *testing.T) {
		store := new(mockOrderStore)
		catalog := new(mockProductCatalog)
		svc := NewOrderService(store, catalog, testLogger())

		catalog.On("GetByID", mock.Anything, "prd-1").
			Return(&models.Product{ID: "prd-1", Name: "Lumpia tray", Price: 45}, nil)
		store.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		order, err := svc.CreateOrder(context.Background(), &models.OrderDraft{
			CustomerName:  "Maria Santos",
			CustomerPhone: "0917-555-0101",
			Items: models.OrderItems{
				{ProductID: "prd-1", Quantity: 2},
			},
		})

		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPending, order.Status)
		assert.Equal(t, "Lumpia tray", order.Items[0].Name)
		assert.Equal(t, 45.0, order.Items[0].UnitPrice)
		assert.Equal(t, 90.0, order.Amount)
		assert.Equal(t, models.OrderTypeTakeaway, order.Type)
		assert.Equal(t, int64(1), order.Version)
		store.AssertExpectations(t)
	})

	t.Run("an address makes the order a delivery", func(t *testing.T) {
		store := new(mockOrderStore)
		catalog := new(mockProductCatalog)
		svc := NewOrderService(store, catalog, testLogger())

		catalog.On("GetByID", mock.Anything, "prd-1").
			Return(&models.Product{ID: "prd-1", Name: "Lumpia tray", Price: 45}, nil)
		store.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		order, err := svc.CreateOrder(context.Background(), &models.OrderDraft{
			CustomerName:  "Maria Santos",
			CustomerPhone: "0917-555-0101",
			Address:       "12 Mabini St",
			Items:         models.OrderItems{{ProductID: "prd-1", Quantity: 1}},
		})

		require.NoError(t, err)
		assert.Equal(t, models.OrderTypeDelivery, order.Type)
	})

	t.Run("rejects a draft without items", func(t *testing.T) {
		svc := NewOrderService(new(mockOrderStore), new(mockProductCatalog), testLogger())

		_, err := svc.CreateOrder(context.Background(), &models.OrderDraft{
			CustomerName:  "Maria Santos",
			CustomerPhone: "0917-555-0101",
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("rejects a draft without a phone number", func(t *testing.T) {
		store := new(mockOrderStore)
		svc := NewOrderService(store, new(mockProductCatalog), testLogger())

		_, err := svc.CreateOrder(context.Background(), &models.OrderDraft{
			CustomerName: "Maria Santos",
			Items:        models.OrderItems{{ProductID: "prd-1", Quantity: 1}},
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects an unknown product", func(t *testing.T) {
		store := new(mockOrderStore)
		catalog := new(mockProductCatalog)
		svc := NewOrderService(store, catalog, testLogger())

		catalog.On("GetByID", mock.Anything, "prd-missing").
			Return(nil, repository.ErrNotFound)

		_, err := svc.CreateOrder(context.Background(), &models.OrderDraft{
			CustomerName:  "Maria Santos",
			CustomerPhone: "0917-555-0101",
			Items:         models.OrderItems{{ProductID: "prd-missing", Quantity: 1}},
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects a non-positive quantity", func(t *testing.T) {
		svc := NewOrderService(new(mockOrderStore), new(mockProductCatalog), testLogger())

		_, err := svc.CreateOrder(context.Background(), &models.OrderDraft{
			CustomerName:  "Maria Santos",
			CustomerPhone: "0917-555-0101",
			Items:         models.OrderItems{{ProductID: "prd-1", Quantity: 0}},
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("a colliding order number is retried with a fresh one", func(t *testing.T) {
		store := new(mockOrderStore)
		catalog := new(mockProductCatalog)
		svc := NewOrderService(store, catalog, testLogger())

		catalog.On("GetByID", mock.Anything, "prd-1").
			Return(&models.Product{ID: "prd-1", Name: "Lumpia tray", Price: 45}, nil)

		var ids []string
		record := func(args mock.Arguments) {
			ids = append(ids, args.Get(1).(*models.Order).ID)
		}
		store.On("Create", mock.Anything, mock.Anything, mock.Anything).
			Run(record).Return(repository.ErrDuplicateID).Once()
		store.On("Create", mock.Anything, mock.Anything, mock.Anything).
			Run(record).Return(nil).Once()

		order, err := svc.CreateOrder(context.Background(), &models.OrderDraft{
			CustomerName:  "Maria Santos",
			CustomerPhone: "0917-555-0101",
			Items:         models.OrderItems{{ProductID: "prd-1", Quantity: 1}},
		})

		require.NoError(t, err)
		require.Len(t, ids, 2)
		assert.NotEqual(t, ids[0], ids[1], "the retry must use a fresh order number")
		assert.Equal(t, ids[1], order.ID)
	})

	t.Run("gives up after repeated number collisions", func(t *testing.T) {
		store := new(mockOrderStore)
		catalog := new(mockProductCatalog)
		svc := NewOrderService(store, catalog, testLogger())

		catalog.On("GetByID", mock.Anything, "prd-1").
			Return(&models.Product{ID: "prd-1", Name: "Lumpia tray", Price: 45}, nil)
		store.On("Create", mock.Anything, mock.Anything, mock.Anything).
			Return(repository.ErrDuplicateID)

		_, err := svc.CreateOrder(context.Background(), &models.OrderDraft{
			CustomerName:  "Maria Santos",
			CustomerPhone: "0917-555-0101",
			Items:         models.OrderItems{{ProductID: "prd-1", Quantity: 1}},
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrInternal)
		store.AssertNumberOfCalls(t, "Create", orderNumberAttempts)
	})
}

func TestUpdateStatus(t *testing.T) {
	t.Run("kitchen advances pending to preparing", func(t *testing.T) {
		store := new(mockOrderStore)
		svc := NewOrderService(store, new(mockProductCatalog), testLogger())

		store.On("GetByID", mock.Anything, "KL-000001").Return(pendingOrder("KL-000001"), nil)
		store.On("Update", mock.Anything, mock.MatchedBy(func(o *models.Order) bool {
			return o.Status == models.OrderStatusPreparing
		}), mock.Anything).Return(nil)

		order, err := svc.UpdateStatus(context.Background(), "KL-000001",
			lifecycle.RoleKitchen, models.OrderStatusPreparing)

		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPreparing, order.Status)
		store.AssertExpectations(t)
	})

	t.Run("same status is an idempotent no-op", func(t *testing.T) {
		store := new(mockOrderStore)
		svc := NewOrderService(store, new(mockProductCatalog), testLogger())

		store.On("GetByID", mock.Anything, "KL-000001").Return(pendingOrder("KL-000001"), nil)

		order, err := svc.UpdateStatus(context.Background(), "KL-000001",
			lifecycle.RoleKitchen, models.OrderStatusPending)

		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPending, order.Status)
		store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("kitchen may not start a delivery", func(t *testing.T) {
		store := new(mockOrderStore)
		svc := NewOrderService(store, new(mockProductCatalog), testLogger())

		ready := pendingOrder("KL-000001")
		ready.Status = models.OrderStatusReady
		store.On("GetByID", mock.Anything, "KL-000001").Return(ready, nil)

		_, err := svc.UpdateStatus(context.Background(), "KL-000001",
			lifecycle.RoleKitchen, models.OrderStatusDelivering)

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("skipping a stage is rejected", func(t *testing.T) {
		store := new(mockOrderStore)
		svc := NewOrderService(store, new(mockProductCatalog), testLogger())

		store.On("GetByID", mock.Anything, "KL-000001").Return(pendingOrder("KL-000001"), nil)

		_, err := svc.UpdateStatus(context.Background(), "KL-000001",
			lifecycle.RoleAdmin, models.OrderStatusReady)

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	})

	t.Run("completing a delivery releases the driver", func(t *testing.T) {
		store := new(mockOrderStore)
		svc := NewOrderService(store, new(mockProductCatalog), testLogger())

		driverID := "drv-1"
		delivering := pendingOrder("KL-000001")
		delivering.Status = models.OrderStatusDelivering
		delivering.DriverID = &driverID

		store.On("GetByID", mock.Anything, "KL-000001").Return(delivering, nil)
		store.On("UpdateAndReleaseDriver", mock.Anything, mock.Anything, "drv-1", mock.Anything).Return(nil)

		order, err := svc.UpdateStatus(context.Background(), "KL-000001",
			lifecycle.RoleDriver, models.OrderStatusCompleted)

		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCompleted, order.Status)
		store.AssertExpectations(t)
		store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("a concurrent edit surfaces as a conflict", func(t *testing.T) {
		store := new(mockOrderStore)
		svc := NewOrderService(store, new(mockProductCatalog), testLogger())

		store.On("GetByID", mock.Anything, "KL-000001").Return(pendingOrder("KL-000001"), nil)
		store.On("Update", mock.Anything, mock.Anything, mock.Anything).
			Return(repository.ErrVersionConflict)

		_, err := svc.UpdateStatus(context.Background(), "KL-000001",
			lifecycle.RoleKitchen, models.OrderStatusPreparing)

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("missing order surfaces as not found", func(t *testing.T) {
		store := new(mockOrderStore)
		svc := NewOrderService(store, new(mockProductCatalog), testLogger())

		store.On("GetByID", mock.Anything, "KL-999999").Return(nil, repository.ErrNotFound)

		_, err := svc.UpdateStatus(context.Background(), "KL-999999",
			lifecycle.RoleKitchen, models.OrderStatusPreparing)

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestUpdateOrder(t *testing.T) {
	t.Run("admin full replace keeps the creation amount", func(t *testing.T) {
		store := new(mockOrderStore)
		svc := NewOrderService(store, new(mockProductCatalog), testLogger())

		store.On("GetByID", mock.Anything, "KL-000001").Return(pendingOrder("KL-000001"), nil)
		store.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		order, err := svc.UpdateOrder(context.Background(), "KL-000001", lifecycle.RoleAdmin, &OrderEdit{
			CustomerName:  "Maria Santos",
			CustomerPhone: "0917-555-0101",
			Items: models.OrderItems{
				{ProductID: "prd-1", Name: "Lumpia tray", Quantity: 5, UnitPrice: 45},
			},
			Status:  string(models.OrderStatusReady),
			Version: 1,
		})

		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusReady, order.Status)
		assert.Equal(t, 90.0, order.Amount)
		store.AssertExpectations(t)
	})

	t.Run("an edit without a phone number is rejected", func(t *testing.T) {
		store := new(mockOrderStore)
		svc := NewOrderService(store, new(mockProductCatalog), testLogger())

		store.On("GetByID", mock.Anything, "KL-000001").Return(pendingOrder("KL-000001"), nil)

		_, err := svc.UpdateOrder(context.Background(), "KL-000001", lifecycle.RoleAdmin, &OrderEdit{
			CustomerName: "Maria Santos",
			Items:        models.OrderItems{{ProductID: "prd-1", Quantity: 1, UnitPrice: 45}},
			Version:      1,
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("non-admin roles are forbidden", func(t *testing.T) {
		store := new(mockOrderStore)
		svc := NewOrderService(store, new(mockProductCatalog), testLogger())

		_, err := svc.UpdateOrder(context.Background(), "KL-000001", lifecycle.RoleKitchen, &OrderEdit{
			CustomerName: "Maria Santos",
			Items:        models.OrderItems{{ProductID: "prd-1", Quantity: 1}},
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		store.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("stale version surfaces as a conflict", func(t *testing.T) {
		store := new(mockOrderStore)
		svc := NewOrderService(store, new(mockProductCatalog), testLogger())

		store.On("GetByID", mock.Anything, "KL-000001").Return(pendingOrder("KL-000001"), nil)
		store.On("Update", mock.Anything, mock.Anything, mock.Anything).
			Return(repository.ErrVersionConflict)

		_, err := svc.UpdateOrder(context.Background(), "KL-000001", lifecycle.RoleAdmin, &OrderEdit{
			CustomerName:  "Maria Santos",
			CustomerPhone: "0917-555-0101",
			Items:         models.OrderItems{{ProductID: "prd-1", Quantity: 1, UnitPrice: 45}},
			Version:       1,
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})
}

func TestAssignDriver(t *testing.T) {
	t.Run("assigns an available driver", func(t *testing.T) {
		store := new(mockOrderStore)
		svc := NewOrderService(store, new(mockProductCatalog), testLogger())

		ready := pendingOrder("KL-000001")
		ready.Status = models.OrderStatusReady
		store.On("GetByID", mock.Anything, "KL-000001").Return(ready, nil)
		store.On("AssignDriver", mock.Anything, mock.Anything, "", "drv-1", mock.Anything).Return(nil)

		order, err := svc.AssignDriver(context.Background(), "KL-000001", lifecycle.RoleAdmin, "drv-1")

		require.NoError(t, err)
		require.NotNil(t, order.DriverID)
		assert.Equal(t, "drv-1", *order.DriverID)
		store.AssertExpectations(t)
	})

	t.Run("reassignment passes the previous driver for release", func(t *testing.T) {
		store := new(mockOrderStore)
		svc := NewOrderService(store, new(mockProductCatalog), testLogger())

		old := "drv-1"
		delivering := pendingOrder("KL-000001")
		delivering.Status = models.OrderStatusDelivering
		delivering.DriverID = &old

		store.On("GetByID", mock.Anything, "KL-000001").Return(delivering, nil)
		store.On("AssignDriver", mock.Anything, mock.Anything, "drv-1", "drv-2", mock.Anything).Return(nil)

		_, err := svc.AssignDriver(context.Background(), "KL-000001", lifecycle.RoleAdmin, "drv-2")

		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("a busy driver surfaces as a conflict", func(t *testing.T) {
		store := new(mockOrderStore)
		svc := NewOrderService(store, new(mockProductCatalog), testLogger())

		store.On("GetByID", mock.Anything, "KL-000001").Return(pendingOrder("KL-000001"), nil)
		store.On("AssignDriver", mock.Anything, mock.Anything, "", "drv-1", mock.Anything).
			Return(repository.ErrContention)

		_, err := svc.AssignDriver(context.Background(), "KL-000001", lifecycle.RoleAdmin, "drv-1")

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("completed orders cannot take a driver", func(t *testing.T) {
		store := new(mockOrderStore)
		svc := NewOrderService(store, new(mockProductCatalog), testLogger())

		done := pendingOrder("KL-000001")
		done.Status = models.OrderStatusCompleted
		store.On("GetByID", mock.Anything, "KL-000001").Return(done, nil)

		_, err := svc.AssignDriver(context.Background(), "KL-000001", lifecycle.RoleAdmin, "drv-1")

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("non-admin roles are forbidden", func(t *testing.T) {
		svc := NewOrderService(new(mockOrderStore), new(mockProductCatalog), testLogger())

		_, err := svc.AssignDriver(context.Background(), "KL-000001", lifecycle.RoleDriver, "drv-1")

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}

func TestDeleteOrder(t *testing.T) {
	t.Run("admin deletes an order", func(t *testing.T) {
		store := new(mockOrderStore)
		svc := NewOrderService(store, new(mockProductCatalog), testLogger())

		store.On("Delete", mock.Anything, "KL-000001", mock.Anything).Return(nil)

		err := svc.DeleteOrder(context.Background(), "KL-000001", lifecycle.RoleAdmin)

		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("non-admin roles are forbidden", func(t *testing.T) {
		store := new(mockOrderStore)
		svc := NewOrderService(store, new(mockProductCatalog), testLogger())

		err := svc.DeleteOrder(context.Background(), "KL-000001", lifecycle.RoleKitchen)

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestListOrders(t *testing.T) {
	t.Run("no filter fetches everything", func(t *testing.T) {
		store := new(mockOrderStore)
		svc := NewOrderService(store, new(mockProductCatalog), testLogger())

		store.On("GetAll", mock.Anything).Return([]*models.Order{pendingOrder("KL-000001")}, nil)

		orders, err := svc.ListOrders(context.Background())

		require.NoError(t, err)
		assert.Len(t, orders, 1)
	})

	t.Run("statuses are passed through as a filter", func(t *testing.T) {
		store := new(mockOrderStore)
		svc := NewOrderService(store, new(mockProductCatalog), testLogger())

		store.On("GetByStatus", mock.Anything,
			[]models.OrderStatus{models.OrderStatusPending, models.OrderStatusPreparing}).
			Return([]*models.Order{}, nil)

		_, err := svc.ListOrders(context.Background(),
			models.OrderStatusPending, models.OrderStatusPreparing)

		require.NoError(t, err)
		store.AssertExpectations(t)
	})
}
