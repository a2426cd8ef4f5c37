package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/kitchenlane/catering-ops/internal/models"
)

type mockOrderStore struct {
	mock.Mock
}

func (m *mockOrderStore) Create(ctx context.Context, order *models.Order, msg *models.OutboxMessage) error {
	args := m.Called(ctx, order, msg)
	return args.Error(0)
}

func (m *mockOrderStore) GetByID(ctx context.Context, id string) (*models.Order, error) {
	args := m.Called(ctx, id)
	if order := args.Get(0); order != nil {
		return order.(*models.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderStore) GetAll(ctx context.Context) ([]*models.Order, error) {
	args := m.Called(ctx)
	if orders := args.Get(0); orders != nil {
		return orders.([]*models.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderStore) GetByStatus(ctx context.Context, statuses ...models.OrderStatus) ([]*models.Order, error) {
	args := m.Called(ctx, statuses)
	if orders := args.Get(0); orders != nil {
		return orders.([]*models.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderStore) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockOrderStore) Update(ctx context.Context, order *models.Order, msg *models.OutboxMessage) error {
	args := m.Called(ctx, order, msg)
	return args.Error(0)
}

func (m *mockOrderStore) UpdateAndReleaseDriver(ctx context.Context, order *models.Order, driverID string, msg *models.OutboxMessage) error {
	args := m.Called(ctx, order, driverID, msg)
	return args.Error(0)
}

func (m *mockOrderStore) AssignDriver(ctx context.Context, order *models.Order, oldDriverID, newDriverID string, msg *models.OutboxMessage) error {
	args := m.Called(ctx, order, oldDriverID, newDriverID, msg)
	return args.Error(0)
}

func (m *mockOrderStore) Delete(ctx context.Context, id string, msg *models.OutboxMessage) error {
	args := m.Called(ctx, id, msg)
	return args.Error(0)
}

type mockProductCatalog struct {
	mock.Mock
}

func (m *mockProductCatalog) GetByID(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(ctx, id)
	if product := args.Get(0); product != nil {
		return product.(*models.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProductCatalog) GetByCode(ctx context.Context, code string) (*models.Product, error) {
	args := m.Called(ctx, code)
	if product := args.Get(0); product != nil {
		return product.(*models.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProductCatalog) GetAll(ctx context.Context) ([]*models.Product, error) {
	args := m.Called(ctx)
	if products := args.Get(0); products != nil {
		return products.([]*models.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProductCatalog) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductCatalog) Update(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductCatalog) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockFleetStore struct {
	mock.Mock
}

func (m *mockFleetStore) GetDriver(ctx context.Context, id string) (*models.Driver, error) {
	args := m.Called(ctx, id)
	if driver := args.Get(0); driver != nil {
		return driver.(*models.Driver), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFleetStore) GetAllDrivers(ctx context.Context) ([]*models.Driver, error) {
	args := m.Called(ctx)
	if drivers := args.Get(0); drivers != nil {
		return drivers.([]*models.Driver), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFleetStore) SetDriverStatus(ctx context.Context, driverID string, status models.DriverStatus) error {
	args := m.Called(ctx, driverID, status)
	return args.Error(0)
}

func (m *mockFleetStore) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	args := m.Called(ctx, id)
	if vehicle := args.Get(0); vehicle != nil {
		return vehicle.(*models.Vehicle), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFleetStore) GetAllVehicles(ctx context.Context) ([]*models.Vehicle, error) {
	args := m.Called(ctx)
	if vehicles := args.Get(0); vehicles != nil {
		return vehicles.([]*models.Vehicle), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFleetStore) CreateVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	args := m.Called(ctx, vehicle)
	return args.Error(0)
}

func (m *mockFleetStore) UpdateVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	args := m.Called(ctx, vehicle)
	return args.Error(0)
}

func (m *mockFleetStore) DeleteVehicle(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockFleetStore) DeclareVehicle(ctx context.Context, vehicleID, driverID string) error {
	args := m.Called(ctx, vehicleID, driverID)
	return args.Error(0)
}

func (m *mockFleetStore) ReleaseVehicle(ctx context.Context, vehicleID, driverID string) error {
	args := m.Called(ctx, vehicleID, driverID)
	return args.Error(0)
}
