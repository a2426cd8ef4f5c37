package service

import (
	"context"

	"github.com/kitchenlane/catering-ops/internal/models"
)

// OrderStore is the persistence surface the order service depends on. Each
// mutation takes the outbox message describing it; implementations commit
// both in one transaction.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order, msg *models.OutboxMessage) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetAll(ctx context.Context) ([]*models.Order, error)
	GetByStatus(ctx context.Context, statuses ...models.OrderStatus) ([]*models.Order, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, order *models.Order, msg *models.OutboxMessage) error
	UpdateAndReleaseDriver(ctx context.Context, order *models.Order, driverID string, msg *models.OutboxMessage) error
	AssignDriver(ctx context.Context, order *models.Order, oldDriverID, newDriverID string, msg *models.OutboxMessage) error
	Delete(ctx context.Context, id string, msg *models.OutboxMessage) error
}

// ProductCatalog resolves order items against the product catalog.
type ProductCatalog interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
	GetByCode(ctx context.Context, code string) (*models.Product, error)
	GetAll(ctx context.Context) ([]*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
}

// FleetStore is the persistence surface for drivers and vehicles.
type FleetStore interface {
	GetDriver(ctx context.Context, id string) (*models.Driver, error)
	GetAllDrivers(ctx context.Context) ([]*models.Driver, error)
	SetDriverStatus(ctx context.Context, driverID string, status models.DriverStatus) error
	GetVehicle(ctx context.Context, id string) (*models.Vehicle, error)
	GetAllVehicles(ctx context.Context) ([]*models.Vehicle, error)
	CreateVehicle(ctx context.Context, vehicle *models.Vehicle) error
	UpdateVehicle(ctx context.Context, vehicle *models.Vehicle) error
	DeleteVehicle(ctx context.Context, id string) error
	DeclareVehicle(ctx context.Context, vehicleID, driverID string) error
	ReleaseVehicle(ctx context.Context, vehicleID, driverID string) error
}
