package service

import (
	"context"

	"github.com/kitchenlane/catering-ops/internal/models"
	apperrors "github.com/kitchenlane/catering-ops/pkg/errors"
	"github.com/kitchenlane/catering-ops/pkg/logger"
)

// FleetService manages drivers and vehicles. Driver assignment to orders
// lives in the order service; this one covers duty status and the vehicle
// declaration lease.
type FleetService struct {
	store  FleetStore
	logger logger.Logger
}

// NewFleetService creates a new FleetService.
func NewFleetService(store FleetStore, logger logger.Logger) *FleetService {
	return &FleetService{
		store:  store,
		logger: logger,
	}
}

// GetDriver retrieves a driver.
func (s *FleetService) GetDriver(ctx context.Context, id string) (*models.Driver, error) {
	driver, err := s.store.GetDriver(ctx, id)

	if err != nil {
		return nil, mapRepositoryError(err, id)
	}

	return driver, nil
}

// ListDrivers retrieves all drivers.
func (s *FleetService) ListDrivers(ctx context.Context) ([]*models.Driver, error) {
	drivers, err := s.store.GetAllDrivers(ctx)

	if err != nil {
		return nil, mapRepositoryError(err, "")
	}

	return drivers, nil
}

// SetDriverStatus changes a driver's duty status. The on_duty status is owned
// by order assignment, which sets it together with the current order in one
// transaction; requesting it here would leave a driver on duty with no order.
// A driver on an active delivery cannot be pushed off duty either; the order
// has to complete or be reassigned first.
func (s *FleetService) SetDriverStatus(ctx context.Context, id string, raw string) (*models.Driver, error) {
	status, err := models.ParseDriverStatus(raw)

	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	if status == models.DriverOnDuty {
		return nil, apperrors.NewValidationError("on_duty is set by order assignment, not by edit")
	}

	driver, err := s.store.GetDriver(ctx, id)

	if err != nil {
		return nil, mapRepositoryError(err, id)
	}

	if driver.CurrentOrderID != nil {
		return nil, apperrors.NewConflictError("driver has an active delivery")
	}

	if err := s.store.SetDriverStatus(ctx, id, status); err != nil {
		return nil, mapRepositoryError(err, id)
	}

	driver.Status = status
	s.logger.Info("Driver status changed", "driverID", id, "status", status)

	return driver, nil
}

// VehicleInput is the input for creating or updating a vehicle.
type VehicleInput struct {
	Model  string `json:"model"`
	Plate  string `json:"plate"`
	Status string `json:"status"`
}

// CreateVehicle adds a vehicle to the fleet.
func (s *FleetService) CreateVehicle(ctx context.Context, input *VehicleInput) (*models.Vehicle, error) {
	if input.Plate == "" {
		return nil, apperrors.NewValidationError("plate is required")
	}

	vehicle := models.NewVehicle(input.Model, input.Plate)

	if err := s.store.CreateVehicle(ctx, vehicle); err != nil {
		return nil, mapRepositoryError(err, input.Plate)
	}

	s.logger.Info("Vehicle created", "vehicleID", vehicle.ID, "plate", vehicle.Plate)

	return vehicle, nil
}

// GetVehicle retrieves a vehicle.
func (s *FleetService) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	vehicle, err := s.store.GetVehicle(ctx, id)

	if err != nil {
		return nil, mapRepositoryError(err, id)
	}

	return vehicle, nil
}

// ListVehicles retrieves all vehicles.
func (s *FleetService) ListVehicles(ctx context.Context) ([]*models.Vehicle, error) {
	vehicles, err := s.store.GetAllVehicles(ctx)

	if err != nil {
		return nil, mapRepositoryError(err, "")
	}

	return vehicles, nil
}

// UpdateVehicle replaces a vehicle's editable fields. The busy status is
// owned by the declaration lease and cannot be set through this path.
func (s *FleetService) UpdateVehicle(ctx context.Context, id string, input *VehicleInput) (*models.Vehicle, error) {
	if input.Plate == "" {
		return nil, apperrors.NewValidationError("plate is required")
	}

	vehicle, err := s.store.GetVehicle(ctx, id)

	if err != nil {
		return nil, mapRepositoryError(err, id)
	}

	if input.Status != "" {
		status := models.VehicleStatus(input.Status)
		switch status {
		case models.VehicleAvailable, models.VehicleMaintenance, models.VehicleRepair:
			vehicle.Status = status
		case models.VehicleBusy:
			return nil, apperrors.NewValidationError("busy is set by declaring the vehicle, not by edit")
		default:
			return nil, apperrors.NewValidationError("unknown vehicle status")
		}
	}

	vehicle.Model = input.Model
	vehicle.Plate = input.Plate

	if err := s.store.UpdateVehicle(ctx, vehicle); err != nil {
		return nil, mapRepositoryError(err, id)
	}

	s.logger.Info("Vehicle updated", "vehicleID", vehicle.ID, "plate", vehicle.Plate)

	return vehicle, nil
}

// DeleteVehicle removes a vehicle from the fleet.
func (s *FleetService) DeleteVehicle(ctx context.Context, id string) error {
	if err := s.store.DeleteVehicle(ctx, id); err != nil {
		return mapRepositoryError(err, id)
	}

	s.logger.Info("Vehicle deleted", "vehicleID", id)

	return nil
}

// DeclareVehicle acquires the vehicle for a driver. Exactly one of several
// concurrent declarations wins; the rest get a conflict.
func (s *FleetService) DeclareVehicle(ctx context.Context, vehicleID, driverID string) (*models.Vehicle, error) {
	if driverID == "" {
		return nil, apperrors.NewValidationError("driver_id is required")
	}

	if err := s.store.DeclareVehicle(ctx, vehicleID, driverID); err != nil {
		return nil, mapRepositoryError(err, vehicleID)
	}

	s.logger.Info("Vehicle declared", "vehicleID", vehicleID, "driverID", driverID)

	return s.GetVehicle(ctx, vehicleID)
}

// ReleaseVehicle releases a declared vehicle back to the pool. Only the
// declaring driver may release it.
func (s *FleetService) ReleaseVehicle(ctx context.Context, vehicleID, driverID string) (*models.Vehicle, error) {
	if driverID == "" {
		return nil, apperrors.NewValidationError("driver_id is required")
	}

	if err := s.store.ReleaseVehicle(ctx, vehicleID, driverID); err != nil {
		return nil, mapRepositoryError(err, vehicleID)
	}

	s.logger.Info("Vehicle released", "vehicleID", vehicleID, "driverID", driverID)

	return s.GetVehicle(ctx, vehicleID)
}
