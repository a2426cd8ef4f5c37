package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/kitchenlane/catering-ops/internal/database"
	"github.com/kitchenlane/catering-ops/internal/models"
	"github.com/kitchenlane/catering-ops/pkg/logger"
)

// ErrContention means a guarded fleet update lost the race: the driver was
// already on duty or the vehicle already taken.
var ErrContention = errors.New("fleet resource contention")

// FleetRepository handles database operations for drivers and vehicles.
type FleetRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewFleetRepository creates a new FleetRepository.
func NewFleetRepository(db *database.Database, logger logger.Logger) *FleetRepository {
	return &FleetRepository{
		db:     db,
		logger: logger,
	}
}

// GetDriver retrieves a driver by ID.
func (r *FleetRepository) GetDriver(ctx context.Context, id string) (*models.Driver, error) {
	var driver models.Driver
	err := r.db.DB.GetContext(ctx, &driver,
		`SELECT id, name, phone, status, current_order_id, updated_at FROM drivers WHERE id = $1`, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get driver", "error", err, "driverID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &driver, nil
}

// GetAllDrivers retrieves all drivers ordered by name.
func (r *FleetRepository) GetAllDrivers(ctx context.Context) ([]*models.Driver, error) {
	drivers := []*models.Driver{}
	err := r.db.DB.SelectContext(ctx, &drivers,
		`SELECT id, name, phone, status, current_order_id, updated_at FROM drivers ORDER BY name ASC`)

	if err != nil {
		r.logger.Error("Failed to get drivers", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return drivers, nil
}

// AssignDriverInTx puts a driver on duty for an order inside the given
// transaction. The guard keeps the driver invariant: only a driver who is not
// already on duty can take an order, so status = on_duty iff an order is set.
func (r *FleetRepository) AssignDriverInTx(tx *sqlx.Tx, driverID, orderID string) error {
	query := `
		UPDATE drivers
		SET status = $1, current_order_id = $2, updated_at = $3
		WHERE id = $4 AND status != $1
	`

	result, err := tx.Exec(query, models.DriverOnDuty, orderID, models.GetCurrentTime(), driverID)

	if err != nil {
		r.logger.Error("Failed to assign driver", "error", err, "driverID", driverID, "orderID", orderID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		var exists bool
		if err := tx.Get(&exists, `SELECT EXISTS (SELECT 1 FROM drivers WHERE id = $1)`, driverID); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrContention
	}

	return nil
}

// ReleaseDriverInTx returns a driver to available and clears the current
// order, inside the given transaction.
func (r *FleetRepository) ReleaseDriverInTx(tx *sqlx.Tx, driverID string) error {
	query := `
		UPDATE drivers
		SET status = $1, current_order_id = NULL, updated_at = $2
		WHERE id = $3
	`

	result, err := tx.Exec(query, models.DriverAvailable, models.GetCurrentTime(), driverID)

	if err != nil {
		r.logger.Error("Failed to release driver", "error", err, "driverID", driverID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// SetDriverStatus updates a driver's duty status outside of assignment flow
// (going offline, coming online). Going available or offline clears the
// current order.
func (r *FleetRepository) SetDriverStatus(ctx context.Context, driverID string, status models.DriverStatus) error {
	query := `
		UPDATE drivers
		SET status = $1, current_order_id = CASE WHEN $1 = 'on_duty' THEN current_order_id ELSE NULL END,
			updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.DB.ExecContext(ctx, query, status, models.GetCurrentTime(), driverID)

	if err != nil {
		r.logger.Error("Failed to set driver status", "error", err, "driverID", driverID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetVehicle retrieves a vehicle by ID.
func (r *FleetRepository) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := r.db.DB.GetContext(ctx, &vehicle,
		`SELECT id, model, plate, status, driver_id, declared_at, updated_at FROM vehicles WHERE id = $1`, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get vehicle", "error", err, "vehicleID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &vehicle, nil
}

// GetAllVehicles retrieves all vehicles ordered by plate.
func (r *FleetRepository) GetAllVehicles(ctx context.Context) ([]*models.Vehicle, error) {
	vehicles := []*models.Vehicle{}
	err := r.db.DB.SelectContext(ctx, &vehicles,
		`SELECT id, model, plate, status, driver_id, declared_at, updated_at FROM vehicles ORDER BY plate ASC`)

	if err != nil {
		r.logger.Error("Failed to get vehicles", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return vehicles, nil
}

// CreateVehicle inserts a new vehicle.
func (r *FleetRepository) CreateVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	query := `
		INSERT INTO vehicles (id, model, plate, status, driver_id, declared_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.DB.ExecContext(
		ctx,
		query,
		vehicle.ID,
		vehicle.Model,
		vehicle.Plate,
		vehicle.Status,
		vehicle.DriverID,
		vehicle.DeclaredAt,
		vehicle.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create vehicle", "error", err, "plate", vehicle.Plate)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// UpdateVehicle replaces a vehicle's editable fields.
func (r *FleetRepository) UpdateVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	query := `
		UPDATE vehicles
		SET model = $1, plate = $2, status = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := r.db.DB.ExecContext(ctx, query,
		vehicle.Model, vehicle.Plate, vehicle.Status, models.GetCurrentTime(), vehicle.ID)

	if err != nil {
		r.logger.Error("Failed to update vehicle", "error", err, "vehicleID", vehicle.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteVehicle removes a vehicle.
func (r *FleetRepository) DeleteVehicle(ctx context.Context, id string) error {
	result, err := r.db.DB.ExecContext(ctx, `DELETE FROM vehicles WHERE id = $1`, id)

	if err != nil {
		r.logger.Error("Failed to delete vehicle", "error", err, "vehicleID", id)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeclareVehicle acquires the single-owner lease on a vehicle for a driver.
// The status guard makes the acquisition atomic: of two concurrent
// declarations exactly one sees status = available and wins.
func (r *FleetRepository) DeclareVehicle(ctx context.Context, vehicleID, driverID string) error {
	query := `
		UPDATE vehicles
		SET status = $1, driver_id = $2, declared_at = $3, updated_at = $3
		WHERE id = $4 AND status = $5
	`

	result, err := r.db.DB.ExecContext(ctx, query,
		models.VehicleBusy, driverID, models.GetCurrentTime(), vehicleID, models.VehicleAvailable)

	if err != nil {
		r.logger.Error("Failed to declare vehicle", "error", err, "vehicleID", vehicleID, "driverID", driverID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		var exists bool
		if err := r.db.DB.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM vehicles WHERE id = $1)`, vehicleID); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrContention
	}

	return nil
}

// ReleaseVehicle releases a vehicle lease. Only the owning driver may
// release; a mismatched owner token is contention, not success.
func (r *FleetRepository) ReleaseVehicle(ctx context.Context, vehicleID, driverID string) error {
	query := `
		UPDATE vehicles
		SET status = $1, driver_id = NULL, declared_at = NULL, updated_at = $2
		WHERE id = $3 AND driver_id = $4 AND status = $5
	`

	result, err := r.db.DB.ExecContext(ctx, query,
		models.VehicleAvailable, models.GetCurrentTime(), vehicleID, driverID, models.VehicleBusy)

	if err != nil {
		r.logger.Error("Failed to release vehicle", "error", err, "vehicleID", vehicleID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		var exists bool
		if err := r.db.DB.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM vehicles WHERE id = $1)`, vehicleID); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrContention
	}

	return nil
}
