package models

import (
	"fmt"
	"time"
)

// DriverStatus is the duty status of a driver.
// Invariant: status == on_duty exactly when CurrentOrderID is set.
type DriverStatus string

const (
	DriverAvailable DriverStatus = "available"
	DriverOnDuty    DriverStatus = "on_duty"
	DriverOffline   DriverStatus = "offline"
)

// ParseDriverStatus validates a raw driver status string.
func ParseDriverStatus(s string) (DriverStatus, error) {
	switch DriverStatus(s) {
	case DriverAvailable, DriverOnDuty, DriverOffline:
		return DriverStatus(s), nil
	default:
		return "", fmt.Errorf("unknown driver status: %q", s)
	}
}

// Driver carries deliveries. A driver holds at most one active order.
type Driver struct {
	ID             string       `db:"id" json:"id"`
	Name           string       `db:"name" json:"name"`
	Phone          string       `db:"phone" json:"phone,omitempty"`
	Status         DriverStatus `db:"status" json:"status"`
	CurrentOrderID *string      `db:"current_order_id" json:"current_order_id,omitempty"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}

// VehicleStatus is the availability of a vehicle.
type VehicleStatus string

const (
	VehicleAvailable   VehicleStatus = "available"
	VehicleBusy        VehicleStatus = "busy"
	VehicleMaintenance VehicleStatus = "maintenance"
	VehicleRepair      VehicleStatus = "repair"
)

// Vehicle is a fleet vehicle. A declaration is a single-owner lease: the
// acquiring driver becomes the owner token in DriverID, and the row moves to
// busy atomically so two drivers cannot hold the same vehicle.
type Vehicle struct {
	ID         string        `db:"id" json:"id"`
	Model      string        `db:"model" json:"model"`
	Plate      string        `db:"plate" json:"plate"`
	Status     VehicleStatus `db:"status" json:"status"`
	DriverID   *string       `db:"driver_id" json:"driver_id,omitempty"`
	DeclaredAt *time.Time    `db:"declared_at" json:"declared_at,omitempty"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// NewVehicle creates a vehicle in the available state.
func NewVehicle(model, plate string) *Vehicle {
	return &Vehicle{
		ID:        GenerateID("veh"),
		Model:     model,
		Plate:     plate,
		Status:    VehicleAvailable,
		UpdatedAt: GetCurrentTime(),
	}
}
