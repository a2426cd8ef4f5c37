package lifecycle

import (
	"fmt"

	"github.com/kitchenlane/catering-ops/internal/models"
	"github.com/kitchenlane/catering-ops/pkg/errors"
)

// Role is the authenticated caller's role, taken from the verified token.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleKitchen    Role = "kitchen"
	RoleDriver     Role = "driver"
	RoleSuperAdmin Role = "super_admin"
)

// ParseRole validates a raw role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleKitchen, RoleDriver, RoleSuperAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// next maps each status to its single legal forward successor.
var next = map[models.OrderStatus]models.OrderStatus{
	models.OrderStatusPending:    models.OrderStatusPreparing,
	models.OrderStatusPreparing:  models.OrderStatusReady,
	models.OrderStatusReady:      models.OrderStatusDelivering,
	models.OrderStatusDelivering: models.OrderStatusCompleted,
	// completed is terminal
}

// transition identifies one edge of the lifecycle.
type transition struct {
	from models.OrderStatus
	to   models.OrderStatus
}

// roleTransitions is the capability table: which lifecycle edges each role may
// drive through the status endpoint. Admins use the general edit path instead,
// which is not bound to adjacency.
var roleTransitions = map[Role]map[transition]bool{
	RoleKitchen: {
		{models.OrderStatusPending, models.OrderStatusPreparing}: true,
		{models.OrderStatusPreparing, models.OrderStatusReady}:   true,
	},
	RoleDriver: {
		{models.OrderStatusReady, models.OrderStatusDelivering}:     true,
		{models.OrderStatusDelivering, models.OrderStatusCompleted}: true,
	},
}

// NextStatus returns the legal forward successor of from, or false for the
// terminal status.
func NextStatus(from models.OrderStatus) (models.OrderStatus, bool) {
	to, ok := next[from]
	return to, ok
}

// IsTerminal reports whether status has no forward successor.
func IsTerminal(status models.OrderStatus) bool {
	_, ok := next[status]
	return !ok
}

// CanTransition reports whether from -> to is a legal adjacent forward step.
// A same-status request is always legal; callers treat it as a no-op.
func CanTransition(from, to models.OrderStatus) bool {
	if from == to {
		return true
	}
	return next[from] == to
}

// Authorize decides whether role may move an order from its current status to
// the requested one through the status endpoint. Same-status requests succeed
// for any role that may mutate orders (idempotent no-op). Admin and super
// admin may drive any adjacent forward step; kitchen and driver are limited to
// their own edges. Non-adjacent jumps are rejected for everyone here: only the
// admin edit path may set an arbitrary status.
func Authorize(role Role, from, to models.OrderStatus) error {
	if from == to {
		return nil
	}

	if !CanTransition(from, to) {
		return errors.NewInvalidTransitionError(
			fmt.Sprintf("cannot move order from %s to %s", from, to))
	}

	switch role {
	case RoleAdmin, RoleSuperAdmin:
		return nil
	case RoleKitchen, RoleDriver:
		if roleTransitions[role][transition{from, to}] {
			return nil
		}
		return errors.NewForbiddenError(
			fmt.Sprintf("role %s may not move order from %s to %s", role, from, to))
	default:
		return errors.NewForbiddenError(fmt.Sprintf("role %s may not update order status", role))
	}
}

// CanMutateOrders reports whether role may create, edit or delete orders
// through the general admin paths.
func CanMutateOrders(role Role) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}
