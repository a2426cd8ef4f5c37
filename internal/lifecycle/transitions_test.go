package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenlane/catering-ops/internal/models"
	"github.com/kitchenlane/catering-ops/pkg/errors"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from models.OrderStatus
		to   models.OrderStatus
		want bool
	}{
		{"pending to preparing", models.OrderStatusPending, models.OrderStatusPreparing, true},
		{"preparing to ready", models.OrderStatusPreparing, models.OrderStatusReady, true},
		{"ready to delivering", models.OrderStatusReady, models.OrderStatusDelivering, true},
		{"delivering to completed", models.OrderStatusDelivering, models.OrderStatusCompleted, true},
		{"same status is legal", models.OrderStatusPreparing, models.OrderStatusPreparing, true},
		{"skip ahead", models.OrderStatusPending, models.OrderStatusDelivering, false},
		{"backward", models.OrderStatusReady, models.OrderStatusPreparing, false},
		{"out of terminal", models.OrderStatusCompleted, models.OrderStatusPending, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanTransition(tc.from, tc.to))
		})
	}
}

func TestNextStatusWalksTheFullPath(t *testing.T) {
	status := models.OrderStatusPending
	var path []models.OrderStatus

	for {
		nextStatus, ok := NextStatus(status)
		if !ok {
			break
		}
		path = append(path, nextStatus)
		status = nextStatus
	}

	require.Equal(t, []models.OrderStatus{
		models.OrderStatusPreparing,
		models.OrderStatusReady,
		models.OrderStatusDelivering,
		models.OrderStatusCompleted,
	}, path)
	assert.True(t, IsTerminal(models.OrderStatusCompleted))
	assert.False(t, IsTerminal(models.OrderStatusDelivering))
}

func TestAuthorizeRoleEdges(t *testing.T) {
	tests := []struct {
		name    string
		role    Role
		from    models.OrderStatus
		to      models.OrderStatus
		wantErr error
	}{
		{"kitchen starts prep", RoleKitchen, models.OrderStatusPending, models.OrderStatusPreparing, nil},
		{"kitchen finishes prep", RoleKitchen, models.OrderStatusPreparing, models.OrderStatusReady, nil},
		{"kitchen cannot depart", RoleKitchen, models.OrderStatusReady, models.OrderStatusDelivering, errors.ErrForbidden},
		{"driver departs", RoleDriver, models.OrderStatusReady, models.OrderStatusDelivering, nil},
		{"driver arrives", RoleDriver, models.OrderStatusDelivering, models.OrderStatusCompleted, nil},
		{"driver cannot start prep", RoleDriver, models.OrderStatusPending, models.OrderStatusPreparing, errors.ErrForbidden},
		{"admin may step anywhere adjacent", RoleAdmin, models.OrderStatusPreparing, models.OrderStatusReady, nil},
		{"admin still bound to adjacency here", RoleAdmin, models.OrderStatusPending, models.OrderStatusDelivering, errors.ErrInvalidTransition},
		{"same status is a no-op for any role", RoleDriver, models.OrderStatusReady, models.OrderStatusReady, nil},
		{"unknown role rejected", Role("viewer"), models.OrderStatusPending, models.OrderStatusPreparing, errors.ErrForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.role, tc.from, tc.to)

			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("kitchen")
	require.NoError(t, err)
	assert.Equal(t, RoleKitchen, role)

	_, err = ParseRole("chef")
	assert.Error(t, err)
}

func TestCanMutateOrders(t *testing.T) {
	assert.True(t, CanMutateOrders(RoleAdmin))
	assert.True(t, CanMutateOrders(RoleSuperAdmin))
	assert.False(t, CanMutateOrders(RoleKitchen))
	assert.False(t, CanMutateOrders(RoleDriver))
}
