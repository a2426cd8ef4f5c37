package projection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenlane/catering-ops/internal/models"
)

func makeOrder(id string, status models.OrderStatus, items int) *models.Order {
	order := &models.Order{
		ID:           id,
		CustomerName: "customer-" + id,
		Status:       status,
		Amount:       10,
		DueTime:      "2026-09-01 12:00",
		CreatedAt:    time.Now().UTC(),
	}

	for i := 0; i < items; i++ {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: "prd-1",
			Name:      "Nasi Lemak",
			Quantity:  1,
			UnitPrice: 10,
		})
	}

	return order
}

func TestKitchenQueueExplodesItems(t *testing.T) {
	orders := []*models.Order{
		makeOrder("KL-000001", models.OrderStatusPending, 3),
		makeOrder("KL-000002", models.OrderStatusPreparing, 1),
		makeOrder("KL-000003", models.OrderStatusReady, 2),
	}

	rows := KitchenQueue(orders)

	require.Len(t, rows, 4)

	byOrder := map[string]int{}
	for _, row := range rows {
		byOrder[row.OrderID]++
		assert.Equal(t, "2026-09-01 12:00", row.DueTime)
	}
	assert.Equal(t, 3, byOrder["KL-000001"])
	assert.Equal(t, 1, byOrder["KL-000002"])
	assert.NotContains(t, byOrder, "KL-000003")
}

func TestKitchenQueueOrdersByDueTime(t *testing.T) {
	early := makeOrder("KL-000002", models.OrderStatusPending, 1)
	early.DueTime = "2026-09-01 09:00"
	late := makeOrder("KL-000001", models.OrderStatusPending, 1)
	late.DueTime = "2026-09-01 18:00"

	rows := KitchenQueue([]*models.Order{late, early})

	require.Len(t, rows, 2)
	assert.Equal(t, "KL-000002", rows[0].OrderID)
	assert.Equal(t, "KL-000001", rows[1].OrderID)
}

// Every order lands in exactly one of the two kitchen views.
func TestKitchenViewsPartitionTheOrderList(t *testing.T) {
	orders := []*models.Order{
		makeOrder("KL-000001", models.OrderStatusPending, 1),
		makeOrder("KL-000002", models.OrderStatusPreparing, 1),
		makeOrder("KL-000003", models.OrderStatusReady, 1),
		makeOrder("KL-000004", models.OrderStatusDelivering, 1),
		makeOrder("KL-000005", models.OrderStatusCompleted, 1),
	}

	queueIDs := map[string]bool{}
	for _, row := range KitchenQueue(orders) {
		queueIDs[row.OrderID] = true
	}

	historyIDs := map[string]bool{}
	for _, order := range KitchenHistory(orders) {
		historyIDs[order.ID] = true
	}

	for _, order := range orders {
		inQueue := queueIDs[order.ID]
		inHistory := historyIDs[order.ID]
		assert.True(t, inQueue != inHistory, "order %s must appear in exactly one kitchen view", order.ID)
	}
	assert.Len(t, historyIDs, 3)
}

func TestDriverTasksActiveSelection(t *testing.T) {
	t.Run("delivering order wins", func(t *testing.T) {
		orders := []*models.Order{
			makeOrder("KL-000001", models.OrderStatusReady, 1),
			makeOrder("KL-000002", models.OrderStatusDelivering, 1),
			makeOrder("KL-000003", models.OrderStatusReady, 1),
		}

		list := DriverTasks(orders)

		require.NotNil(t, list.Active)
		assert.Equal(t, "KL-000002", list.Active.ID)
		require.Len(t, list.Upcoming, 2)
	})

	t.Run("first ready when none delivering", func(t *testing.T) {
		orders := []*models.Order{
			makeOrder("KL-000001", models.OrderStatusReady, 1),
			makeOrder("KL-000002", models.OrderStatusReady, 1),
		}

		list := DriverTasks(orders)

		require.NotNil(t, list.Active)
		assert.Equal(t, "KL-000001", list.Active.ID)
		require.Len(t, list.Upcoming, 1)
		assert.Equal(t, "KL-000002", list.Upcoming[0].ID)
	})

	t.Run("empty when nothing to deliver", func(t *testing.T) {
		orders := []*models.Order{
			makeOrder("KL-000001", models.OrderStatusPending, 1),
			makeOrder("KL-000002", models.OrderStatusCompleted, 1),
		}

		list := DriverTasks(orders)

		assert.Nil(t, list.Active)
		assert.Empty(t, list.Upcoming)
	})
}

func TestDriverHistory(t *testing.T) {
	orders := []*models.Order{
		makeOrder("KL-000001", models.OrderStatusCompleted, 1),
		makeOrder("KL-000002", models.OrderStatusDelivering, 1),
	}

	history := DriverHistory(orders)

	require.Len(t, history, 1)
	assert.Equal(t, "KL-000001", history[0].ID)
}

func TestDashboard(t *testing.T) {
	now := time.Now().UTC()

	first := makeOrder("KL-000001", models.OrderStatusPending, 1)
	first.Amount = 27.50
	first.CreatedAt = now.Add(-2 * time.Hour)

	second := makeOrder("KL-000002", models.OrderStatusCompleted, 1)
	second.Amount = 100
	second.CreatedAt = now.Add(-1 * time.Hour)

	third := makeOrder("KL-000003", models.OrderStatusPending, 1)
	third.Amount = 12.50
	third.CreatedAt = now

	stats := Dashboard([]*models.Order{first, second, third}, 2)

	assert.Equal(t, 3, stats.TotalOrders)
	assert.InDelta(t, 140.0, stats.TotalAmount, 0.001)
	assert.Equal(t, 2, stats.ByStatus[models.OrderStatusPending])
	assert.Equal(t, 1, stats.ByStatus[models.OrderStatusCompleted])

	require.Len(t, stats.Latest, 2)
	assert.Equal(t, "KL-000003", stats.Latest[0].ID)
	assert.Equal(t, "KL-000002", stats.Latest[1].ID)
}
