package projection

import (
	"sort"

	"github.com/kitchenlane/catering-ops/internal/models"
)

// Projections are pure read-time computations over the full order list. They
// never mutate orders and are recomputed on every refresh, so they cannot
// drift from the store beyond one refresh interval.

// PrepRow is one kitchen work item: an order with three items yields three
// rows sharing the same order id and due time.
type PrepRow struct {
	OrderID      string             `json:"order_id"`
	DueTime      string             `json:"due_time"`
	CustomerName string             `json:"customer_name"`
	ProductID    string             `json:"product_id"`
	Name         string             `json:"name"`
	Quantity     int                `json:"quantity"`
	Note         string             `json:"note,omitempty"`
	Status       models.OrderStatus `json:"status"`
}

// KitchenQueue explodes orders still in the kitchen (pending, preparing) into
// per-item prep rows, ordered by due time so rows for the same due date group
// together.
func KitchenQueue(orders []*models.Order) []PrepRow {
	var rows []PrepRow

	for _, order := range orders {
		if order.Status != models.OrderStatusPending && order.Status != models.OrderStatusPreparing {
			continue
		}

		for _, item := range order.Items {
			rows = append(rows, PrepRow{
				OrderID:      order.ID,
				DueTime:      order.DueTime,
				CustomerName: order.CustomerName,
				ProductID:    item.ProductID,
				Name:         item.Name,
				Quantity:     item.Quantity,
				Note:         item.Note,
				Status:       order.Status,
			})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].DueTime != rows[j].DueTime {
			return rows[i].DueTime < rows[j].DueTime
		}
		return rows[i].OrderID < rows[j].OrderID
	})

	return rows
}

// KitchenHistory returns orders the kitchen considers done: ready or later.
// Note the asymmetry with the driver view, where ready means still to do.
func KitchenHistory(orders []*models.Order) []*models.Order {
	return filterByStatus(orders,
		models.OrderStatusReady, models.OrderStatusDelivering, models.OrderStatusCompleted)
}

// DriverTaskList is the driver's working view: one active order and the rest
// upcoming.
type DriverTaskList struct {
	Active   *models.Order   `json:"active,omitempty"`
	Upcoming []*models.Order `json:"upcoming"`
}

// DriverTasks filters to ready and delivering orders. The active order is the
// delivering one, else the first ready order; everything else is upcoming. A
// driver is expected to have at most one delivering order at a time.
func DriverTasks(orders []*models.Order) DriverTaskList {
	tasks := filterByStatus(orders, models.OrderStatusReady, models.OrderStatusDelivering)

	var list DriverTaskList

	for _, order := range tasks {
		if order.Status == models.OrderStatusDelivering {
			list.Active = order
			break
		}
	}

	if list.Active == nil && len(tasks) > 0 {
		list.Active = tasks[0]
	}

	list.Upcoming = make([]*models.Order, 0, len(tasks))
	for _, order := range tasks {
		if list.Active == nil || order.ID != list.Active.ID {
			list.Upcoming = append(list.Upcoming, order)
		}
	}

	return list
}

// DriverHistory returns completed orders.
func DriverHistory(orders []*models.Order) []*models.Order {
	return filterByStatus(orders, models.OrderStatusCompleted)
}

// DashboardStats is the admin dashboard aggregate view.
type DashboardStats struct {
	TotalOrders int                        `json:"total_orders"`
	TotalAmount float64                    `json:"total_amount"`
	ByStatus    map[models.OrderStatus]int `json:"orders_by_status"`
	Latest      []*models.Order            `json:"latest_orders"`
}

// Dashboard computes count, revenue and status breakdown over the full list,
// plus the latest n orders by reverse insertion order.
func Dashboard(orders []*models.Order, n int) DashboardStats {
	stats := DashboardStats{
		TotalOrders: len(orders),
		ByStatus:    make(map[models.OrderStatus]int),
	}

	for _, order := range orders {
		stats.TotalAmount += order.Amount
		stats.ByStatus[order.Status]++
	}

	latest := make([]*models.Order, len(orders))
	copy(latest, orders)
	sort.SliceStable(latest, func(i, j int) bool {
		return latest[i].CreatedAt.After(latest[j].CreatedAt)
	})

	if n > len(latest) {
		n = len(latest)
	}
	stats.Latest = latest[:n]

	return stats
}

func filterByStatus(orders []*models.Order, statuses ...models.OrderStatus) []*models.Order {
	out := make([]*models.Order, 0, len(orders))

	for _, order := range orders {
		for _, status := range statuses {
			if order.Status == status {
				out = append(out, order)
				break
			}
		}
	}

	return out
}
