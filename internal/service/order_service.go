package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/kitchenlane/catering-ops/internal/lifecycle"
	"github.com/kitchenlane/catering-ops/internal/models"
	"github.com/kitchenlane/catering-ops/internal/repository"
	apperrors "github.com/kitchenlane/catering-ops/pkg/errors"
	"github.com/kitchenlane/catering-ops/pkg/logger"
	"github.com/kitchenlane/catering-ops/pkg/middleware"
)

// orderNumberAttempts bounds how often creation retries a colliding order
// number before giving up.
const orderNumberAttempts = 3

// OrderService implements the order lifecycle: creation against the catalog,
// role-gated status transitions, admin edits with optimistic concurrency, and
// driver assignment. Every mutation leaves a change event in the outbox.
type OrderService struct {
	store   OrderStore
	catalog ProductCatalog
	logger  logger.Logger
}

// NewOrderService creates a new OrderService.
func NewOrderService(store OrderStore, catalog ProductCatalog, logger logger.Logger) *OrderService {
	return &OrderService{
		store:   store,
		catalog: catalog,
		logger:  logger,
	}
}

// CreateOrder validates a draft, resolves its items against the catalog and
// persists the new pending order. Item names and unit prices are captured
// from the catalog at this moment; the amount is locked to them.
func (s *OrderService) CreateOrder(ctx context.Context, draft *models.OrderDraft) (*models.Order, error) {
	if err := validateDraft(draft); err != nil {
		middleware.RecordOrderOperation("create", false)
		return nil, err
	}

	if err := s.resolveItems(ctx, draft.Items); err != nil {
		middleware.RecordOrderOperation("create", false)
		return nil, err
	}

	order := models.NewOrder(draft)

	// Order numbers are random, so an insert can collide with an existing
	// order. The event is rebuilt on each attempt because it embeds the id.
	var createErr error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		msg, err := models.NewOrderCreatedEvent(order)

		if err != nil {
			return nil, apperrors.NewInternalError("failed to build order event")
		}

		createErr = s.store.Create(ctx, order, msg)
		if !errors.Is(createErr, repository.ErrDuplicateID) {
			break
		}

		order.ID = models.NewOrderNumber()
	}

	if createErr != nil {
		middleware.RecordOrderOperation("create", false)
		return nil, mapRepositoryError(createErr, order.ID)
	}

	s.logger.Info("Order created", "orderID", order.ID, "amount", order.Amount, "type", order.Type)
	middleware.RecordOrderOperation("create", true)

	return order, nil
}

// GetOrder retrieves a single order.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.store.GetByID(ctx, id)

	if err != nil {
		return nil, mapRepositoryError(err, id)
	}

	return order, nil
}

// ListOrders retrieves all orders, optionally filtered by status.
func (s *OrderService) ListOrders(ctx context.Context, statuses ...models.OrderStatus) ([]*models.Order, error) {
	var (
		orders []*models.Order
		err    error
	)

	if len(statuses) == 0 {
		orders, err = s.store.GetAll(ctx)
	} else {
		orders, err = s.store.GetByStatus(ctx, statuses...)
	}

	if err != nil {
		return nil, mapRepositoryError(err, "")
	}

	return orders, nil
}

// OrderEdit is the admin full-replace input. Version carries the edition the
// caller read; a concurrent change since then rejects the edit.
type OrderEdit struct {
	CustomerName  string            `json:"customer_name"`
	CustomerPhone string            `json:"customer_phone"`
	Address       string            `json:"address"`
	Items         models.OrderItems `json:"items"`
	Status        string            `json:"status"`
	DueTime       string            `json:"due_time"`
	PaymentMethod string            `json:"payment_method"`
	Version       int64             `json:"version"`
}

// UpdateOrder applies an admin full replace. Unlike the role status endpoints
// the edit path may set any status, but the order amount stays locked to the
// prices captured at creation.
func (s *OrderService) UpdateOrder(ctx context.Context, id string, role lifecycle.Role, edit *OrderEdit) (*models.Order, error) {
	if !lifecycle.CanMutateOrders(role) {
		middleware.RecordOrderOperation("update", false)
		return nil, apperrors.NewForbiddenError("only administrators can edit orders")
	}

	order, err := s.store.GetByID(ctx, id)

	if err != nil {
		middleware.RecordOrderOperation("update", false)
		return nil, mapRepositoryError(err, id)
	}

	if edit.CustomerName == "" {
		return nil, apperrors.NewValidationError("customer_name is required")
	}

	if edit.CustomerPhone == "" {
		return nil, apperrors.NewValidationError("customer_phone is required")
	}

	if len(edit.Items) == 0 {
		return nil, apperrors.NewValidationError("order must have at least one item")
	}

	status := order.Status
	if edit.Status != "" {
		status, err = models.ParseOrderStatus(edit.Status)
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
	}

	order.CustomerName = edit.CustomerName
	order.CustomerPhone = edit.CustomerPhone
	order.Address = edit.Address
	order.Items = edit.Items
	order.Status = status
	order.DueTime = edit.DueTime
	order.Version = edit.Version

	order.Type = models.OrderTypeTakeaway
	if order.Address != "" {
		order.Type = models.OrderTypeDelivery
	}

	order.PaymentMethod = nil
	if edit.PaymentMethod != "" {
		pm, err := models.ParsePaymentMethod(edit.PaymentMethod)
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
		order.PaymentMethod = &pm
	}

	msg, err := models.NewOrderUpdatedEvent(order)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to build order event")
	}

	if err := s.store.Update(ctx, order, msg); err != nil {
		middleware.RecordOrderOperation("update", false)
		return nil, mapRepositoryError(err, id)
	}

	s.logger.Info("Order updated", "orderID", order.ID, "version", order.Version)
	middleware.RecordOrderOperation("update", true)

	return order, nil
}

// UpdateStatus advances an order along the lifecycle on behalf of a role.
// Requesting the status the order already has is an idempotent no-op, so a
// double tap on a stale screen does not double-advance. Completing a
// delivery returns the assigned driver to the available pool.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, role lifecycle.Role, target models.OrderStatus) (*models.Order, error) {
	order, err := s.store.GetByID(ctx, id)

	if err != nil {
		middleware.RecordOrderOperation("status", false)
		return nil, mapRepositoryError(err, id)
	}

	if order.Status == target {
		return order, nil
	}

	if err := lifecycle.Authorize(role, order.Status, target); err != nil {
		middleware.RecordOrderOperation("status", false)
		return nil, err
	}

	oldStatus := order.Status
	order.Status = target

	msg, err := models.NewOrderStatusChangedEvent(order, oldStatus)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to build order event")
	}

	if target == models.OrderStatusCompleted && order.DriverID != nil {
		err = s.store.UpdateAndReleaseDriver(ctx, order, *order.DriverID, msg)
	} else {
		err = s.store.Update(ctx, order, msg)
	}

	if err != nil {
		middleware.RecordOrderOperation("status", false)
		return nil, mapRepositoryError(err, id)
	}

	s.logger.Info("Order status changed",
		"orderID", order.ID, "from", oldStatus, "to", target, "role", role)
	middleware.RecordOrderOperation("status", true)

	return order, nil
}

// AssignDriver puts a driver on the order. A driver already on duty for
// another order is rejected with a conflict; reassignment releases the
// previous driver in the same transaction.
func (s *OrderService) AssignDriver(ctx context.Context, id string, role lifecycle.Role, driverID string) (*models.Order, error) {
	if !lifecycle.CanMutateOrders(role) {
		middleware.RecordOrderOperation("assign", false)
		return nil, apperrors.NewForbiddenError("only administrators can assign drivers")
	}

	if driverID == "" {
		return nil, apperrors.NewValidationError("driver_id is required")
	}

	order, err := s.store.GetByID(ctx, id)

	if err != nil {
		middleware.RecordOrderOperation("assign", false)
		return nil, mapRepositoryError(err, id)
	}

	if lifecycle.IsTerminal(order.Status) {
		return nil, apperrors.NewValidationError("cannot assign a driver to a completed order")
	}

	oldDriverID := ""
	if order.DriverID != nil {
		oldDriverID = *order.DriverID
	}

	order.DriverID = &driverID

	msg, err := models.NewDriverAssignedEvent(order, driverID)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to build order event")
	}

	if err := s.store.AssignDriver(ctx, order, oldDriverID, driverID, msg); err != nil {
		middleware.RecordOrderOperation("assign", false)
		return nil, mapRepositoryError(err, id)
	}

	s.logger.Info("Driver assigned", "orderID", order.ID, "driverID", driverID)
	middleware.RecordOrderOperation("assign", true)

	return order, nil
}

// DeleteOrder permanently removes an order.
func (s *OrderService) DeleteOrder(ctx context.Context, id string, role lifecycle.Role) error {
	if !lifecycle.CanMutateOrders(role) {
		middleware.RecordOrderOperation("delete", false)
		return apperrors.NewForbiddenError("only administrators can delete orders")
	}

	msg, err := models.NewOrderDeletedEvent(id)

	if err != nil {
		return apperrors.NewInternalError("failed to build order event")
	}

	if err := s.store.Delete(ctx, id, msg); err != nil {
		middleware.RecordOrderOperation("delete", false)
		return mapRepositoryError(err, id)
	}

	s.logger.Info("Order deleted", "orderID", id)
	middleware.RecordOrderOperation("delete", true)

	return nil
}

// CountOrders counts all orders.
func (s *OrderService) CountOrders(ctx context.Context) (int, error) {
	count, err := s.store.Count(ctx)

	if err != nil {
		return 0, mapRepositoryError(err, "")
	}

	return count, nil
}

func validateDraft(draft *models.OrderDraft) error {
	if draft.CustomerName == "" {
		return apperrors.NewValidationError("customer_name is required")
	}

	if draft.CustomerPhone == "" {
		return apperrors.NewValidationError("customer_phone is required")
	}

	if len(draft.Items) == 0 {
		return apperrors.NewValidationError("order must have at least one item")
	}

	for i, item := range draft.Items {
		if item.ProductID == "" {
			return apperrors.NewValidationError(fmt.Sprintf("items[%d].product_id is required", i))
		}
		if item.Quantity <= 0 {
			return apperrors.NewValidationError(fmt.Sprintf("items[%d].quantity must be positive", i))
		}
	}

	if draft.PaymentMethod != "" {
		if _, err := models.ParsePaymentMethod(draft.PaymentMethod); err != nil {
			return apperrors.NewValidationError(err.Error())
		}
	}

	return nil
}

// resolveItems fills in item names and unit prices from the catalog.
func (s *OrderService) resolveItems(ctx context.Context, items models.OrderItems) error {
	for i := range items {
		product, err := s.catalog.GetByID(ctx, items[i].ProductID)

		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewValidationError(fmt.Sprintf("unknown product: %s", items[i].ProductID))
			}
			return apperrors.NewInternalError("failed to resolve product")
		}

		items[i].Name = product.Name
		items[i].UnitPrice = product.Price
	}

	return nil
}

// mapRepositoryError translates storage errors into the API error taxonomy.
func mapRepositoryError(err error, id string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFoundError(fmt.Sprintf("record not found: %s", id))
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewConflictError("the record was modified concurrently, reload and retry")
	case errors.Is(err, repository.ErrContention):
		return apperrors.NewConflictError("the resource is already taken")
	case errors.Is(err, repository.ErrDuplicateID):
		return apperrors.NewInternalError("failed to allocate an order number")
	default:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return apperrors.NewInternalError("storage failure")
	}
}
