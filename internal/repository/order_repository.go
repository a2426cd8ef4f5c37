package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/kitchenlane/catering-ops/internal/database"
	"github.com/kitchenlane/catering-ops/internal/models"
	"github.com/kitchenlane/catering-ops/pkg/logger"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrDatabase = errors.New("database error")
	// ErrVersionConflict means the row changed since it was read; the caller
	// should reload and retry instead of overwriting.
	ErrVersionConflict = errors.New("version conflict")
	// ErrDuplicateID means the generated order number is already taken; the
	// caller retries the insert with a fresh one.
	ErrDuplicateID = errors.New("duplicate order number")
)

// pq unique_violation
const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode
}

const orderColumns = `id, customer_name, customer_phone, address, items, status, amount,
	due_time, driver_id, payment_method, order_type, version, created_at, updated_at`

// OrderRepository owns the orders table. Every mutation commits together with
// its outbox message; assignment and release flows additionally touch the
// drivers table inside the same transaction.
type OrderRepository struct {
	db     *database.Database
	outbox *OutboxRepository
	fleet  *FleetRepository
	logger logger.Logger
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *database.Database, outbox *OutboxRepository, fleet *FleetRepository, logger logger.Logger) *OrderRepository {
	return &OrderRepository{
		db:     db,
		outbox: outbox,
		fleet:  fleet,
		logger: logger,
	}
}

// withTx runs fn in a transaction, rolling back on error.
func (r *OrderRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)

	if err != nil {
		r.logger.Error("Failed to begin transaction", "error", err)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error("Failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit transaction", "error", err)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// Create inserts a new order together with its outbox message.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order, msg *models.OutboxMessage) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := r.createInTx(tx, order); err != nil {
			return err
		}
		return r.outbox.CreateInTx(tx, msg)
	})
}

func (r *OrderRepository) createInTx(tx *sqlx.Tx, order *models.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := tx.Exec(
		query,
		order.ID,
		order.CustomerName,
		order.CustomerPhone,
		order.Address,
		order.Items,
		order.Status,
		order.Amount,
		order.DueTime,
		order.DriverID,
		order.PaymentMethod,
		order.Type,
		order.Version,
		order.CreatedAt,
		order.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateID
		}
		r.logger.Error("Failed to create order", "error", err, "orderID", order.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetByID retrieves an order by its ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	var order models.Order
	err := r.db.DB.GetContext(ctx, &order, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get order by ID", "error", err, "orderID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &order, nil
}

// GetAll retrieves all orders, newest first.
func (r *OrderRepository) GetAll(ctx context.Context) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`

	orders := []*models.Order{}
	err := r.db.DB.SelectContext(ctx, &orders, query)

	if err != nil {
		r.logger.Error("Failed to get all orders", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return orders, nil
}

// GetByStatus retrieves orders in any of the given statuses, newest first.
func (r *OrderRepository) GetByStatus(ctx context.Context, statuses ...models.OrderStatus) ([]*models.Order, error) {
	query, args, err := sqlx.In(
		`SELECT `+orderColumns+` FROM orders WHERE status IN (?) ORDER BY created_at DESC`,
		statuses,
	)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	query = r.db.DB.Rebind(query)

	orders := []*models.Order{}
	if err := r.db.DB.SelectContext(ctx, &orders, query, args...); err != nil {
		r.logger.Error("Failed to get orders by status", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return orders, nil
}

// Count counts the total number of orders.
func (r *OrderRepository) Count(ctx context.Context) (int, error) {
	var count int

	err := r.db.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM orders`)

	if err != nil {
		r.logger.Error("Failed to count orders", "error", err)
		return 0, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return count, nil
}

// Update replaces an order together with its outbox message.
func (r *OrderRepository) Update(ctx context.Context, order *models.Order, msg *models.OutboxMessage) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := r.updateInTx(tx, order); err != nil {
			return err
		}
		return r.outbox.CreateInTx(tx, msg)
	})
}

// UpdateAndReleaseDriver replaces an order and returns its driver to
// available in the same transaction, used when an order completes.
func (r *OrderRepository) UpdateAndReleaseDriver(ctx context.Context, order *models.Order, driverID string, msg *models.OutboxMessage) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := r.updateInTx(tx, order); err != nil {
			return err
		}
		if err := r.fleet.ReleaseDriverInTx(tx, driverID); err != nil {
			return err
		}
		return r.outbox.CreateInTx(tx, msg)
	})
}

// AssignDriver points an order at newDriverID, releasing oldDriverID first
// when set. From the dispatcher's perspective the reassignment is atomic:
// either every row moves or none does.
func (r *OrderRepository) AssignDriver(ctx context.Context, order *models.Order, oldDriverID, newDriverID string, msg *models.OutboxMessage) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		if oldDriverID != "" && oldDriverID != newDriverID {
			if err := r.fleet.ReleaseDriverInTx(tx, oldDriverID); err != nil {
				return err
			}
		}
		if oldDriverID != newDriverID {
			if err := r.fleet.AssignDriverInTx(tx, newDriverID, order.ID); err != nil {
				return err
			}
		}
		if err := r.updateInTx(tx, order); err != nil {
			return err
		}
		return r.outbox.CreateInTx(tx, msg)
	})
}

// Delete permanently removes an order together with its outbox message.
func (r *OrderRepository) Delete(ctx context.Context, id string, msg *models.OutboxMessage) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.Exec(`DELETE FROM orders WHERE id = $1`, id)

		if err != nil {
			r.logger.Error("Failed to delete order", "error", err, "orderID", id)
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}

		rowsAffected, err := result.RowsAffected()

		if err != nil {
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}

		if rowsAffected == 0 {
			return ErrNotFound
		}

		return r.outbox.CreateInTx(tx, msg)
	})
}

// updateInTx is the versioned compare-and-swap write every mutation path
// shares. A concurrent edit since the caller's read fails with
// ErrVersionConflict rather than silently overwriting it.
func (r *OrderRepository) updateInTx(tx *sqlx.Tx, order *models.Order) error {
	query := `
		UPDATE orders
		SET customer_name = $1, customer_phone = $2, address = $3, items = $4,
			status = $5, amount = $6, due_time = $7, driver_id = $8,
			payment_method = $9, order_type = $10, version = version + 1,
			updated_at = $11
		WHERE id = $12 AND version = $13
	`

	result, err := tx.Exec(
		query,
		order.CustomerName,
		order.CustomerPhone,
		order.Address,
		order.Items,
		order.Status,
		order.Amount,
		order.DueTime,
		order.DriverID,
		order.PaymentMethod,
		order.Type,
		models.GetCurrentTime(),
		order.ID,
		order.Version,
	)

	if err != nil {
		r.logger.Error("Failed to update order", "error", err, "orderID", order.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		// Either the order is gone or someone moved its version forward.
		var exists bool
		if err := tx.Get(&exists, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, order.ID); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	order.Version++
	return nil
}
