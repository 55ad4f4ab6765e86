// Package orders persists phone orders, numbers them per day and runs the
// submission pipeline the ordering agent calls.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fareast/internal/models"

	"github.com/jinzhu/gorm"
)

var (
	// ErrOrderNotFound is returned when no order has the requested number
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidStatus is returned for a status outside the known set
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrTransitionNotAllowed is returned when the status policy rejects a change
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
)

// Repository stores orders and their line items with gorm
type Repository struct {
	db     *gorm.DB
	policy StatusPolicy
}

// NewRepository creates a repository. A nil policy allows every transition.
func NewRepository(db *gorm.DB, policy StatusPolicy) *Repository {
	if policy == nil {
		policy = Permissive{}
	}
	return &Repository{db: db, policy: policy}
}

// Create writes the order row and then its line items, in order, in one
// transaction. On success order and its items carry their generated ids.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	items := order.Items
	order.Items = nil

	tx := r.db.Begin()
	if tx.Error != nil {
		order.Items = items
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	if err := tx.Create(order).Error; err != nil {
		tx.Rollback()
		order.Items = items
		return fmt.Errorf("failed to insert order %s: %w", order.OrderNumber, err)
	}

	for i := range items {
		items[i].OrderID = order.ID
		items[i].Position = i
		if items[i].CreatedAt.IsZero() {
			items[i].CreatedAt = order.CreatedAt
		}
		if err := tx.Create(&items[i]).Error; err != nil {
			tx.Rollback()
			order.ID = 0
			order.Items = items
			return fmt.Errorf("failed to insert line item %d of order %s: %w", i+1, order.OrderNumber, err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		order.ID = 0
		order.Items = items
		return fmt.Errorf("failed to commit order %s: %w", order.OrderNumber, err)
	}

	order.Items = items
	return nil
}

// CountCreatedBetween counts orders with from <= created_at < to
func (r *Repository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var count int
	err := r.db.Model(&models.Order{}).
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}

// List returns every order, most recent first, with line items in request order
func (r *Repository) List(ctx context.Context) ([]models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var orders []models.Order
	err := r.db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("id ASC")
		}).
		Order("created_at DESC").
		Order("id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// FindByNumber returns the most recent order with the given number and its
// line items. Numbers restart every day, so older orders may share it.
func (r *Repository) FindByNumber(ctx context.Context, orderNumber string) (models.Order, error) {
	if err := ctx.Err(); err != nil {
		return models.Order{}, err
	}

	var order models.Order
	err := r.db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("id ASC")
		}).
		Where("order_number = ?", orderNumber).
		Order("created_at DESC").
		Order("id DESC").
		First(&order).Error
	if gorm.IsRecordNotFoundError(err) {
		return models.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to load order %s: %w", orderNumber, err)
	}
	return order, nil
}

// UpdateStatus moves the most recent order with orderNumber to status and
// stamps updated_at with now
func (r *Repository) UpdateStatus(ctx context.Context, orderNumber string, status models.OrderStatus, now time.Time) (models.Order, error) {
	if !status.Valid() {
		return models.Order{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	order, err := r.FindByNumber(ctx, orderNumber)
	if err != nil {
		return models.Order{}, err
	}
	if err := r.policy.Allow(order.Status, status); err != nil {
		return models.Order{}, err
	}

	updatedAt := now.UTC()
	res := r.db.Model(&models.Order{}).
		Where("id = ?", order.ID).
		UpdateColumns(map[string]interface{}{
			"status":     status,
			"updated_at": updatedAt,
		})
	if res.Error != nil {
		return models.Order{}, fmt.Errorf("failed to update order %s: %w", orderNumber, res.Error)
	}
	if res.RowsAffected == 0 {
		return models.Order{}, ErrOrderNotFound
	}

	order.Status = status
	order.UpdatedAt = updatedAt
	return order, nil
}
