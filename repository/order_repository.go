package repository

import (
	"context"

	"marketplace-order-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderRepository defines the interface for order data access.
//
// CreateHeader and CreateLineItems are deliberately separate operations with
// DeleteHeader as the compensating action: the materializer does not assume a
// cross-table transaction and undoes completed steps itself on partial failure.
type OrderRepository interface {
	CreateHeader(ctx context.Context, order *models.Order) error
	CreateLineItems(ctx context.Context, items []models.OrderLineItem) error
	DeleteHeader(ctx context.Context, orderID uuid.UUID) error
	FindByExternalTransactionID(ctx context.Context, externalTransactionID string) (*models.Order, error)
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, updates map[string]interface{}) error
}

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new instance of GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) OrderRepository {
	return &GormOrderRepository{db: db}
}

// CreateHeader inserts the order header row. A unique violation on
// external_transaction_id comes back as gorm.ErrDuplicatedKey.
func (r *GormOrderRepository) CreateHeader(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// CreateLineItems inserts all line items for an order in one batch.
func (r *GormOrderRepository) CreateLineItems(ctx context.Context, items []models.OrderLineItem) error {
	return r.db.WithContext(ctx).Create(&items).Error
}

// DeleteHeader hard-deletes a header row. Used only as the compensating action
// after a line-item insert failure; the order must never survive headers-only.
func (r *GormOrderRepository) DeleteHeader(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&models.Order{}, "id = ?", orderID).Error
}

// FindByExternalTransactionID retrieves an order with its line items by the
// gateway's transaction id. This is the reconciliation read path.
func (r *GormOrderRepository) FindByExternalTransactionID(ctx context.Context, externalTransactionID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("external_transaction_id = ?", externalTransactionID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByID retrieves an order with its line items
func (r *GormOrderRepository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("id = ?", orderID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus applies lifecycle/payment status updates to an order
func (r *GormOrderRepository) UpdateStatus(ctx context.Context, orderID uuid.UUID, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}
