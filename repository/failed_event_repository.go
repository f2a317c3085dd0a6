package repository

import (
	"context"

	"marketplace-order-service/models"

	"gorm.io/gorm"
)

type FailedEventRepository interface {
	Create(ctx context.Context, event *models.FailedEvent) error
	FindByExternalTransactionID(ctx context.Context, externalTransactionID string) ([]models.FailedEvent, error)
}

type gormFailedEventRepo struct {
	db *gorm.DB
}

func NewGormFailedEventRepo(db *gorm.DB) FailedEventRepository {
	return &gormFailedEventRepo{db: db}
}

func (r *gormFailedEventRepo) Create(ctx context.Context, event *models.FailedEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *gormFailedEventRepo) FindByExternalTransactionID(ctx context.Context, externalTransactionID string) ([]models.FailedEvent, error) {
	var events []models.FailedEvent
	if err := r.db.WithContext(ctx).
		Where("external_transaction_id = ?", externalTransactionID).
		Order("created_at DESC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
