package repository

import (
	"context"

	"marketplace-order-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.SellerNotification) error
	FindByRecipient(ctx context.Context, recipientID uuid.UUID, page, limit int) ([]models.SellerNotification, int64, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, notificationID uuid.UUID) error
}

type gormNotificationRepo struct {
	db *gorm.DB
}

func NewGormNotificationRepo(db *gorm.DB) NotificationRepository {
	return &gormNotificationRepo{db: db}
}

func (r *gormNotificationRepo) Create(ctx context.Context, notification *models.SellerNotification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *gormNotificationRepo) FindByRecipient(ctx context.Context, recipientID uuid.UUID, page, limit int) ([]models.SellerNotification, int64, error) {
	var notifications []models.SellerNotification
	var total int64

	query := r.db.WithContext(ctx).
		Model(&models.SellerNotification{}).
		Where("recipient_id = ?", recipientID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.
		Offset(offset).
		Limit(limit).
		Order("created_at DESC").
		Find(&notifications).Error; err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

func (r *gormNotificationRepo) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SellerNotification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

func (r *gormNotificationRepo) MarkRead(ctx context.Context, notificationID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.SellerNotification{}).
		Where("id = ?", notificationID).
		Update("read", true).Error
}
