package controllers

import (
	"net/http"
	"strconv"

	"marketplace-order-service/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type NotificationController struct {
	Repo   repository.NotificationRepository
	Logger *zap.Logger
}

type notificationListMeta struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	UnreadCount int64 `json:"unread_count"`
	HasMore     bool  `json:"has_more"`
}

// ListForSeller returns a seller's notifications, newest first, with an
// unread count for badge rendering.
func (nc *NotificationController) ListForSeller(c *gin.Context) {
	sellerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seller id"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	notifications, total, err := nc.Repo.FindByRecipient(c.Request.Context(), sellerID, page, limit)
	if err != nil {
		nc.Logger.Error("Failed to fetch notifications", zap.String("seller_id", sellerID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch notifications"})
		return
	}

	unread, err := nc.Repo.CountUnread(c.Request.Context(), sellerID)
	if err != nil {
		nc.Logger.Warn("Failed to count unread notifications", zap.String("seller_id", sellerID.String()), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"meta": notificationListMeta{
			Page:        page,
			Limit:       limit,
			Total:       total,
			UnreadCount: unread,
			HasMore:     total > int64(page*limit),
		},
	})
}

// MarkRead flips one notification's read flag.
func (nc *NotificationController) MarkRead(c *gin.Context) {
	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	if err := nc.Repo.MarkRead(c.Request.Context(), notificationID); err != nil {
		nc.Logger.Error("Failed to mark notification read", zap.String("notification_id", notificationID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update notification"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "read"})
}
