package controllers

import (
	"errors"
	"net/http"

	"marketplace-order-service/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type OrderController struct {
	Repo   repository.OrderRepository
	Logger *zap.Logger
}

// GetOrderByExternalTransactionID is the reconciliation read endpoint. A
// not-yet-materialized order answers 404 with a not_found status so pollers
// can tell "not yet" from "broken".
func (oc *OrderController) GetOrderByExternalTransactionID(c *gin.Context) {
	externalTransactionID := c.Query("external_transaction_id")
	if externalTransactionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "external_transaction_id is required"})
		return
	}

	order, err := oc.Repo.FindByExternalTransactionID(c.Request.Context(), externalTransactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "not_found"})
			return
		}
		oc.Logger.Error("Failed to fetch order by transaction id",
			zap.String("external_transaction_id", externalTransactionID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch order"})
		return
	}

	c.JSON(http.StatusOK, order)
}

// GetOrderByID retrieves a specific order
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, err := oc.Repo.FindByID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		oc.Logger.Error("Failed to fetch order", zap.String("order_id", orderID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch order"})
		return
	}

	c.JSON(http.StatusOK, order)
}
