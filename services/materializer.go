package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "marketplace-order-service/errors"
	"marketplace-order-service/models"
	"marketplace-order-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OrderMaterializer converts an extracted checkout intent into a durable
// order + line items, at most once per external transaction id.
//
// The idempotency gate is the storage-layer unique index on
// external_transaction_id: there is no advisory read before the insert, because
// a check-then-insert pair races under concurrent redelivery. A duplicate-key
// error on the header insert means another delivery already materialized this
// transaction and is treated as success.
type OrderMaterializer struct {
	orders   repository.OrderRepository
	recorder *FailureRecorder
	logger   *zap.Logger
}

func NewOrderMaterializer(orders repository.OrderRepository, recorder *FailureRecorder, logger *zap.Logger) *OrderMaterializer {
	return &OrderMaterializer{orders: orders, recorder: recorder, logger: logger}
}

// Materialize writes the order header and its line items. On duplicate
// delivery it returns ErrDuplicateTransaction with no writes. If the line-item
// insert fails after the header insert, the header is compensated away and the
// event goes to the failure recorder; the order never survives headers-only.
func (m *OrderMaterializer) Materialize(ctx context.Context, meta *models.CheckoutMetadata, rawPayload []byte) (*models.Order, error) {
	addrJSON, err := json.Marshal(meta.ShippingAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot shipping address: %w", err)
	}

	now := time.Now().UTC()
	order := &models.Order{
		ID:                    uuid.New(),
		ExternalTransactionID: meta.ExternalTransactionID,
		OrderNumber:           "ORD-" + now.Format("20060102-150405") + "-" + uuid.New().String()[:8],
		BuyerID:               uuid.MustParse(meta.BuyerID),
		TotalAmount:           meta.TotalAmount,
		Currency:              meta.Currency,
		Status:                models.OrderStatusProcessing,
		PaymentStatus:         models.PaymentStatusPaid,
		ShippingAddress:       string(addrJSON),
		ShippingFee:           meta.ShippingFee,
		PaidAt:                &now,
	}

	if err := m.orders.CreateHeader(ctx, order); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			m.logger.Info("Skipping duplicate payment event",
				zap.String("external_transaction_id", meta.ExternalTransactionID),
			)
			return nil, apperrors.ErrDuplicateTransaction
		}
		return nil, fmt.Errorf("failed to insert order header: %w", err)
	}

	items := make([]models.OrderLineItem, 0, len(meta.Items))
	for _, it := range meta.Items {
		items = append(items, models.OrderLineItem{
			ID:                 uuid.New(),
			OrderID:            order.ID,
			ProductID:          uuid.MustParse(it.ProductID),
			SellerID:           uuid.MustParse(it.SellerID),
			Quantity:           it.Quantity,
			UnitPrice:          it.UnitPrice,
			SellerPayoutAmount: it.PayoutAmount,
			PlatformCommission: it.Commission,
			CommissionRate:     it.CommissionRate,
			PayoutStatus:       models.PayoutStatusPending,
		})
	}

	if err := m.orders.CreateLineItems(ctx, items); err != nil {
		m.logger.Error("Line item insert failed, compensating order header",
			zap.String("order_id", order.ID.String()),
			zap.String("external_transaction_id", meta.ExternalTransactionID),
			zap.Error(err),
		)
		if delErr := m.orders.DeleteHeader(ctx, order.ID); delErr != nil {
			m.logger.Error("Compensating delete failed, order left headers-only",
				zap.String("order_id", order.ID.String()),
				zap.Error(delErr),
			)
		}

		// If the recorder itself is down there is no durable trace left, so
		// surface a transient error and let the gateway redeliver.
		reason := fmt.Sprintf("line item insert failed: %v", err)
		if recErr := m.recorder.Record(ctx, meta.ExternalTransactionID, reason, rawPayload); recErr != nil {
			return nil, fmt.Errorf("failure recorder unavailable after partial write: %w", recErr)
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPartialWriteFailure, err)
	}

	order.LineItems = items
	m.logger.Info("Order materialized",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("external_transaction_id", meta.ExternalTransactionID),
		zap.Int("items", len(items)),
		zap.Int64("total_amount", order.TotalAmount),
	)
	return order, nil
}
