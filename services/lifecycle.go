package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "marketplace-order-service/errors"
	"marketplace-order-service/models"
	"marketplace-order-service/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// validTransitions is the order lifecycle:
// created → paid → processing → shipped → delivered, with cancelled reachable
// from any pre-delivered state. Terminal states have no outgoing edges.
var validTransitions = map[string][]string{
	models.OrderStatusCreated:    {models.OrderStatusPaid, models.OrderStatusCancelled},
	models.OrderStatusPaid:       {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:    {models.OrderStatusDelivered, models.OrderStatusCancelled},
	models.OrderStatusDelivered:  {},
	models.OrderStatusCancelled:  {},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// LifecycleService owns the post-materialization status transitions driven by
// later gateway events. Fulfillment transitions (processing → shipped →
// delivered) are driven by seller and admin actions through Transition.
type LifecycleService struct {
	orders   repository.OrderRepository
	producer OrderEventPublisher
	logger   *zap.Logger
}

func NewLifecycleService(orders repository.OrderRepository, producer OrderEventPublisher, logger *zap.Logger) *LifecycleService {
	return &LifecycleService{orders: orders, producer: producer, logger: logger}
}

// Transition moves an order to the target status, rejecting moves the state
// machine does not permit. Extra column updates ride along with the status
// change.
func (s *LifecycleService) Transition(ctx context.Context, order *models.Order, target string, extra map[string]interface{}) error {
	if !CanTransition(order.Status, target) {
		s.logger.Warn("Rejected lifecycle transition",
			zap.String("order_id", order.ID.String()),
			zap.String("from", order.Status),
			zap.String("to", target),
		)
		return fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidLifecycleTransition, order.Status, target)
	}

	updates := map[string]interface{}{"status": target}
	for k, v := range extra {
		updates[k] = v
	}
	if err := s.orders.UpdateStatus(ctx, order.ID, updates); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	s.logger.Info("Order status transitioned",
		zap.String("order_id", order.ID.String()),
		zap.String("from", order.Status),
		zap.String("to", target),
	)
	order.Status = target
	return nil
}

// HandleSessionExpired cancels a not-yet-paid order for the expired checkout
// session, if one exists. A session that never materialized an order is a
// no-op: there is nothing to cancel.
func (s *LifecycleService) HandleSessionExpired(ctx context.Context, externalTransactionID string) error {
	order, err := s.orders.FindByExternalTransactionID(ctx, externalTransactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Info("Session expired with no order, nothing to cancel",
				zap.String("external_transaction_id", externalTransactionID),
			)
			return nil
		}
		return fmt.Errorf("failed to look up order: %w", err)
	}

	if order.PaymentStatus == models.PaymentStatusPaid {
		s.logger.Info("Session expired after payment, leaving order untouched",
			zap.String("order_id", order.ID.String()),
		)
		return nil
	}

	return s.cancel(ctx, order, externalTransactionID, nil)
}

// CancelForPaymentFailure transitions the matching order to cancelled with
// payment status failed.
func (s *LifecycleService) CancelForPaymentFailure(ctx context.Context, externalTransactionID string) error {
	order, err := s.orders.FindByExternalTransactionID(ctx, externalTransactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Info("Payment failed for unknown transaction, nothing to cancel",
				zap.String("external_transaction_id", externalTransactionID),
			)
			return nil
		}
		return fmt.Errorf("failed to look up order: %w", err)
	}

	return s.cancel(ctx, order, externalTransactionID, map[string]interface{}{
		"payment_status": models.PaymentStatusFailed,
	})
}

func (s *LifecycleService) cancel(ctx context.Context, order *models.Order, externalTransactionID string, extra map[string]interface{}) error {
	if err := s.Transition(ctx, order, models.OrderStatusCancelled, extra); err != nil {
		return err
	}

	if s.producer != nil {
		evt := models.OrderEvent{
			Type:                  "order_cancelled",
			OrderID:               order.ID.String(),
			ExternalTransactionID: externalTransactionID,
			BuyerID:               order.BuyerID.String(),
			TotalAmount:           order.TotalAmount,
			Currency:              order.Currency,
			ItemCount:             len(order.LineItems),
			Timestamp:             time.Now().UTC(),
		}
		if err := s.producer.PublishOrderEvent(evt); err != nil {
			s.logger.Warn("Order event publish failed", zap.String("order_id", order.ID.String()), zap.Error(err))
		}
	}
	return nil
}
