package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketplace-order-service/models"
	"marketplace-order-service/repository"
	"marketplace-order-service/sender"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderEventPublisher publishes domain events after the critical write path.
// Implemented by the kafka producer; nil when no brokers are configured.
type OrderEventPublisher interface {
	PublishOrderEvent(event models.OrderEvent) error
}

// sellerAggregate is one seller's portion of an order.
type sellerAggregate struct {
	ItemCount int
	Amount    int64
}

// NotificationFanout groups a materialized order's line items by seller and
// emits one aggregated notification per seller, plus a best-effort buyer
// confirmation email and a best-effort domain event. None of these side
// effects can affect the materialization outcome; every failure here is
// logged and swallowed.
type NotificationFanout struct {
	notifications repository.NotificationRepository
	emailSender   sender.EmailSender
	producer      OrderEventPublisher
	logger        *zap.Logger
}

func NewNotificationFanout(
	notifications repository.NotificationRepository,
	emailSender sender.EmailSender,
	producer OrderEventPublisher,
	logger *zap.Logger,
) *NotificationFanout {
	return &NotificationFanout{
		notifications: notifications,
		emailSender:   emailSender,
		producer:      producer,
		logger:        logger,
	}
}

// Dispatch runs the full fan-out for one materialized order. It never returns
// an error; the event has already been acknowledged by the time this runs.
func (f *NotificationFanout) Dispatch(ctx context.Context, order *models.Order, buyerEmail string) {
	f.notifySellers(ctx, order)
	f.emailBuyer(ctx, order, buyerEmail)
	f.publishEvent(order)
}

func (f *NotificationFanout) notifySellers(ctx context.Context, order *models.Order) {
	aggregates := make(map[uuid.UUID]*sellerAggregate)
	sellers := make([]uuid.UUID, 0) // preserve first-seen order for deterministic fan-out
	for _, item := range order.LineItems {
		agg, ok := aggregates[item.SellerID]
		if !ok {
			agg = &sellerAggregate{}
			aggregates[item.SellerID] = agg
			sellers = append(sellers, item.SellerID)
		}
		agg.ItemCount += item.Quantity
		agg.Amount += item.UnitPrice * int64(item.Quantity)
	}

	for _, sellerID := range sellers {
		agg := aggregates[sellerID]
		metadata, _ := json.Marshal(map[string]interface{}{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
			"item_count":   agg.ItemCount,
			"amount":       agg.Amount,
			"currency":     order.Currency,
		})

		notification := &models.SellerNotification{
			ID:          uuid.New(),
			RecipientID: sellerID,
			Type:        models.NotificationTypeOrderReceived,
			Title:       "You have a new order",
			Message: fmt.Sprintf("Order %s: %d item(s) totalling %d %s sold.",
				order.OrderNumber, agg.ItemCount, agg.Amount, order.Currency),
			Metadata: string(metadata),
		}
		if err := f.notifications.Create(ctx, notification); err != nil {
			f.logger.Error("Failed to create seller notification",
				zap.String("order_id", order.ID.String()),
				zap.String("seller_id", sellerID.String()),
				zap.Error(err),
			)
			continue
		}
		f.logger.Info("Seller notified",
			zap.String("order_id", order.ID.String()),
			zap.String("seller_id", sellerID.String()),
			zap.Int("item_count", agg.ItemCount),
			zap.Int64("amount", agg.Amount),
		)
	}
}

func (f *NotificationFanout) emailBuyer(ctx context.Context, order *models.Order, buyerEmail string) {
	if f.emailSender == nil || buyerEmail == "" {
		return
	}

	subject := "Order confirmed: " + order.OrderNumber
	body := fmt.Sprintf(
		"<p>Thanks for your purchase!</p><p>Order <b>%s</b> for %d %s has been confirmed and is being processed.</p>",
		order.OrderNumber, order.TotalAmount, order.Currency,
	)
	if _, err := f.emailSender.SendEmail(ctx, buyerEmail, subject, body); err != nil {
		f.logger.Warn("Buyer confirmation email failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
}

func (f *NotificationFanout) publishEvent(order *models.Order) {
	if f.producer == nil {
		return
	}

	evt := models.OrderEvent{
		Type:                  "order_materialized",
		OrderID:               order.ID.String(),
		ExternalTransactionID: order.ExternalTransactionID,
		BuyerID:               order.BuyerID.String(),
		TotalAmount:           order.TotalAmount,
		Currency:              order.Currency,
		ItemCount:             len(order.LineItems),
		Timestamp:             time.Now().UTC(),
	}
	if err := f.producer.PublishOrderEvent(evt); err != nil {
		f.logger.Warn("Order event publish failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
}
