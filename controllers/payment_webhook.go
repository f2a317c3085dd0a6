package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	apperrors "marketplace-order-service/errors"
	"marketplace-order-service/models"
	"marketplace-order-service/services"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// PaymentEventController receives gateway payment events and drives the
// materialization pipeline.
type PaymentEventController struct {
	Gateway      services.GatewayVerifier
	Materializer *services.OrderMaterializer
	Lifecycle    *services.LifecycleService
	Fanout       *services.NotificationFanout
	Recorder     *services.FailureRecorder
	Logger       *zap.Logger
}

// HandlePaymentEvent verifies and dispatches one payment event delivery.
// Responses follow the acknowledgment contract: 200 for anything materialized,
// safely duplicated, recorded for recovery, or deliberately ignored; 400 for a
// signature failure; 500 only when the failure recorder itself is unavailable,
// so the gateway retries later.
func (pc *PaymentEventController) HandlePaymentEvent(c *gin.Context) {
	event, err := pc.Gateway.ParseWebhook(c.Request)
	if err != nil {
		pc.Logger.Warn("Payment event signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	pc.Logger.Info("Processing payment event",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
	)

	switch string(event.Type) {
	case models.EventCheckoutCompleted:
		pc.handleCheckoutCompleted(c, event)
	case models.EventCheckoutExpired:
		pc.handleSessionExpired(c, event)
	case models.EventPaymentSucceeded:
		pc.Logger.Info("Payment succeeded", zap.String("transaction_id", objectID(event)))
		c.JSON(http.StatusOK, gin.H{"status": "received"})
	case models.EventPaymentFailed:
		pc.handlePaymentFailed(c, event)
	default:
		pc.Logger.Info("Ignoring unhandled event type", zap.String("event_type", string(event.Type)))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	}
}

func (pc *PaymentEventController) handleCheckoutCompleted(c *gin.Context, event stripe.Event) {
	rawPayload, _ := json.Marshal(event)

	meta, err := services.ExtractCheckoutMetadata(event)
	if err != nil {
		// Redelivery of the same malformed payload cannot succeed, so the
		// event is recorded for an operator and acknowledged.
		pc.Logger.Warn("Checkout metadata extraction failed", zap.Error(err))
		if recErr := pc.Recorder.Record(c.Request.Context(), objectID(event), err.Error(), rawPayload); recErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failure recorder unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "failed_recorded"})
		return
	}

	order, err := pc.Materializer.Materialize(c.Request.Context(), meta, rawPayload)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrDuplicateTransaction):
			c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		case errors.Is(err, apperrors.ErrPartialWriteFailure):
			c.JSON(http.StatusOK, gin.H{"status": "failed_recorded"})
		default:
			pc.Logger.Error("Materialization failed without a recovery row", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "transient failure"})
		}
		return
	}

	// The event is acknowledged as soon as the order is durable; notification
	// fan-out runs detached from the request and from its context.
	go pc.Fanout.Dispatch(context.Background(), order, meta.BuyerEmail)

	c.JSON(http.StatusOK, gin.H{"status": "materialized", "order_id": order.ID.String()})
}

func (pc *PaymentEventController) handleSessionExpired(c *gin.Context, event stripe.Event) {
	if err := pc.Lifecycle.HandleSessionExpired(c.Request.Context(), objectID(event)); err != nil {
		pc.Logger.Warn("Session expiry handling failed", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func (pc *PaymentEventController) handlePaymentFailed(c *gin.Context, event stripe.Event) {
	if err := pc.Lifecycle.CancelForPaymentFailure(c.Request.Context(), objectID(event)); err != nil {
		pc.Logger.Warn("Payment failure handling failed", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// objectID pulls the event object's own id, which this pipeline treats as the
// external transaction id.
func objectID(event stripe.Event) string {
	var obj struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(event.Data.Raw, &obj)
	return obj.ID
}
