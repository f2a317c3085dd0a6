package services

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	apperrors "marketplace-order-service/errors"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"
)

// GatewayVerifier authenticates an inbound payment event before any side
// effect occurs.
type GatewayVerifier interface {
	ParseWebhook(r *http.Request) (stripe.Event, error)
}

type GatewayService struct {
	WebhookKey string
}

func NewGatewayService(webhookKey string) *GatewayService {
	return &GatewayService{WebhookKey: webhookKey}
}

// ParseWebhook verifies the event signature against the shared secret and
// returns the parsed event. A verification failure is terminal for this
// delivery only.
func (s *GatewayService) ParseWebhook(r *http.Request) (stripe.Event, error) {
	var event stripe.Event
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return event, err
	}
	r.Body = io.NopCloser(bytes.NewBuffer(payload))
	sigHeader := r.Header.Get("Stripe-Signature")
	event, err = webhook.ConstructEvent(payload, sigHeader, s.WebhookKey)
	if err != nil {
		return event, fmt.Errorf("%w: %v", apperrors.ErrSignatureInvalid, err)
	}
	return event, nil
}
