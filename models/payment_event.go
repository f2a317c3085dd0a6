package models

import "time"

// Recognized gateway event types.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
	EventPaymentSucceeded  = "payment_intent.succeeded"
	EventPaymentFailed     = "payment_intent.payment_failed"
)

// CartItem is one checkout line as carried in the gateway event metadata. The
// event is the source of truth for amounts charged; payout and commission are
// copied, never recomputed.
type CartItem struct {
	ProductID      string  `json:"product_id"`
	SellerID       string  `json:"seller_id"`
	Quantity       int     `json:"quantity"`
	UnitPrice      int64   `json:"unit_price"`
	PayoutAmount   int64   `json:"payout_amount"`
	Commission     int64   `json:"commission"`
	CommissionRate float64 `json:"commission_rate"`
}

// ShippingAddress is the snapshot captured at checkout time.
type ShippingAddress struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// CheckoutMetadata is the typed intent extracted from a verified
// checkout.session.completed event.
type CheckoutMetadata struct {
	ExternalTransactionID string
	BuyerID               string
	BuyerEmail            string
	Items                 []CartItem
	ShippingAddress       ShippingAddress
	ShippingFee           int64
	TotalAmount           int64
	Currency              string
}

// OrderEvent is the domain event published to Kafka after the critical write
// path completes. Publication is best-effort.
type OrderEvent struct {
	Type                  string    `json:"type"` // "order_materialized", "order_cancelled"
	OrderID               string    `json:"order_id"`
	ExternalTransactionID string    `json:"external_transaction_id"`
	BuyerID               string    `json:"buyer_id"`
	TotalAmount           int64     `json:"total_amount"`
	Currency              string    `json:"currency"`
	ItemCount             int       `json:"item_count"`
	Timestamp             time.Time `json:"timestamp"`
}
