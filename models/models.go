package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order lifecycle statuses. Materialization enters at paid/processing because
// the gateway has already confirmed the charge before the event arrives.
const (
	OrderStatusCreated    = "created"
	OrderStatusPaid       = "paid"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

const (
	PaymentStatusPaid   = "paid"
	PaymentStatusFailed = "failed"
)

const (
	PayoutStatusPending = "pending"
	PayoutStatusPaid    = "paid"
)

type Order struct {
	ID                    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ExternalTransactionID string    `gorm:"uniqueIndex;not null" json:"external_transaction_id"`
	OrderNumber           string    `gorm:"uniqueIndex;not null" json:"order_number"`
	BuyerID               uuid.UUID `gorm:"type:uuid;not null;index" json:"buyer_id"`
	TotalAmount           int64     `gorm:"not null" json:"total_amount"` // smallest currency unit
	Currency              string    `gorm:"type:varchar(10);not null" json:"currency"`
	Status                string    `gorm:"type:varchar(20);not null;default:'created'" json:"status"`
	PaymentStatus         string    `gorm:"type:varchar(20);not null" json:"payment_status"`
	ShippingAddress       string    `gorm:"type:jsonb" json:"shipping_address"`
	ShippingFee           int64     `json:"shipping_fee"`
	PaidAt                *time.Time `json:"paid_at,omitempty"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
	LineItems             []OrderLineItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"line_items"`
}

type OrderLineItem struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID            uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID          uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	SellerID           uuid.UUID `gorm:"type:uuid;not null;index" json:"seller_id"`
	Quantity           int       `gorm:"not null" json:"quantity"`
	UnitPrice          int64     `gorm:"not null" json:"unit_price"`
	SellerPayoutAmount int64     `gorm:"not null" json:"seller_payout_amount"`
	PlatformCommission int64     `gorm:"not null" json:"platform_commission"`
	CommissionRate     float64   `gorm:"not null" json:"commission_rate"`
	PayoutStatus       string    `gorm:"type:varchar(20);not null;default:'pending'" json:"payout_status"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// FailedEvent is the operator-facing recovery queue. Rows are never deleted by
// the pipeline; resolution is manual.
type FailedEvent struct {
	ID                    int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ExternalTransactionID string    `gorm:"index" json:"external_transaction_id"`
	ErrorMessage          string    `gorm:"type:varchar(512)" json:"error_message"`
	RawPayload            string    `gorm:"type:text" json:"raw_payload"`
	RetryCount            int       `json:"retry_count"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (FailedEvent) TableName() string {
	return "failed_events"
}

const (
	NotificationTypeOrderReceived = "order_received"
)

// SellerNotification is one aggregated notification per seller per order,
// never per line item.
type SellerNotification struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RecipientID uuid.UUID `gorm:"type:uuid;not null;index" json:"recipient_id"`
	Type        string    `gorm:"type:varchar(40);not null" json:"type"`
	Title       string    `gorm:"type:varchar(255);not null" json:"title"`
	Message     string    `gorm:"type:text" json:"message"`
	Metadata    string    `gorm:"type:jsonb" json:"metadata"`
	Read        bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
