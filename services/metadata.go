package services

import (
	"encoding/json"
	"fmt"
	"strconv"

	apperrors "marketplace-order-service/errors"
	"marketplace-order-service/models"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
)

// ExtractCheckoutMetadata parses a verified checkout.session.completed event
// into a typed intent. Any missing or malformed required field is reported as
// a missing-metadata failure; redelivery of the same payload will not fix it,
// so the caller routes it to the failure recorder instead of retrying.
func ExtractCheckoutMetadata(event stripe.Event) (*models.CheckoutMetadata, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("%w: unreadable checkout session: %v", apperrors.ErrMissingMetadata, err)
	}

	if sess.ID == "" {
		return nil, fmt.Errorf("%w: checkout session has no id", apperrors.ErrMissingMetadata)
	}

	buyerID := sess.Metadata["buyer_id"]
	if _, err := uuid.Parse(buyerID); err != nil {
		return nil, fmt.Errorf("%w: invalid buyer_id %q", apperrors.ErrMissingMetadata, buyerID)
	}

	cartJSON := sess.Metadata["cart"]
	if cartJSON == "" {
		return nil, fmt.Errorf("%w: cart metadata absent", apperrors.ErrMissingMetadata)
	}
	var items []models.CartItem
	if err := json.Unmarshal([]byte(cartJSON), &items); err != nil {
		return nil, fmt.Errorf("%w: malformed cart metadata: %v", apperrors.ErrMissingMetadata, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", apperrors.ErrMissingMetadata)
	}

	var shipping models.ShippingAddress
	if addrJSON := sess.Metadata["shipping_address"]; addrJSON != "" {
		if err := json.Unmarshal([]byte(addrJSON), &shipping); err != nil {
			return nil, fmt.Errorf("%w: malformed shipping_address metadata: %v", apperrors.ErrMissingMetadata, err)
		}
	}

	var shippingFee int64
	if feeStr := sess.Metadata["shipping_fee"]; feeStr != "" {
		fee, err := strconv.ParseInt(feeStr, 10, 64)
		if err != nil || fee < 0 {
			return nil, fmt.Errorf("%w: malformed shipping_fee %q", apperrors.ErrMissingMetadata, feeStr)
		}
		shippingFee = fee
	}

	if sess.AmountTotal <= 0 {
		return nil, fmt.Errorf("%w: missing amount_total", apperrors.ErrMissingMetadata)
	}

	meta := &models.CheckoutMetadata{
		ExternalTransactionID: sess.ID,
		BuyerID:               buyerID,
		Items:                 items,
		ShippingAddress:       shipping,
		ShippingFee:           shippingFee,
		TotalAmount:           sess.AmountTotal,
		Currency:              string(sess.Currency),
	}
	if sess.CustomerDetails != nil {
		meta.BuyerEmail = sess.CustomerDetails.Email
	}
	if meta.BuyerEmail == "" {
		meta.BuyerEmail = sess.Metadata["buyer_email"]
	}

	if err := validateCart(meta); err != nil {
		return nil, err
	}

	return meta, nil
}

// validateCart checks every per-line and whole-order amount invariant before
// any write happens. Amounts come from the event, the source of truth for what
// was charged; they are validated, not recomputed.
func validateCart(meta *models.CheckoutMetadata) error {
	var itemsTotal int64
	for i, item := range meta.Items {
		if _, err := uuid.Parse(item.ProductID); err != nil {
			return fmt.Errorf("%w: item %d has invalid product_id %q", apperrors.ErrMissingMetadata, i, item.ProductID)
		}
		if _, err := uuid.Parse(item.SellerID); err != nil {
			return fmt.Errorf("%w: item %d has invalid seller_id %q", apperrors.ErrMissingMetadata, i, item.SellerID)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d has invalid quantity %d", apperrors.ErrMissingMetadata, i, item.Quantity)
		}
		if item.UnitPrice < 0 {
			return fmt.Errorf("%w: item %d has negative unit_price", apperrors.ErrMissingMetadata, i)
		}

		lineTotal := item.UnitPrice * int64(item.Quantity)
		if item.PayoutAmount+item.Commission != lineTotal {
			return fmt.Errorf("%w: item %d payout %d + commission %d != line total %d",
				apperrors.ErrMissingMetadata, i, item.PayoutAmount, item.Commission, lineTotal)
		}
		itemsTotal += lineTotal
	}

	if itemsTotal+meta.ShippingFee != meta.TotalAmount {
		return fmt.Errorf("%w: items %d + shipping %d != total %d",
			apperrors.ErrMissingMetadata, itemsTotal, meta.ShippingFee, meta.TotalAmount)
	}

	return nil
}
