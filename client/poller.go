// Package client implements the reconciliation poller: a buyer's only handle
// on an asynchronously materialized order is the external transaction id
// returned by the gateway redirect, so the confirmation page polls the order
// read endpoint until the order appears or a bounded attempt count runs out.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	apperrors "marketplace-order-service/errors"
	"marketplace-order-service/models"
)

const fragmentLength = 8

type OrderPoller struct {
	baseURL     string
	client      *http.Client
	interval    time.Duration
	maxAttempts int
}

func NewOrderPoller(baseURL string, interval time.Duration, maxAttempts int) *OrderPoller {
	return &OrderPoller{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: 10 * time.Second},
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

// PollOrder queries the order read endpoint at a fixed interval until the
// order is found, the context is cancelled, or maxAttempts is exhausted.
// Exhaustion returns a ReconciliationTimeout carrying a short transaction id
// fragment the buyer can quote to support.
func (p *OrderPoller) PollOrder(ctx context.Context, externalTransactionID string) (*models.Order, error) {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		order, found, err := p.lookup(ctx, externalTransactionID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Transient lookup failures count as an attempt; the budget still
			// bounds the loop.
		}
		if found {
			return order, nil
		}

		if attempt == p.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.interval):
		}
	}

	return nil, &apperrors.ReconciliationTimeout{
		Fragment: idFragment(externalTransactionID),
		Attempts: p.maxAttempts,
	}
}

func (p *OrderPoller) lookup(ctx context.Context, externalTransactionID string) (*models.Order, bool, error) {
	query := url.Values{"external_transaction_id": {externalTransactionID}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/orders?"+query.Encode(), nil)
	if err != nil {
		return nil, false, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var order models.Order
		if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
			return nil, false, err
		}
		return &order, true, nil
	case http.StatusNotFound:
		// Not yet materialized, keep polling.
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}

func idFragment(id string) string {
	if len(id) <= fragmentLength {
		return id
	}
	return id[len(id)-fragmentLength:]
}
