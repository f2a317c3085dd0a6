package services

import (
	"context"
	"errors"
	"sync"

	"marketplace-order-service/models"
	"marketplace-order-service/sender"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// fakeOrderRepo enforces external_transaction_id uniqueness the way the real
// storage layer does, so duplicate and race behavior can be exercised.
type fakeOrderRepo struct {
	mu           sync.Mutex
	orders       map[string]*models.Order // keyed by external transaction id
	items        map[uuid.UUID][]models.OrderLineItem
	updates      map[uuid.UUID]map[string]interface{}
	failItems    bool
	deleteCalls  int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:  make(map[string]*models.Order),
		items:   make(map[uuid.UUID][]models.OrderLineItem),
		updates: make(map[uuid.UUID]map[string]interface{}),
	}
}

func (r *fakeOrderRepo) CreateHeader(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.orders[order.ExternalTransactionID]; exists {
		return gorm.ErrDuplicatedKey
	}
	stored := *order
	r.orders[order.ExternalTransactionID] = &stored
	return nil
}

func (r *fakeOrderRepo) CreateLineItems(_ context.Context, items []models.OrderLineItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failItems {
		return errors.New("line item insert failed")
	}
	if len(items) > 0 {
		r.items[items[0].OrderID] = append([]models.OrderLineItem(nil), items...)
	}
	return nil
}

func (r *fakeOrderRepo) DeleteHeader(_ context.Context, orderID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteCalls++
	for key, order := range r.orders {
		if order.ID == orderID {
			delete(r.orders, key)
		}
	}
	return nil
}

func (r *fakeOrderRepo) FindByExternalTransactionID(_ context.Context, externalTransactionID string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[externalTransactionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	found := *order
	found.LineItems = r.items[order.ID]
	return &found, nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, orderID uuid.UUID) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.ID == orderID {
			found := *order
			found.LineItems = r.items[order.ID]
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeOrderRepo) UpdateStatus(_ context.Context, orderID uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates[orderID] = updates
	for _, order := range r.orders {
		if order.ID == orderID {
			if status, ok := updates["status"].(string); ok {
				order.Status = status
			}
			if ps, ok := updates["payment_status"].(string); ok {
				order.PaymentStatus = ps
			}
		}
	}
	return nil
}

type fakeFailedEventRepo struct {
	mu         sync.Mutex
	events     []models.FailedEvent
	failCreate bool
}

func (r *fakeFailedEventRepo) Create(_ context.Context, event *models.FailedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return errors.New("failed_events table unavailable")
	}
	r.events = append(r.events, *event)
	return nil
}

func (r *fakeFailedEventRepo) FindByExternalTransactionID(_ context.Context, externalTransactionID string) ([]models.FailedEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.FailedEvent
	for _, e := range r.events {
		if e.ExternalTransactionID == externalTransactionID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications []models.SellerNotification
	failCreate    bool
}

func (r *fakeNotificationRepo) Create(_ context.Context, notification *models.SellerNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return errors.New("notifications table unavailable")
	}
	r.notifications = append(r.notifications, *notification)
	return nil
}

func (r *fakeNotificationRepo) FindByRecipient(_ context.Context, recipientID uuid.UUID, _, _ int) ([]models.SellerNotification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.SellerNotification
	for _, n := range r.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeNotificationRepo) CountUnread(_ context.Context, recipientID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.notifications {
		if n.RecipientID == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, notificationID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		if r.notifications[i].ID == notificationID {
			r.notifications[i].Read = true
		}
	}
	return nil
}

type fakeEmailSender struct {
	mu       sync.Mutex
	sent     []string // recipients
	failSend bool
}

func (s *fakeEmailSender) SendEmail(_ context.Context, to, _, _ string) (sender.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSend {
		return sender.SendResult{}, errors.New("smtp unavailable")
	}
	s.sent = append(s.sent, to)
	return sender.SendResult{MessageID: "test-message"}, nil
}

type fakePublisher struct {
	mu          sync.Mutex
	events      []models.OrderEvent
	failPublish bool
}

func (p *fakePublisher) PublishOrderEvent(event models.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failPublish {
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, event)
	return nil
}
