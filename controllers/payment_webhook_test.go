package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"marketplace-order-service/models"
	"marketplace-order-service/repository"
	"marketplace-order-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ---- fakes ----

type fakeGateway struct {
	event stripe.Event
	err   error
}

func (f *fakeGateway) ParseWebhook(_ *http.Request) (stripe.Event, error) {
	return f.event, f.err
}

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	items  map[uuid.UUID][]models.OrderLineItem
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{
		orders: make(map[string]*models.Order),
		items:  make(map[uuid.UUID][]models.OrderLineItem),
	}
}

func (r *memOrderRepo) CreateHeader(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.orders[order.ExternalTransactionID]; exists {
		return gorm.ErrDuplicatedKey
	}
	stored := *order
	r.orders[order.ExternalTransactionID] = &stored
	return nil
}

func (r *memOrderRepo) CreateLineItems(_ context.Context, items []models.OrderLineItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(items) > 0 {
		r.items[items[0].OrderID] = append([]models.OrderLineItem(nil), items...)
	}
	return nil
}

func (r *memOrderRepo) DeleteHeader(_ context.Context, orderID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, order := range r.orders {
		if order.ID == orderID {
			delete(r.orders, key)
		}
	}
	return nil
}

func (r *memOrderRepo) FindByExternalTransactionID(_ context.Context, id string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	found := *order
	found.LineItems = r.items[order.ID]
	return &found, nil
}

func (r *memOrderRepo) FindByID(_ context.Context, orderID uuid.UUID) (*models.Order, error) {
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

func (r *memOrderRepo) UpdateStatus(_ context.Context, orderID uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
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

type memFailedEventRepo struct {
	mu         sync.Mutex
	events     []models.FailedEvent
	failCreate bool
}

func (r *memFailedEventRepo) Create(_ context.Context, event *models.FailedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return errors.New("failed_events unavailable")
	}
	r.events = append(r.events, *event)
	return nil
}

func (r *memFailedEventRepo) FindByExternalTransactionID(_ context.Context, _ string) ([]models.FailedEvent, error) {
	return nil, nil
}

type memNotificationRepo struct {
	mu            sync.Mutex
	notifications []models.SellerNotification
}

func (r *memNotificationRepo) Create(_ context.Context, n *models.SellerNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, *n)
	return nil
}

func (r *memNotificationRepo) FindByRecipient(_ context.Context, _ uuid.UUID, _, _ int) ([]models.SellerNotification, int64, error) {
	return nil, 0, nil
}

func (r *memNotificationRepo) CountUnread(_ context.Context, _ uuid.UUID) (int64, error) {
	return 0, nil
}

func (r *memNotificationRepo) MarkRead(_ context.Context, _ uuid.UUID) error {
	return nil
}

func (r *memNotificationRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notifications)
}

// ---- harness ----

type webhookHarness struct {
	router        *gin.Engine
	gateway       *fakeGateway
	orders        *memOrderRepo
	failedEvents  *memFailedEventRepo
	notifications *memNotificationRepo
}

func newWebhookHarness(t *testing.T) *webhookHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	h := &webhookHarness{
		gateway:       &fakeGateway{},
		orders:        newMemOrderRepo(),
		failedEvents:  &memFailedEventRepo{},
		notifications: &memNotificationRepo{},
	}

	var _ repository.OrderRepository = h.orders

	recorder := services.NewFailureRecorder(h.failedEvents, logger)
	controller := &PaymentEventController{
		Gateway:      h.gateway,
		Materializer: services.NewOrderMaterializer(h.orders, recorder, logger),
		Lifecycle:    services.NewLifecycleService(h.orders, nil, logger),
		Fanout:       services.NewNotificationFanout(h.notifications, nil, nil, logger),
		Recorder:     recorder,
		Logger:       logger,
	}

	h.router = gin.New()
	h.router.POST("/payment-events", controller.HandlePaymentEvent)
	return h
}

func (h *webhookHarness) post(t *testing.T) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/payment-events", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func completedEvent(t *testing.T, sellerID uuid.UUID) stripe.Event {
	t.Helper()
	cart, err := json.Marshal([]models.CartItem{
		{
			ProductID:      uuid.NewString(),
			SellerID:       sellerID.String(),
			Quantity:       1,
			UnitPrice:      100,
			PayoutAmount:   85,
			Commission:     15,
			CommissionRate: 0.15,
		},
	})
	require.NoError(t, err)

	raw, err := json.Marshal(map[string]interface{}{
		"id":           "cs_test_webhook_1",
		"amount_total": 100,
		"currency":     "usd",
		"metadata": map[string]string{
			"buyer_id": uuid.NewString(),
			"cart":     string(cart),
		},
	})
	require.NoError(t, err)

	return stripe.Event{
		ID:   "evt_test_1",
		Type: stripe.EventType(models.EventCheckoutCompleted),
		Data: &stripe.EventData{Raw: raw},
	}
}

// ---- tests ----

func TestHandlePaymentEvent_SignatureFailure(t *testing.T) {
	h := newWebhookHarness(t)
	h.gateway.err = errors.New("signature mismatch")

	w := h.post(t)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, h.orders.orders)
}

func TestHandlePaymentEvent_MaterializesCheckout(t *testing.T) {
	h := newWebhookHarness(t)
	sellerID := uuid.New()
	h.gateway.event = completedEvent(t, sellerID)

	w := h.post(t)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "materialized", body["status"])

	order, err := h.orders.FindByExternalTransactionID(context.Background(), "cs_test_webhook_1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), order.TotalAmount)
	require.Len(t, order.LineItems, 1)

	// Fan-out is detached from the acknowledgment path.
	assert.Eventually(t, func() bool { return h.notifications.count() == 1 },
		time.Second, 5*time.Millisecond)
}

func TestHandlePaymentEvent_RedeliveryIsAcknowledged(t *testing.T) {
	h := newWebhookHarness(t)
	h.gateway.event = completedEvent(t, uuid.New())

	first := h.post(t)
	require.Equal(t, http.StatusOK, first.Code)

	second := h.post(t)
	assert.Equal(t, http.StatusOK, second.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &body))
	assert.Equal(t, "duplicate", body["status"])
	assert.Len(t, h.orders.orders, 1)
}

func TestHandlePaymentEvent_MissingMetadataIsRecorded(t *testing.T) {
	h := newWebhookHarness(t)
	raw, _ := json.Marshal(map[string]interface{}{
		"id":           "cs_test_no_metadata",
		"amount_total": 100,
		"currency":     "usd",
	})
	h.gateway.event = stripe.Event{
		Type: stripe.EventType(models.EventCheckoutCompleted),
		Data: &stripe.EventData{Raw: raw},
	}

	w := h.post(t)
	assert.Equal(t, http.StatusOK, w.Code)

	require.Len(t, h.failedEvents.events, 1)
	assert.Equal(t, "cs_test_no_metadata", h.failedEvents.events[0].ExternalTransactionID)
	assert.Empty(t, h.orders.orders)
}

func TestHandlePaymentEvent_RecorderOutageReturns500(t *testing.T) {
	h := newWebhookHarness(t)
	h.failedEvents.failCreate = true
	raw, _ := json.Marshal(map[string]interface{}{"id": "cs_test_no_metadata"})
	h.gateway.event = stripe.Event{
		Type: stripe.EventType(models.EventCheckoutCompleted),
		Data: &stripe.EventData{Raw: raw},
	}

	w := h.post(t)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandlePaymentEvent_PaymentFailedCancelsOrder(t *testing.T) {
	h := newWebhookHarness(t)
	h.gateway.event = completedEvent(t, uuid.New())
	require.Equal(t, http.StatusOK, h.post(t).Code)

	raw, _ := json.Marshal(map[string]interface{}{"id": "cs_test_webhook_1"})
	h.gateway.event = stripe.Event{
		Type: stripe.EventType(models.EventPaymentFailed),
		Data: &stripe.EventData{Raw: raw},
	}
	w := h.post(t)
	assert.Equal(t, http.StatusOK, w.Code)

	order, err := h.orders.FindByExternalTransactionID(context.Background(), "cs_test_webhook_1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
	assert.Equal(t, models.PaymentStatusFailed, order.PaymentStatus)
}

func TestHandlePaymentEvent_SessionExpiredWithoutOrder(t *testing.T) {
	h := newWebhookHarness(t)
	raw, _ := json.Marshal(map[string]interface{}{"id": "cs_test_never_seen"})
	h.gateway.event = stripe.Event{
		Type: stripe.EventType(models.EventCheckoutExpired),
		Data: &stripe.EventData{Raw: raw},
	}

	w := h.post(t)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, h.orders.orders)
}

func TestHandlePaymentEvent_UnhandledTypeIgnored(t *testing.T) {
	h := newWebhookHarness(t)
	h.gateway.event = stripe.Event{
		Type: "invoice.created",
		Data: &stripe.EventData{Raw: []byte(`{"id":"in_test_1"}`)},
	}

	w := h.post(t)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ignored", body["status"])
}
