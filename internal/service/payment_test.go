package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/apiscerena/medusa-paypal/internal/client"
	"github.com/apiscerena/medusa-paypal/internal/dto"
	"github.com/apiscerena/medusa-paypal/internal/model"
	"github.com/apiscerena/medusa-paypal/internal/provider"
	"github.com/apiscerena/medusa-paypal/internal/repository"
)

const (
	testOrderID   = "5O190127TN364715T"
	testAuthID    = "0VF52814937998046"
	testCaptureID = "3C679366HH908993F"
)

type fakePaypalClient struct {
	createOrderFn   func(req *client.CreateOrderRequest) (*model.PaypalOrder, error)
	getOrderFn      func(orderID string) (*model.PaypalOrder, error)
	authorizeFn     func(orderID string) (*model.PaypalOrder, error)
	captureOrderFn  func(orderID string) (*model.PaypalOrder, error)
	captureAuthFn   func(authorizationID string) (*model.Capture, error)
	refundCaptureFn func(captureID string, amount *model.Amount) (*model.Refund, error)
	verifyFn        func(headers http.Header, body []byte) error
}

func (f *fakePaypalClient) CreateOrder(ctx context.Context, req *client.CreateOrderRequest) (*model.PaypalOrder, error) {
	return f.createOrderFn(req)
}

func (f *fakePaypalClient) GetOrder(ctx context.Context, orderID string) (*model.PaypalOrder, error) {
	return f.getOrderFn(orderID)
}

func (f *fakePaypalClient) AuthorizeOrder(ctx context.Context, orderID string) (*model.PaypalOrder, error) {
	return f.authorizeFn(orderID)
}

func (f *fakePaypalClient) CaptureOrder(ctx context.Context, orderID string) (*model.PaypalOrder, error) {
	return f.captureOrderFn(orderID)
}

func (f *fakePaypalClient) CaptureAuthorization(ctx context.Context, authorizationID string) (*model.Capture, error) {
	return f.captureAuthFn(authorizationID)
}

func (f *fakePaypalClient) RefundCapture(ctx context.Context, captureID string, amount *model.Amount) (*model.Refund, error) {
	return f.refundCaptureFn(captureID, amount)
}

func (f *fakePaypalClient) VerifyWebhookSignature(ctx context.Context, headers http.Header, body []byte) error {
	return f.verifyFn(headers, body)
}

func newTestService(t *testing.T, fake *fakePaypalClient) (PaymentService, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.PaymentSession{},
		&model.CaptureRecord{},
		&model.RefundRecord{},
		&model.WebhookEvent{},
	))

	metrics := provider.NewMetrics(prometheus.NewRegistry())
	svc := NewPaymentService(
		db, fake,
		provider.NewReconciler(fake, metrics),
		provider.NewWebhookVerifier(fake, metrics),
		model.IntentAuthorize,
		repository.NewSessionRepository(db),
		repository.NewCaptureRepository(db),
		repository.NewRefundRepository(db),
		repository.NewWebhookEventRepository(db),
	)
	t.Cleanup(func() { svc.Close() })
	return svc, db
}

func completedOrder() *model.PaypalOrder {
	return &model.PaypalOrder{
		ID:     testOrderID,
		Intent: model.IntentAuthorize,
		Status: model.OrderStatusCompleted,
		PurchaseUnits: []model.PurchaseUnit{{
			Payments: model.Payments{
				Captures: []model.Capture{{
					ID:     testCaptureID,
					Status: model.CaptureStatusCompleted,
					Amount: model.Amount{Currency: "USD", Value: "19.01"},
					Final:  true,
				}},
			},
		}},
	}
}

func TestCreatePayment_PersistsPendingSession(t *testing.T) {
	var gotReq *client.CreateOrderRequest
	fake := &fakePaypalClient{
		createOrderFn: func(req *client.CreateOrderRequest) (*model.PaypalOrder, error) {
			gotReq = req
			return &model.PaypalOrder{
				ID:     testOrderID,
				Status: model.OrderStatusCreated,
				Links:  []model.PaypalLink{{Rel: "approve", Href: "https://paypal.test/approve"}},
			}, nil
		},
	}
	svc, db := newTestService(t, fake)

	resp, err := svc.CreatePayment(context.Background(), &dto.CreatePaymentRequest{
		Amount:   19.005,
		Currency: "USD",
	})
	require.NoError(t, err)

	assert.Equal(t, model.IntentAuthorize, gotReq.Intent)
	assert.Equal(t, testOrderID, resp.OrderID)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "https://paypal.test/approve", resp.ApprovalURL)

	var session model.PaymentSession
	require.NoError(t, db.First(&session, "order_id = ?", testOrderID).Error)
	assert.Equal(t, "pending", session.Status)
	assert.Equal(t, "19.01", session.Amount)
}

func TestCreatePayment_RejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t, &fakePaypalClient{})

	_, err := svc.CreatePayment(context.Background(), &dto.CreatePaymentRequest{Amount: 0, Currency: "USD"})
	assert.True(t, provider.IsKind(err, provider.KindInvalidInput))

	_, err = svc.CreatePayment(context.Background(), &dto.CreatePaymentRequest{Amount: 10, Currency: "US"})
	assert.True(t, provider.IsKind(err, provider.KindInvalidInput))
}

func TestCapturePayment_AuthorizationPathEmitsEvent(t *testing.T) {
	getCalls := 0
	fake := &fakePaypalClient{
		captureAuthFn: func(authorizationID string) (*model.Capture, error) {
			return &model.Capture{ID: testCaptureID, Status: model.CaptureStatusCompleted}, nil
		},
	}
	fake.getOrderFn = func(orderID string) (*model.PaypalOrder, error) {
		getCalls++
		if getCalls == 1 {
			return &model.PaypalOrder{
				ID:     testOrderID,
				Intent: model.IntentAuthorize,
				Status: model.OrderStatusApproved,
				PurchaseUnits: []model.PurchaseUnit{{
					Payments: model.Payments{
						Authorizations: []model.Authorization{{ID: testAuthID, Status: model.AuthorizationStatusCreated}},
					},
				}},
			}, nil
		}
		return completedOrder(), nil
	}
	svc, db := newTestService(t, fake)

	require.NoError(t, db.Create(&model.PaymentSession{
		OrderID: testOrderID, Status: "authorized", Intent: model.IntentAuthorize,
		Amount: "19.01", Currency: "USD",
	}).Error)

	captured := make(chan dto.PaymentEvent, 1)
	_, err := svc.Events().Hook(EventCaptured, func(ctx context.Context, event dto.PaymentEvent) error {
		captured <- event
		return nil
	})
	require.NoError(t, err)

	resp, err := svc.CapturePayment(context.Background(), testOrderID)
	require.NoError(t, err)
	assert.Equal(t, "captured", resp.Status)
	assert.Equal(t, testCaptureID, resp.CaptureID)

	var session model.PaymentSession
	require.NoError(t, db.First(&session, "order_id = ?", testOrderID).Error)
	assert.Equal(t, "captured", session.Status)
	assert.Equal(t, testCaptureID, session.CaptureID)

	var record model.CaptureRecord
	require.NoError(t, db.First(&record, "capture_id = ?", testCaptureID).Error)
	assert.Equal(t, testOrderID, record.OrderID)

	select {
	case event := <-captured:
		assert.Equal(t, testOrderID, event.OrderID)
		assert.Equal(t, testCaptureID, event.CaptureID)
	case <-time.After(2 * time.Second):
		t.Fatal("captured event not emitted")
	}
}

func TestCapturePayment_AlreadyCapturedEmitsNothing(t *testing.T) {
	fake := &fakePaypalClient{
		getOrderFn: func(orderID string) (*model.PaypalOrder, error) {
			return completedOrder(), nil
		},
	}
	svc, _ := newTestService(t, fake)

	fired := make(chan struct{}, 1)
	_, err := svc.Events().Hook(EventCaptured, func(ctx context.Context, event dto.PaymentEvent) error {
		fired <- struct{}{}
		return nil
	})
	require.NoError(t, err)

	resp, err := svc.CapturePayment(context.Background(), testOrderID)
	require.NoError(t, err)
	assert.Equal(t, "captured", resp.Status)

	select {
	case <-fired:
		t.Fatal("duplicate capture must not re-emit")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRefundPayment_RecordsRefunds(t *testing.T) {
	var refundedAmount *model.Amount
	fake := &fakePaypalClient{
		refundCaptureFn: func(captureID string, amount *model.Amount) (*model.Refund, error) {
			refundedAmount = amount
			return &model.Refund{
				ID:     "1JU08902781691411",
				Status: "COMPLETED",
				Amount: model.Amount{Currency: "USD", Value: "5.00"},
			}, nil
		},
	}
	svc, db := newTestService(t, fake)

	require.NoError(t, db.Create(&model.PaymentSession{
		OrderID: testOrderID, Status: "captured", Intent: model.IntentAuthorize,
		Amount: "19.01", Currency: "USD",
	}).Error)

	amount := 5.0
	resp, err := svc.RefundPayment(context.Background(), testOrderID, &dto.RefundRequest{
		CaptureIDs: []string{testCaptureID},
		Amount:     &amount,
	})
	require.NoError(t, err)

	require.Len(t, resp.Refunds, 1)
	assert.Equal(t, "1JU08902781691411", resp.Refunds[0].RefundID)
	require.NotNil(t, refundedAmount)
	assert.Equal(t, "5.00", refundedAmount.Value)
	assert.Equal(t, "USD", refundedAmount.Currency)

	var record model.RefundRecord
	require.NoError(t, db.First(&record, "refund_id = ?", "1JU08902781691411").Error)
	assert.Equal(t, testCaptureID, record.CaptureID)
}

func TestRefundPayment_Validation(t *testing.T) {
	svc, _ := newTestService(t, &fakePaypalClient{})
	ctx := context.Background()

	_, err := svc.RefundPayment(ctx, "bad-id", &dto.RefundRequest{CaptureIDs: []string{testCaptureID}})
	assert.True(t, provider.IsKind(err, provider.KindInvalidInput))

	_, err = svc.RefundPayment(ctx, testOrderID, &dto.RefundRequest{})
	assert.True(t, provider.IsKind(err, provider.KindInvalidInput))

	amount := 5.0
	_, err = svc.RefundPayment(ctx, testOrderID, &dto.RefundRequest{
		CaptureIDs: []string{testCaptureID, "0VF52814937998046"},
		Amount:     &amount,
	})
	assert.True(t, provider.IsKind(err, provider.KindInvalidInput))
}

func webhookHeaders() http.Header {
	h := http.Header{}
	h.Set(client.HeaderAuthAlgo, "SHA256withRSA")
	h.Set(client.HeaderCertURL, "https://api.paypal.com/cert")
	h.Set(client.HeaderTransmissionID, "tx-1")
	h.Set(client.HeaderTransmissionSig, "sig")
	h.Set(client.HeaderTransmissionTime, "2026-08-31T00:00:00Z")
	return h
}

func TestHandleWebhook_UpdatesSessionAndDeduplicates(t *testing.T) {
	fake := &fakePaypalClient{
		verifyFn: func(headers http.Header, body []byte) error { return nil },
	}
	svc, db := newTestService(t, fake)

	require.NoError(t, db.Create(&model.PaymentSession{
		OrderID: testOrderID, Status: "authorized", Intent: model.IntentAuthorize,
		Amount: "19.01", Currency: "USD",
	}).Error)

	body := []byte(`{
		"id": "WH-58D329510W468432D-8HN650336L201105X",
		"event_type": "PAYMENT.CAPTURE.COMPLETED",
		"resource": {
			"id": "3C679366HH908993F",
			"status": "COMPLETED",
			"supplementary_data": {"related_ids": {"order_id": "5O190127TN364715T"}}
		}
	}`)

	resp, err := svc.HandleWebhook(context.Background(), webhookHeaders(), body)
	require.NoError(t, err)
	assert.Equal(t, "captured", resp.Action)
	assert.Equal(t, testOrderID, resp.OrderID)
	assert.False(t, resp.Duplicate)

	var session model.PaymentSession
	require.NoError(t, db.First(&session, "order_id = ?", testOrderID).Error)
	assert.Equal(t, "captured", session.Status)

	// Same delivery again: acknowledged but not re-processed.
	resp, err = svc.HandleWebhook(context.Background(), webhookHeaders(), body)
	require.NoError(t, err)
	assert.True(t, resp.Duplicate)

	var count int64
	require.NoError(t, db.Model(&model.WebhookEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestHandleWebhook_SignatureFailure(t *testing.T) {
	fake := &fakePaypalClient{
		verifyFn: func(headers http.Header, body []byte) error {
			return client.ErrVerificationFailed
		},
	}
	svc, db := newTestService(t, fake)

	body := []byte(`{"id": "WH-1", "event_type": "PAYMENT.CAPTURE.COMPLETED"}`)
	_, err := svc.HandleWebhook(context.Background(), webhookHeaders(), body)
	require.Error(t, err)
	assert.True(t, provider.IsKind(err, provider.KindSignatureInvalid))

	var count int64
	require.NoError(t, db.Model(&model.WebhookEvent{}).Count(&count).Error)
	assert.Equal(t, int64(0), count, "unverified events are never recorded")
}

func TestHandleWebhook_UnsupportedEventIsSkipped(t *testing.T) {
	fake := &fakePaypalClient{
		verifyFn: func(headers http.Header, body []byte) error { return nil },
	}
	svc, db := newTestService(t, fake)

	body := []byte(`{"id": "WH-2", "event_type": "BILLING.SUBSCRIPTION.ACTIVATED", "resource": {"id": "X"}}`)
	resp, err := svc.HandleWebhook(context.Background(), webhookHeaders(), body)
	require.NoError(t, err)
	assert.Equal(t, "not_supported", resp.Action)

	var count int64
	require.NoError(t, db.Model(&model.WebhookEvent{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
