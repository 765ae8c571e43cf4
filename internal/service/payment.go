package service

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/zoobzio/hookz"
	"gorm.io/gorm"

	"github.com/apiscerena/medusa-paypal/internal/client"
	"github.com/apiscerena/medusa-paypal/internal/dto"
	"github.com/apiscerena/medusa-paypal/internal/model"
	"github.com/apiscerena/medusa-paypal/internal/provider"
	"github.com/apiscerena/medusa-paypal/internal/repository"
)

// Lifecycle hook keys. Host code subscribes via Events().
const (
	EventAuthorized hookz.Key = "payment.authorized"
	EventCaptured   hookz.Key = "payment.captured"
	EventRefunded   hookz.Key = "payment.refunded"
	EventFailed     hookz.Key = "payment.failed"
	EventCanceled   hookz.Key = "payment.canceled"
)

type PaymentService interface {
	CreatePayment(ctx context.Context, req *dto.CreatePaymentRequest) (*dto.PaymentResponse, error)
	AuthorizePayment(ctx context.Context, orderID string) (*dto.PaymentResponse, error)
	CapturePayment(ctx context.Context, orderID string) (*dto.PaymentResponse, error)
	RefundPayment(ctx context.Context, orderID string, req *dto.RefundRequest) (*dto.RefundResponse, error)
	GetPaymentStatus(ctx context.Context, orderID string) (*dto.PaymentResponse, error)
	HandleWebhook(ctx context.Context, headers http.Header, body []byte) (*dto.WebhookResponse, error)
	Events() *hookz.Hooks[dto.PaymentEvent]
	Close() error
}

type paymentServiceImpl struct {
	db               *gorm.DB
	paypalClient     client.PaypalClient
	reconciler       *provider.Reconciler
	webhookVerifier  *provider.WebhookVerifier
	intent           string
	sessionRepo      repository.SessionRepository
	captureRepo      repository.CaptureRepository
	refundRepo       repository.RefundRepository
	webhookEventRepo repository.WebhookEventRepository
	hooks            *hookz.Hooks[dto.PaymentEvent]
}

func NewPaymentService(
	db *gorm.DB,
	paypalClient client.PaypalClient,
	reconciler *provider.Reconciler,
	webhookVerifier *provider.WebhookVerifier,
	intent string,
	sessionRepo repository.SessionRepository,
	captureRepo repository.CaptureRepository,
	refundRepo repository.RefundRepository,
	webhookEventRepo repository.WebhookEventRepository,
) PaymentService {
	return &paymentServiceImpl{
		db:               db,
		paypalClient:     paypalClient,
		reconciler:       reconciler,
		webhookVerifier:  webhookVerifier,
		intent:           intent,
		sessionRepo:      sessionRepo,
		captureRepo:      captureRepo,
		refundRepo:       refundRepo,
		webhookEventRepo: webhookEventRepo,
		hooks:            hookz.New[dto.PaymentEvent](),
	}
}

func (s *paymentServiceImpl) Events() *hookz.Hooks[dto.PaymentEvent] {
	return s.hooks
}

func (s *paymentServiceImpl) Close() error {
	return s.hooks.Close()
}

func (s *paymentServiceImpl) emit(ctx context.Context, key hookz.Key, event dto.PaymentEvent) {
	if err := s.hooks.Emit(ctx, key, event); err != nil {
		log.Printf("emit %s for order %s: %v", key, event.OrderID, err)
	}
}

func (s *paymentServiceImpl) CreatePayment(ctx context.Context, req *dto.CreatePaymentRequest) (*dto.PaymentResponse, error) {
	if req.Amount <= 0 {
		return nil, &provider.Error{Kind: provider.KindInvalidInput, Message: "amount must be positive"}
	}
	if len(req.Currency) != 3 {
		return nil, &provider.Error{Kind: provider.KindInvalidInput, Message: "currency must be a 3-letter code"}
	}

	orderReq := &client.CreateOrderRequest{
		Intent:         s.intent,
		Value:          req.Amount,
		Currency:       req.Currency,
		CustomerEmail:  req.Email,
		IdempotencyKey: req.IdempotencyKey,
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &provider.Error{Kind: provider.KindInvalidInput, Message: "item quantity must be positive"}
		}
		orderReq.Items = append(orderReq.Items, client.LineItem{
			Name:      item.Name,
			Quantity:  fmt.Sprintf("%d", item.Quantity),
			UnitValue: item.UnitPrice,
		})
	}
	if req.Shipping != nil {
		orderReq.Shipping = &client.ShippingAddress{
			FullName:     req.Shipping.FullName,
			AddressLine1: req.Shipping.AddressLine1,
			City:         req.Shipping.City,
			PostalCode:   req.Shipping.PostalCode,
			CountryCode:  req.Shipping.CountryCode,
		}
	}

	order, err := s.paypalClient.CreateOrder(ctx, orderReq)
	if err != nil {
		return nil, &provider.Error{Kind: provider.KindUpstreamFailure, Message: "paypal create order", Err: err}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.sessionRepo.Create(tx, &model.PaymentSession{
			OrderID:  order.ID,
			Status:   string(provider.StatusPending),
			Intent:   s.intent,
			Amount:   client.FormatAmount(req.Amount),
			Currency: req.Currency,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store payment session: %w", err)
	}

	return &dto.PaymentResponse{
		OrderID:     order.ID,
		Status:      string(provider.StatusPending),
		ApprovalURL: extractApproveURL(order.Links),
	}, nil
}

func (s *paymentServiceImpl) AuthorizePayment(ctx context.Context, orderID string) (*dto.PaymentResponse, error) {
	result, err := s.reconciler.Authorize(ctx, orderID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if result.AuthorizationID != "" {
			if err := s.sessionRepo.SetAuthorization(tx, orderID, result.AuthorizationID, string(result.Status)); err != nil {
				return err
			}
		} else if err := s.sessionRepo.UpdateStatus(tx, orderID, string(result.Status)); err != nil {
			return err
		}

		if result.AutoCaptured && result.CaptureID != "" {
			return s.recordCapture(tx, result.Order, result.CaptureID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store authorization: %w", err)
	}

	if result.Status == provider.StatusAuthorized {
		s.emit(ctx, EventAuthorized, dto.PaymentEvent{
			OrderID:         orderID,
			Status:          string(result.Status),
			AuthorizationID: result.AuthorizationID,
			CaptureID:       result.CaptureID,
		})
	}

	return &dto.PaymentResponse{
		OrderID:         orderID,
		Status:          string(result.Status),
		AuthorizationID: result.AuthorizationID,
		CaptureID:       result.CaptureID,
	}, nil
}

func (s *paymentServiceImpl) CapturePayment(ctx context.Context, orderID string) (*dto.PaymentResponse, error) {
	result, err := s.reconciler.Capture(ctx, orderID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.sessionRepo.SetCapture(tx, orderID, result.CaptureID, string(result.Status)); err != nil {
			return err
		}
		if result.CaptureID != "" {
			return s.recordCapture(tx, result.Order, result.CaptureID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store capture: %w", err)
	}

	if !result.AlreadyCaptured && result.Status == provider.StatusCaptured {
		s.emit(ctx, EventCaptured, dto.PaymentEvent{
			OrderID:   orderID,
			Status:    string(result.Status),
			CaptureID: result.CaptureID,
		})
	}

	return &dto.PaymentResponse{
		OrderID:   orderID,
		Status:    string(result.Status),
		CaptureID: result.CaptureID,
	}, nil
}

// recordCapture stores the capture row matching captureID from the order's
// purchase units, falling back to id-only when the projection lacks it.
func (s *paymentServiceImpl) recordCapture(tx *gorm.DB, order *model.PaypalOrder, captureID string) error {
	record := &model.CaptureRecord{
		CaptureID: captureID,
		OrderID:   order.ID,
		Status:    model.CaptureStatusCompleted,
	}
	if capture := order.FirstCapture(); capture != nil && capture.ID == captureID {
		record.Status = capture.Status
		record.Amount = capture.Amount.Value
		record.Currency = capture.Amount.Currency
		record.Final = capture.Final
	}
	return s.captureRepo.Upsert(tx, record)
}

func (s *paymentServiceImpl) RefundPayment(ctx context.Context, orderID string, req *dto.RefundRequest) (*dto.RefundResponse, error) {
	if err := provider.ValidateOrderID(orderID); err != nil {
		return nil, err
	}
	if len(req.CaptureIDs) == 0 {
		return nil, &provider.Error{Kind: provider.KindInvalidInput, Message: "at least one capture id is required"}
	}
	if req.Amount != nil && len(req.CaptureIDs) != 1 {
		return nil, &provider.Error{Kind: provider.KindInvalidInput, Message: "partial amount refunds take exactly one capture id"}
	}
	for _, captureID := range req.CaptureIDs {
		if err := provider.ValidateCaptureID(captureID); err != nil {
			return nil, err
		}
	}

	var amount *model.Amount
	if req.Amount != nil {
		currency := req.Currency
		if currency == "" {
			session, err := s.sessionRepo.Get(orderID)
			if err != nil {
				return nil, &provider.Error{Kind: provider.KindInvalidInput, Message: "currency required for partial refund of unknown session"}
			}
			currency = session.Currency
		}
		amount = &model.Amount{
			Currency: currency,
			Value:    client.FormatAmount(*req.Amount),
		}
	}

	resp := &dto.RefundResponse{OrderID: orderID}
	for _, captureID := range req.CaptureIDs {
		refund, err := s.paypalClient.RefundCapture(ctx, captureID, amount)
		if err != nil {
			return nil, &provider.Error{Kind: provider.KindUpstreamFailure, Message: fmt.Sprintf("refund capture %s", captureID), Err: err}
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.refundRepo.Create(tx, &model.RefundRecord{
				RefundID:  refund.ID,
				CaptureID: captureID,
				Status:    refund.Status,
				Amount:    refund.Amount.Value,
				Currency:  refund.Amount.Currency,
			})
		})
		if err != nil {
			return nil, fmt.Errorf("store refund: %w", err)
		}

		resp.Refunds = append(resp.Refunds, &dto.RefundInfo{
			RefundID:  refund.ID,
			CaptureID: captureID,
			Status:    refund.Status,
		})

		s.emit(ctx, EventRefunded, dto.PaymentEvent{
			OrderID:   orderID,
			Status:    refund.Status,
			CaptureID: captureID,
			Amount:    refund.Amount.Value,
			Currency:  refund.Amount.Currency,
		})
	}

	return resp, nil
}

func (s *paymentServiceImpl) GetPaymentStatus(ctx context.Context, orderID string) (*dto.PaymentResponse, error) {
	order, status, err := s.reconciler.GetStatus(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Keep the local session in step with the remote truth.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.sessionRepo.UpdateStatus(tx, orderID, string(status))
	})
	if err != nil {
		return nil, fmt.Errorf("sync payment session: %w", err)
	}

	resp := &dto.PaymentResponse{OrderID: orderID, Status: string(status)}
	if auth := order.FirstAuthorization(); auth != nil {
		resp.AuthorizationID = auth.ID
	}
	if capture := order.FirstCapture(); capture != nil {
		resp.CaptureID = capture.ID
	}
	return resp, nil
}

// actionStatus maps a webhook action to the session status it implies.
var actionStatus = map[provider.Action]provider.Status{
	provider.ActionAuthorized: provider.StatusAuthorized,
	provider.ActionCaptured:   provider.StatusCaptured,
	provider.ActionFailed:     provider.StatusError,
	provider.ActionCanceled:   provider.StatusCanceled,
	provider.ActionPending:    provider.StatusPending,
}

var actionHookKey = map[provider.Action]hookz.Key{
	provider.ActionAuthorized: EventAuthorized,
	provider.ActionCaptured:   EventCaptured,
	provider.ActionFailed:     EventFailed,
	provider.ActionCanceled:   EventCanceled,
}

func (s *paymentServiceImpl) HandleWebhook(ctx context.Context, headers http.Header, body []byte) (*dto.WebhookResponse, error) {
	result, err := s.webhookVerifier.Process(ctx, headers, body)
	if err != nil {
		return nil, err
	}

	resp := &dto.WebhookResponse{
		EventID: result.Event.ID,
		Action:  string(result.Action),
		OrderID: result.OrderID,
	}

	if result.Action == provider.ActionNotSupported {
		return resp, nil
	}

	seen, err := s.webhookEventRepo.Exists(result.Event.ID)
	if err != nil {
		return nil, fmt.Errorf("check webhook event: %w", err)
	}
	if seen {
		resp.Duplicate = true
		return resp, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if status, ok := actionStatus[result.Action]; ok && result.OrderID != "" {
			if err := s.sessionRepo.UpdateStatus(tx, result.OrderID, string(status)); err != nil {
				return err
			}
		}
		return s.webhookEventRepo.MarkProcessed(tx, result.Event.ID, result.Event.EventType, string(result.Action), result.Event.Resource.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("store webhook event: %w", err)
	}

	if key, ok := actionHookKey[result.Action]; ok {
		s.emit(ctx, key, dto.PaymentEvent{
			OrderID: result.OrderID,
			Status:  string(actionStatus[result.Action]),
		})
	}

	return resp, nil
}

func extractApproveURL(links []model.PaypalLink) string {
	for _, link := range links {
		if link.Rel == "approve" {
			return link.Href
		}
	}
	return ""
}
