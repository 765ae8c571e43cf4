package provider

import (
	"context"
	"log"

	"github.com/apiscerena/medusa-paypal/internal/client"
	"github.com/apiscerena/medusa-paypal/internal/model"
)

// Status is the host framework's payment-session status.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAuthorized Status = "authorized"
	StatusCaptured   Status = "captured"
	StatusCanceled   Status = "canceled"
	StatusError      Status = "error"
)

// captureAction is the outcome of the capture decision table.
type captureAction int

const (
	captureAlreadyDone captureAction = iota
	captureViaAuthorization
	captureDirect
	captureRejected
)

type captureDecision struct {
	action          captureAction
	authorizationID string
	reason          string
}

// decideCapture is the capture decision table over
// {status, intent, has_authorization, has_capture}. The check order is
// load-bearing: the completed check must come first so duplicate capture
// requests short-circuit, and an order that produced an authorization must
// never go through the direct order-capture call, which only works for
// CAPTURE-intent orders.
func decideCapture(o *model.PaypalOrder) captureDecision {
	if o.Status == model.OrderStatusCompleted {
		return captureDecision{action: captureAlreadyDone}
	}
	if capture := o.FirstCapture(); capture != nil && capture.Status == model.CaptureStatusCompleted {
		// Authorization is consumed once a completed capture exists.
		return captureDecision{action: captureAlreadyDone}
	}
	if auth := o.FirstAuthorization(); auth != nil && auth.Status == model.AuthorizationStatusCreated {
		return captureDecision{action: captureViaAuthorization, authorizationID: auth.ID}
	}
	if o.Intent == model.IntentCapture && o.Status == model.OrderStatusApproved {
		return captureDecision{action: captureDirect}
	}
	return captureDecision{
		action: captureRejected,
		reason: "order status " + o.Status + " with intent " + o.Intent + " cannot be captured",
	}
}

// StatusFromOrder maps a retrieved order and its nested payment records
// onto the host session status.
func StatusFromOrder(o *model.PaypalOrder) Status {
	if o.Status == model.OrderStatusCompleted {
		return StatusCaptured
	}
	if capture := o.FirstCapture(); capture != nil {
		switch capture.Status {
		case model.CaptureStatusCompleted:
			return StatusCaptured
		case model.CaptureStatusDeclined:
			return StatusError
		case model.CaptureStatusPending:
			return StatusPending
		}
	}
	if auth := o.FirstAuthorization(); auth != nil {
		switch auth.Status {
		case model.AuthorizationStatusCreated:
			return StatusAuthorized
		case model.AuthorizationStatusCaptured:
			return StatusCaptured
		case model.AuthorizationStatusVoided, model.AuthorizationStatusExpired:
			return StatusCanceled
		}
	}
	if o.Status == model.OrderStatusVoided {
		return StatusCanceled
	}
	return StatusPending
}

// Reconciler drives authorize and capture decisions from the latest remote
// order state. PayPal is the source of truth; nothing is cached between
// calls.
type Reconciler struct {
	paypalClient client.PaypalClient
	metrics      *Metrics
}

func NewReconciler(paypalClient client.PaypalClient, metrics *Metrics) *Reconciler {
	return &Reconciler{
		paypalClient: paypalClient,
		metrics:      metrics,
	}
}

type CaptureResult struct {
	Order           *model.PaypalOrder
	Status          Status
	CaptureID       string
	AlreadyCaptured bool
}

// Capture reconciles a capture request against the current order state.
// Repeated calls on a completed order return the completed state without
// any mutating remote call.
func (r *Reconciler) Capture(ctx context.Context, orderID string) (*CaptureResult, error) {
	if err := ValidateOrderID(orderID); err != nil {
		return nil, err
	}

	order, err := r.paypalClient.GetOrder(ctx, orderID)
	if err != nil {
		return nil, upstreamError(err, "retrieve order")
	}

	decision := decideCapture(order)
	switch decision.action {
	case captureAlreadyDone:
		r.metrics.CaptureDecisions.WithLabelValues("already_captured").Inc()
		result := &CaptureResult{Order: order, Status: StatusCaptured, AlreadyCaptured: true}
		if capture := order.FirstCapture(); capture != nil {
			result.CaptureID = capture.ID
		}
		return result, nil

	case captureViaAuthorization:
		r.metrics.CaptureDecisions.WithLabelValues("authorization").Inc()
		capture, err := r.paypalClient.CaptureAuthorization(ctx, decision.authorizationID)
		if err != nil {
			return nil, upstreamError(err, "capture authorization")
		}
		refreshed, err := r.paypalClient.GetOrder(ctx, orderID)
		if err != nil {
			return nil, upstreamError(err, "retrieve order after capture")
		}
		return &CaptureResult{
			Order:     refreshed,
			Status:    StatusFromOrder(refreshed),
			CaptureID: capture.ID,
		}, nil

	case captureDirect:
		r.metrics.CaptureDecisions.WithLabelValues("order").Inc()
		captured, err := r.paypalClient.CaptureOrder(ctx, orderID)
		if err != nil {
			return nil, upstreamError(err, "capture order")
		}
		result := &CaptureResult{Order: captured, Status: StatusFromOrder(captured)}
		if capture := captured.FirstCapture(); capture != nil {
			result.CaptureID = capture.ID
		}
		return result, nil

	default:
		r.metrics.CaptureDecisions.WithLabelValues("rejected").Inc()
		return nil, newError(KindInvalidState, "cannot capture order %s: %s", orderID, decision.reason)
	}
}

type AuthorizeResult struct {
	Order           *model.PaypalOrder
	Status          Status
	AuthorizationID string
	CaptureID       string
	AutoCaptured    bool
}

// Authorize places a hold on an approved order. A CREATED authorization is
// the success path. When PayPal auto-captures during the authorize call the
// result is still reported as authorized so the caller does not trigger a
// second fund movement; the discrepancy is counted as a reconciliation
// warning.
func (r *Reconciler) Authorize(ctx context.Context, orderID string) (*AuthorizeResult, error) {
	if err := ValidateOrderID(orderID); err != nil {
		return nil, err
	}

	order, err := r.paypalClient.GetOrder(ctx, orderID)
	if err != nil {
		return nil, upstreamError(err, "retrieve order")
	}

	switch order.Status {
	case model.OrderStatusCreated:
		return &AuthorizeResult{Order: order, Status: StatusPending}, nil

	case model.OrderStatusCompleted:
		result := &AuthorizeResult{Order: order, Status: StatusCaptured}
		if capture := order.FirstCapture(); capture != nil {
			result.CaptureID = capture.ID
		}
		return result, nil

	case model.OrderStatusApproved:
		authorized, err := r.paypalClient.AuthorizeOrder(ctx, orderID)
		if err != nil {
			return nil, upstreamError(err, "authorize order")
		}

		auth := authorized.FirstAuthorization()
		if auth == nil {
			return nil, newError(KindInvalidState, "authorize order %s returned no authorization", orderID)
		}

		switch auth.Status {
		case model.AuthorizationStatusCreated:
			return &AuthorizeResult{
				Order:           authorized,
				Status:          StatusAuthorized,
				AuthorizationID: auth.ID,
			}, nil

		case model.AuthorizationStatusCaptured:
			r.metrics.ReconciliationWarnings.Inc()
			log.Printf("reconciliation warning: order %s auto-captured during authorize", orderID)
			result := &AuthorizeResult{
				Order:           authorized,
				Status:          StatusAuthorized,
				AuthorizationID: auth.ID,
				AutoCaptured:    true,
			}
			if capture := authorized.FirstCapture(); capture != nil {
				result.CaptureID = capture.ID
			}
			return result, nil

		default:
			return nil, newError(KindInvalidState, "authorization for order %s is %s", orderID, auth.Status)
		}

	default:
		return nil, newError(KindInvalidState, "cannot authorize order %s in status %s", orderID, order.Status)
	}
}

// GetStatus retrieves the order and reports the host session status.
func (r *Reconciler) GetStatus(ctx context.Context, orderID string) (*model.PaypalOrder, Status, error) {
	if err := ValidateOrderID(orderID); err != nil {
		return nil, StatusError, err
	}

	order, err := r.paypalClient.GetOrder(ctx, orderID)
	if err != nil {
		return nil, StatusError, upstreamError(err, "retrieve order")
	}
	return order, StatusFromOrder(order), nil
}
