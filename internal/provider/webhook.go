package provider

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/apiscerena/medusa-paypal/internal/client"
	"github.com/apiscerena/medusa-paypal/internal/model"
)

// Action is what the host should do in response to a webhook event.
type Action string

const (
	ActionAuthorized   Action = "authorized"
	ActionCaptured     Action = "captured"
	ActionFailed       Action = "failed"
	ActionCanceled     Action = "canceled"
	ActionPending      Action = "pending"
	ActionNotSupported Action = "not_supported"
)

// eventActions maps PayPal event types to host actions. Unlisted types map
// to ActionNotSupported so the host can skip them without treating the
// delivery as an error.
var eventActions = map[string]Action{
	"PAYMENT.AUTHORIZATION.CREATED": ActionAuthorized,
	"PAYMENT.AUTHORIZATION.VOIDED":  ActionCanceled,
	"PAYMENT.CAPTURE.COMPLETED":     ActionCaptured,
	"PAYMENT.CAPTURE.DENIED":        ActionFailed,
	"PAYMENT.CAPTURE.PENDING":       ActionPending,
	"CHECKOUT.ORDER.COMPLETED":      ActionCaptured,
	"CHECKOUT.ORDER.VOIDED":         ActionCanceled,
}

func MapEventAction(eventType string) Action {
	if action, ok := eventActions[eventType]; ok {
		return action
	}
	return ActionNotSupported
}

var requiredWebhookHeaders = []string{
	client.HeaderAuthAlgo,
	client.HeaderCertURL,
	client.HeaderTransmissionID,
	client.HeaderTransmissionSig,
	client.HeaderTransmissionTime,
}

type WebhookResult struct {
	Event   *model.PayPalWebhookEvent
	Action  Action
	OrderID string
}

// WebhookVerifier validates transmission headers, parses the payload,
// verifies the signature against PayPal and maps the event to a host
// action.
type WebhookVerifier struct {
	paypalClient client.PaypalClient
	metrics      *Metrics
}

func NewWebhookVerifier(paypalClient client.PaypalClient, metrics *Metrics) *WebhookVerifier {
	return &WebhookVerifier{
		paypalClient: paypalClient,
		metrics:      metrics,
	}
}

// Process runs the webhook pipeline: headers validated, body parsed,
// signature verified, action mapped. Verification fails closed: unless
// PayPal reports an explicit SUCCESS the event must not be acted upon.
func (v *WebhookVerifier) Process(ctx context.Context, headers http.Header, body []byte) (*WebhookResult, error) {
	for _, name := range requiredWebhookHeaders {
		if headers.Get(name) == "" {
			return nil, newError(KindInvalidInput, "missing required webhook header %s", name)
		}
	}

	var event model.PayPalWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, wrapError(KindInvalidInput, err, "malformed webhook payload")
	}

	if err := v.paypalClient.VerifyWebhookSignature(ctx, headers, body); err != nil {
		return nil, wrapError(KindSignatureInvalid, err, "webhook signature rejected")
	}

	action := MapEventAction(event.EventType)
	v.metrics.WebhookEvents.WithLabelValues(string(action)).Inc()

	return &WebhookResult{
		Event:   &event,
		Action:  action,
		OrderID: eventOrderID(&event),
	}, nil
}

// eventOrderID finds the related order id: capture and authorization
// resources carry it in supplementary data, order resources are the order.
func eventOrderID(event *model.PayPalWebhookEvent) string {
	if id := event.Resource.SupplementaryData.RelatedIDs.OrderID; id != "" {
		return id
	}
	if orderIDPattern.MatchString(event.Resource.ID) {
		return event.Resource.ID
	}
	return ""
}
