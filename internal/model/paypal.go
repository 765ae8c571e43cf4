package model

// PayPal Orders v2 / Payments v2 wire types, limited to the fields
// this service reads or writes.

const (
	OrderStatusCreated   = "CREATED"
	OrderStatusApproved  = "APPROVED"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusVoided    = "VOIDED"

	IntentAuthorize = "AUTHORIZE"
	IntentCapture   = "CAPTURE"

	AuthorizationStatusCreated  = "CREATED"
	AuthorizationStatusCaptured = "CAPTURED"
	AuthorizationStatusVoided   = "VOIDED"
	AuthorizationStatusExpired  = "EXPIRED"

	CaptureStatusCompleted = "COMPLETED"
	CaptureStatusDeclined  = "DECLINED"
	CaptureStatusPending   = "PENDING"
)

type Amount struct {
	Currency string `json:"currency_code"`
	Value    string `json:"value"`
}

type PaypalLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type Authorization struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	Amount         Amount `json:"amount"`
	ExpirationTime string `json:"expiration_time"`
}

type Capture struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Amount     Amount `json:"amount"`
	CreateTime string `json:"create_time"`
	Final      bool   `json:"final_capture"`
}

type Refund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount Amount `json:"amount"`
}

type Payments struct {
	Authorizations []Authorization `json:"authorizations"`
	Captures       []Capture       `json:"captures"`
	Refunds        []Refund        `json:"refunds"`
}

type PurchaseUnit struct {
	ReferenceID string   `json:"reference_id"`
	Amount      Amount   `json:"amount"`
	Payments    Payments `json:"payments"`
}

type Payer struct {
	PayerID string `json:"payer_id"`
	Email   string `json:"email_address"`
}

type PaypalOrder struct {
	ID            string         `json:"id"`
	Intent        string         `json:"intent"`
	Status        string         `json:"status"`
	Payer         Payer          `json:"payer"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
	Links         []PaypalLink   `json:"links"`
}

// FirstAuthorization returns the authorization of the first purchase unit,
// or nil when none exists. Orders created by this service carry exactly one
// purchase unit.
func (o *PaypalOrder) FirstAuthorization() *Authorization {
	for _, pu := range o.PurchaseUnits {
		if len(pu.Payments.Authorizations) > 0 {
			return &pu.Payments.Authorizations[0]
		}
	}
	return nil
}

// FirstCapture returns the capture of the first purchase unit, or nil.
func (o *PaypalOrder) FirstCapture() *Capture {
	for _, pu := range o.PurchaseUnits {
		if len(pu.Payments.Captures) > 0 {
			return &pu.Payments.Captures[0]
		}
	}
	return nil
}

type RelatedIDs struct {
	OrderID string `json:"order_id"`
}

type SupplementaryData struct {
	RelatedIDs RelatedIDs `json:"related_ids"`
}

// WebhookResource is the union projection of order, authorization and
// capture resources carried inside webhook events.
type WebhookResource struct {
	ID                string            `json:"id"`
	Intent            string            `json:"intent"`
	Status            string            `json:"status"`
	Amount            Amount            `json:"amount"`
	Payer             Payer             `json:"payer"`
	PurchaseUnits     []PurchaseUnit    `json:"purchase_units"`
	SupplementaryData SupplementaryData `json:"supplementary_data"`
}

type PayPalWebhookEvent struct {
	ID         string          `json:"id"`
	EventType  string          `json:"event_type"`
	CreateTime string          `json:"create_time"`
	Resource   WebhookResource `json:"resource"`
}
