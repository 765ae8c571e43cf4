package dto

type Item struct {
	Name      string  `json:"name"`
	Quantity  int32   `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type Shipping struct {
	FullName     string `json:"full_name"`
	AddressLine1 string `json:"address_line_1"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`
	CountryCode  string `json:"country_code"`
}

type CreatePaymentRequest struct {
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency"`
	Email          string    `json:"email,omitempty"`
	Items          []*Item   `json:"items,omitempty"`
	Shipping       *Shipping `json:"shipping,omitempty"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
}

type PaymentResponse struct {
	OrderID         string `json:"order_id"`
	Status          string `json:"status"`
	ApprovalURL     string `json:"approval_url,omitempty"`
	AuthorizationID string `json:"authorization_id,omitempty"`
	CaptureID       string `json:"capture_id,omitempty"`
}

type RefundRequest struct {
	CaptureIDs []string `json:"capture_ids"`
	// Amount refunds part of a single capture; nil refunds in full.
	Amount   *float64 `json:"amount,omitempty"`
	Currency string   `json:"currency,omitempty"`
}

type RefundInfo struct {
	RefundID  string `json:"refund_id"`
	CaptureID string `json:"capture_id"`
	Status    string `json:"status"`
}

type RefundResponse struct {
	OrderID string        `json:"order_id"`
	Refunds []*RefundInfo `json:"refunds"`
}

type WebhookResponse struct {
	EventID   string `json:"event_id"`
	Action    string `json:"action"`
	OrderID   string `json:"order_id,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// PaymentEvent is the payload emitted through the lifecycle hooks so host
// code can subscribe to state changes.
type PaymentEvent struct {
	OrderID         string `json:"order_id"`
	Status          string `json:"status"`
	AuthorizationID string `json:"authorization_id,omitempty"`
	CaptureID       string `json:"capture_id,omitempty"`
	Amount          string `json:"amount,omitempty"`
	Currency        string `json:"currency,omitempty"`
}
