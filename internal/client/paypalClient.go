package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/apiscerena/medusa-paypal/internal/config"
	"github.com/apiscerena/medusa-paypal/internal/model"
)

// Required webhook transmission headers. Verification is refused when any
// of these is absent.
const (
	HeaderAuthAlgo         = "Paypal-Auth-Algo"
	HeaderCertURL          = "Paypal-Cert-Url"
	HeaderTransmissionID   = "Paypal-Transmission-Id"
	HeaderTransmissionSig  = "Paypal-Transmission-Sig"
	HeaderTransmissionTime = "Paypal-Transmission-Time"
)

// tokenExpirySlack refreshes the cached token slightly before PayPal
// invalidates it.
const tokenExpirySlack = 60 * time.Second

type PaypalClient interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*model.PaypalOrder, error)
	GetOrder(ctx context.Context, orderID string) (*model.PaypalOrder, error)
	AuthorizeOrder(ctx context.Context, orderID string) (*model.PaypalOrder, error)
	CaptureOrder(ctx context.Context, orderID string) (*model.PaypalOrder, error)
	CaptureAuthorization(ctx context.Context, authorizationID string) (*model.Capture, error)
	RefundCapture(ctx context.Context, captureID string, amount *model.Amount) (*model.Refund, error)
	VerifyWebhookSignature(ctx context.Context, headers http.Header, body []byte) error
}

type LineItem struct {
	Name      string
	Quantity  string
	UnitValue float64
}

type ShippingAddress struct {
	FullName     string `json:"-"`
	AddressLine1 string `json:"address_line_1,omitempty"`
	City         string `json:"admin_area_2,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	CountryCode  string `json:"country_code,omitempty"`
}

type CreateOrderRequest struct {
	Intent         string
	Value          float64
	Currency       string
	Items          []LineItem
	Shipping       *ShippingAddress
	CustomerEmail  string
	IdempotencyKey string // sent as PayPal-Request-Id, generated when empty
}

// APIError is a non-success response from PayPal.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paypal error %d: %s", e.StatusCode, e.Body)
}

// ErrVerificationFailed means the verification endpoint answered without an
// explicit SUCCESS status.
var ErrVerificationFailed = fmt.Errorf("webhook signature verification failed")

type paypalClientImpl struct {
	httpClient         *http.Client
	baseApiURL         string
	paypalClientID     string
	paypalClientSecret string
	webhookID          string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewPaypalClient(paypalCfg *config.Paypal) PaypalClient {
	return &paypalClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:         paypalCfg.BaseApiURL,
		paypalClientID:     paypalCfg.ClientID,
		paypalClientSecret: paypalCfg.ClientSecret,
		webhookID:          paypalCfg.WebhookID,
	}
}

func (c *paypalClientImpl) getAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	auth := base64.StdEncoding.EncodeToString(
		[]byte(c.paypalClientID + ":" + c.paypalClientSecret),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseApiURL+"/v1/oauth2/token",
		bytes.NewBufferString("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	var res struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	c.accessToken = res.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(res.ExpiresIn)*time.Second - tokenExpirySlack)

	return c.accessToken, nil
}

// do sends an authorized JSON request and decodes the response into out
// when out is non-nil.
func (c *paypalClientImpl) do(ctx context.Context, method, path string, payload any, extraHeaders map[string]string, out any) error {
	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return fmt.Errorf("get paypal access token: %w", err)
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal req payload: %w", err)
		}
		body = bytes.NewBuffer(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseApiURL+path, body)
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode paypal response: %w", err)
		}
	}
	return nil
}

func (c *paypalClientImpl) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*model.PaypalOrder, error) {
	amount := map[string]any{
		"currency_code": req.Currency,
		"value":         FormatAmount(req.Value),
	}

	unit := map[string]any{"amount": amount}

	if len(req.Items) > 0 {
		items := make([]map[string]any, len(req.Items))
		for i, item := range req.Items {
			items[i] = map[string]any{
				"name":     item.Name,
				"quantity": item.Quantity,
				"unit_amount": map[string]string{
					"currency_code": req.Currency,
					"value":         FormatAmount(item.UnitValue),
				},
			}
		}
		unit["items"] = items
	}

	if req.Shipping != nil {
		unit["shipping"] = map[string]any{
			"name":    map[string]string{"full_name": req.Shipping.FullName},
			"address": req.Shipping,
		}
	}

	payload := map[string]any{
		"intent":         req.Intent,
		"purchase_units": []map[string]any{unit},
	}
	if req.CustomerEmail != "" {
		payload["payer"] = map[string]string{"email_address": req.CustomerEmail}
	}

	idempotencyKey := req.IdempotencyKey
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}

	var order model.PaypalOrder
	err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", payload,
		map[string]string{"PayPal-Request-Id": idempotencyKey}, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *paypalClientImpl) GetOrder(ctx context.Context, orderID string) (*model.PaypalOrder, error) {
	var order model.PaypalOrder
	err := c.do(ctx, http.MethodGet, "/v2/checkout/orders/"+orderID, nil, nil, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *paypalClientImpl) AuthorizeOrder(ctx context.Context, orderID string) (*model.PaypalOrder, error) {
	var order model.PaypalOrder
	err := c.do(ctx, http.MethodPost,
		fmt.Sprintf("/v2/checkout/orders/%s/authorize", orderID), nil, nil, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *paypalClientImpl) CaptureOrder(ctx context.Context, orderID string) (*model.PaypalOrder, error) {
	var order model.PaypalOrder
	err := c.do(ctx, http.MethodPost,
		fmt.Sprintf("/v2/checkout/orders/%s/capture", orderID), nil, nil, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *paypalClientImpl) CaptureAuthorization(ctx context.Context, authorizationID string) (*model.Capture, error) {
	var capture model.Capture
	err := c.do(ctx, http.MethodPost,
		fmt.Sprintf("/v2/payments/authorizations/%s/capture", authorizationID), nil, nil, &capture)
	if err != nil {
		return nil, err
	}
	return &capture, nil
}

func (c *paypalClientImpl) RefundCapture(ctx context.Context, captureID string, amount *model.Amount) (*model.Refund, error) {
	var payload any
	if amount != nil {
		payload = map[string]any{"amount": amount}
	}

	var refund model.Refund
	err := c.do(ctx, http.MethodPost,
		fmt.Sprintf("/v2/payments/captures/%s/refund", captureID), payload, nil, &refund)
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

func (c *paypalClientImpl) VerifyWebhookSignature(ctx context.Context, headers http.Header, body []byte) error {
	payload := map[string]any{
		"auth_algo":         headers.Get(HeaderAuthAlgo),
		"cert_url":          headers.Get(HeaderCertURL),
		"transmission_id":   headers.Get(HeaderTransmissionID),
		"transmission_sig":  headers.Get(HeaderTransmissionSig),
		"transmission_time": headers.Get(HeaderTransmissionTime),
		"webhook_id":        c.webhookID,
		"webhook_event":     json.RawMessage(body),
	}

	var res struct {
		VerificationStatus string `json:"verification_status"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", payload, nil, &res)
	if err != nil {
		return err
	}

	if res.VerificationStatus != "SUCCESS" {
		return ErrVerificationFailed
	}
	return nil
}
