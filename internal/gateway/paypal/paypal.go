// Package paypal реализует адаптер шлюза PayPal поверх Checkout Orders API v2.
//
// В отличие от stripe/razorpay подпись колбека не считается локально: подлинность
// подтверждается обратным вызовом verify-webhook-signature.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fsdevblog/groph-pay/internal/domain"
	"github.com/fsdevblog/groph-pay/internal/gateway"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	GatewayCode = "paypal"

	defaultAPIBaseURL = "https://api-m.paypal.com"

	eventCaptureCompleted = "PAYMENT.CAPTURE.COMPLETED"
	eventCaptureDenied    = "PAYMENT.CAPTURE.DENIED"
	eventCaptureRefunded  = "PAYMENT.CAPTURE.REFUNDED"

	verifyCallbackTimeout = 10 * time.Second
	tokenExpiryMargin     = 30 * time.Second
)

type Config struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	WebhookID    string `json:"webhook_id"`
	APIBaseURL   string `json:"api_base_url"`
}

type Gateway struct {
	cfg        Config
	httpClient *http.Client

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func New(rawConfig json.RawMessage, client *http.Client) (*Gateway, error) {
	var cfg Config
	if err := json.Unmarshal(rawConfig, &cfg); err != nil {
		return nil, fmt.Errorf("paypal: parse config: %s", err.Error())
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Gateway{cfg: cfg, httpClient: client}, nil
}

func (g *Gateway) Code() string { return GatewayCode }

func (g *Gateway) Supports(methodCode string) bool { return methodCode == GatewayCode }

func (g *Gateway) Configured() bool {
	return g.cfg.ClientID != "" && g.cfg.ClientSecret != "" && g.cfg.WebhookID != ""
}

type amountPayload struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

func newAmountPayload(currency string, minor int64) amountPayload {
	return amountPayload{
		CurrencyCode: currency,
		Value:        domain.DecimalFromMinor(minor).StringFixed(2),
	}
}

func minorFromValue(value string) (int64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, err
	}
	return domain.MinorUnits(d)
}

type checkoutOrder struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string        `json:"id"`
				Status string        `json:"status"`
				Amount amountPayload `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
	Links []struct {
		Rel  string `json:"rel"`
		Href string `json:"href"`
	} `json:"links"`
}

// ProcessPayment создает checkout order и возвращает approve-ссылку для редиректа.
// Номер заказа уходит в custom_id purchase unit и возвращается в событиях capture.
func (g *Gateway) ProcessPayment(
	ctx context.Context,
	order *domain.Order,
	extra map[string]string,
) (*gateway.PaymentInstruction, error) {
	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"custom_id":  order.Number,
			"invoice_id": order.Number,
			"amount":     newAmountPayload(order.Currency, order.Total),
		}},
		"application_context": map[string]string{
			"return_url": extra["success_url"],
			"cancel_url": extra["cancel_url"],
		},
	}

	body, err := g.doJSON(ctx, http.MethodPost, "/v2/checkout/orders", payload)
	if err != nil {
		return nil, err
	}
	var co checkoutOrder
	if jsonErr := json.Unmarshal(body, &co); jsonErr != nil {
		return nil, fmt.Errorf("paypal: parse checkout order: %s", jsonErr.Error())
	}

	var approveURL string
	for _, link := range co.Links {
		if link.Rel == "approve" {
			approveURL = link.Href
			break
		}
	}
	if approveURL == "" {
		return nil, fmt.Errorf("paypal: checkout order %s has no approve link", co.ID)
	}
	return &gateway.PaymentInstruction{
		RedirectURL:          approveURL,
		GatewayTransactionID: co.ID,
	}, nil
}

func (g *Gateway) VerifyPayment(
	ctx context.Context,
	_ *domain.Order,
	gatewayTxID string,
) (*gateway.VerifyResult, error) {
	body, err := g.doJSON(ctx, http.MethodGet, "/v2/checkout/orders/"+gatewayTxID, nil)
	if err != nil {
		return nil, err
	}
	var co checkoutOrder
	if jsonErr := json.Unmarshal(body, &co); jsonErr != nil {
		return nil, fmt.Errorf("paypal: parse checkout order: %s", jsonErr.Error())
	}

	result := gateway.VerifyResult{
		Paid:                 co.Status == "COMPLETED",
		GatewayTransactionID: co.ID,
		Raw:                  body,
	}
	if len(co.PurchaseUnits) > 0 && len(co.PurchaseUnits[0].Payments.Captures) > 0 {
		capture := co.PurchaseUnits[0].Payments.Captures[0]
		// возвраты делаются по идентификатору capture, поэтому в журнал идет он,
		// а не идентификатор checkout order.
		result.GatewayTransactionID = capture.ID
		minor, convErr := minorFromValue(capture.Amount.Value)
		if convErr != nil {
			return nil, fmt.Errorf("paypal: parse capture amount %q: %s", capture.Amount.Value, convErr.Error())
		}
		result.Amount = minor
	}
	return &result, nil
}

func (g *Gateway) Refund(
	ctx context.Context,
	order *domain.Order,
	paymentTxID string,
	amount int64,
	reason string,
) (*gateway.RefundResult, error) {
	payload := map[string]any{
		"amount":    newAmountPayload(order.Currency, amount),
		"custom_id": order.Number,
	}
	if reason != "" {
		payload["note_to_payer"] = reason
	}

	body, err := g.doJSON(ctx, http.MethodPost, "/v2/payments/captures/"+paymentTxID+"/refund", payload)
	if err != nil {
		return nil, err
	}
	var r struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if jsonErr := json.Unmarshal(body, &r); jsonErr != nil {
		return nil, fmt.Errorf("paypal: parse refund: %s", jsonErr.Error())
	}
	if r.Status != "COMPLETED" && r.Status != "PENDING" {
		return nil, fmt.Errorf("paypal: refund %s has status %q", r.ID, r.Status)
	}
	return &gateway.RefundResult{
		GatewayTransactionID: r.ID,
		Message:              r.Status,
		Raw:                  body,
	}, nil
}

type event struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		ID       string        `json:"id"`
		CustomID string        `json:"custom_id"`
		Amount   amountPayload `json:"amount"`
	} `json:"resource"`
}

// HandleCallback подтверждает подлинность события через verify-webhook-signature
// и нормализует его. События без custom_id сопоставить с заказом нельзя.
func (g *Gateway) HandleCallback(req *gateway.CallbackRequest) (*gateway.CallbackResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), verifyCallbackTimeout)
	defer cancel()

	if err := g.verifyWebhookSignature(ctx, req); err != nil {
		return nil, err
	}

	var ev event
	if err := json.Unmarshal(req.Body, &ev); err != nil {
		return nil, fmt.Errorf("paypal: parse event: %s", err.Error())
	}

	var txType domain.TransactionType
	var txStatus domain.TransactionStatus
	var message string
	switch ev.EventType {
	case eventCaptureCompleted:
		txType, txStatus = domain.TransactionTypePayment, domain.TransactionStatusCompleted
	case eventCaptureDenied:
		txType, txStatus = domain.TransactionTypePayment, domain.TransactionStatusFailed
		message = "capture denied"
	case eventCaptureRefunded:
		txType, txStatus = domain.TransactionTypeRefund, domain.TransactionStatusCompleted
	default:
		return nil, gateway.ErrEventIgnored
	}
	if ev.Resource.CustomID == "" {
		return nil, gateway.ErrEventIgnored
	}

	minor, convErr := minorFromValue(ev.Resource.Amount.Value)
	if convErr != nil {
		return nil, fmt.Errorf("paypal: parse event amount %q: %s", ev.Resource.Amount.Value, convErr.Error())
	}
	return &gateway.CallbackResult{
		OrderNumber:          ev.Resource.CustomID,
		GatewayTransactionID: ev.Resource.ID,
		Type:                 txType,
		Status:               txStatus,
		Amount:               minor,
		Currency:             ev.Resource.Amount.CurrencyCode,
		Message:              message,
		Raw:                  req.Body,
	}, nil
}

func (g *Gateway) verifyWebhookSignature(ctx context.Context, req *gateway.CallbackRequest) error {
	payload := map[string]any{
		"transmission_id":   req.Header.Get("Paypal-Transmission-Id"),
		"transmission_time": req.Header.Get("Paypal-Transmission-Time"),
		"transmission_sig":  req.Header.Get("Paypal-Transmission-Sig"),
		"cert_url":          req.Header.Get("Paypal-Cert-Url"),
		"auth_algo":         req.Header.Get("Paypal-Auth-Algo"),
		"webhook_id":        g.cfg.WebhookID,
		"webhook_event":     json.RawMessage(req.Body),
	}

	body, err := g.doJSON(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", payload)
	if err != nil {
		return err
	}
	var result struct {
		VerificationStatus string `json:"verification_status"`
	}
	if jsonErr := json.Unmarshal(body, &result); jsonErr != nil {
		return fmt.Errorf("paypal: parse verification result: %s", jsonErr.Error())
	}
	if result.VerificationStatus != "SUCCESS" {
		return errors.Wrap(domain.ErrInvalidSignature, "paypal")
	}
	return nil
}

// accessTokenFor возвращает кешированный OAuth2 токен, обновляя его по
// client-credentials незадолго до истечения.
func (g *Gateway) accessTokenFor(ctx context.Context) (string, error) {
	g.tokenMu.Lock()
	defer g.tokenMu.Unlock()

	if g.accessToken != "" && time.Now().Before(g.tokenExpiry.Add(-tokenExpiryMargin)) {
		return g.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost,
		g.cfg.APIBaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if reqErr != nil {
		return "", fmt.Errorf("paypal: create token request: %s", reqErr.Error())
	}
	req.SetBasicAuth(g.cfg.ClientID, g.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, doErr := g.httpClient.Do(req)
	if doErr != nil {
		return "", errors.Wrapf(domain.ErrGatewayUnavailable, "paypal: token: %s", doErr.Error())
	}
	defer resp.Body.Close() //nolint:errcheck

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return "", errors.Wrapf(domain.ErrGatewayUnavailable, "paypal: read token response: %s", readErr.Error())
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal: token endpoint status %d", resp.StatusCode)
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if jsonErr := json.Unmarshal(body, &token); jsonErr != nil {
		return "", fmt.Errorf("paypal: parse token response: %s", jsonErr.Error())
	}
	g.accessToken = token.AccessToken
	g.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return g.accessToken, nil
}

func (g *Gateway) doJSON(ctx context.Context, method, path string, payload any) ([]byte, error) {
	token, tokenErr := g.accessTokenFor(ctx)
	if tokenErr != nil {
		return nil, tokenErr
	}

	var reqBody io.Reader
	if payload != nil {
		raw, marshalErr := json.Marshal(payload)
		if marshalErr != nil {
			return nil, fmt.Errorf("paypal: marshal request: %s", marshalErr.Error())
		}
		reqBody = bytes.NewReader(raw)
	}

	req, reqErr := http.NewRequestWithContext(ctx, method, g.cfg.APIBaseURL+path, reqBody)
	if reqErr != nil {
		return nil, fmt.Errorf("paypal: create request: %s", reqErr.Error())
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, doErr := g.httpClient.Do(req)
	if doErr != nil {
		return nil, errors.Wrapf(domain.ErrGatewayUnavailable, "paypal: %s", doErr.Error())
	}
	defer resp.Body.Close() //nolint:errcheck

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, errors.Wrapf(domain.ErrGatewayUnavailable, "paypal: read response: %s", readErr.Error())
	}

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.Wrapf(domain.ErrGatewayUnavailable, "paypal: status %d", resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &apiErr)
		return nil, fmt.Errorf("paypal: status %d: %s %s", resp.StatusCode, apiErr.Name, apiErr.Message)
	}
	return body, nil
}
