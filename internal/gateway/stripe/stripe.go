// Package stripe реализует адаптер шлюза Stripe поверх hosted checkout сессий.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/fsdevblog/groph-pay/internal/domain"
	"github.com/fsdevblog/groph-pay/internal/gateway"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	GatewayCode = "stripe"

	defaultAPIBaseURL = "https://api.stripe.com"

	signatureHeader = "Stripe-Signature"

	eventCheckoutCompleted = "checkout.session.completed"
	eventCheckoutExpired   = "checkout.session.expired"
	eventRefundUpdated     = "refund.updated"
)

type Config struct {
	APIKey        string `json:"api_key"`
	WebhookSecret string `json:"webhook_secret"`
	APIBaseURL    string `json:"api_base_url"`
}

type Gateway struct {
	cfg        Config
	httpClient *http.Client
}

// New создает адаптер из JSON-конфигурации способа оплаты.
func New(rawConfig json.RawMessage, client *http.Client) (*Gateway, error) {
	var cfg Config
	if err := json.Unmarshal(rawConfig, &cfg); err != nil {
		return nil, fmt.Errorf("stripe: parse config: %s", err.Error())
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
	return g.cfg.APIKey != "" && g.cfg.WebhookSecret != ""
}

type checkoutSession struct {
	ID                string `json:"id"`
	URL               string `json:"url"`
	AmountTotal       int64  `json:"amount_total"`
	Currency          string `json:"currency"`
	ClientReferenceID string `json:"client_reference_id"`
	PaymentStatus     string `json:"payment_status"`
	PaymentIntent     string `json:"payment_intent"`
}

// ProcessPayment открывает hosted checkout сессию и возвращает редирект на нее.
// extra должен содержать success_url и cancel_url, собранные веб-слоем.
func (g *Gateway) ProcessPayment(
	ctx context.Context,
	order *domain.Order,
	extra map[string]string,
) (*gateway.PaymentInstruction, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("client_reference_id", order.Number)
	form.Set("success_url", extra["success_url"])
	form.Set("cancel_url", extra["cancel_url"])
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(order.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(order.Total, 10))
	form.Set("line_items[0][price_data][product_data][name]", "Order "+order.Number)

	body, err := g.doForm(ctx, "/v1/checkout/sessions", form)
	if err != nil {
		return nil, err
	}

	var session checkoutSession
	if jsonErr := json.Unmarshal(body, &session); jsonErr != nil {
		return nil, fmt.Errorf("stripe: parse checkout session: %s", jsonErr.Error())
	}
	return &gateway.PaymentInstruction{
		RedirectURL:          session.URL,
		GatewayTransactionID: session.ID,
	}, nil
}

// VerifyPayment опрашивает состояние checkout сессии.
func (g *Gateway) VerifyPayment(
	ctx context.Context,
	_ *domain.Order,
	gatewayTxID string,
) (*gateway.VerifyResult, error) {
	body, err := g.doForm(ctx, "/v1/checkout/sessions/"+gatewayTxID, nil)
	if err != nil {
		return nil, err
	}
	var session checkoutSession
	if jsonErr := json.Unmarshal(body, &session); jsonErr != nil {
		return nil, fmt.Errorf("stripe: parse checkout session: %s", jsonErr.Error())
	}
	return &gateway.VerifyResult{
		Paid:                 session.PaymentStatus == "paid",
		GatewayTransactionID: session.ID,
		GatewayPaymentID:     session.PaymentIntent,
		Amount:               session.AmountTotal,
		Raw:                  body,
	}, nil
}

type refund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Refund создает возврат. paymentTxID - payment intent завершенного платежа;
// идентификатор checkout-сессии API возвратов не принимает.
func (g *Gateway) Refund(
	ctx context.Context,
	order *domain.Order,
	paymentTxID string,
	amount int64,
	reason string,
) (*gateway.RefundResult, error) {
	form := url.Values{}
	form.Set("payment_intent", paymentTxID)
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("metadata[order_number]", order.Number)
	if reason != "" {
		form.Set("metadata[reason]", reason)
	}

	body, err := g.doForm(ctx, "/v1/refunds", form)
	if err != nil {
		return nil, err
	}
	var r refund
	if jsonErr := json.Unmarshal(body, &r); jsonErr != nil {
		return nil, fmt.Errorf("stripe: parse refund: %s", jsonErr.Error())
	}
	if r.Status != "succeeded" && r.Status != "pending" {
		return nil, fmt.Errorf("stripe: refund %s has status %q", r.ID, r.Status)
	}
	return &gateway.RefundResult{
		GatewayTransactionID: r.ID,
		Message:              r.Status,
		Raw:                  body,
	}, nil
}

type event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                string            `json:"id"`
			AmountTotal       int64             `json:"amount_total"`
			Amount            int64             `json:"amount"`
			Currency          string            `json:"currency"`
			ClientReferenceID string            `json:"client_reference_id"`
			Status            string            `json:"status"`
			PaymentIntent     string            `json:"payment_intent"`
			Metadata          map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// HandleCallback проверяет подпись Stripe-Signature (t=...,v1=... поверх "t.body")
// и нормализует событие. Проверка fail closed: без валидной подписи payload не разбирается.
func (g *Gateway) HandleCallback(req *gateway.CallbackRequest) (*gateway.CallbackResult, error) {
	if !g.verifySignature(req) {
		return nil, errors.Wrap(domain.ErrInvalidSignature, "stripe")
	}

	var ev event
	if err := json.Unmarshal(req.Body, &ev); err != nil {
		return nil, fmt.Errorf("stripe: parse event: %s", err.Error())
	}

	switch ev.Type {
	case eventCheckoutCompleted:
		return &gateway.CallbackResult{
			OrderNumber:          ev.Data.Object.ClientReferenceID,
			GatewayTransactionID: ev.Data.Object.ID,
			// возвраты делаются по payment intent, а не по идентификатору сессии.
			GatewayPaymentID: ev.Data.Object.PaymentIntent,
			Type:             domain.TransactionTypePayment,
			Status:           domain.TransactionStatusCompleted,
			Amount:           ev.Data.Object.AmountTotal,
			Currency:         strings.ToUpper(ev.Data.Object.Currency),
			Raw:              req.Body,
		}, nil
	case eventCheckoutExpired:
		return &gateway.CallbackResult{
			OrderNumber:          ev.Data.Object.ClientReferenceID,
			GatewayTransactionID: ev.Data.Object.ID,
			Type:                 domain.TransactionTypePayment,
			Status:               domain.TransactionStatusFailed,
			Amount:               ev.Data.Object.AmountTotal,
			Message:              "checkout session expired",
			Raw:                  req.Body,
		}, nil
	case eventRefundUpdated:
		// возвраты без order_number в метаданных (оформленные из дашборда на чужие платежи)
		// сопоставить с заказом нельзя.
		orderNumber := ev.Data.Object.Metadata["order_number"]
		if ev.Data.Object.Status != "succeeded" || orderNumber == "" {
			return nil, gateway.ErrEventIgnored
		}
		return &gateway.CallbackResult{
			OrderNumber:          orderNumber,
			GatewayTransactionID: ev.Data.Object.ID,
			Type:                 domain.TransactionTypeRefund,
			Status:               domain.TransactionStatusCompleted,
			Amount:               ev.Data.Object.Amount,
			Raw:                  req.Body,
		}, nil
	default:
		return nil, gateway.ErrEventIgnored
	}
}

// verifySignature разбирает заголовок вида "t=<unix>,v1=<hex>" и проверяет
// HMAC-SHA256 от "<t>.<body>".
func (g *Gateway) verifySignature(req *gateway.CallbackRequest) bool {
	header := req.Header.Get(signatureHeader)
	if header == "" {
		return false
	}
	var timestamp, signature string
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			timestamp = v
		case "v1":
			signature = v
		}
	}
	if timestamp == "" || signature == "" {
		return false
	}
	signedPayload := append([]byte(timestamp+"."), req.Body...)
	return gateway.VerifyHMACSHA256([]byte(g.cfg.WebhookSecret), signedPayload, signature)
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// doForm выполняет запрос к API. nil form означает GET. Сетевые ошибки и 5xx/429 маппятся
// в domain.ErrGatewayUnavailable, чтобы вызывающая сторона могла ретраить.
func (g *Gateway) doForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	method := http.MethodGet
	var reqBody io.Reader
	if form != nil {
		method = http.MethodPost
		reqBody = strings.NewReader(form.Encode())
	}

	req, reqErr := http.NewRequestWithContext(ctx, method, g.cfg.APIBaseURL+path, reqBody)
	if reqErr != nil {
		return nil, fmt.Errorf("stripe: create request: %s", reqErr.Error())
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	resp, doErr := g.httpClient.Do(req)
	if doErr != nil {
		return nil, errors.Wrapf(domain.ErrGatewayUnavailable, "stripe: %s", doErr.Error())
	}
	defer resp.Body.Close() //nolint:errcheck

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, errors.Wrapf(domain.ErrGatewayUnavailable, "stripe: read response: %s", readErr.Error())
	}

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.Wrapf(domain.ErrGatewayUnavailable, "stripe: status %d", resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiError
		_ = json.Unmarshal(body, &apiErr)
		return nil, fmt.Errorf("stripe: status %d: %s %s", resp.StatusCode, apiErr.Error.Code, apiErr.Error.Message)
	}
	return body, nil
}
