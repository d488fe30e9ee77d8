// Package razorpay реализует адаптер шлюза Razorpay поверх Payment Links API.
package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/fsdevblog/groph-pay/internal/domain"
	"github.com/fsdevblog/groph-pay/internal/gateway"
	"github.com/pkg/errors"
)

const (
	GatewayCode = "razorpay"

	defaultAPIBaseURL = "https://api.razorpay.com"

	signatureHeader = "X-Razorpay-Signature"

	eventPaymentLinkPaid = "payment_link.paid"
	eventPaymentFailed   = "payment.failed"
	eventRefundProcessed = "refund.processed"
)

type Config struct {
	KeyID         string `json:"key_id"`
	KeySecret     string `json:"key_secret"`
	WebhookSecret string `json:"webhook_secret"`
	APIBaseURL    string `json:"api_base_url"`
}

type Gateway struct {
	cfg        Config
	httpClient *http.Client
}

func New(rawConfig json.RawMessage, client *http.Client) (*Gateway, error) {
	var cfg Config
	if err := json.Unmarshal(rawConfig, &cfg); err != nil {
		return nil, fmt.Errorf("razorpay: parse config: %s", err.Error())
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
	return g.cfg.KeyID != "" && g.cfg.KeySecret != "" && g.cfg.WebhookSecret != ""
}

type paymentLink struct {
	ID          string `json:"id"`
	ShortURL    string `json:"short_url"`
	ReferenceID string `json:"reference_id"`
	Status      string `json:"status"`
	Amount      int64  `json:"amount"`
	AmountPaid  int64  `json:"amount_paid"`
	Payments    []struct {
		PaymentID string `json:"payment_id"`
		Status    string `json:"status"`
	} `json:"payments"`
}

// ProcessPayment создает payment link. Номер заказа уходит и в reference_id ссылки,
// и в notes - notes провайдер копирует в сущность платежа, иначе событие payment.failed
// не к чему привязать.
func (g *Gateway) ProcessPayment(
	ctx context.Context,
	order *domain.Order,
	extra map[string]string,
) (*gateway.PaymentInstruction, error) {
	payload := map[string]any{
		"amount":       order.Total,
		"currency":     order.Currency,
		"reference_id": order.Number,
		"description":  "Order " + order.Number,
		"notes":        map[string]string{"order_number": order.Number},
	}
	if returnURL := extra["return_url"]; returnURL != "" {
		payload["callback_url"] = returnURL
		payload["callback_method"] = "get"
	}

	body, err := g.doJSON(ctx, http.MethodPost, "/v1/payment_links", payload)
	if err != nil {
		return nil, err
	}
	var link paymentLink
	if jsonErr := json.Unmarshal(body, &link); jsonErr != nil {
		return nil, fmt.Errorf("razorpay: parse payment link: %s", jsonErr.Error())
	}
	return &gateway.PaymentInstruction{
		RedirectURL:          link.ShortURL,
		GatewayTransactionID: link.ID,
	}, nil
}

func (g *Gateway) VerifyPayment(
	ctx context.Context,
	_ *domain.Order,
	gatewayTxID string,
) (*gateway.VerifyResult, error) {
	body, err := g.doJSON(ctx, http.MethodGet, "/v1/payment_links/"+gatewayTxID, nil)
	if err != nil {
		return nil, err
	}
	var link paymentLink
	if jsonErr := json.Unmarshal(body, &link); jsonErr != nil {
		return nil, fmt.Errorf("razorpay: parse payment link: %s", jsonErr.Error())
	}
	result := gateway.VerifyResult{
		Paid:                 link.Status == "paid",
		GatewayTransactionID: link.ID,
		Amount:               link.AmountPaid,
		Raw:                  body,
	}
	for _, payment := range link.Payments {
		if payment.Status == "captured" {
			result.GatewayPaymentID = payment.PaymentID
			break
		}
	}
	return &result, nil
}

type refundEntity struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Refund создает возврат. paymentTxID - идентификатор платежа (pay_...), не ссылки.
func (g *Gateway) Refund(
	ctx context.Context,
	order *domain.Order,
	paymentTxID string,
	amount int64,
	reason string,
) (*gateway.RefundResult, error) {
	notes := map[string]string{"order_number": order.Number}
	if reason != "" {
		notes["reason"] = reason
	}
	payload := map[string]any{
		"amount": amount,
		"notes":  notes,
	}

	body, err := g.doJSON(ctx, http.MethodPost, "/v1/payments/"+paymentTxID+"/refund", payload)
	if err != nil {
		return nil, err
	}
	var r refundEntity
	if jsonErr := json.Unmarshal(body, &r); jsonErr != nil {
		return nil, fmt.Errorf("razorpay: parse refund: %s", jsonErr.Error())
	}
	if r.Status == "failed" {
		return nil, fmt.Errorf("razorpay: refund %s failed", r.ID)
	}
	return &gateway.RefundResult{
		GatewayTransactionID: r.ID,
		Message:              r.Status,
		Raw:                  body,
	}, nil
}

type event struct {
	Event   string `json:"event"`
	Payload struct {
		PaymentLink struct {
			Entity paymentLink `json:"entity"`
		} `json:"payment_link"`
		Payment struct {
			Entity struct {
				ID               string            `json:"id"`
				Amount           int64             `json:"amount"`
				Notes            map[string]string `json:"notes"`
				ErrorDescription string            `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity struct {
				ID     string            `json:"id"`
				Amount int64             `json:"amount"`
				Notes  map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

// HandleCallback проверяет X-Razorpay-Signature (HMAC-SHA256 hex поверх сырого тела)
// и нормализует событие.
func (g *Gateway) HandleCallback(req *gateway.CallbackRequest) (*gateway.CallbackResult, error) {
	signature := req.Header.Get(signatureHeader)
	if signature == "" || !gateway.VerifyHMACSHA256([]byte(g.cfg.WebhookSecret), req.Body, signature) {
		return nil, errors.Wrap(domain.ErrInvalidSignature, "razorpay")
	}

	var ev event
	if err := json.Unmarshal(req.Body, &ev); err != nil {
		return nil, fmt.Errorf("razorpay: parse event: %s", err.Error())
	}

	switch ev.Event {
	case eventPaymentLinkPaid:
		return &gateway.CallbackResult{
			OrderNumber:          ev.Payload.PaymentLink.Entity.ReferenceID,
			GatewayTransactionID: ev.Payload.PaymentLink.Entity.ID,
			// в событии приходит и сущность платежа: возвраты делаются по ее
			// идентификатору, а не по идентификатору payment link.
			GatewayPaymentID: ev.Payload.Payment.Entity.ID,
			Type:             domain.TransactionTypePayment,
			Status:           domain.TransactionStatusCompleted,
			Amount:           ev.Payload.PaymentLink.Entity.AmountPaid,
			Raw:              req.Body,
		}, nil
	case eventPaymentFailed:
		orderNumber := ev.Payload.Payment.Entity.Notes["order_number"]
		if orderNumber == "" {
			return nil, gateway.ErrEventIgnored
		}
		return &gateway.CallbackResult{
			OrderNumber:          orderNumber,
			GatewayTransactionID: ev.Payload.Payment.Entity.ID,
			Type:                 domain.TransactionTypePayment,
			Status:               domain.TransactionStatusFailed,
			Amount:               ev.Payload.Payment.Entity.Amount,
			Message:              ev.Payload.Payment.Entity.ErrorDescription,
			Raw:                  req.Body,
		}, nil
	case eventRefundProcessed:
		orderNumber := ev.Payload.Refund.Entity.Notes["order_number"]
		if orderNumber == "" {
			return nil, gateway.ErrEventIgnored
		}
		return &gateway.CallbackResult{
			OrderNumber:          orderNumber,
			GatewayTransactionID: ev.Payload.Refund.Entity.ID,
			Type:                 domain.TransactionTypeRefund,
			Status:               domain.TransactionStatusCompleted,
			Amount:               ev.Payload.Refund.Entity.Amount,
			Raw:                  req.Body,
		}, nil
	default:
		return nil, gateway.ErrEventIgnored
	}
}

func (g *Gateway) doJSON(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		raw, marshalErr := json.Marshal(payload)
		if marshalErr != nil {
			return nil, fmt.Errorf("razorpay: marshal request: %s", marshalErr.Error())
		}
		reqBody = bytes.NewReader(raw)
	}

	req, reqErr := http.NewRequestWithContext(ctx, method, g.cfg.APIBaseURL+path, reqBody)
	if reqErr != nil {
		return nil, fmt.Errorf("razorpay: create request: %s", reqErr.Error())
	}
	req.SetBasicAuth(g.cfg.KeyID, g.cfg.KeySecret)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, doErr := g.httpClient.Do(req)
	if doErr != nil {
		return nil, errors.Wrapf(domain.ErrGatewayUnavailable, "razorpay: %s", doErr.Error())
	}
	defer resp.Body.Close() //nolint:errcheck

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, errors.Wrapf(domain.ErrGatewayUnavailable, "razorpay: read response: %s", readErr.Error())
	}

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.Wrapf(domain.ErrGatewayUnavailable, "razorpay: status %d", resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}
		_ = json.Unmarshal(body, &apiErr)
		return nil, fmt.Errorf("razorpay: status %d: %s %s",
			resp.StatusCode, apiErr.Error.Code, apiErr.Error.Description)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("razorpay: empty response body")
	}
	return body, nil
}
