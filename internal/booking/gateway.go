package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"clinic-app-server/internal/config"
)

// CodePaymentInitiated is the gateway code for a payment ready for redirect.
const CodePaymentInitiated = "PAYMENT_INITIATED"

// Gateway starts a payment for a transaction.
type Gateway interface {
	InitiatePayment(ctx context.Context, transactionID string) (*GatewayResponse, error)
}

// GatewayResponse is the gateway's answer. StatusCode is the HTTP status
// it came with.
type GatewayResponse struct {
	StatusCode int             `json:"-"`
	Success    bool            `json:"success"`
	Code       string          `json:"code"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// RedirectInfo extracts data.instrumentResponse.redirectInfo.
func (r *GatewayResponse) RedirectInfo() (json.RawMessage, error) {
	var body struct {
		InstrumentResponse struct {
			RedirectInfo json.RawMessage `json:"redirectInfo"`
		} `json:"instrumentResponse"`
	}
	if len(r.Data) == 0 {
		return nil, errors.New("gateway response has no data")
	}
	if err := json.Unmarshal(r.Data, &body); err != nil {
		return nil, fmt.Errorf("decode gateway data: %w", err)
	}
	info := body.InstrumentResponse.RedirectInfo
	if len(info) == 0 || string(info) == "null" {
		return nil, errors.New("gateway response has no redirect info")
	}
	return info, nil
}

type paymentRequest struct {
	MerchantID            string `json:"merchantId"`
	MerchantTransactionID string `json:"merchantTransactionId"`
	Amount                int64  `json:"amount"`
	RedirectURL           string `json:"redirectUrl"`
	CallbackURL           string `json:"callbackUrl"`
}

// HTTPGateway calls the payment provider's initiation endpoint.
type HTTPGateway struct {
	cfg    config.PaymentConfig
	amount int64
	client *http.Client
}

// NewHTTPGateway creates a gateway client. A nil client means http.DefaultClient.
func NewHTTPGateway(cfg config.PaymentConfig, amountMinor int64, client *http.Client) *HTTPGateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPGateway{cfg: cfg, amount: amountMinor, client: client}
}

// InitiatePayment posts the transaction and decodes the reply whatever its
// status code; only transport and decoding failures are errors.
func (g *HTTPGateway) InitiatePayment(ctx context.Context, transactionID string) (*GatewayResponse, error) {
	ctx, span := otel.Tracer("clinic-app-server/booking").Start(ctx, "payment.initiate")
	defer span.End()
	span.SetAttributes(attribute.String("payment.transaction_id", transactionID))

	resp, err := g.do(ctx, transactionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("http.status_code", resp.StatusCode),
		attribute.String("payment.code", resp.Code),
	)
	return resp, nil
}

func (g *HTTPGateway) do(ctx context.Context, transactionID string) (*GatewayResponse, error) {
	payload, err := json.Marshal(paymentRequest{
		MerchantID:            g.cfg.MerchantID,
		MerchantTransactionID: transactionID,
		Amount:                g.amount,
		RedirectURL:           g.cfg.RedirectURL,
		CallbackURL:           g.cfg.CallbackURL,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.GatewayURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}
	req.Header.Set("X-Merchant-Id", g.cfg.MerchantID)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	out := &GatewayResponse{}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("decode payment gateway response (status %d): %w", resp.StatusCode, err)
	}
	out.StatusCode = resp.StatusCode
	return out, nil
}
