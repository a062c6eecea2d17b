package external

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	errs "parkly/internal/errors"
	"parkly/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var gatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "parkly_gateway_requests_total",
	Help: "Payment gateway calls by operation and outcome",
}, []string{"operation", "outcome"})

type GatewayClient struct {
	baseURL    string
	httpClient *http.Client
}

type PaymentConfig struct {
	BaseURL string
	Timeout time.Duration
}

// CreatePaymentParams describes one payment request to be placed at the
// gateway. OrderCode doubles as the gateway-side idempotency key.
type CreatePaymentParams struct {
	OrderCode   int64  `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	ReturnURL   string `json:"returnUrl"`
	CancelURL   string `json:"cancelUrl"`
	Signature   string `json:"signature"`
}

type gatewayEnvelope struct {
	Code string          `json:"code"`
	Desc string          `json:"desc"`
	Data json.RawMessage `json:"data"`
}

// PaymentCreationResult carries the transaction id plus the gateway's raw
// response body, which the session stores verbatim.
type PaymentCreationResult struct {
	OrderCode int64
	Raw       json.RawMessage
}

// PaymentStatusData is the gateway's view of one payment request.
type PaymentStatusData struct {
	OrderCode       int64  `json:"orderCode"`
	Amount          int64  `json:"amount"`
	AmountPaid      int64  `json:"amountPaid"`
	AmountRemaining int64  `json:"amountRemaining"`
	Status          string `json:"status"`
}

func NewGatewayClient(cfg PaymentConfig) *GatewayClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &GatewayClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// SignCreateRequest produces the HMAC-SHA256 signature the gateway verifies:
// a canonical query string over the request fields in fixed alphabetical
// order, keyed with the lot owner's checksum key.
func SignCreateRequest(checksumKey string, p CreatePaymentParams) string {
	canonical := fmt.Sprintf("amount=%d&cancelUrl=%s&description=%s&orderCode=%d&returnUrl=%s",
		p.Amount, p.CancelURL, p.Description, p.OrderCode, p.ReturnURL)

	mac := hmac.New(sha256.New, []byte(checksumKey))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature recomputes the HMAC over the webhook data fields,
// sorted by key, and compares in constant time.
func VerifyWebhookSignature(checksumKey string, w *models.PaymentWebhook) bool {
	fields := map[string]string{
		"amount":    strconv.FormatInt(w.Data.Amount, 10),
		"orderCode": strconv.FormatInt(w.Data.OrderCode, 10),
		"status":    w.Data.Status,
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var canonical string
	for i, k := range keys {
		if i > 0 {
			canonical += "&"
		}
		canonical += k + "=" + fields[k]
	}

	mac := hmac.New(sha256.New, []byte(checksumKey))
	mac.Write([]byte(canonical))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(w.Signature))
}

func (gc *GatewayClient) do(ctx context.Context, operation, method, path string, body interface{}, clientKey, apiKey string) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, gc.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", clientKey)
	req.Header.Set("x-api-key", apiKey)

	resp, err := gc.httpClient.Do(req)
	if err != nil {
		gatewayRequests.WithLabelValues(operation, "error").Inc()
		return nil, fmt.Errorf("gateway %s failed: %w", operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		gatewayRequests.WithLabelValues(operation, "error").Inc()
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	// An empty or undecodable body is the gateway-unavailable condition; it
	// is surfaced to the caller without retries.
	if len(raw) == 0 {
		gatewayRequests.WithLabelValues(operation, "empty").Inc()
		return nil, errs.ErrGatewayUnavailable
	}

	var envelope gatewayEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		gatewayRequests.WithLabelValues(operation, "empty").Inc()
		return nil, errs.ErrGatewayUnavailable
	}

	if envelope.Code != "00" {
		gatewayRequests.WithLabelValues(operation, "rejected").Inc()
		return nil, fmt.Errorf("gateway %s rejected: %s (%s)", operation, envelope.Desc, envelope.Code)
	}

	gatewayRequests.WithLabelValues(operation, "ok").Inc()
	return envelope.Data, nil
}

// CreatePayment places a new payment request. The params must already carry a
// signature produced with the lot owner's checksum key.
func (gc *GatewayClient) CreatePayment(ctx context.Context, params CreatePaymentParams, clientKey, apiKey string) (*PaymentCreationResult, error) {
	data, err := gc.do(ctx, "create", http.MethodPost, "/v2/payment-requests", params, clientKey, apiKey)
	if err != nil {
		return nil, err
	}

	return &PaymentCreationResult{
		OrderCode: params.OrderCode,
		Raw:       data,
	}, nil
}

// GetStatus fetches the gateway's current view of a payment request.
func (gc *GatewayClient) GetStatus(ctx context.Context, orderCode int64, clientKey, apiKey string) (*PaymentStatusData, error) {
	data, err := gc.do(ctx, "status", http.MethodGet,
		fmt.Sprintf("/v2/payment-requests/%d", orderCode), nil, clientKey, apiKey)
	if err != nil {
		return nil, err
	}

	var status PaymentStatusData
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, errs.ErrGatewayUnavailable
	}

	return &status, nil
}

// Cancel voids an outstanding payment request at the gateway.
func (gc *GatewayClient) Cancel(ctx context.Context, orderCode int64, clientKey, apiKey, reason string) (*PaymentStatusData, error) {
	body := map[string]string{"cancellationReason": reason}
	data, err := gc.do(ctx, "cancel", http.MethodPost,
		fmt.Sprintf("/v2/payment-requests/%d/cancel", orderCode), body, clientKey, apiKey)
	if err != nil {
		return nil, err
	}

	var status PaymentStatusData
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, errs.ErrGatewayUnavailable
	}

	return &status, nil
}
