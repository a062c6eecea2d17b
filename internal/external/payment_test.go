package external

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	errs "parkly/internal/errors"
	"parkly/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.HandlerFunc) (*GatewayClient, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewGatewayClient(PaymentConfig{BaseURL: srv.URL}), srv
}

func TestCreatePaymentSendsCredentialHeaders(t *testing.T) {
	var gotClientID, gotAPIKey, gotPath string
	var gotBody CreatePaymentParams

	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotClientID = r.Header.Get("x-client-id")
		gotAPIKey = r.Header.Get("x-api-key")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprintf(w, `{"code":"00","desc":"success","data":{"orderCode":%d,"checkoutUrl":"https://pay.example/x"}}`, gotBody.OrderCode)
	})
	defer srv.Close()

	params := CreatePaymentParams{OrderCode: 12345, Amount: 10000, Description: "Parking fee 59A-123.45"}
	params.Signature = SignCreateRequest("secret", params)

	result, err := client.CreatePayment(context.Background(), params, "client-1", "key-1")
	require.NoError(t, err)

	assert.Equal(t, "client-1", gotClientID)
	assert.Equal(t, "key-1", gotAPIKey)
	assert.Equal(t, "/v2/payment-requests", gotPath)
	assert.Equal(t, params.Signature, gotBody.Signature)
	assert.Equal(t, int64(12345), result.OrderCode)
	assert.Contains(t, string(result.Raw), "checkoutUrl")
}

func TestEmptyResponseBodyIsGatewayUnavailable(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	defer srv.Close()

	_, err := client.GetStatus(context.Background(), 1, "c", "k")
	assert.ErrorIs(t, err, errs.ErrGatewayUnavailable)
}

func TestUndecodableResponseIsGatewayUnavailable(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>bad gateway</html>")
	})
	defer srv.Close()

	_, err := client.GetStatus(context.Background(), 1, "c", "k")
	assert.ErrorIs(t, err, errs.ErrGatewayUnavailable)
}

func TestNonZeroCodeIsRejected(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"231","desc":"duplicate order code","data":null}`)
	})
	defer srv.Close()

	params := CreatePaymentParams{OrderCode: 1, Amount: 100}
	_, err := client.CreatePayment(context.Background(), params, "c", "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate order code")
}

func TestGetStatusParsesData(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/payment-requests/777", r.URL.Path)
		fmt.Fprint(w, `{"code":"00","desc":"success","data":{"orderCode":777,"amount":10000,"amountPaid":4000,"amountRemaining":6000,"status":"UNDERPAID"}}`)
	})
	defer srv.Close()

	status, err := client.GetStatus(context.Background(), 777, "c", "k")
	require.NoError(t, err)

	assert.Equal(t, int64(777), status.OrderCode)
	assert.Equal(t, int64(6000), status.AmountRemaining)
	assert.Equal(t, models.GatewayUnderpaid, status.Status)
}

func TestCancelSendsReason(t *testing.T) {
	var gotBody map[string]string

	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/payment-requests/55/cancel", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{"code":"00","desc":"success","data":{"orderCode":55,"status":"CANCELLED"}}`)
	})
	defer srv.Close()

	status, err := client.Cancel(context.Background(), 55, "c", "k", "driver left")
	require.NoError(t, err)

	assert.Equal(t, "driver left", gotBody["cancellationReason"])
	assert.Equal(t, models.GatewayCancelled, status.Status)
}

func TestSignCreateRequestIsDeterministic(t *testing.T) {
	params := CreatePaymentParams{OrderCode: 42, Amount: 9000, Description: "Parking fee X"}

	sig1 := SignCreateRequest("key", params)
	sig2 := SignCreateRequest("key", params)
	assert.Equal(t, sig1, sig2)
	assert.Len(t, sig1, 64)

	assert.NotEqual(t, sig1, SignCreateRequest("other-key", params))

	params.Amount = 9001
	assert.NotEqual(t, sig1, SignCreateRequest("key", params))
}

func TestVerifyWebhookSignature(t *testing.T) {
	data := models.PaymentWebhookData{OrderCode: 42, Amount: 9000, Status: models.GatewayPaid}
	webhook := &models.PaymentWebhook{Success: true, Data: data}

	// The canonical string sorts the data fields by key.
	webhook.Signature = SignCreateRequest("", CreatePaymentParams{}) // wrong on purpose
	assert.False(t, VerifyWebhookSignature("key", webhook))

	valid := *webhook
	valid.Signature = webhookSignature("key", data)
	assert.True(t, VerifyWebhookSignature("key", &valid))

	tampered := valid
	tampered.Data.Amount = 1
	assert.False(t, VerifyWebhookSignature("key", &tampered))
}

// webhookSignature mirrors the gateway's signing of webhook payloads.
func webhookSignature(key string, data models.PaymentWebhookData) string {
	canonical := fmt.Sprintf("amount=%d&orderCode=%d&status=%s", data.Amount, data.OrderCode, data.Status)
	return hmacHex(key, canonical)
}

func hmacHex(key, msg string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}
