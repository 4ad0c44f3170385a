package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/pkg/errors"
	"storefront/pkg/logger"
)

type staticTokenSource struct{}

func (staticTokenSource) AccessToken(ctx context.Context) (string, error) {
	return "test-access-token", nil
}

func testClient(baseURL string) *Client {
	return NewClientWithTokenSource(Config{
		BaseURL:         baseURL,
		ClientID:        "client-id",
		ClientSecret:    "client-secret",
		SubscriptionKey: "sub-key",
		MerchantSerial:  "123456",
		Timeout:         time.Second,
	}, staticTokenSource{}, logger.New("test", "error"))
}

func TestFetchToken_SendsCredentialHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: "fresh-token", ExpiresIn: 3600})
	}))
	defer server.Close()

	token, err := testClient(server.URL).FetchToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "fresh-token", token.Value)
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, 5*time.Second)
	assert.Equal(t, "client-id", got.Get("client_id"))
	assert.Equal(t, "client-secret", got.Get("client_secret"))
	assert.Equal(t, "sub-key", got.Get("Ocp-Apim-Subscription-Key"))
}

func TestCreateSession_SendsAuthAndIdempotencyHeaders(t *testing.T) {
	var got http.Header
	var body CreateSessionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(Session{Token: "sess", FrontendURL: "https://checkout.example/sess"})
	}))
	defer server.Close()

	session, err := testClient(server.URL).CreateSession(context.Background(), CreateSessionRequest{
		Reference: "MF-1700000000-AB12CD",
		Amount:    35800,
		Currency:  "NOK",
	})
	require.NoError(t, err)

	assert.Equal(t, "sess", session.Token)
	assert.Equal(t, "Bearer test-access-token", got.Get("Authorization"))
	assert.Equal(t, "sub-key", got.Get("Ocp-Apim-Subscription-Key"))
	assert.Equal(t, "123456", got.Get("Merchant-Serial-Number"))
	assert.Equal(t, "MF-1700000000-AB12CD", got.Get("Idempotency-Key"))
	assert.Equal(t, int64(35800), body.Amount)
}

func TestGetPaymentDetails_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testClient(server.URL).GetPaymentDetails(context.Background(), "MF-1-NOSUCH")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestCapture_GatewayRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Capture(context.Background(), "MF-1-ABCDEF", 1000)
	assert.True(t, errors.Is(err, errors.CodeGateway))
}

func TestDo_TransportFailureIsGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := testClient(server.URL).GetSessionStatus(context.Background(), "MF-1-ABCDEF")
	assert.True(t, errors.Is(err, errors.CodeGateway))
}

func TestGetSessionStatus_DecodesNestedDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkout/sessions/MF-1700000000-AB12CD", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"reference": "MF-1700000000-AB12CD",
			"sessionState": "PaymentSuccessful",
			"amount": 35800,
			"currency": "NOK",
			"paymentDetails": {"state": "CAPTURED", "amount": 35800, "capturedAmount": 35800},
			"customerDetails": {"email": "ola@example.com"}
		}`))
	}))
	defer server.Close()

	status, err := testClient(server.URL).GetSessionStatus(context.Background(), "MF-1700000000-AB12CD")
	require.NoError(t, err)

	assert.Equal(t, SessionPaymentSuccessful, status.SessionState)
	require.NotNil(t, status.PaymentDetails)
	assert.Equal(t, PaymentCaptured, status.PaymentDetails.State)
	assert.Equal(t, int64(35800), status.PaymentDetails.CapturedAmount)
	require.NotNil(t, status.CustomerDetails)
	assert.Equal(t, "ola@example.com", status.CustomerDetails.Email)
}
