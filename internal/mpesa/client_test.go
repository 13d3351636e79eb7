package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		Passkey:        "passkey123",
		Shortcode:      "174379",
		CallbackURL:    "https://example.com/api/v1/payments/callback",
		Environment:    "sandbox",
	})
	c.baseURL = srv.URL
	c.now = func() time.Time {
		return time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	}
	return c
}

func tokenHandler(t *testing.T, next http.HandlerFunc) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("key:secret"))
		assert.Equal(t, expected, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{"access_token": "test-token", "expires_in": "3599"})
	})
	if next != nil {
		mux.HandleFunc("/", next)
	}
	return mux
}

func TestFormatPhone(t *testing.T) {
	cases := map[string]string{
		"0712345678":      "254712345678",
		"254712345678":    "254712345678",
		"+254712345678":   "254712345678",
		"0712 345 678":    "254712345678",
		"712345678":       "254712345678",
		"+254 712-345678": "254712345678",
	}
	for input, want := range cases {
		assert.Equal(t, want, FormatPhone(input), "input %q", input)
	}
}

func TestTimestampFormat(t *testing.T) {
	ts := Timestamp(time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC))
	assert.Equal(t, "20240102150405", ts)
}

func TestPassword(t *testing.T) {
	got := Password("174379", "passkey123", "20240102150405")
	want := base64.StdEncoding.EncodeToString([]byte("174379passkey12320240102150405"))
	assert.Equal(t, want, got)
}

func TestInitiateSTKPush(t *testing.T) {
	var captured stkPushRequest
	c := testClient(t, tokenHandler(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/mpesa/stkpush/v1/processrequest", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(STKPushResponse{
			MerchantRequestID: "merchant-1",
			CheckoutRequestID: "ws_CO_123",
			ResponseCode:      "0",
			CustomerMessage:   "Success. Request accepted for processing",
		})
	}))

	resp, err := c.InitiateSTKPush(context.Background(), "0712345678", 1250.40, "OS2401021234", "Payment for order OS2401021234")
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_123", resp.CheckoutRequestID)

	assert.Equal(t, "174379", captured.BusinessShortCode)
	assert.Equal(t, "20240102150405", captured.Timestamp)
	assert.Equal(t, Password("174379", "passkey123", "20240102150405"), captured.Password)
	assert.Equal(t, "CustomerPayBillOnline", captured.TransactionType)
	// Fractional amounts round up to the next whole shilling
	assert.Equal(t, int64(1251), captured.Amount)
	assert.Equal(t, "254712345678", captured.PartyA)
	assert.Equal(t, "254712345678", captured.PhoneNumber)
	assert.Equal(t, "174379", captured.PartyB)
	assert.Equal(t, "https://example.com/api/v1/payments/callback", captured.CallBackURL)
	assert.Equal(t, "OS2401021234", captured.AccountReference)
}

func TestInitiateSTKPushProviderError(t *testing.T) {
	c := testClient(t, tokenHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"requestId":    "req-1",
			"errorCode":    "400.002.02",
			"errorMessage": "Bad Request - Invalid PhoneNumber",
		})
	}))

	_, err := c.InitiateSTKPush(context.Background(), "0712345678", 100, "OS1", "desc")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "400.002.02", apiErr.ErrorCode)
	assert.Contains(t, apiErr.Error(), "Invalid PhoneNumber")
}

func TestTokenFetchFailure(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.InitiateSTKPush(context.Background(), "0712345678", 100, "OS1", "desc")
	require.Error(t, err)
}

func TestQuerySTKStatus(t *testing.T) {
	c := testClient(t, tokenHandler(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/mpesa/stkpushquery/v1/query", r.URL.Path)
		var req stkQueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ws_CO_123", req.CheckoutRequestID)
		json.NewEncoder(w).Encode(STKQueryResponse{
			CheckoutRequestID: "ws_CO_123",
			ResultCode:        "0",
			ResultDesc:        "The service request is processed successfully.",
		})
	}))

	resp, err := c.QuerySTKStatus(context.Background(), "ws_CO_123")
	require.NoError(t, err)
	assert.Equal(t, "0", resp.ResultCode)
}

func TestCallbackMetadataMap(t *testing.T) {
	payload := []byte(`{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "merchant-1",
				"CheckoutRequestID": "ws_CO_123",
				"ResultCode": 0,
				"ResultDesc": "The service request is processed successfully.",
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": 500.00},
						{"Name": "MpesaReceiptNumber", "Value": "QK12XYZ789"},
						{"Name": "TransactionDate", "Value": 20240101120000},
						{"Name": "PhoneNumber", "Value": 254712345678}
					]
				}
			}
		}
	}`)

	var envelope CallbackEnvelope
	require.NoError(t, json.Unmarshal(payload, &envelope))

	cb := envelope.Body.STKCallback
	assert.Equal(t, 0, cb.ResultCode)

	meta := cb.MetadataMap()
	assert.Equal(t, 500.0, meta["Amount"])
	assert.Equal(t, "QK12XYZ789", meta["MpesaReceiptNumber"])

	// A failure callback carries no metadata
	var failed STKCallback
	require.NoError(t, json.Unmarshal([]byte(`{"CheckoutRequestID":"ws_CO_9","ResultCode":1032,"ResultDesc":"Request cancelled by user"}`), &failed))
	assert.Empty(t, failed.MetadataMap())
}
