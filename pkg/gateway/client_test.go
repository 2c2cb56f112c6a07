package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anandkp/shelfwise-backend/pkg/config"
)

func testConfig(baseURL string) config.GatewayConfig {
	return config.GatewayConfig{
		BaseURL:     baseURL,
		MerchantID:  "SHELFWISE",
		SaltKey:     "salt-key-1",
		SaltIndex:   "1",
		RedirectURL: "https://shop.example/payment/return",
		CallbackURL: "https://shop.example/api/v1/payments/callback",
		Timeout:     2 * time.Second,
	}
}

func TestNewClient_Validation(t *testing.T) {
	t.Parallel()

	cfg := testConfig("https://gw.example")
	cfg.SaltKey = ""
	_, err := NewClient(context.Background(), cfg, nil)
	require.Error(t, err)

	cfg = testConfig("")
	_, err = NewClient(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestSignRequest_KnownVector(t *testing.T) {
	t.Parallel()

	client, err := NewClient(context.Background(), testConfig("https://gw.example"), nil)
	require.NoError(t, err)

	encoded := base64.StdEncoding.EncodeToString([]byte(`{"merchantId":"SHELFWISE"}`))
	sum := sha256.Sum256([]byte(encoded + "/pg/v1/pay" + "salt-key-1"))
	want := hex.EncodeToString(sum[:]) + "###1"

	require.Equal(t, want, client.SignRequest(encoded, "/pg/v1/pay"))
}

func TestInitiate_Success(t *testing.T) {
	t.Parallel()

	var gotVerify string
	var gotPayload payPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pg/v1/pay", r.URL.Path)
		gotVerify = r.Header.Get("X-VERIFY")

		var envelope struct {
			Request string `json:"request"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&envelope))

		raw, err := base64.StdEncoding.DecodeString(envelope.Request)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &gotPayload))

		// The server recomputes the digest the way the real gateway does.
		sum := sha256.Sum256([]byte(envelope.Request + "/pg/v1/pay" + "salt-key-1"))
		require.Equal(t, hex.EncodeToString(sum[:])+"###1", gotVerify)

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"code":    "PAYMENT_INITIATED",
			"data": map[string]any{
				"merchantTransactionId": gotPayload.MerchantTransactionID,
				"instrumentResponse": map[string]any{
					"redirectInfo": map[string]any{"url": "https://gw.example/pay/abc123"},
				},
			},
		})
	}))
	defer srv.Close()

	client, err := NewClient(context.Background(), testConfig(srv.URL), nil)
	require.NoError(t, err)

	result, err := client.Initiate(context.Background(), InitiateRequest{
		MerchantTransactionID: "SW-20250902-K3J9QX",
		MerchantUserID:        "user-1",
		AmountPaise:           129900,
		PayerPhone:            "9876543210",
	})
	require.NoError(t, err)
	require.Equal(t, "https://gw.example/pay/abc123", result.RedirectURL)
	require.Equal(t, "SW-20250902-K3J9QX", result.MerchantTransactionID)

	require.Equal(t, "SHELFWISE", gotPayload.MerchantID)
	require.Equal(t, int64(129900), gotPayload.Amount)
	require.Equal(t, "PAY_PAGE", gotPayload.PaymentInstrument.Type)
	require.Equal(t, "REDIRECT", gotPayload.RedirectMode)
}

func TestInitiate_GatewayRejection(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"code":    "INTERNAL_SERVER_ERROR",
			"message": "merchant not onboarded",
		})
	}))
	defer srv.Close()

	client, err := NewClient(context.Background(), testConfig(srv.URL), nil)
	require.NoError(t, err)

	_, err = client.Initiate(context.Background(), InitiateRequest{
		MerchantTransactionID: "SW-20250902-K3J9QX",
		AmountPaise:           100,
	})
	require.ErrorContains(t, err, "merchant not onboarded")
}

func TestInitiate_TimeoutIsFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	client, err := NewClient(context.Background(), cfg, nil)
	require.NoError(t, err)

	_, err = client.Initiate(context.Background(), InitiateRequest{
		MerchantTransactionID: "SW-20250902-K3J9QX",
		AmountPaise:           100,
	})
	require.Error(t, err)
}

func TestInitiate_RejectsNonPositiveAmount(t *testing.T) {
	t.Parallel()

	client, err := NewClient(context.Background(), testConfig("https://gw.example"), nil)
	require.NoError(t, err)

	_, err = client.Initiate(context.Background(), InitiateRequest{
		MerchantTransactionID: "SW-20250902-K3J9QX",
		AmountPaise:           0,
	})
	require.Error(t, err)
}

func encodeCallback(t *testing.T, payload CallbackPayload) string {
	t.Helper()
	raw, err := json.Marshal(callbackBody{Success: true, Code: payload.Code, Data: payload})
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestVerifyCallback(t *testing.T) {
	t.Parallel()

	client, err := NewClient(context.Background(), testConfig("https://gw.example"), nil)
	require.NoError(t, err)

	payload := CallbackPayload{
		MerchantTransactionID: "SW-20250902-K3J9QX",
		TransactionID:         "T2509021812",
		State:                 StateCompleted,
		Code:                  "PAYMENT_SUCCESS",
		Amount:                129900,
	}
	encoded := encodeCallback(t, payload)
	body, err := json.Marshal(map[string]string{"response": encoded})
	require.NoError(t, err)

	got, err := client.VerifyCallback(body, client.SignCallback(encoded))
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestVerifyCallback_RejectsBadSignature(t *testing.T) {
	t.Parallel()

	client, err := NewClient(context.Background(), testConfig("https://gw.example"), nil)
	require.NoError(t, err)

	encoded := encodeCallback(t, CallbackPayload{
		MerchantTransactionID: "SW-20250902-K3J9QX",
		State:                 StateCompleted,
	})
	body, err := json.Marshal(map[string]string{"response": encoded})
	require.NoError(t, err)

	_, err = client.VerifyCallback(body, "deadbeef###1")
	require.True(t, errors.Is(err, ErrSignatureMismatch))
}

func TestVerifyCallback_RejectsMalformedBody(t *testing.T) {
	t.Parallel()

	client, err := NewClient(context.Background(), testConfig("https://gw.example"), nil)
	require.NoError(t, err)

	_, err = client.VerifyCallback([]byte(`not-json`), "sig")
	require.Error(t, err)

	_, err = client.VerifyCallback([]byte(`{"response":""}`), "sig")
	require.Error(t, err)
}
