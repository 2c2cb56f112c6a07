package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anandkp/shelfwise-backend/pkg/config"
	"github.com/anandkp/shelfwise-backend/pkg/logger"
)

const (
	payEndpointPath = "/pg/v1/pay"

	// States reported by the gateway on the asynchronous callback.
	StateCompleted = "PAYMENT_SUCCESS"
	StateFailed    = "PAYMENT_ERROR"
	StatePending   = "PAYMENT_PENDING"
)

var (
	errBaseURLRequired    = errors.New("gateway base url is required")
	errMerchantIDRequired = errors.New("gateway merchant id is required")
	errSaltKeyRequired    = errors.New("gateway salt key is required")

	// ErrSignatureMismatch marks a callback whose X-VERIFY header does
	// not match the recomputed digest.
	ErrSignatureMismatch = errors.New("gateway signature mismatch")
)

// Client talks to the redirect-based payment gateway. Requests are
// authenticated with a salted SHA-256 digest over the base64 payload
// plus the endpoint path; the signature must be reproduced byte-exact.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	merchantID  string
	saltKey     string
	saltIndex   string
	redirectURL string
	callbackURL string
}

// NewClient validates the gateway configuration and builds the client.
func NewClient(ctx context.Context, cfg config.GatewayConfig, logg *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	merchantID := strings.TrimSpace(cfg.MerchantID)
	if merchantID == "" {
		return nil, errMerchantIDRequired
	}
	saltKey := strings.TrimSpace(cfg.SaltKey)
	if saltKey == "" {
		return nil, errSaltKeyRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("payment gateway client initialized (merchant %s)", merchantID))
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		merchantID:  merchantID,
		saltKey:     saltKey,
		saltIndex:   strings.TrimSpace(cfg.SaltIndex),
		redirectURL: cfg.RedirectURL,
		callbackURL: cfg.CallbackURL,
	}, nil
}

// InitiateRequest is the merchant-side view of a pay-page request.
// AmountPaise must come from integer order components.
type InitiateRequest struct {
	MerchantTransactionID string
	MerchantUserID        string
	AmountPaise           int64
	PayerPhone            string
}

// InitiateResult carries the redirect URL handed back to the buyer.
type InitiateResult struct {
	RedirectURL           string
	MerchantTransactionID string
}

// payPayload is the wire shape of the signed request body. Field order
// is fixed; the signature is computed over this exact encoding.
type payPayload struct {
	MerchantID            string        `json:"merchantId"`
	MerchantTransactionID string        `json:"merchantTransactionId"`
	MerchantUserID        string        `json:"merchantUserId"`
	Amount                int64         `json:"amount"`
	RedirectURL           string        `json:"redirectUrl"`
	RedirectMode          string        `json:"redirectMode"`
	CallbackURL           string        `json:"callbackUrl"`
	MobileNumber          string        `json:"mobileNumber"`
	PaymentInstrument     payInstrument `json:"paymentInstrument"`
}

type payInstrument struct {
	Type string `json:"type"`
}

type payResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MerchantTransactionID string `json:"merchantTransactionId"`
		InstrumentResponse    struct {
			RedirectInfo struct {
				URL string `json:"url"`
			} `json:"redirectInfo"`
		} `json:"instrumentResponse"`
	} `json:"data"`
}

// CallbackPayload is the decoded body of an asynchronous gateway callback.
type CallbackPayload struct {
	MerchantTransactionID string `json:"merchantTransactionId"`
	TransactionID         string `json:"transactionId"`
	State                 string `json:"state"`
	Code                  string `json:"code"`
	Amount                int64  `json:"amount"`
}

type callbackEnvelope struct {
	Response string `json:"response"`
}

type callbackBody struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    CallbackPayload `json:"data"`
}

// Initiate posts a signed pay-page request and returns the redirect URL.
// A timeout or transport error is a failure; the caller must not assume
// the gateway accepted the request.
func (c *Client) Initiate(ctx context.Context, req InitiateRequest) (InitiateResult, error) {
	if req.MerchantTransactionID == "" {
		return InitiateResult{}, errors.New("merchant transaction id is required")
	}
	if req.AmountPaise <= 0 {
		return InitiateResult{}, fmt.Errorf("amount must be positive, got %d", req.AmountPaise)
	}

	payload := payPayload{
		MerchantID:            c.merchantID,
		MerchantTransactionID: req.MerchantTransactionID,
		MerchantUserID:        req.MerchantUserID,
		Amount:                req.AmountPaise,
		RedirectURL:           c.redirectURL,
		RedirectMode:          "REDIRECT",
		CallbackURL:           c.callbackURL,
		MobileNumber:          req.PayerPhone,
		PaymentInstrument:     payInstrument{Type: "PAY_PAGE"},
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return InitiateResult{}, fmt.Errorf("encoding pay payload: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)

	body, err := json.Marshal(map[string]string{"request": encoded})
	if err != nil {
		return InitiateResult{}, fmt.Errorf("encoding request envelope: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+payEndpointPath, bytes.NewReader(body))
	if err != nil {
		return InitiateResult{}, fmt.Errorf("building pay request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-VERIFY", c.SignRequest(encoded, payEndpointPath))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return InitiateResult{}, fmt.Errorf("calling gateway: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return InitiateResult{}, fmt.Errorf("reading gateway response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return InitiateResult{}, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var decoded payResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return InitiateResult{}, fmt.Errorf("decoding gateway response: %w", err)
	}
	if !decoded.Success {
		return InitiateResult{}, fmt.Errorf("gateway rejected request: %s (%s)", decoded.Message, decoded.Code)
	}

	redirectURL := decoded.Data.InstrumentResponse.RedirectInfo.URL
	if redirectURL == "" {
		return InitiateResult{}, errors.New("gateway response missing redirect url")
	}

	mtID := decoded.Data.MerchantTransactionID
	if mtID == "" {
		mtID = req.MerchantTransactionID
	}

	return InitiateResult{RedirectURL: redirectURL, MerchantTransactionID: mtID}, nil
}

// SignRequest computes the gateway request signature:
//
//	hex(sha256(base64Payload + path + saltKey)) + "###" + saltIndex
func (c *Client) SignRequest(encodedPayload, path string) string {
	sum := sha256.Sum256([]byte(encodedPayload + path + c.saltKey))
	return hex.EncodeToString(sum[:]) + "###" + c.saltIndex
}

// SignCallback computes the signature expected on a callback body:
//
//	hex(sha256(base64Response + saltKey)) + "###" + saltIndex
func (c *Client) SignCallback(encodedResponse string) string {
	sum := sha256.Sum256([]byte(encodedResponse + c.saltKey))
	return hex.EncodeToString(sum[:]) + "###" + c.saltIndex
}

// VerifyCallback checks the X-VERIFY header against the raw callback body
// and, when valid, decodes the payload. Nothing in the body may be
// trusted before this check passes.
func (c *Client) VerifyCallback(rawBody []byte, signatureHeader string) (CallbackPayload, error) {
	var envelope callbackEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return CallbackPayload{}, fmt.Errorf("decoding callback envelope: %w", err)
	}
	if envelope.Response == "" {
		return CallbackPayload{}, errors.New("callback envelope missing response")
	}

	expected := c.SignCallback(envelope.Response)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(signatureHeader)) != 1 {
		return CallbackPayload{}, ErrSignatureMismatch
	}

	decoded, err := base64.StdEncoding.DecodeString(envelope.Response)
	if err != nil {
		return CallbackPayload{}, fmt.Errorf("decoding callback response: %w", err)
	}

	var body callbackBody
	if err := json.Unmarshal(decoded, &body); err != nil {
		return CallbackPayload{}, fmt.Errorf("decoding callback body: %w", err)
	}
	if body.Data.MerchantTransactionID == "" {
		return CallbackPayload{}, errors.New("callback missing merchant transaction id")
	}

	return body.Data, nil
}
