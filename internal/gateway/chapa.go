// Package gateway talks to the Chapa payment gateway.
package gateway

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
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"hotel-booking-backend/config"
)

// StatusSuccess is the status Chapa reports for a settled transaction.
const StatusSuccess = "success"

// Gateway is the contract the payment flow needs from a payment provider.
type Gateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (*Checkout, error)
	Verify(ctx context.Context, txRef string) (*Verification, error)
}

// InitializeRequest opens a hosted checkout for one payment.
type InitializeRequest struct {
	TxRef       string
	Amount      float64
	Currency    string
	Email       string
	FirstName   string
	LastName    string
	Phone       string
	CallbackURL string
	ReturnURL   string
	Title       string
	Description string
}

// Checkout is the hosted payment page returned by Initialize.
type Checkout struct {
	CheckoutURL string
	Reference   string
	Raw         json.RawMessage
}

// Verification is the gateway's view of a transaction.
type Verification struct {
	TxRef     string
	Status    string
	Reference string
	Amount    float64
	Currency  string
	Raw       json.RawMessage
}

// Succeeded reports whether the gateway settled the transaction.
func (v *Verification) Succeeded() bool {
	return v.Status == StatusSuccess
}

// Chapa is an HTTP client for the Chapa API.
type Chapa struct {
	baseURL string
	secret  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewChapa creates a client from the payment configuration.
func NewChapa(cfg config.PaymentConfig) *Chapa {
	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}
	return &Chapa{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		secret:  cfg.SecretKey,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		limiter: rate.NewLimiter(limit, 1),
	}
}

type envelope struct {
	Message string          `json:"message"`
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
}

type customization struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

type initializeBody struct {
	Amount        string        `json:"amount"`
	Currency      string        `json:"currency"`
	Email         string        `json:"email,omitempty"`
	FirstName     string        `json:"first_name,omitempty"`
	LastName      string        `json:"last_name,omitempty"`
	PhoneNumber   string        `json:"phone_number,omitempty"`
	TxRef         string        `json:"tx_ref"`
	CallbackURL   string        `json:"callback_url,omitempty"`
	ReturnURL     string        `json:"return_url,omitempty"`
	Customization customization `json:"customization"`
}

// Initialize creates a hosted checkout. Any non-2xx answer is an error.
func (c *Chapa) Initialize(ctx context.Context, req InitializeRequest) (*Checkout, error) {
	body, err := json.Marshal(initializeBody{
		Amount:        fmt.Sprintf("%.2f", req.Amount),
		Currency:      req.Currency,
		Email:         req.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		PhoneNumber:   req.Phone,
		TxRef:         req.TxRef,
		CallbackURL:   req.CallbackURL,
		ReturnURL:     req.ReturnURL,
		Customization: customization{Title: req.Title, Description: req.Description},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode initialize request: %w", err)
	}

	raw, env, err := c.do(ctx, http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize transaction %s: %w", req.TxRef, err)
	}

	var data struct {
		CheckoutURL string `json:"checkout_url"`
		TxRef       string `json:"tx_ref"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.CheckoutURL == "" {
		return nil, fmt.Errorf("initialize transaction %s: response has no checkout url", req.TxRef)
	}
	ref := data.TxRef
	if ref == "" {
		ref = req.TxRef
	}
	return &Checkout{CheckoutURL: data.CheckoutURL, Reference: ref, Raw: raw}, nil
}

// Verify asks Chapa for the current state of a transaction.
func (c *Chapa) Verify(ctx context.Context, txRef string) (*Verification, error) {
	raw, env, err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(txRef), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to verify transaction %s: %w", txRef, err)
	}

	var data struct {
		TxRef     string  `json:"tx_ref"`
		Status    string  `json:"status"`
		Reference string  `json:"reference"`
		Amount    float64 `json:"amount"`
		Currency  string  `json:"currency"`
	}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("failed to decode verification of %s: %w", txRef, err)
		}
	}
	if data.TxRef == "" {
		data.TxRef = txRef
	}
	return &Verification{
		TxRef:     data.TxRef,
		Status:    data.Status,
		Reference: data.Reference,
		Amount:    data.Amount,
		Currency:  data.Currency,
		Raw:       raw,
	}, nil
}

func (c *Chapa) do(ctx context.Context, method, path string, body []byte) (json.RawMessage, *envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return raw, &env, nil
}

// ValidSignature checks a webhook body against the hex HMAC-SHA256 signature
// Chapa sends, keyed with the webhook secret.
func ValidSignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}
