package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel-booking-backend/config"
)

func newTestChapa(t *testing.T, handler http.HandlerFunc) *Chapa {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewChapa(config.PaymentConfig{BaseURL: srv.URL + "/", SecretKey: "CHASECK_TEST", TimeoutSeconds: 5})
}

func TestChapa_Initialize(t *testing.T) {
	t.Run("returns the checkout url", func(t *testing.T) {
		var got map[string]any
		c := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/transaction/initialize", r.URL.Path)
			assert.Equal(t, "Bearer CHASECK_TEST", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"message":"Hosted Link","status":"success","data":{"checkout_url":"https://checkout.chapa.co/checkout/payment/abc"}}`))
		})

		checkout, err := c.Initialize(context.Background(), InitializeRequest{
			TxRef:     "TX-ABCDEF123456",
			Amount:    2300,
			Currency:  "ETB",
			Email:     "abebe@example.com",
			FirstName: "Abebe",
			LastName:  "Kebede",
			ReturnURL: "https://hotel.example/booking/BK-AAAAAAAA/payment/callback",
			Title:     "Hotel Booking Payment",
		})
		require.NoError(t, err)

		assert.Equal(t, "https://checkout.chapa.co/checkout/payment/abc", checkout.CheckoutURL)
		assert.Equal(t, "TX-ABCDEF123456", checkout.Reference)
		assert.Contains(t, string(checkout.Raw), "Hosted Link")

		assert.Equal(t, "2300.00", got["amount"])
		assert.Equal(t, "ETB", got["currency"])
		assert.Equal(t, "TX-ABCDEF123456", got["tx_ref"])
		assert.Equal(t, "Abebe", got["first_name"])
		assert.Equal(t, map[string]any{"title": "Hotel Booking Payment"}, got["customization"])
		assert.NotContains(t, got, "phone_number")
	})

	testCases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "rejected by the gateway", status: http.StatusBadRequest, body: `{"message":"Invalid currency","status":"failed","data":null}`},
		{name: "gateway error", status: http.StatusBadGateway, body: `upstream down`},
		{name: "success without checkout url", status: http.StatusOK, body: `{"message":"ok","status":"success","data":{}}`},
		{name: "not json", status: http.StatusOK, body: `<html></html>`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})

			checkout, err := c.Initialize(context.Background(), InitializeRequest{TxRef: "TX-1", Amount: 1, Currency: "ETB"})
			assert.Error(t, err)
			assert.Nil(t, checkout)
		})
	}
}

func TestChapa_Verify(t *testing.T) {
	testCases := []struct {
		name      string
		status    int
		body      string
		succeeded bool
		reference string
		expectErr bool
	}{
		{
			name:      "settled",
			status:    http.StatusOK,
			body:      `{"message":"Payment details","status":"success","data":{"tx_ref":"TX-1","status":"success","reference":"APabc","amount":2300,"currency":"ETB"}}`,
			succeeded: true,
			reference: "APabc",
		},
		{
			name:   "still pending",
			status: http.StatusOK,
			body:   `{"message":"Payment details","status":"success","data":{"tx_ref":"TX-1","status":"pending"}}`,
		},
		{
			name:      "unknown transaction",
			status:    http.StatusNotFound,
			body:      `{"message":"Invalid transaction or Transaction not found","status":"failed","data":null}`,
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/transaction/verify/TX-1", r.URL.Path)
				assert.Equal(t, "Bearer CHASECK_TEST", r.Header.Get("Authorization"))
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})

			v, err := c.Verify(context.Background(), "TX-1")
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "TX-1", v.TxRef)
			assert.Equal(t, tc.succeeded, v.Succeeded())
			assert.Equal(t, tc.reference, v.Reference)
		})
	}
}

func TestChapa_HonoursContext(t *testing.T) {
	c := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Verify(ctx, "TX-1")
	assert.Error(t, err)
}

func TestValidSignature(t *testing.T) {
	body := []byte(`{"tx_ref":"TX-1","status":"success"}`)
	mac := hmac.New(sha256.New, []byte("whsec"))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, ValidSignature("whsec", body, sig))
	assert.False(t, ValidSignature("other", body, sig))
	assert.False(t, ValidSignature("whsec", []byte(`{}`), sig))
	assert.False(t, ValidSignature("whsec", body, ""))
}
