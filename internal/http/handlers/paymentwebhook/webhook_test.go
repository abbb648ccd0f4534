package paymentwebhook_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/studysnap-backend/internal/http/handlers/paymentwebhook"
	"github.com/magabrotheeeer/studysnap-backend/internal/paymentprovider"
)

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }

func makeLogger() *slog.Logger {
	return slog.New(discardHandler{})
}

type mockService struct {
	processEventFunc func(ctx context.Context, event *paymentprovider.Event) error
	calls            int
}

func (m *mockService) ProcessEvent(ctx context.Context, event *paymentprovider.Event) error {
	m.calls++
	if m.processEventFunc != nil {
		return m.processEventFunc(ctx, event)
	}
	return nil
}

const secret = "whsec_test"

func postWebhook(t *testing.T, h http.Handler, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Signature", signature)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestServeHTTP_ValidSignature(t *testing.T) {
	svc := &mockService{}
	h := paymentwebhook.New(makeLogger(), svc, secret)

	body := []byte(`{"id":"evt_1","type":"customer.subscription.updated","data":{"object":{"id":"sub_1"}}}`)
	rr := postWebhook(t, h, body, paymentprovider.SignBody(secret, body))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"received":true}`, rr.Body.String())
	assert.Equal(t, 1, svc.calls)
}

func TestServeHTTP_RejectsBadSignature(t *testing.T) {
	body := []byte(`{"id":"evt_1","type":"customer.subscription.updated","data":{"object":{"id":"sub_1"}}}`)

	cases := []struct {
		name      string
		signature string
	}{
		{"missing signature", ""},
		{"garbage signature", "not-a-signature"},
		{"signature for different body", paymentprovider.SignBody(secret, []byte(`{"id":"evt_other"}`))},
		{"signature with different secret", paymentprovider.SignBody("whsec_wrong", body)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockService{}
			h := paymentwebhook.New(makeLogger(), svc, secret)

			rr := postWebhook(t, h, body, tc.signature)

			require.Equal(t, http.StatusBadRequest, rr.Code)
			// До валидной подписи редьюсер не вызывается.
			assert.Zero(t, svc.calls)
		})
	}
}

func TestServeHTTP_TamperedBodyRejected(t *testing.T) {
	body := []byte(`{"id":"evt_1","type":"customer.subscription.deleted","data":{"object":{"id":"sub_1"}}}`)
	signature := paymentprovider.SignBody(secret, body)
	tampered := bytes.Replace(body, []byte("sub_1"), []byte("sub_2"), 1)

	svc := &mockService{}
	h := paymentwebhook.New(makeLogger(), svc, secret)

	rr := postWebhook(t, h, tampered, signature)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Zero(t, svc.calls)
}

func TestServeHTTP_InvalidPayload(t *testing.T) {
	body := []byte(`{not json`)
	svc := &mockService{}
	h := paymentwebhook.New(makeLogger(), svc, secret)

	rr := postWebhook(t, h, body, paymentprovider.SignBody(secret, body))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Zero(t, svc.calls)
}

func TestServeHTTP_ProcessingFailureReturns500(t *testing.T) {
	svc := &mockService{
		processEventFunc: func(context.Context, *paymentprovider.Event) error {
			return errors.New("storage unavailable")
		},
	}
	h := paymentwebhook.New(makeLogger(), svc, secret)

	body := []byte(`{"id":"evt_1","type":"invoice.payment_succeeded","data":{"object":{"id":"in_1","subscription":"sub_1"}}}`)
	rr := postWebhook(t, h, body, paymentprovider.SignBody(secret, body))

	// 500 заставляет провайдера доставить событие повторно.
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestServeHTTP_UnknownEventAcknowledged(t *testing.T) {
	svc := &mockService{}
	h := paymentwebhook.New(makeLogger(), svc, secret)

	body := []byte(`{"id":"evt_1","type":"charge.refunded","data":{"object":{"id":"ch_1"}}}`)
	rr := postWebhook(t, h, body, paymentprovider.SignBody(secret, body))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, svc.calls)
}
