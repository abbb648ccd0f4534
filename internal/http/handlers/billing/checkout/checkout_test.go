package checkout_test

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

	"github.com/magabrotheeeer/studysnap-backend/internal/http/handlers/billing/checkout"
	"github.com/magabrotheeeer/studysnap-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/studysnap-backend/internal/models"
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
	createCheckoutSessionFunc func(ctx context.Context, user *models.User, plan models.PlanType) (string, error)
}

func (m *mockService) CreateCheckoutSession(ctx context.Context, user *models.User, plan models.PlanType) (string, error) {
	return m.createCheckoutSessionFunc(ctx, user, plan)
}

func postCheckout(t *testing.T, h http.Handler, body string, user *models.User) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = req.WithContext(context.WithValue(req.Context(), middlewarectx.CtxUser, user))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestServeHTTP_Success(t *testing.T) {
	var gotPlan models.PlanType
	svc := &mockService{
		createCheckoutSessionFunc: func(_ context.Context, user *models.User, plan models.PlanType) (string, error) {
			gotPlan = plan
			require.Equal(t, "user-1", user.UID)
			return "https://billing.example.com/session/cs_1", nil
		},
	}
	h := checkout.New(makeLogger(), svc)

	rr := postCheckout(t, h, `{"plan":"yearly"}`, &models.User{UID: "user-1"})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"url":"https://billing.example.com/session/cs_1"}`, rr.Body.String())
	assert.Equal(t, models.PlanYearly, gotPlan)
}

func TestServeHTTP_NoUserInContext(t *testing.T) {
	h := checkout.New(makeLogger(), &mockService{})

	rr := postCheckout(t, h, `{"plan":"monthly"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "login_required")
}

func TestServeHTTP_InvalidPlan(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"unknown plan", `{"plan":"weekly"}`},
		{"empty plan", `{"plan":""}`},
		{"missing plan", `{}`},
		{"broken json", `{plan`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			svc := &mockService{
				createCheckoutSessionFunc: func(context.Context, *models.User, models.PlanType) (string, error) {
					called = true
					return "", nil
				},
			}
			h := checkout.New(makeLogger(), svc)

			rr := postCheckout(t, h, tc.body, &models.User{UID: "user-1"})
			require.Equal(t, http.StatusBadRequest, rr.Code)
			assert.False(t, called)
		})
	}
}

func TestServeHTTP_ProviderError(t *testing.T) {
	svc := &mockService{
		createCheckoutSessionFunc: func(context.Context, *models.User, models.PlanType) (string, error) {
			return "", errors.New("provider unavailable")
		},
	}
	h := checkout.New(makeLogger(), svc)

	rr := postCheckout(t, h, `{"plan":"monthly"}`, &models.User{UID: "user-1"})
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}
