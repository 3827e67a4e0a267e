package server

import (
	"bytes"
	"coin-checkout/internal/auth"
	"coin-checkout/internal/infrastructure/payment"
	"coin-checkout/internal/repo"
	"coin-checkout/internal/service"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret    = "test_secret"
	testAppSecret = "app_secret"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type countingGateway struct {
	*payment.MockGateway
	orderCalls int
}

func (g *countingGateway) CreateOrder(ctx context.Context, req payment.OrderRequest) (*payment.ProviderOrder, error) {
	g.orderCalls++
	return g.MockGateway.CreateOrder(ctx, req)
}

type fixture struct {
	router  *gin.Engine
	gateway *countingGateway
}

func newFixture(t *testing.T, keySecret, authSecret string) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	gw := &countingGateway{MockGateway: payment.NewMockGateway(testSecret, 0)}
	svc := service.NewOrderService(service.Settings{
		KeyID:           "rzp_test_key",
		KeySecret:       keySecret,
		DefaultCurrency: "INR",
		MaxAmount:       decimal.NewFromInt(100000),
		CheckSettlement: true,
	}, gw, repo.NewMemoryOrderRepo(ctx, time.Minute), repo.NewMemoryPaymentRepo(ctx, time.Minute), zap.NewNop())

	return &fixture{
		router: NewRouter(Deps{
			Service:    svc,
			KeyID:      "rzp_test_key",
			AuthSecret: authSecret,
			Logger:     zap.NewNop(),
		}),
		gateway: gw,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestCreateAndVerifyScenario(t *testing.T) {
	f := newFixture(t, testSecret, "")

	rec := f.do(t, http.MethodPost, "/create-order", map[string]any{"amount": 299, "currency": "INR"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode[createOrderResponse](t, rec)
	require.True(t, created.Success)
	require.Equal(t, float64(299), created.Amount)
	require.Equal(t, int64(29900), created.AmountMinor)
	require.Equal(t, "INR", created.Currency)
	require.Equal(t, "rzp_test_key", created.KeyID)
	require.NotEmpty(t, created.Receipt)

	paymentID, sig, err := f.gateway.Pay(created.OrderID)
	require.NoError(t, err)

	rec = f.do(t, http.MethodPost, "/verify-payment", map[string]string{
		"paymentId": paymentID, "orderId": created.OrderID, "signature": sig,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	verified := decode[verifyPaymentResponse](t, rec)
	require.True(t, verified.Success)
	require.True(t, verified.Verified)
	require.Equal(t, paymentID, verified.PaymentID)
	require.Equal(t, created.OrderID, verified.OrderID)
}

func TestVerifyAcceptsCheckoutFieldNames(t *testing.T) {
	f := newFixture(t, testSecret, "")
	rec := f.do(t, http.MethodPost, "/create-order", map[string]any{"amount": 49.99}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	created := decode[createOrderResponse](t, rec)
	require.Equal(t, int64(4999), created.AmountMinor)

	paymentID, sig, err := f.gateway.Pay(created.OrderID)
	require.NoError(t, err)
	rec = f.do(t, http.MethodPost, "/verify-payment", map[string]string{
		"razorpay_payment_id": paymentID, "razorpay_order_id": created.OrderID, "razorpay_signature": sig,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, decode[verifyPaymentResponse](t, rec).Verified)
}

func TestVerifyMissingField(t *testing.T) {
	f := newFixture(t, testSecret, "")
	rec := f.do(t, http.MethodPost, "/verify-payment", map[string]string{"paymentId": "pay_1", "orderId": "order_abc"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[map[string]any](t, rec)
	require.Equal(t, false, body["success"])
	require.Equal(t, "Missing payment verification parameters", body["error"])
}

func TestVerifyBadSignature(t *testing.T) {
	f := newFixture(t, testSecret, "")
	rec := f.do(t, http.MethodPost, "/verify-payment", map[string]string{
		"paymentId": "pay_1", "orderId": "order_abc", "signature": payment.Sign("forged", "order_abc", "pay_1"),
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[verifyPaymentResponse](t, rec)
	require.False(t, body.Success)
	require.False(t, body.Verified)
	require.Equal(t, "Invalid payment signature", body.Error)
	require.NotContains(t, rec.Body.String(), testSecret)
}

func TestMissingSecretIsConfigurationError(t *testing.T) {
	f := newFixture(t, "", "")

	rec := f.do(t, http.MethodPost, "/create-order", map[string]any{"amount": 299}, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[errorResponse](t, rec)
	require.Equal(t, "ConfigurationError", string(body.Kind))
	require.Zero(t, f.gateway.orderCalls)

	rec = f.do(t, http.MethodPost, "/verify-payment", map[string]string{"paymentId": "p", "orderId": "o", "signature": "s"}, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t, testSecret, "")
	for _, body := range []map[string]any{
		{"amount": 0},
		{"amount": -10},
		{"amount": 100000.01},
		{"currency": "INR"},
	} {
		rec := f.do(t, http.MethodPost, "/create-order", body, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
		require.Equal(t, "InvalidAmount", string(decode[errorResponse](t, rec).Kind))
	}
	require.Zero(t, f.gateway.orderCalls)

	req := httptest.NewRequest(http.MethodPost, "/create-order", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreflight(t *testing.T) {
	f := newFixture(t, testSecret, testAppSecret)
	req := httptest.NewRequest(http.MethodOptions, "/create-order", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Body.String())
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSHeaderOnResponses(t *testing.T) {
	f := newFixture(t, testSecret, "")
	rec := f.do(t, http.MethodGet, "/health", nil, http.Header{"Origin": {"https://app.example.com"}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "ok", decode[map[string]any](t, rec)["status"])
}

func TestAppAuth(t *testing.T) {
	f := newFixture(t, testSecret, testAppSecret)

	rec := f.do(t, http.MethodPost, "/create-order", map[string]any{"amount": 10}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/create-order", map[string]any{"amount": 10}, http.Header{"Authorization": {"Bearer garbage"}})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Zero(t, f.gateway.orderCalls)

	token, err := auth.IssueAppToken([]byte(testAppSecret), "web", time.Minute)
	require.NoError(t, err)
	rec = f.do(t, http.MethodPost, "/create-order", map[string]any{"amount": 10}, http.Header{"Authorization": {"Bearer " + token}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// health stays reachable without a token
	rec = f.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := service.NewOrderService(service.Settings{MaxAmount: decimal.NewFromInt(1)}, payment.NewMockGateway("", 0),
		repo.NewMemoryOrderRepo(ctx, time.Minute), repo.NewMemoryPaymentRepo(ctx, time.Minute), zap.NewNop())
	r := NewRouter(Deps{Service: svc, RateRPS: 0.001, RateBurst: 1, Logger: zap.NewNop()})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}
