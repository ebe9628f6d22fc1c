package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BileulDevs/spotR-payement/app/bdd"
	"github.com/BileulDevs/spotR-payement/app/config"
	"github.com/BileulDevs/spotR-payement/app/mailer"
	"github.com/BileulDevs/spotR-payement/app/models"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// mockProvider swaps in for the stripe-go implementation. Unset hooks fail
// the call so a test that should never reach the provider catches it.
type mockProvider struct {
	createFn     func(ctx context.Context, params CheckoutParams) (*ProviderSession, error)
	sessionsFn   func(ctx context.Context, paymentIntentID string) ([]ProviderSession, error)
	intentMetaFn func(ctx context.Context, id string) (map[string]string, error)
	updateMetaFn func(ctx context.Context, id string, metadata map[string]string) error

	createdParams []CheckoutParams
	updatedMeta   map[string]map[string]string
}

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*ProviderSession, error) {
	m.createdParams = append(m.createdParams, params)
	if m.createFn == nil {
		return nil, errors.New("unexpected CreateCheckoutSession call")
	}
	return m.createFn(ctx, params)
}

func (m *mockProvider) SessionsByPaymentIntent(ctx context.Context, paymentIntentID string) ([]ProviderSession, error) {
	if m.sessionsFn == nil {
		return nil, errors.New("unexpected SessionsByPaymentIntent call")
	}
	return m.sessionsFn(ctx, paymentIntentID)
}

func (m *mockProvider) PaymentIntentMetadata(ctx context.Context, id string) (map[string]string, error) {
	if m.intentMetaFn == nil {
		return nil, errors.New("unexpected PaymentIntentMetadata call")
	}
	return m.intentMetaFn(ctx, id)
}

func (m *mockProvider) UpdatePaymentIntentMetadata(ctx context.Context, id string, metadata map[string]string) error {
	if m.updatedMeta == nil {
		m.updatedMeta = map[string]map[string]string{}
	}
	m.updatedMeta[id] = metadata
	if m.updateMetaFn == nil {
		return nil
	}
	return m.updateMetaFn(ctx, id, metadata)
}

// bddFixture is an in-memory stand-in for the data service. Handlers are
// keyed by "METHOD /path"; unmatched requests 404.
type bddFixture struct {
	t        *testing.T
	handlers map[string]http.HandlerFunc
	requests []string
}

func newBDDFixture(t *testing.T) (*bddFixture, *bdd.Client) {
	t.Helper()
	f := &bddFixture{t: t, handlers: map[string]http.HandlerFunc{}}
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)
	return f, bdd.NewClient(server.URL)
}

func (f *bddFixture) on(method, path string, h http.HandlerFunc) {
	f.handlers[method+" "+path] = h
}

func (f *bddFixture) onJSON(method, path string, status int, body any) {
	f.on(method, path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})
}

func (f *bddFixture) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	f.requests = append(f.requests, key)
	if h, ok := f.handlers[key]; ok {
		h(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "not found: " + key})
}

func testConfig() *config.Config {
	return &config.Config{
		Port: "3009",
		Stripe: config.StripeConfig{
			SecretKey:     "sk_test_dummy",
			WebhookSecret: "whsec_dummy",
			SuccessURL:    "http://localhost:3009/payement/success",
			CancelURL:     "http://localhost:3009/payement/error",
		},
	}
}

func newTestHandler(t *testing.T, provider *mockProvider) (*PayHandler, *bddFixture) {
	t.Helper()
	fixture, bddClient := newBDDFixture(t)
	mailServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(mailServer.Close)

	h := NewPayHandler(testConfig(), provider, bddClient, mailer.NewClient(mailServer.URL), nil)
	h.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	return h, fixture
}

func performCheckout(h *PayHandler, body string) *httptest.ResponseRecorder {
	router := gin.New()
	router.POST("/api/pay/checkout", h.CreateCheckoutSession)

	req := httptest.NewRequest(http.MethodPost, "/api/pay/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestCreateCheckoutSessionInvalidBody(t *testing.T) {
	provider := &mockProvider{}
	h, fixture := newTestHandler(t, provider)

	resp := performCheckout(h, "{not json")

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if len(fixture.requests) != 0 {
		t.Errorf("expected no BDD calls, got %v", fixture.requests)
	}
}

func TestCreateCheckoutSessionMissingIDs(t *testing.T) {
	provider := &mockProvider{}
	h, fixture := newTestHandler(t, provider)

	resp := performCheckout(h, `{"premiumId":"premium-gold"}`)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var body models.ErrorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Success || body.Error != errMissingIDs {
		t.Errorf("unexpected error body: %+v", body)
	}
	if len(fixture.requests) != 0 {
		t.Errorf("expected no BDD calls, got %v", fixture.requests)
	}
	if len(provider.createdParams) != 0 {
		t.Errorf("expected no provider calls, got %d", len(provider.createdParams))
	}
}

func TestCreateCheckoutSessionSuccess(t *testing.T) {
	provider := &mockProvider{
		createFn: func(_ context.Context, _ CheckoutParams) (*ProviderSession, error) {
			return &ProviderSession{ID: "cs_test_123", URL: "https://checkout.stripe.com/pay/cs_test_123"}, nil
		},
	}
	h, fixture := newTestHandler(t, provider)
	fixture.onJSON(http.MethodGet, "/api/users/user-1", http.StatusOK, models.User{ID: "user-1", Email: "alice@example.com"})
	fixture.onJSON(http.MethodGet, "/api/premium/premium-gold", http.StatusOK, models.Premium{ID: "premium-gold", Title: "Gold", Tarif: 1999})

	resp := performCheckout(h, `{"userId":"user-1","premiumId":"premium-gold","userEmail":"alice@example.com","amount":1}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body models.CheckoutResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !body.Success || body.SessionID != "cs_test_123" || body.URL == "" {
		t.Errorf("unexpected response: %+v", body)
	}

	if len(provider.createdParams) != 1 {
		t.Fatalf("expected one provider call, got %d", len(provider.createdParams))
	}
	params := provider.createdParams[0]
	if params.UnitAmount != 1999 {
		t.Errorf("expected server-side amount 1999, got %d", params.UnitAmount)
	}
	if params.Currency != "eur" {
		t.Errorf("expected default currency eur, got %q", params.Currency)
	}
	if params.ProductName != "Gold" {
		t.Errorf("expected plan title as product name, got %q", params.ProductName)
	}
	wantMeta := map[string]string{
		"userId":    "user-1",
		"premiumId": "premium-gold",
		"duration":  "30",
		"userEmail": "alice@example.com",
	}
	for k, v := range wantMeta {
		if params.Metadata[k] != v {
			t.Errorf("metadata[%s] = %q, want %q", k, params.Metadata[k], v)
		}
	}
	if params.SuccessURL != h.cfg.Stripe.SuccessURL || params.CancelURL != h.cfg.Stripe.CancelURL {
		t.Errorf("redirect URLs not taken from config: %+v", params)
	}
}

func TestCreateCheckoutSessionUpgradeChargesDifference(t *testing.T) {
	provider := &mockProvider{
		createFn: func(_ context.Context, _ CheckoutParams) (*ProviderSession, error) {
			return &ProviderSession{ID: "cs_test_up", URL: "https://checkout.stripe.com/pay/cs_test_up"}, nil
		},
	}
	h, fixture := newTestHandler(t, provider)
	fixture.onJSON(http.MethodGet, "/api/users/user-1", http.StatusOK, models.User{
		ID: "user-1",
		Subscription: &models.Subscription{
			ID:        "sub-1",
			PremiumID: "premium-silver",
			Price:     999,
			Status:    models.StatusActive,
			EndDate:   time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		},
	})
	fixture.onJSON(http.MethodGet, "/api/premium/premium-gold", http.StatusOK, models.Premium{ID: "premium-gold", Title: "Gold", Tarif: 1999})

	resp := performCheckout(h, `{"userId":"user-1","premiumId":"premium-gold"}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if len(provider.createdParams) != 1 || provider.createdParams[0].UnitAmount != 1000 {
		t.Errorf("expected upgrade amount 1000, got %+v", provider.createdParams)
	}
}

func TestCreateCheckoutSessionBDDUnavailable(t *testing.T) {
	provider := &mockProvider{}
	h, fixture := newTestHandler(t, provider)
	fixture.on(http.MethodGet, "/api/users/user-1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	resp := performCheckout(h, `{"userId":"user-1","premiumId":"premium-gold"}`)

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
	if len(provider.createdParams) != 0 {
		t.Errorf("expected no provider calls, got %d", len(provider.createdParams))
	}
}

func TestCreateCheckoutSessionProviderError(t *testing.T) {
	provider := &mockProvider{
		createFn: func(_ context.Context, _ CheckoutParams) (*ProviderSession, error) {
			return nil, errors.New("stripe is down")
		},
	}
	h, fixture := newTestHandler(t, provider)
	fixture.onJSON(http.MethodGet, "/api/users/user-1", http.StatusOK, models.User{ID: "user-1"})
	fixture.onJSON(http.MethodGet, "/api/premium/premium-gold", http.StatusOK, models.Premium{ID: "premium-gold", Title: "Gold", Tarif: 1999})

	resp := performCheckout(h, `{"userId":"user-1","premiumId":"premium-gold"}`)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	var body models.ErrorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Success || body.Error == "" {
		t.Errorf("unexpected error body: %+v", body)
	}
}
