package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/handler/handlertest"
	"github.com/xenking/storefront/pkg/health"
)

type noopTelemetry struct{}

func (noopTelemetry) TracerProvider() trace.TracerProvider { return tracenoop.NewTracerProvider() }
func (noopTelemetry) MeterProvider() metric.MeterProvider  { return metricnoop.NewMeterProvider() }

const (
	testSecret = "integration-secret"
	testPepper = "integration-pepper"
	testAPIKey = "integration-key"
)

var testTokens = handler.TokenConfig{
	Secret:   []byte(testSecret),
	Issuer:   "storefront",
	Audience: "storefront-api",
}

type testServer struct {
	t     *testing.T
	srv   *httptest.Server
	repos *repositories
}

func newTestServer(t *testing.T, mutate ...func(*Config)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &Config{
		ImageBaseURL: "https://cdn.example.com",
		Storage:      StorageConfig{Driver: DriverMemory},
		Auth: AuthConfig{
			JWTSecret:    testSecret,
			Issuer:       "storefront",
			Audience:     "storefront-api",
			APIKeyPepper: testPepper,
		},
		Payment:   PaymentConfig{DeclineMethods: []string{"DECLINED_CARD"}},
		Orders:    OrdersConfig{ReturnWindow: 336 * time.Hour},
		RateLimit: RateLimitConfig{Max: 1000, Window: time.Minute},
		CORS:      CORSConfig{Origins: []string{"https://shop.example.com"}},
	}
	for _, fn := range mutate {
		fn(cfg)
	}
	require.NoError(t, cfg.Validate())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	repos, err := openStorage(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(repos.close)

	healthSvc := health.New()
	healthSvc.SetReady(true)

	h, err := newHTTPHandler(ctx, zap.NewNop(), noopTelemetry{}, cfg, repos, healthSvc)
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return &testServer{t: t, srv: srv, repos: repos}
}

func (s *testServer) bearer(userID string, roles ...auth.Role) string {
	s.t.Helper()
	return handlertest.Bearer(s.t, testTokens, auth.Identity{UserID: userID, Roles: roles})
}

func (s *testServer) do(method, path string, headers map[string]string, body any) *http.Response {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequestWithContext(context.Background(), method, s.srv.URL+path, &buf)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.srv.Client().Do(req)
	require.NoError(s.t, err)
	s.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func readJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func (s *testServer) seedProduct(id string, price string, stock int) {
	s.t.Helper()
	ctx := context.Background()
	if _, err := s.repos.catalog.GetCategory(ctx, "books"); err != nil {
		require.NoError(s.t, s.repos.catalog.CreateCategory(ctx, &catalog.Category{ID: "books", Name: "Books"}))
	}
	now := time.Now()
	require.NoError(s.t, s.repos.catalog.Create(ctx, &catalog.Product{
		ID:         id,
		Name:       "Product " + id,
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
		CategoryID: "books",
		SellerID:   "seller-1",
		CreatedAt:  now,
		UpdatedAt:  now,
	}))
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/livez", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			resp := s.do(http.MethodGet, path, nil, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "ok", readJSON[map[string]any](t, resp)["status"])
		})
	}
}

func TestServer_RequestID(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(http.MethodGet, "/livez", nil, nil)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp = s.do(http.MethodGet, "/api/products", map[string]string{"X-Request-ID": "custom-request-id-12345"}, nil)
	assert.Equal(t, "custom-request-id-12345", resp.Header.Get("X-Request-ID"))
}

func TestServer_CORS(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(http.MethodOptions, "/api/orders", map[string]string{
		"Origin":                         "https://shop.example.com",
		"Access-Control-Request-Method":  http.MethodPost,
		"Access-Control-Request-Headers": "Authorization",
	}, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://shop.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), handler.APIKeyHeader)

	resp = s.do(http.MethodOptions, "/api/orders", map[string]string{
		"Origin":                        "https://evil.example.com",
		"Access-Control-Request-Method": http.MethodPost,
	}, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_RateLimitSkipsHealth(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.RateLimit.Max = 1 })

	for range 3 {
		resp := s.do(http.MethodGet, "/livez", nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := s.do(http.MethodGet, "/api/products", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = s.do(http.MethodGet, "/api/products", nil, nil)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "ERR_RATE_LIMITED", readJSON[map[string]any](t, resp)["error"])
}

func TestServer_UnknownRoute(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(http.MethodGet, "/api/nope", nil, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "ERR_RESOURCE_NOT_FOUND", readJSON[map[string]any](t, resp)["error"])
}

func TestServer_ProductListing(t *testing.T) {
	s := newTestServer(t)
	s.seedProduct("p1", "12.50", 3)
	s.seedProduct("p2", "7.00", 0)

	resp := s.do(http.MethodGet, "/api/products", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, readJSON[[]map[string]any](t, resp), 2)

	resp = s.do(http.MethodGet, "/api/products/p1", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := readJSON[map[string]any](t, resp)
	assert.Equal(t, "12.50", p["price"])
	assert.Equal(t, float64(3), p["stock"])

	resp = s.do(http.MethodGet, "/api/products/missing", nil, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_APIKeyAdmin(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.repos.apikeys.Create(context.Background(), &auth.APIKeyInfo{
		ID:      "integration",
		KeyHash: auth.HashAPIKey([]byte(testPepper), testAPIKey),
		Name:    "integration",
		Scopes:  []string{string(auth.RoleAdmin)},
	}))

	resp := s.do(http.MethodGet, "/api/admin/orders", map[string]string{handler.APIKeyHeader: testAPIKey}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/admin/orders", map[string]string{handler.APIKeyHeader: "wrong"}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/admin/orders", map[string]string{"Authorization": s.bearer("u1")}, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServer_OrderPlacement(t *testing.T) {
	s := newTestServer(t)
	s.seedProduct("p1", "20.00", 5)
	customer := map[string]string{"Authorization": s.bearer("u1", auth.RoleCustomer)}

	resp := s.do(http.MethodPost, "/api/cart/items", customer, map[string]any{"productId": "p1", "quantity": 3})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodPost, "/api/addresses", customer, map[string]any{
		"recipientName": "Jane Doe",
		"line1":         "1 Main St",
		"city":          "Springfield",
		"postalCode":    "12345",
		"country":       "US",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	addressID := readJSON[map[string]any](t, resp)["id"].(string)

	resp = s.do(http.MethodPost, "/api/orders", customer, map[string]any{
		"shippingAddressId": addressID,
		"paymentMethod":     "card",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	placed := readJSON[map[string]any](t, resp)
	assert.Equal(t, "60.00", placed["total"])
	assert.Equal(t, "PENDING", placed["status"])

	p, err := s.repos.catalog.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock)

	resp = s.do(http.MethodPut, "/api/orders/"+placed["id"].(string)+"/cancel", customer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CANCELLED", readJSON[map[string]any](t, resp)["status"])

	p, err = s.repos.catalog.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
}
