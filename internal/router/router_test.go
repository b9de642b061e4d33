package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"codstore.dev/storefront/internal/memstore"
	"codstore.dev/storefront/pkg/auth"
	"codstore.dev/storefront/pkg/catalog"
	"codstore.dev/storefront/pkg/global"
	"codstore.dev/storefront/pkg/models"
	"codstore.dev/storefront/pkg/orders"
	"codstore.dev/storefront/pkg/redis"
	"codstore.dev/storefront/pkg/settings"
)

const (
	bootstrapToken = "let-me-in"
	adminEmail     = "admin@example.com"
	adminPassword  = "admin-secret"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

type testServer struct {
	engine   *gin.Engine
	cfg      global.Config
	tokens   *memstore.Tokens
	settings *memstore.Settings
	products *memstore.Products
}

func testConfig() global.Config {
	return global.Config{
		Env:            "test",
		RequestTimeout: 5 * time.Second,
		CORSOrigins:    []string{"http://localhost:3000"},
		PublicBaseURL:  "http://localhost:3000",
		JWTSecret:      "test-secret",
		JWTTTL:         time.Hour,
		AuthCookieName: "storefront_session",
		AuthRateRPS:    100,
		AuthRateBurst:  100,
		MediaMaxBytes:  1 << 20,
	}
}

func newTestServer(t *testing.T, mutate ...func(*global.Config, *Services)) *testServer {
	t.Helper()
	ctx := context.Background()
	cfg := testConfig()
	s := &testServer{
		tokens:   memstore.NewTokens(),
		settings: memstore.NewSettings(models.DefaultSettings()...),
		products: memstore.NewProducts(),
	}

	categories := memstore.NewCategories()
	require.NoError(t, categories.Insert(ctx, &models.Category{Slug: "stationery", Name: "Stationery"}))
	logs := &memstore.InventoryLogs{}
	catalogSvc := catalog.NewService(s.products, categories, memstore.NewProductCache(), logs)
	settingsSvc := settings.NewService(s.settings, memstore.NoCache{})

	authSvc := auth.NewService(
		memstore.NewUsers(),
		s.tokens,
		auth.LogMailer{},
		auth.NewPasswordHasher(bcrypt.MinCost),
		auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL),
		auth.Options{
			PublicBaseURL:  cfg.PublicBaseURL,
			BootstrapToken: bootstrapToken,
			AdminEmail:     adminEmail,
			AdminPassword:  adminPassword,
			AdminName:      "Admin",
		},
	)
	_, err := authSvc.Bootstrap(ctx, bootstrapToken)
	require.NoError(t, err)

	services := Services{
		Auth:     authSvc,
		Catalog:  catalogSvc,
		Settings: settingsSvc,
		Orders: orders.NewService(s.products, memstore.NewOrders(), settingsSvc, memstore.Transactor{}, orders.Options{
			Idempotency: memstore.NewIdempotency(),
			Cache:       catalogSvc,
			Inventory:   logs,
		}),
		Health: map[string]Pinger{"database": fakePinger{}},
	}
	for _, m := range mutate {
		m(&cfg, &services)
	}

	s.cfg = cfg
	s.engine = InitEngine(cfg)
	InitializeRoutes(s.engine, NewHandler(cfg, services))
	return s
}

type requestOption func(*http.Request)

func withToken(token string) requestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withHeader(key, value string) requestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, opts ...requestOption) (*httptest.ResponseRecorder, global.APIResponse) {
	t.Helper()
	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		var err error
		payload, err = json.Marshal(b)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	var resp global.APIResponse
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	rec, resp := s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token, _ := resp.Data.(map[string]interface{})["token"].(string)
	require.NotEmpty(t, token)
	return token
}

// customer registers, verifies and logs in a shopper.
func (s *testServer) customer(t *testing.T, email string) string {
	t.Helper()
	rec, _ := s.do(t, http.MethodPost, "/api/auth/register", gin.H{"name": "Asha", "email": email, "password": "secret123"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec, _ = s.do(t, http.MethodPost, "/api/auth/verify", gin.H{"token": s.tokens.Last(redis.PurposeVerifyEmail)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return s.login(t, email, "secret123")
}

func (s *testServer) createPenBlue(t *testing.T, adminToken string, stock int) {
	t.Helper()
	rec, _ := s.do(t, http.MethodPost, "/api/catalog/products", gin.H{
		"name":      "Pen Blue",
		"slug":      "pen-blue",
		"price":     10,
		"published": true,
		"category":  "stationery",
		"inventory": gin.H{"track": true, "stock": stock},
		"discount":  gin.H{"type": "percentage", "value": 20, "active": true},
	}, withToken(adminToken))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func orderBody(qty int) gin.H {
	return gin.H{
		"items":            []gin.H{{"slug": "pen-blue", "quantity": qty}},
		"delivery_address": "12 MG Road, Bengaluru",
		"phone":            "9876543210",
		"delivery_fee":     50,
	}
}

func fieldNames(resp global.APIResponse) []string {
	names := make([]string, len(resp.Errors))
	for i, e := range resp.Errors {
		names[i] = e.Field
	}
	return names
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	rec, resp := s.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Connected", resp.Data.(map[string]interface{})["database"])

	s = newTestServer(t, func(cfg *global.Config, svc *Services) {
		svc.Health["cache"] = fakePinger{err: errors.New("dial tcp: connection refused")}
	})
	rec, resp = s.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "Degraded", data["status"])
	assert.Equal(t, "Unavailable", data["cache"])
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.do(t, http.MethodGet, "/api/health", nil, withHeader("X-Request-ID", "req-42"))
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	rec, _ = s.do(t, http.MethodGet, "/api/health", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	body := gin.H{"name": "Asha", "email": "Asha@Example.com", "password": "secret123"}

	rec, resp := s.do(t, http.MethodPost, "/api/auth/register", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := resp.Data.(map[string]interface{})
	assert.Equal(t, "asha@example.com", user["email"])
	assert.NotContains(t, user, "password_hash")

	rec, resp = s.do(t, http.MethodPost, "/api/auth/register", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "email_taken", resp.Code)

	rec, resp = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "asha@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "email_not_verified", resp.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/auth/verify", gin.H{"token": s.tokens.Last(redis.PurposeVerifyEmail)})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "asha@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid email or password", resp.Message)

	rec, _ = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "asha@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == s.cfg.AuthCookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, 3600, session.MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.AddCookie(&http.Cookie{Name: s.cfg.AuthCookieName, Value: session.Value})
	rec = httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "asha@example.com")

	rec, _ = s.do(t, http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestAuth_ResendAndForgotDoNotRevealAccounts(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/auth/resend", "/api/auth/forgot"} {
		rec, resp := s.do(t, http.MethodPost, path, gin.H{"email": "nobody@example.com"})
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.True(t, resp.Success, path)
	}
}

func TestProtectedRoutes(t *testing.T) {
	s := newTestServer(t)
	userToken := s.customer(t, "asha@example.com")
	adminToken := s.login(t, adminEmail, adminPassword)

	rec, resp := s.do(t, http.MethodGet, "/api/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", resp.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/profile", nil, withToken("not-a-jwt"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/profile", nil, withToken(userToken))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp = s.do(t, http.MethodGet, "/api/admin/orders", nil, withToken(userToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "admin_required", resp.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/catalog/categories", gin.H{"name": "Toys"}, withToken(userToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/admin/orders", nil, withToken(adminToken))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-Total-Count"))

	// Public routes ignore a bad token instead of rejecting it.
	rec, _ = s.do(t, http.MethodGet, "/api/catalog/products", nil, withToken("not-a-jwt"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBootstrapAdmin(t *testing.T) {
	s := newTestServer(t)

	rec, resp := s.do(t, http.MethodPost, "/api/admin/bootstrap", nil, withHeader("X-Admin-Bootstrap-Token", "guess"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "invalid_bootstrap_token", resp.Code)

	rec, resp = s.do(t, http.MethodPost, "/api/admin/bootstrap", nil, withHeader("X-Admin-Bootstrap-Token", bootstrapToken))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "admin_exists", resp.Code)
}

func TestBindErrors(t *testing.T) {
	s := newTestServer(t)

	rec, resp := s.do(t, http.MethodPost, "/api/auth/register", gin.H{"email": "not-an-email", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", resp.Code)
	assert.ElementsMatch(t, []string{"name", "email", "password"}, fieldNames(resp))

	rec, resp = s.do(t, http.MethodPost, "/api/auth/login", `{"email": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "json_parse_error", resp.Errors[0].Code)

	token := s.customer(t, "asha@example.com")
	rec, resp = s.do(t, http.MethodPost, "/api/orders", gin.H{
		"items":            []gin.H{{"slug": "pen-blue", "quantity": 0}},
		"delivery_address": "12 MG Road",
		"phone":            "9876543210",
	}, withToken(token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, fieldNames(resp), "items[0].quantity")

	rec, resp = s.do(t, http.MethodPost, "/api/orders", gin.H{"items": "pen-blue"}, withToken(token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, fieldNames(resp), "items")
}

func TestCheckout(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.login(t, adminEmail, adminPassword)
	s.createPenBlue(t, adminToken, 10)
	userToken := s.customer(t, "asha@example.com")

	rec, resp := s.do(t, http.MethodPost, "/api/cart/quote", gin.H{"items": []gin.H{{"slug": "pen-blue", "quantity": 3}}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "74.00", resp.Data.(map[string]interface{})["display_total"])

	key := withHeader("Idempotency-Key", "checkout-1")
	rec, resp = s.do(t, http.MethodPost, "/api/orders", orderBody(3), withToken(userToken), key)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := resp.Data.(map[string]interface{})
	assert.Equal(t, "74.00", order["display_total"])
	assert.Equal(t, "24.00", order["display_subtotal"])
	assert.Equal(t, "placed", order["status"])
	assert.Equal(t, 7, s.products.Stock("pen-blue"))
	id, _ := order["id"].(string)
	require.NotEmpty(t, id)

	rec, resp = s.do(t, http.MethodPost, "/api/orders", orderBody(3), withToken(userToken), key)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "true", rec.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, id, resp.Data.(map[string]interface{})["id"])
	assert.Equal(t, 7, s.products.Stock("pen-blue"))

	rec, _ = s.do(t, http.MethodGet, "/api/orders/"+id, nil, withToken(userToken))
	assert.Equal(t, http.StatusOK, rec.Code)

	otherToken := s.customer(t, "ravi@example.com")
	rec, _ = s.do(t, http.MethodGet, "/api/orders/"+id, nil, withToken(otherToken))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/profile/orders", nil, withToken(userToken))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Total-Count"))

	rec, resp = s.do(t, http.MethodPut, "/api/admin/orders/"+id+"/status", gin.H{"status": "confirmed"}, withToken(adminToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "confirmed", resp.Data.(map[string]interface{})["status"])
}

func TestCheckout_BusinessErrors(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.login(t, adminEmail, adminPassword)
	s.createPenBlue(t, adminToken, 1)
	userToken := s.customer(t, "asha@example.com")

	rec, resp := s.do(t, http.MethodPost, "/api/orders", orderBody(2), withToken(userToken))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "insufficient_stock", resp.Code)
	assert.Equal(t, "pen-blue", resp.Details["slug"])
	assert.Equal(t, 1.0, resp.Details["available"])
	assert.Equal(t, 1, s.products.Stock("pen-blue"))

	rec, _ = s.do(t, http.MethodPut, "/api/admin/settings/minimum_order_value", gin.H{"value": 100}, withToken(adminToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, resp = s.do(t, http.MethodPost, "/api/orders", orderBody(1), withToken(userToken))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "minimum_order_not_met", resp.Code)
	assert.Equal(t, 100.0, resp.Details["minimum"])
	assert.Equal(t, 1, s.products.Stock("pen-blue"))

	rec, resp = s.do(t, http.MethodPut, "/api/admin/settings/currency", gin.H{"value": "USD"}, withToken(adminToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "setting_not_editable", resp.Code)
}

func TestCatalog_UnpublishedVisibleToAdminOnly(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.login(t, adminEmail, adminPassword)
	s.createPenBlue(t, adminToken, 5)

	rec, _ := s.do(t, http.MethodPut, "/api/catalog/products/pen-blue", gin.H{"published": false}, withToken(adminToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = s.do(t, http.MethodGet, "/api/catalog/products/pen-blue", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = s.do(t, http.MethodGet, "/api/catalog/products/pen-blue", nil, withToken(adminToken))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/catalog/products", nil)
	assert.Equal(t, "0", rec.Header().Get("X-Total-Count"))
	rec, _ = s.do(t, http.MethodGet, "/api/catalog/products?published=false", nil, withToken(adminToken))
	assert.Equal(t, "1", rec.Header().Get("X-Total-Count"))

	rec, resp := s.do(t, http.MethodGet, "/api/catalog/products?published=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"published"}, fieldNames(resp))
}

func TestPublicSettingsHideInternalKeys(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.do(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), models.KeyDeliveryFee)
	assert.NotContains(t, rec.Body.String(), models.KeyOrderNotificationEmail)
}

func TestMediaAndReportsDisabled(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.login(t, adminEmail, adminPassword)

	rec, resp := s.do(t, http.MethodGet, "/api/media/sha256:abc/url", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "media_disabled", resp.Code)

	rec, resp = s.do(t, http.MethodGet, "/api/admin/analytics/ai/sales-report", nil, withToken(adminToken))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "reports_disabled", resp.Code)
}

func TestRateLimiter(t *testing.T) {
	engine := gin.New()
	engine.Use(NewRateLimiter(1, 2).Middleware())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, hit("192.0.2.1:1234").Code, "within burst")
	}
	rec := hit("192.0.2.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limited")

	assert.Equal(t, http.StatusOK, hit("192.0.2.2:1234").Code, "other clients keep their own bucket")
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	s := newTestServer(t, func(cfg *global.Config, svc *Services) {
		cfg.AuthRateRPS, cfg.AuthRateBurst = 1, 1
	})
	body := gin.H{"email": "nobody@example.com", "password": "whatever"}
	rec, _ := s.do(t, http.MethodPost, "/api/auth/login", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = s.do(t, http.MethodPost, "/api/auth/login", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
