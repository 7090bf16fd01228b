package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tooldashai/tooldash/app/models"
	"github.com/tooldashai/tooldash/internal/pkg/billing"
	"github.com/tooldashai/tooldash/internal/pkg/metrics/counter"
	"github.com/tooldashai/tooldash/internal/pkg/usercontext"
)

const testWebhookSecret = "whsec"

type recordingDispatcher struct {
	mu     sync.Mutex
	events []int64
	proc   *billing.Processor
}

func (d *recordingDispatcher) DispatchWebhookEvent(ctx context.Context, eventID int64, eventName string) {
	d.mu.Lock()
	d.events = append(d.events, eventID)
	d.mu.Unlock()
	if d.proc != nil {
		_ = d.proc.Process(ctx, eventID)
	}
}

type stubCheckoutClient struct {
	url string
	err error
}

func (s stubCheckoutClient) CreateCheckout(ctx context.Context, in billing.CheckoutRequest) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

type testEnv struct {
	app        *fiber.App
	db         *gorm.DB
	repo       billing.Repository
	dispatcher *recordingDispatcher
	controller *BillingController
	user       *models.User
}

func testBillingConfig() billing.Config {
	return billing.Config{
		APIKey:        "key",
		APIURL:        "http://lemon.invalid",
		StoreID:       "1",
		VariantID:     "2",
		WebhookSecret: testWebhookSecret,
		WebhookURL:    "https://app.example/webhooks/lemonsqueezy",
		StoreStatus:   billing.StoreStatusApproved,
		TestMode:      true,
		RedirectURL:   "https://app.example",
	}
}

func newTestEnv(t *testing.T, cfg billing.Config, client billing.CheckoutClient) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.WebhookEvent{}))

	user, err := models.NewUser("buyer@example.com")
	require.NoError(t, err)
	require.NoError(t, db.Create(user).Error)

	repo := billing.NewRepository(db)
	svc := billing.NewService(repo, cfg, client)
	dispatcher := &recordingDispatcher{proc: billing.NewProcessor(repo)}
	bc := NewBillingController(svc, dispatcher)

	app := fiber.New()
	app.Post("/webhooks/lemonsqueezy", bc.HandleLemonSqueezyWebhook)
	app.Get("/api/v1/pricing", bc.HandlePricing)
	app.Get("/api/v1/pricing/tiers", bc.HandlePricingTiers)

	authed := app.Group("/api/v1", func(c *fiber.Ctx) error {
		usercontext.SetUserContext(c, usercontext.UserContext{UserID: user.ID, Email: user.Email, IsLoggedIn: true})
		return c.Next()
	})
	authed.Post("/checkout", bc.HandleCreateCheckout)
	authed.Get("/store-status", bc.HandleStoreStatus)
	authed.Get("/credits", bc.HandleCredits)

	app.Get("/metrics/billing", bc.HandleCounters)

	return &testEnv{app: app, db: db, repo: repo, dispatcher: dispatcher, controller: bc, user: user}
}

func (e *testEnv) postWebhook(t *testing.T, body []byte, signature string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/lemonsqueezy", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(billing.SignatureHeader, signature)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(out)
}

func orderBody(userID uint, credits int) []byte {
	return []byte(fmt.Sprintf(`{"meta":{"event_name":"order_created","custom_data":{"user_id":"%d","credits":"%d"}},"data":{"id":"1","type":"orders"}}`, userID, credits))
}

func TestHandleLemonSqueezyWebhook_CreditsUserOnce(t *testing.T) {
	env := newTestEnv(t, testBillingConfig(), stubCheckoutClient{})
	body := orderBody(env.user.ID, 100)
	sig := billing.SignWebhookPayload(body, testWebhookSecret)

	status, text := env.postWebhook(t, body, sig)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "OK", text)

	// provider retry of the same delivery
	status, _ = env.postWebhook(t, body, sig)
	assert.Equal(t, fiber.StatusOK, status)

	assert.Len(t, env.dispatcher.events, 1)

	var count int64
	require.NoError(t, env.db.Model(&models.WebhookEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	user, err := env.repo.GetUser(env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 110, user.Credits)
}

func TestHandleLemonSqueezyWebhook_InvalidSignature(t *testing.T) {
	env := newTestEnv(t, testBillingConfig(), stubCheckoutClient{})
	body := orderBody(env.user.ID, 100)

	status, _ := env.postWebhook(t, body, billing.SignWebhookPayload(body, "wrong"))
	assert.Equal(t, fiber.StatusInternalServerError, status)

	var count int64
	require.NoError(t, env.db.Model(&models.WebhookEvent{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, env.dispatcher.events)
}

func TestHandleLemonSqueezyWebhook_InvalidData(t *testing.T) {
	env := newTestEnv(t, testBillingConfig(), stubCheckoutClient{})

	for _, body := range [][]byte{[]byte(`not json`), []byte(`{"data":{}}`)} {
		status, text := env.postWebhook(t, body, billing.SignWebhookPayload(body, testWebhookSecret))
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, "Data invalid", text)
	}
	assert.Empty(t, env.dispatcher.events)
}

func TestHandleLemonSqueezyWebhook_MissingSecret(t *testing.T) {
	cfg := testBillingConfig()
	cfg.WebhookSecret = ""
	env := newTestEnv(t, cfg, stubCheckoutClient{})
	body := orderBody(env.user.ID, 100)

	status, text := env.postWebhook(t, body, billing.SignWebhookPayload(body, testWebhookSecret))
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "Lemon Squeezy Webhook Secret not set in .env", text)
}

func TestHandleLemonSqueezyWebhook_UnknownUserRecordsError(t *testing.T) {
	env := newTestEnv(t, testBillingConfig(), stubCheckoutClient{})
	body := orderBody(42, 100)

	status, _ := env.postWebhook(t, body, billing.SignWebhookPayload(body, testWebhookSecret))
	require.Equal(t, fiber.StatusOK, status)

	event, err := env.repo.GetWebhookEvent(billing.WebhookEventID(body))
	require.NoError(t, err)
	assert.True(t, event.Processed)
	assert.Equal(t, "User with ID 42 not found", event.ProcessingErrorText())
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestHandleCreateCheckout(t *testing.T) {
	env := newTestEnv(t, testBillingConfig(), stubCheckoutClient{url: "https://shop.example/c/1"})

	status, body := doJSON(t, env.app, http.MethodPost, "/api/v1/checkout", fiber.Map{"credits": 1500})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "https://shop.example/c/1", body["url"])
}

func TestHandleCreateCheckout_Errors(t *testing.T) {
	pending := testBillingConfig()
	pending.StoreStatus = billing.StoreStatusPending

	unconfigured := testBillingConfig()
	unconfigured.APIKey = ""

	tests := []struct {
		name   string
		cfg    billing.Config
		client billing.CheckoutClient
		body   interface{}
		status int
		code   string
	}{
		{name: "missing credits", cfg: testBillingConfig(), client: stubCheckoutClient{}, body: fiber.Map{}, status: fiber.StatusBadRequest, code: "invalid_request"},
		{name: "below minimum", cfg: testBillingConfig(), client: stubCheckoutClient{}, body: fiber.Map{"credits": 10}, status: fiber.StatusBadRequest, code: "invalid_request"},
		{name: "store pending", cfg: pending, client: stubCheckoutClient{}, body: fiber.Map{"credits": 100}, status: fiber.StatusForbidden, code: "store_unavailable"},
		{name: "not configured", cfg: unconfigured, client: stubCheckoutClient{}, body: fiber.Map{"credits": 100}, status: fiber.StatusInternalServerError, code: "internal_server_error"},
		{name: "provider rejects", cfg: testBillingConfig(), client: stubCheckoutClient{err: fmt.Errorf("%w: status=422", billing.ErrUpstream)}, body: fiber.Map{"credits": 100}, status: fiber.StatusBadGateway, code: "payment_provider_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.cfg, tt.client)
			status, body := doJSON(t, env.app, http.MethodPost, "/api/v1/checkout", tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body["error"])
		})
	}
}

func TestHandleCreateCheckout_StorePendingMessage(t *testing.T) {
	cfg := testBillingConfig()
	cfg.StoreStatus = billing.StoreStatusPending
	env := newTestEnv(t, cfg, stubCheckoutClient{url: "https://shop.example/c/1"})

	status, body := doJSON(t, env.app, http.MethodPost, "/api/v1/checkout", fiber.Map{"credits": 100})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "Payment system is not yet available. Please try again later.", body["message"])
}

func TestHandleStoreStatusAndCredits(t *testing.T) {
	cfg := testBillingConfig()
	cfg.StoreStatus = billing.StoreStatusPending
	env := newTestEnv(t, cfg, stubCheckoutClient{})

	status, body := doJSON(t, env.app, http.MethodGet, "/api/v1/store-status", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, true, body["is_pending"])

	status, body = doJSON(t, env.app, http.MethodGet, "/api/v1/credits", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 10, body["credits"])
}

func TestHandlePricing(t *testing.T) {
	env := newTestEnv(t, testBillingConfig(), stubCheckoutClient{})

	tests := []struct {
		query   string
		credits float64
		total   float64
	}{
		{query: "?credits=1500", credits: 1500, total: 72},
		{query: "?credits=10", credits: 50, total: 3},
		{query: "?credits=99999", credits: 2000, total: 92},
		{query: "", credits: 50, total: 3},
	}
	for _, tt := range tests {
		status, body := doJSON(t, env.app, http.MethodGet, "/api/v1/pricing"+tt.query, nil)
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, tt.credits, body["credits"])
		assert.Equal(t, tt.total, body["total"])
	}

	status, body := doJSON(t, env.app, http.MethodGet, "/api/v1/pricing/tiers", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["tiers"], 3)
	assert.EqualValues(t, 50, body["min_credits"])
}

func TestBillingErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: billing.ErrValidation, want: fiber.StatusBadRequest},
		{err: billing.ErrStoreUnavailable, want: fiber.StatusForbidden},
		{err: billing.ErrUserNotFound, want: fiber.StatusNotFound},
		{err: fmt.Errorf("%w: 422", billing.ErrUpstream), want: fiber.StatusBadGateway},
		{err: billing.ErrConfiguration, want: fiber.StatusInternalServerError},
		{err: errors.New("other"), want: fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, billingErrorStatus(tt.err), tt.err.Error())
	}
}

func TestHandleLemonSqueezyWebhook_Counters(t *testing.T) {
	env := newTestEnv(t, testBillingConfig(), stubCheckoutClient{})
	mr := miniredis.RunT(t)
	env.controller.SetCounters(counter.New(redis.NewClient(&redis.Options{Addr: mr.Addr()})))

	body := orderBody(env.user.ID, 100)
	sig := billing.SignWebhookPayload(body, testWebhookSecret)
	env.postWebhook(t, body, sig)
	env.postWebhook(t, body, sig)
	env.postWebhook(t, body, "bad")

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/metrics/billing", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out struct {
		Counters map[string]int64 `json:"counters"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, int64(2), out.Counters[counter.WebhooksReceived])
	assert.Equal(t, int64(1), out.Counters[counter.WebhooksDuplicate])
	assert.Equal(t, int64(1), out.Counters[counter.WebhooksRejected])
}
