package handlers

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"integen/api/internal/config"
	"integen/api/internal/service"
	"integen/api/internal/store"
)

const testSigningSecret = "whsec_test_secret"

type stubCheckout struct{}

func (stubCheckout) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return &stripe.CheckoutSession{
		ID:  "cs_test_123",
		URL: "https://checkout.example/pay/cs_test_123",
	}, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			JWTSecret: "test-secret",
			JWTTTL:    time.Hour,
		},
		Limits: config.LimitsConfig{ChatPerMinute: 0},
	}

	st, err := store.OpenFile(filepath.Join(t.TempDir(), "db.json"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := zerolog.Nop()
	handlerSet := NewHandlerSet(logger, cfg, st, nil,
		service.NewAuthService(st, cfg, logger),
		service.NewBillingServiceWithCreator(stubCheckout{}, "http://localhost:3000", logger),
		service.NewWebhookService(st, testSigningSecret, logger),
		service.NewChatService(st, nil, logger),
	)

	engine := gin.New()
	handlerSet.Register(engine)
	return engine, st
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	}
	return w, resp
}

func TestHealth(t *testing.T) {
	engine, _ := newTestRouter(t)

	w, resp := doJSON(t, engine, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, "test", resp["env"])
}

// TestEndToEndSubscriptionFlow walks the whole path: register, conflict
// on re-register, failed login, successful login, checkout session,
// then the signed completion webhook flipping the user onto "pro".
func TestEndToEndSubscriptionFlow(t *testing.T) {
	engine, st := newTestRouter(t)

	w, _ := doJSON(t, engine, http.MethodPost, "/api/register",
		`{"email":"a@x.com","password":"pw123456"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := doJSON(t, engine, http.MethodPost, "/api/register",
		`{"email":"a@x.com","password":"pw123456"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, resp["error"])

	w, resp = doJSON(t, engine, http.MethodPost, "/api/login",
		`{"email":"a@x.com","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, resp["error"])

	w, resp = doJSON(t, engine, http.MethodPost, "/api/login",
		`{"email":"a@x.com","password":"pw123456"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	token, _ := resp["token"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, "free", resp["plan"])

	w, resp = doJSON(t, engine, http.MethodPost, "/api/checkout",
		`{"plan":"pro"}`, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cs_test_123", resp["id"])
	assert.NotEmpty(t, resp["url"])

	payload, header := signedCompletedEvent(t, "evt_e2e_1", "a@x.com", "pro")
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", header)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())

	user, err := st.GetUserByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "pro", string(user.Plan))

	payments, err := st.ListPayments(context.Background())
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "cs_test_123", payments[0].ProviderSessionID)
}

func TestCheckout_UnknownPlan(t *testing.T) {
	engine, _ := newTestRouter(t)

	w, resp := doJSON(t, engine, http.MethodPost, "/api/checkout", `{"plan":"platinum"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Unknown plan", resp["error"])
}

func TestWebhook_BadSignatureRejected(t *testing.T) {
	engine, st := newTestRouter(t)

	payload, _ := signedCompletedEvent(t, "evt_bad", "a@x.com", "pro")
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	payments, err := st.ListPayments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestChat_PlaceholderWithoutProvider(t *testing.T) {
	engine, st := newTestRouter(t)

	w, resp := doJSON(t, engine, http.MethodPost, "/api/chat", `{"prompt":"hello"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["ok"])

	ai, ok := resp["ai"].(map[string]any)
	require.True(t, ok)
	text, _ := ai["text"].(string)
	assert.Contains(t, text, "hello")

	messages, err := st.ListMessages(context.Background())
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestChat_EmptyPrompt(t *testing.T) {
	engine, _ := newTestRouter(t)

	w, resp := doJSON(t, engine, http.MethodPost, "/api/chat", `{"prompt":"  "}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "prompt required", resp["error"])
}

func TestChat_InvalidBearerTokenRejected(t *testing.T) {
	engine, _ := newTestRouter(t)

	w, _ := doJSON(t, engine, http.MethodPost, "/api/chat", `{"prompt":"hello"}`,
		map[string]string{"Authorization": "Bearer not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSettings_MergeRoundTrip(t *testing.T) {
	engine, _ := newTestRouter(t)

	w, resp := doJSON(t, engine, http.MethodGet, "/api/settings", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "en", resp["language"])

	w, resp = doJSON(t, engine, http.MethodPost, "/api/settings", `{"theme":"dark"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	settings, ok := resp["settings"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "en", settings["language"])
	assert.Equal(t, "dark", settings["theme"])
}

func TestProviders(t *testing.T) {
	engine, _ := newTestRouter(t)

	w, resp := doJSON(t, engine, http.MethodGet, "/api/providers", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp["completion"])
	assert.Equal(t, false, resp["billing"])
}

func signedCompletedEvent(t *testing.T, eventID string, email string, plan string) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":   eventID,
		"type": "checkout.session.completed",
		"data": map[string]any{"object": map[string]any{
			"id":               "cs_test_123",
			"customer":         "cus_123",
			"customer_details": map[string]any{"email": email},
			"metadata":         map[string]any{"plan": plan},
		}},
	})
	require.NoError(t, err)

	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, testSigningSecret)
	return payload, fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig))
}
