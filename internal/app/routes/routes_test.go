package routes

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
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/circlehub/internal/app/controllers"
	"github.com/yigit/circlehub/internal/app/repositories/inmem"
	"github.com/yigit/circlehub/internal/app/services"
	"github.com/yigit/circlehub/internal/middleware"
	"github.com/yigit/circlehub/internal/pkg/auth"
	"github.com/yigit/circlehub/internal/pkg/cache"
	"github.com/yigit/circlehub/internal/pkg/metrics"
	"github.com/yigit/circlehub/internal/pkg/payments"
	"github.com/yigit/circlehub/internal/pkg/validation"
)

const (
	testCookie     = "circlehub_session"
	testCronSecret = "cron-secret"
)

type testServer struct {
	t       *testing.T
	router  *gin.Engine
	gateway *payments.FakeGateway
}

func init() {
	gin.SetMode(gin.TestMode)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = validation.Register(v)
	}
}

func newTestServer(t *testing.T, cronSecret string, health map[string]controllers.Pinger) *testServer {
	t.Helper()
	gateway := payments.NewFakeGateway()
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenExp: time.Hour,
		TokenIssuer:    "circlehub.test",
	})
	svc := services.NewServices(inmem.NewRepositories(inmem.NewDB()), services.Dependencies{
		JWT:      jwtService,
		Cache:    cache.NewMockClient(),
		Gateway:  gateway,
		Metrics:  metrics.NewRecorder(),
		Trial:    services.TrialConfig{Days: 14, ReminderDays: 3},
		Checkout: services.CheckoutURLs{SuccessURL: "https://app.test/ok", CancelURL: "https://app.test/cancel"},
	})

	nop := zerolog.Nop()
	ctl := Controllers{
		Auth:      controllers.NewAuthController(svc.Auth, controllers.SessionCookie{Name: testCookie}, nop),
		Users:     controllers.NewUserController(svc.Users, nop),
		Community: controllers.NewCommunityController(svc.Communities, svc.Gamification, nop),
		Posts:     controllers.NewPostController(svc.Posts, svc.Comments, nop),
		Courses:   controllers.NewCourseController(svc.Courses, nop),
		Messages:  controllers.NewMessageController(svc.Messages, svc.Notifications, nop),
		Payments:  controllers.NewPaymentController(svc.Payments, svc.Trials, svc.Webhooks, nop),
		System:    controllers.NewSystemController(svc.Trials, health, nop),
	}

	router := gin.New()
	router.Use(middleware.RequestID(nop))
	SetupRouter(router, ctl, middleware.NewAuthMiddleware(jwtService, testCookie), cronSecret)
	return &testServer{t: t, router: router, gateway: gateway}
}

func (s *testServer) do(method, path string, body interface{}, prepare func(*http.Request)) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prepare != nil {
		prepare(req)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// register creates an account and returns its access token
func (s *testServer) register(username string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name":     username,
		"email":    username + "@example.com",
		"username": username,
		"password": "correct-horse",
	}, nil)
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	data := decode(s.t, w)["data"].(map[string]interface{})
	return data["token"].(map[string]interface{})["accessToken"].(string)
}

func (s *testServer) createCommunity(token string, req map[string]interface{}) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/v1/communities", req, bearer(token))
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode(s.t, w)["data"].(map[string]interface{})["id"].(string)
}

func TestRegisterSetsSessionCookie(t *testing.T) {
	s := newTestServer(t, testCronSecret, nil)

	w := s.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name":     "Ada",
		"email":    "ada@example.com",
		"username": "ada_l",
		"password": "correct-horse",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == testCookie {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.NotEmpty(t, session.Value)

	me := s.do(http.MethodGet, "/api/v1/auth/me", nil, func(r *http.Request) { r.AddCookie(session) })
	require.Equal(t, http.StatusOK, me.Code, me.Body.String())
	user := decode(t, me)["data"].(map[string]interface{})
	assert.Equal(t, "ada_l", user["username"])
}

func TestRegisterRejectsInvalidUsername(t *testing.T) {
	s := newTestServer(t, testCronSecret, nil)

	w := s.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name":     "Bad",
		"email":    "bad@example.com",
		"username": "no spaces!",
		"password": "correct-horse",
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "username")
}

func TestUpdateUsernameRejectsWhitespace(t *testing.T) {
	s := newTestServer(t, testCronSecret, nil)
	token := s.register("grace_h")

	for _, bad := range []string{" grace_h2", "grace_h2\t", "grace h2"} {
		w := s.do(http.MethodPut, "/api/v1/users/me/username", map[string]string{"username": bad}, bearer(token))
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}

	w := s.do(http.MethodPut, "/api/v1/users/me/username", map[string]string{"username": "grace_h2"}, bearer(token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "grace_h2", decode(t, w)["data"].(map[string]interface{})["username"])
}

func TestAuthenticatedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, testCronSecret, nil)

	w := s.do(http.MethodGet, "/api/v1/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/v1/auth/me", nil, bearer("not-a-jwt"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJoinPaidCommunityRequiresPayment(t *testing.T) {
	s := newTestServer(t, testCronSecret, nil)
	owner := s.register("owner")
	member := s.register("member")

	id := s.createCommunity(owner, map[string]interface{}{
		"name":                 "Paid Circle",
		"paymentEnabled":       true,
		"subscriptionRequired": true,
		"subscriptionPrice":    1500,
	})

	w := s.do(http.MethodPost, "/api/v1/communities/"+id+"/join", nil, bearer(member))
	require.Equal(t, http.StatusPaymentRequired, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["requiresPayment"])
	assert.Equal(t, float64(1500), body["price"])
	assert.Equal(t, "usd", body["currency"])
}

func TestJoinPrivateCommunityIsAccepted(t *testing.T) {
	s := newTestServer(t, testCronSecret, nil)
	owner := s.register("owner")
	member := s.register("member")

	id := s.createCommunity(owner, map[string]interface{}{
		"name":      "Quiet Room",
		"isPrivate": true,
	})

	w := s.do(http.MethodPost, "/api/v1/communities/"+id+"/join", map[string]string{"message": "hi"}, bearer(member))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	// second request while pending
	w = s.do(http.MethodPost, "/api/v1/communities/"+id+"/join", nil, bearer(member))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodGet, "/api/v1/communities/"+id+"/join-requests", nil, bearer(owner))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCronEndpointsRequireSecret(t *testing.T) {
	s := newTestServer(t, testCronSecret, nil)

	w := s.do(http.MethodPost, "/api/v1/cron/expire", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/v1/cron/expire", nil, bearer("wrong"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/v1/cron/expire", nil, func(r *http.Request) {
		r.Header.Set("Authorization", testCronSecret)
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/v1/cron/expire", nil, bearer(testCronSecret))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/cron/trial-reminders", nil, bearer(testCronSecret))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestCronDisabledWithoutSecret(t *testing.T) {
	s := newTestServer(t, "", nil)

	w := s.do(http.MethodPost, "/api/v1/cron/expire", nil, bearer(""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	s := newTestServer(t, testCronSecret, nil)

	w := s.do(http.MethodPost, "/api/v1/webhooks/stripe", map[string]string{"type": "checkout.session.completed"}, func(r *http.Request) {
		r.Header.Set("Stripe-Signature", "forged")
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthReportsDegradedDependency(t *testing.T) {
	s := newTestServer(t, testCronSecret, map[string]controllers.Pinger{
		"mongo": controllers.PingFunc(func(context.Context) error { return nil }),
		"redis": controllers.PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	w := s.do(http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Equal(t, "degraded", body["status"])
	deps := body["dependencies"].(map[string]interface{})
	assert.Equal(t, "up", deps["mongo"])
	assert.Equal(t, "down", deps["redis"])

	ok := newTestServer(t, testCronSecret, nil)
	assert.Equal(t, http.StatusOK, ok.do(http.MethodGet, "/health", nil, nil).Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t, testCronSecret, nil)

	w := s.do(http.MethodGet, "/ping", nil, func(r *http.Request) {
		r.Header.Set(middleware.HeaderRequestID, "req-123")
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-123", w.Header().Get(middleware.HeaderRequestID))
}
