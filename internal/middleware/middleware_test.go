package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"github.com/yigit/circlehub/internal/pkg/auth"
	"github.com/yigit/circlehub/internal/pkg/metrics"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", apperrors.NewResourceNotFoundError("post not found"), http.StatusNotFound},
		{"wrapped user not found", fmt.Errorf("load: %w", apperrors.ErrUserNotFound), http.StatusNotFound},
		{"duplicate email", apperrors.ErrEmailAlreadyExists, http.StatusConflict},
		{"conflict", apperrors.NewConflictError("already a member"), http.StatusConflict},
		{"forbidden", apperrors.NewForbiddenError("admins only"), http.StatusForbidden},
		{"suspended", apperrors.ErrCommunitySuspended, http.StatusForbidden},
		{"bad request", apperrors.NewBadRequestError("bad body"), http.StatusBadRequest},
		{"trial ineligible", apperrors.NewTrialIneligibleError("trial already used"), http.StatusBadRequest},
		{"credentials", apperrors.ErrInvalidCredentials, http.StatusUnauthorized},
		{"expired jwt", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"payment", apperrors.NewPaymentRequiredError("pay first", nil), http.StatusPaymentRequired},
		{"gateway", apperrors.NewExternalServiceError("stripe down", errors.New("timeout")), http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestHandleAPIErrorPromotesDetails(t *testing.T) {
	router := gin.New()
	router.GET("/join", func(c *gin.Context) {
		HandleAPIError(c, apperrors.NewPaymentRequiredError("this community requires a paid membership", map[string]interface{}{
			"requiresPayment": true,
			"price":           int64(900),
		}))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/join", nil))
	require.Equal(t, http.StatusPaymentRequired, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, true, body["requiresPayment"])
	assert.Equal(t, float64(900), body["price"])

	detail := body["error"].(map[string]interface{})
	assert.Equal(t, "PAY_001", detail["code"])
	assert.Equal(t, "this community requires a paid membership", detail["message"])
}

func TestHandleAPIErrorHidesInternalErrors(t *testing.T) {
	router := gin.New()
	router.GET("/boom", func(c *gin.Context) {
		HandleAPIError(c, errors.New("dial tcp 10.0.0.1:27017: refused"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.1")
}

func newAuthRouter(t *testing.T, jwtService *auth.JWTService) *gin.Engine {
	t.Helper()
	router := gin.New()
	router.Use(NewAuthMiddleware(jwtService, "session").JWTAuth())
	router.GET("/me", func(c *gin.Context) {
		id, ok := CurrentUserID(c)
		require.True(t, ok)
		c.String(http.StatusOK, id.Hex())
	})
	return router
}

func TestJWTAuth(t *testing.T) {
	jwtService := auth.NewJWTService(auth.JWTConfig{SecretKey: "secret", AccessTokenExp: time.Hour, TokenIssuer: "test"})
	user := &models.User{ID: primitive.NewObjectID(), Username: "ada_l", Email: "ada@example.com"}
	token, _, err := jwtService.GenerateToken(user)
	require.NoError(t, err)
	router := newAuthRouter(t, jwtService)

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, user.ID.Hex(), w.Body.String())
	})

	t.Run("session cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: "session", Value: token})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("foreign signature", func(t *testing.T) {
		other := auth.NewJWTService(auth.JWTConfig{SecretKey: "other", AccessTokenExp: time.Hour, TokenIssuer: "test"})
		forged, _, err := other.GenerateToken(user)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+forged)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "AUTH_005")
	})
}

func TestCronSecret(t *testing.T) {
	build := func(secret string) *gin.Engine {
		r := gin.New()
		r.POST("/cron", CronSecret(secret), func(c *gin.Context) { c.Status(http.StatusNoContent) })
		return r
	}
	call := func(r *gin.Engine, header string) int {
		req := httptest.NewRequest(http.MethodPost, "/cron", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	r := build("s3cret")
	assert.Equal(t, http.StatusNoContent, call(r, "Bearer s3cret"))
	assert.Equal(t, http.StatusUnauthorized, call(r, "Bearer nope"))
	assert.Equal(t, http.StatusUnauthorized, call(r, ""))
	assert.Equal(t, http.StatusUnauthorized, call(r, "s3cret"))
	assert.Equal(t, http.StatusUnauthorized, call(r, "Token s3cret"))

	assert.Equal(t, http.StatusUnauthorized, call(build(""), "Bearer "))
}

func TestRequestIDAndLogger(t *testing.T) {
	rec := metrics.NewRecorder()
	router := gin.New()
	router.Use(RequestID(zerolog.Nop()), RequestLogger(rec))
	router.GET("/items/:id", func(c *gin.Context) {
		id, _ := c.Get(ContextRequestID)
		c.String(http.StatusOK, fmt.Sprint(id))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/7", nil))
	require.Equal(t, http.StatusOK, w.Code)
	generated := w.Header().Get(HeaderRequestID)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/items/8", nil)
	req.Header.Set(HeaderRequestID, "abc")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(HeaderRequestID))

	assert.NotZero(t, rec.Timings("http.request"))
}
